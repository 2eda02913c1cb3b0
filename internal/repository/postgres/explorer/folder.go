package explorer

import (
	"context"
	"fmt"

	"mediafolders/internal/config"
	"mediafolders/internal/domain"
	models "mediafolders/internal/domain/models/explorer"
	"mediafolders/internal/domain/repositories"
	explorerRepo "mediafolders/internal/domain/repositories/explorer"
	"mediafolders/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const folderColumns = `id::text, parent_id::text, name, description, created_at, updated_at`

// PostgresFolderRepository implements the FolderRepository interface
type PostgresFolderRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewFolderRepository creates a new folder repository
func NewFolderRepository(cfg *postgres.RepositoryConfig) explorerRepo.FolderRepository {
	return &PostgresFolderRepository{
		pool:   cfg.Pool,
		tables: cfg.Tables,
	}
}

// Create creates a new folder. The unique index on (parent, lower(name))
// rejects concurrent duplicates that slipped past the service-level check.
func (r *PostgresFolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	if folder.ParentID != nil && !postgres.ValidID(*folder.ParentID) {
		return postgres.NotFound("folder", *folder.ParentID)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (parent_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id::text
	`, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		postgres.NullableID(folder.ParentID),
		folder.Name,
		folder.Description,
		folder.CreatedAt,
		folder.UpdatedAt,
	).Scan(&folder.ID)

	if err != nil {
		return r.writeError(ctx, err, folder)
	}
	return nil
}

// GetByID retrieves a folder by ID
func (r *PostgresFolderRepository) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	if !postgres.ValidID(id) {
		return nil, postgres.NotFound("folder", id)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, folderColumns, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	folder, err := scanFolder(executor.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, postgres.NotFound("folder", id)
		}
		return nil, fmt.Errorf("get folder: %w", err)
	}
	return folder, nil
}

// Update updates name, description and parent of a folder
func (r *PostgresFolderRepository) Update(ctx context.Context, folder *models.Folder) error {
	if !postgres.ValidID(folder.ID) {
		return postgres.NotFound("folder", folder.ID)
	}
	if folder.ParentID != nil && !postgres.ValidID(*folder.ParentID) {
		return postgres.NotFound("folder", *folder.ParentID)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET parent_id = $1, name = $2, description = $3, updated_at = $4
		WHERE id = $5
	`, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		postgres.NullableID(folder.ParentID),
		folder.Name,
		folder.Description,
		folder.UpdatedAt,
		folder.ID,
	)
	if err != nil {
		return r.writeError(ctx, err, folder)
	}

	if result.RowsAffected() == 0 {
		return postgres.NotFound("folder", folder.ID)
	}
	return nil
}

// LockHierarchy takes a transaction-scoped advisory lock keyed on the folder
// table, so concurrent moves cannot both pass their cycle checks.
func (r *PostgresFolderRepository) LockHierarchy(ctx context.Context) error {
	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, r.tables.Folders); err != nil {
		return fmt.Errorf("lock folder hierarchy: %w", err)
	}
	return nil
}

// Delete deletes a single folder. Folders that still hold subfolders or files
// are protected by ON DELETE RESTRICT.
func (r *PostgresFolderRepository) Delete(ctx context.Context, id string) error {
	if !postgres.ValidID(id) {
		return postgres.NotFound("folder", id)
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return &domain.ConflictError{
				Message:      "cannot delete folder with children",
				ResourceType: "folder",
				ResourceID:   id,
			}
		}
		return fmt.Errorf("delete folder: %w", err)
	}

	if result.RowsAffected() == 0 {
		return postgres.NotFound("folder", id)
	}
	return nil
}

// ListChildren lists immediate child folders
func (r *PostgresFolderRepository) ListChildren(ctx context.Context, parentID *string) ([]models.Folder, error) {
	var query string
	var args []interface{}

	if parentID == nil {
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE parent_id IS NULL
			ORDER BY lower(name) COLLATE "C", id
		`, folderColumns, r.tables.Folders)
	} else {
		if !postgres.ValidID(*parentID) {
			return []models.Folder{}, nil
		}
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE parent_id = $1
			ORDER BY lower(name) COLLATE "C", id
		`, folderColumns, r.tables.Folders)
		args = append(args, *parentID)
	}

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list folder children: %w", err)
	}
	return collectFolders(rows)
}

// ListSubtree returns every folder below parentID using a recursive CTE.
// Recursion stops at config.MaxTreeDepth levels.
func (r *PostgresFolderRepository) ListSubtree(ctx context.Context, parentID *string) ([]models.Folder, error) {
	var query string
	var args []interface{}

	if parentID == nil {
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			ORDER BY lower(name) COLLATE "C", id
		`, folderColumns, r.tables.Folders)
	} else {
		if !postgres.ValidID(*parentID) {
			return []models.Folder{}, nil
		}
		query = fmt.Sprintf(`
			WITH RECURSIVE subtree AS (
				SELECT id, 1 AS depth
				FROM %[1]s
				WHERE parent_id = $1
				UNION
				SELECT f.id, s.depth + 1
				FROM %[1]s f
				JOIN subtree s ON f.parent_id = s.id
				WHERE s.depth < $2
			)
			SELECT %[2]s
			FROM %[1]s
			WHERE id IN (SELECT id FROM subtree)
			ORDER BY lower(name) COLLATE "C", id
		`, r.tables.Folders, folderColumns)
		args = append(args, *parentID, config.MaxTreeDepth)
	}

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list folder subtree: %w", err)
	}
	return collectFolders(rows)
}

// FindByName finds a sibling by case-insensitive name
func (r *PostgresFolderRepository) FindByName(ctx context.Context, parentID *string, name string) (*models.Folder, error) {
	var query string
	var args []interface{}

	if parentID == nil {
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE parent_id IS NULL AND lower(name) = lower($1)
		`, folderColumns, r.tables.Folders)
		args = append(args, name)
	} else {
		if !postgres.ValidID(*parentID) {
			return nil, nil
		}
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE parent_id = $1 AND lower(name) = lower($2)
		`, folderColumns, r.tables.Folders)
		args = append(args, *parentID, name)
	}

	executor := postgres.GetExecutor(ctx, r.pool)
	folder, err := scanFolder(executor.QueryRow(ctx, query, args...))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, nil // Not found, not an error
		}
		return nil, fmt.Errorf("find folder by name: %w", err)
	}
	return folder, nil
}

// writeError maps constraint violations of an insert or update to domain errors.
func (r *PostgresFolderRepository) writeError(ctx context.Context, err error, folder *models.Folder) error {
	switch {
	case postgres.IsPgDuplicateError(err):
		conflict := &domain.ConflictError{
			Message:      fmt.Sprintf("a folder named %q already exists in this location", folder.Name),
			ResourceType: "folder",
		}
		if !repositories.InTx(ctx) {
			if existing, findErr := r.FindByName(ctx, folder.ParentID, folder.Name); findErr == nil && existing != nil {
				conflict.ResourceID = existing.ID
			}
		}
		return conflict
	case postgres.IsPgForeignKeyError(err):
		return postgres.NotFound("folder", models.FolderKey(folder.ParentID))
	default:
		return fmt.Errorf("write folder: %w", err)
	}
}

func scanFolder(row pgx.Row) (*models.Folder, error) {
	var folder models.Folder
	err := row.Scan(
		&folder.ID,
		&folder.ParentID,
		&folder.Name,
		&folder.Description,
		&folder.CreatedAt,
		&folder.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &folder, nil
}

func collectFolders(rows pgx.Rows) ([]models.Folder, error) {
	defer rows.Close()

	folders := []models.Folder{}
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, *folder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}
	return folders, nil
}
