package explorer

import (
	"context"
	"fmt"
	"strings"

	"mediafolders/internal/domain"
	models "mediafolders/internal/domain/models/explorer"
	"mediafolders/internal/domain/repositories"
	explorerRepo "mediafolders/internal/domain/repositories/explorer"
	"mediafolders/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const fileColumns = `id::text, folder_id::text, name, bundle, file_ref, link_url, published, owner_id, created_at, updated_at`

// PostgresFileEntryRepository implements the FileEntryRepository interface
type PostgresFileEntryRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewFileEntryRepository creates a new file entry repository
func NewFileEntryRepository(cfg *postgres.RepositoryConfig) explorerRepo.FileEntryRepository {
	return &PostgresFileEntryRepository{
		pool:   cfg.Pool,
		tables: cfg.Tables,
	}
}

// Create creates a new file entry
func (r *PostgresFileEntryRepository) Create(ctx context.Context, entry *models.FileEntry) error {
	if entry.FolderID != nil && !postgres.ValidID(*entry.FolderID) {
		return postgres.NotFound("folder", *entry.FolderID)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (folder_id, name, bundle, file_ref, link_url, published, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id::text
	`, r.tables.Files)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		postgres.NullableID(entry.FolderID),
		entry.Name,
		entry.Bundle,
		entry.FileRef,
		entry.LinkURL,
		entry.Published,
		entry.OwnerID,
		entry.CreatedAt,
		entry.UpdatedAt,
	).Scan(&entry.ID)

	if err != nil {
		return r.writeError(ctx, err, entry)
	}
	return nil
}

// GetByID retrieves a file entry by ID
func (r *PostgresFileEntryRepository) GetByID(ctx context.Context, id string) (*models.FileEntry, error) {
	if !postgres.ValidID(id) {
		return nil, postgres.NotFound("file", id)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, fileColumns, r.tables.Files)

	executor := postgres.GetExecutor(ctx, r.pool)
	entry, err := scanFile(executor.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, postgres.NotFound("file", id)
		}
		return nil, fmt.Errorf("get file entry: %w", err)
	}
	return entry, nil
}

// Update updates folder, name and status of an entry
func (r *PostgresFileEntryRepository) Update(ctx context.Context, entry *models.FileEntry) error {
	if !postgres.ValidID(entry.ID) {
		return postgres.NotFound("file", entry.ID)
	}
	if entry.FolderID != nil && !postgres.ValidID(*entry.FolderID) {
		return postgres.NotFound("folder", *entry.FolderID)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET folder_id = $1, name = $2, published = $3, updated_at = $4
		WHERE id = $5
	`, r.tables.Files)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		postgres.NullableID(entry.FolderID),
		entry.Name,
		entry.Published,
		entry.UpdatedAt,
		entry.ID,
	)
	if err != nil {
		return r.writeError(ctx, err, entry)
	}

	if result.RowsAffected() == 0 {
		return postgres.NotFound("file", entry.ID)
	}
	return nil
}

// Delete deletes a file entry
func (r *PostgresFileEntryRepository) Delete(ctx context.Context, id string) error {
	if !postgres.ValidID(id) {
		return postgres.NotFound("file", id)
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Files)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete file entry: %w", err)
	}

	if result.RowsAffected() == 0 {
		return postgres.NotFound("file", id)
	}
	return nil
}

// Query returns one page of matching entries plus the total match count.
// Both statements run on the same executor, so inside ExecTx they see one snapshot.
func (r *PostgresFileEntryRepository) Query(ctx context.Context, q explorerRepo.FileQuery) ([]models.FileEntry, int, error) {
	total, err := r.Count(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 || q.Offset >= total {
		return []models.FileEntry{}, total, nil
	}

	where, args := buildFileFilter(q)
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY %s`,
		fileColumns, r.tables.Files, where, orderClause(q.Order))

	if q.Offset > 0 {
		args = append(args, q.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query file entries: %w", err)
	}
	entries, err := collectFiles(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// Count returns the number of entries matching q, ignoring paging
func (r *PostgresFileEntryRepository) Count(ctx context.Context, q explorerRepo.FileQuery) (int, error) {
	where, args := buildFileFilter(q)
	query := fmt.Sprintf(`SELECT count(*) FROM %s WHERE %s`, r.tables.Files, where)

	var count int
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count file entries: %w", err)
	}
	return count, nil
}

// ListByFolder lists every entry of a folder, published or not, oldest first
func (r *PostgresFileEntryRepository) ListByFolder(ctx context.Context, folderID *string) ([]models.FileEntry, error) {
	var query string
	var args []interface{}

	if folderID == nil {
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE folder_id IS NULL
			ORDER BY created_at, id
		`, fileColumns, r.tables.Files)
	} else {
		if !postgres.ValidID(*folderID) {
			return []models.FileEntry{}, nil
		}
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE folder_id = $1
			ORDER BY created_at, id
		`, fileColumns, r.tables.Files)
		args = append(args, *folderID)
	}

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list file entries: %w", err)
	}
	return collectFiles(rows)
}

// FindByName finds an entry in a folder by case-insensitive name
func (r *PostgresFileEntryRepository) FindByName(ctx context.Context, folderID *string, name string) (*models.FileEntry, error) {
	var query string
	var args []interface{}

	if folderID == nil {
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE folder_id IS NULL AND lower(name) = lower($1)
		`, fileColumns, r.tables.Files)
		args = append(args, name)
	} else {
		if !postgres.ValidID(*folderID) {
			return nil, nil
		}
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE folder_id = $1 AND lower(name) = lower($2)
		`, fileColumns, r.tables.Files)
		args = append(args, *folderID, name)
	}

	executor := postgres.GetExecutor(ctx, r.pool)
	entry, err := scanFile(executor.QueryRow(ctx, query, args...))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find file entry by name: %w", err)
	}
	return entry, nil
}

func (r *PostgresFileEntryRepository) writeError(ctx context.Context, err error, entry *models.FileEntry) error {
	switch {
	case postgres.IsPgDuplicateError(err):
		conflict := &domain.ConflictError{
			Message:      fmt.Sprintf("a file named %q already exists in this location", entry.Name),
			ResourceType: "file",
		}
		if !repositories.InTx(ctx) {
			if existing, findErr := r.FindByName(ctx, entry.FolderID, entry.Name); findErr == nil && existing != nil {
				conflict.ResourceID = existing.ID
			}
		}
		return conflict
	case postgres.IsPgForeignKeyError(err):
		return postgres.NotFound("folder", models.FolderKey(entry.FolderID))
	default:
		return fmt.Errorf("write file entry: %w", err)
	}
}

// buildFileFilter renders the WHERE clause of a FileQuery with positional arguments.
func buildFileFilter(q explorerRepo.FileQuery) (string, []interface{}) {
	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !q.AllFolders {
		var scope []string
		ids := make([]string, 0, len(q.FolderIDs))
		for _, id := range q.FolderIDs {
			if postgres.ValidID(id) {
				ids = append(ids, id)
			}
		}
		if len(ids) > 0 {
			scope = append(scope, fmt.Sprintf("folder_id = ANY(%s::text[]::uuid[])", arg(ids)))
		}
		if q.IncludeRoot {
			scope = append(scope, "folder_id IS NULL")
		}
		if len(scope) == 0 {
			conds = append(conds, "FALSE")
		} else {
			conds = append(conds, "("+strings.Join(scope, " OR ")+")")
		}
	}

	if len(q.Bundles) > 0 {
		conds = append(conds, fmt.Sprintf("bundle = ANY(%s::text[])", arg(q.Bundles)))
	}

	if q.NameContains != "" {
		conds = append(conds, fmt.Sprintf("name ILIKE %s", arg("%"+escapeLike(q.NameContains)+"%")))
	}

	if q.PublishedOnly {
		if q.VisibleTo != "" {
			conds = append(conds, fmt.Sprintf("(published OR owner_id = %s)", arg(q.VisibleTo)))
		} else {
			conds = append(conds, "published")
		}
	}

	if len(conds) == 0 {
		return "TRUE", args
	}
	return strings.Join(conds, " AND "), args
}

// orderClause mirrors the ascending clause exactly for descending orders.
// Names compare bytewise under the C collation, as the Go orderer does.
func orderClause(order models.OrderSpec) string {
	if !order.Valid() {
		order = models.DefaultOrder
	}
	dir := "ASC"
	if order.Descending() {
		dir = "DESC"
	}
	if order.ByDate() {
		return fmt.Sprintf("created_at %[1]s, id %[1]s", dir)
	}
	return fmt.Sprintf(`lower(name) COLLATE "C" %[1]s, id %[1]s`, dir)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanFile(row pgx.Row) (*models.FileEntry, error) {
	var entry models.FileEntry
	err := row.Scan(
		&entry.ID,
		&entry.FolderID,
		&entry.Name,
		&entry.Bundle,
		&entry.FileRef,
		&entry.LinkURL,
		&entry.Published,
		&entry.OwnerID,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func collectFiles(rows pgx.Rows) ([]models.FileEntry, error) {
	defer rows.Close()

	entries := []models.FileEntry{}
	for rows.Next() {
		entry, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file entry: %w", err)
		}
		entries = append(entries, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate file entries: %w", err)
	}
	return entries, nil
}
