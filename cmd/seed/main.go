package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"strings"

	"mediafolders/internal/config"
	"mediafolders/internal/domain"
	models "mediafolders/internal/domain/models/explorer"
	explorerRepo "mediafolders/internal/domain/repositories/explorer"
	explorerSvc "mediafolders/internal/domain/services/explorer"
	"mediafolders/internal/repository/postgres"
	postgresExplorer "mediafolders/internal/repository/postgres/explorer"
	serviceAuth "mediafolders/internal/service/auth"
	serviceExplorer "mediafolders/internal/service/explorer"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop the explorer tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only apply migrations, don't seed folders and files")
	clearData := flag.Bool("clear-data", false, "Clear all folders and files (keep schema)")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("🚫 BLOCKED: Cannot run destructive operations (--drop-tables or --clear-data) in production environment")
	}
	if cfg.DatabaseURL == "" {
		log.Fatalf("DATABASE_URL is required for seeding")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	switch {
	case *clearData:
		log.Printf("🧹 Clearing data only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	case *schemaOnly:
		log.Printf("🏗️  Applying migrations only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	default:
		log.Printf("🌱 Seeding media explorer (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Println("🗑️  Dropping explorer tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	log.Println("📋 Applying migrations...")
	if err := postgres.RunMigrations(ctx, pool, tables, logger); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("✅ Schema ready")

	if *schemaOnly {
		return
	}

	if *clearData {
		if err := clearExplorerData(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		log.Println("✅ Data cleared successfully")
		return
	}

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	store := explorerRepo.ContentStore{
		Folders: postgresExplorer.NewFolderRepository(repoConfig),
		Files:   postgresExplorer.NewFileEntryRepository(repoConfig),
		Access:  serviceAuth.NewPermissionAuthorizer(),
	}
	explorerCfg := config.DefaultExplorerConfig()
	mutations := serviceExplorer.NewMutationService(store, postgres.NewTransactionManager(pool, logger), nil, explorerCfg, logger)

	seeder := &seeder{
		mutations: mutations,
		actor:     models.Actor{ID: "seed", Permissions: serviceAuth.AllPermissions()},
		folders:   make(map[string]*string),
	}

	files := getSeedFiles()
	for i, f := range files {
		entry, err := seeder.createFile(ctx, f)
		if err != nil {
			log.Printf("❌ Failed to create %s/%s: %v", f.folder, f.name, err)
			continue
		}
		log.Printf("✅ Created file %d/%d: %s/%s (ID: %s, bundle: %s)",
			i+1, len(files), f.folder, entry.Name, entry.ID, entry.Bundle)
	}

	log.Println("🎉 Seeding complete!")
}

// seeder creates folder paths on demand and remembers their ids.
type seeder struct {
	mutations explorerSvc.MutationService
	actor     models.Actor
	folders   map[string]*string // "A/B" -> id
}

// ensureFolder creates every missing segment of path and returns the id of
// the last one. An existing sibling with the same name is reused.
func (s *seeder) ensureFolder(ctx context.Context, path string) (*string, error) {
	if path == "" {
		return nil, nil
	}
	if id, ok := s.folders[path]; ok {
		return id, nil
	}

	var parentID *string
	var built []string
	for _, segment := range strings.Split(path, "/") {
		built = append(built, segment)
		key := strings.Join(built, "/")
		if id, ok := s.folders[key]; ok {
			parentID = id
			continue
		}

		folder, err := s.mutations.CreateFolder(ctx, &explorerSvc.CreateFolderRequest{
			ParentID: parentID,
			Name:     segment,
			Actor:    s.actor,
		})
		var conflictErr *domain.ConflictError
		switch {
		case errors.As(err, &conflictErr) && conflictErr.ResourceID != "":
			id := conflictErr.ResourceID
			parentID = &id
		case err != nil:
			return nil, err
		default:
			parentID = &folder.ID
		}
		s.folders[key] = parentID
	}
	return parentID, nil
}

func (s *seeder) createFile(ctx context.Context, f seedFile) (*models.FileEntry, error) {
	folderID, err := s.ensureFolder(ctx, f.folder)
	if err != nil {
		return nil, err
	}
	return s.mutations.CreateFileEntry(ctx, &explorerSvc.CreateFileEntryRequest{
		FolderID:  folderID,
		Name:      f.name,
		Bundle:    f.bundle,
		FileRef:   f.fileRef,
		LinkURL:   f.linkURL,
		Published: &f.published,
		Actor:     s.actor,
	})
}

// dropAllTables drops the explorer tables and their migration history
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	tableNames := []string{
		tables.Files,
		tables.Folders,
		tables.Prefix + "goose_db_version",
	}

	for _, table := range tableNames {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
			return err
		}
		log.Printf("  ✓ Dropped %s", table)
	}
	return nil
}

// clearExplorerData removes every folder and file. TRUNCATE of both tables in
// one statement sidesteps the RESTRICT foreign keys.
func clearExplorerData(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	_, err := pool.Exec(ctx, "TRUNCATE "+tables.Files+", "+tables.Folders)
	return err
}

type seedFile struct {
	folder    string // slash separated path, "" = root
	name      string
	bundle    string
	fileRef   string
	linkURL   string
	published bool
}

func getSeedFiles() []seedFile {
	return []seedFile{
		{folder: "Finance/Archive", name: "budget-2024.pdf", bundle: "document", fileRef: "public://finance/budget-2024.pdf", published: true},
		{folder: "Finance/Archive", name: "budget-2023.pdf", bundle: "document", fileRef: "public://finance/budget-2023.pdf", published: true},
		{folder: "Finance", name: "invoice-template.docx", bundle: "document", fileRef: "public://finance/invoice-template.docx", published: true},
		{folder: "Finance", name: "forecast-draft.xlsx", bundle: "document", fileRef: "private://finance/forecast-draft.xlsx", published: false},
		{folder: "Marketing/Campaigns", name: "spring-banner.png", bundle: "image", fileRef: "public://marketing/spring-banner.png", published: true},
		{folder: "Marketing/Campaigns", name: "summer-banner.png", bundle: "image", fileRef: "public://marketing/summer-banner.png", published: true},
		{folder: "Marketing", name: "brand-film", bundle: "remote_video", linkURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", published: true},
		{folder: "Marketing", name: "press-kit.zip", bundle: "document", fileRef: "public://marketing/press-kit.zip", published: true},
		{folder: "Photos/Offsite 2024", name: "team-photo.jpg", bundle: "image", fileRef: "public://photos/team-photo.jpg", published: true},
		{folder: "Photos/Offsite 2024", name: "venue.jpg", bundle: "image", fileRef: "public://photos/venue.jpg", published: true},
		{folder: "Photos", name: "headshots", bundle: "image", fileRef: "public://photos/headshots.png", published: true},
		{folder: "", name: "logo.svg", bundle: "image", fileRef: "public://logo.svg", published: true},
		{folder: "", name: "welcome.mp3", bundle: "audio", fileRef: "public://welcome.mp3", published: true},
	}
}
