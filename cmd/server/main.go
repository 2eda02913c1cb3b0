package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"mediafolders/internal/auth"
	"mediafolders/internal/config"
	models "mediafolders/internal/domain/models/explorer"
	"mediafolders/internal/domain/repositories"
	explorerRepo "mediafolders/internal/domain/repositories/explorer"
	"mediafolders/internal/handler"
	"mediafolders/internal/metrics"
	"mediafolders/internal/middleware"
	"mediafolders/internal/repository/memory"
	"mediafolders/internal/repository/postgres"
	postgresExplorer "mediafolders/internal/repository/postgres/explorer"
	serviceAuth "mediafolders/internal/service/auth"
	serviceExplorer "mediafolders/internal/service/explorer"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logger, logCloser, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to setup logging: %v", err)
	}
	defer func() { _ = logCloser.Close() }()
	slog.SetDefault(logger)

	explorerCfg, err := config.LoadExplorerConfig(cfg.ExplorerConfigPath)
	if err != nil {
		log.Fatalf("Failed to load explorer config: %v", err)
	}

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
		"default_order", explorerCfg.DefaultOrder,
		"page_size", explorerCfg.PageSize,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Content store: PostgreSQL when configured, in-memory otherwise
	access := serviceAuth.NewPermissionAuthorizer()
	store, txManager, closeStore, err := openContentStore(ctx, cfg, access, logger)
	if err != nil {
		log.Fatalf("Failed to open content store: %v", err)
	}
	defer closeStore()

	// Bearer token verification is optional outside production
	var jwtVerifier auth.JWTVerifier
	if cfg.JWKSURL != "" {
		jwtVerifier, err = auth.NewJWTVerifier(cfg.JWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		defer func() { _ = jwtVerifier.Close() }()
	} else if cfg.Environment == "prod" {
		logger.Warn("JWKS_URL not set: all requests run as anonymous")
	}

	fallbackActor := models.Anonymous
	if cfg.Environment != "prod" && jwtVerifier == nil {
		fallbackActor = models.Actor{ID: "dev-user", Permissions: serviceAuth.AllPermissions()}
		logger.Warn("DEV MODE: unauthenticated requests run as a fully privileged actor", "actor", fallbackActor.ID)
	}

	// Create explorer services
	cache := serviceExplorer.NewExplorerCache(explorerCfg.CacheMaxEntries, logger)
	treeService := serviceExplorer.NewTreeService(store.Folders, explorerCfg, logger)
	contentsService := serviceExplorer.NewContentsService(store, cache, explorerCfg, logger)
	searchService := serviceExplorer.NewSearchService(store, cache, explorerCfg, logger)
	mutationService := serviceExplorer.NewMutationService(store, txManager, cache, explorerCfg, logger)

	codec, err := serviceExplorer.NewWidgetStateCodec(cfg.WidgetSecret)
	if err != nil {
		log.Fatalf("Failed to create widget state codec (set WIDGET_SECRET): %v", err)
	}

	// Create handlers
	explorerHandler := handler.NewExplorerHandler(contentsService, searchService, treeService, logger)
	folderHandler := handler.NewFolderHandler(mutationService, logger)
	fileHandler := handler.NewFileHandler(mutationService, logger)
	pickerHandler := handler.NewPickerHandler(codec, contentsService, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check and metrics
	mux.HandleFunc("GET /health", explorerHandler.HealthCheck)
	mux.Handle("GET /metrics", metrics.Handler())

	// Explorer read routes
	mux.HandleFunc("GET /api/explorer/folders", explorerHandler.ListFolder)
	mux.HandleFunc("GET /api/explorer/folders/{id}", explorerHandler.ListFolder)
	mux.HandleFunc("GET /api/explorer/tree", explorerHandler.GetTree)
	mux.HandleFunc("GET /api/explorer/search", explorerHandler.Search)

	// Picker routes
	mux.HandleFunc("POST /api/explorer/picker", pickerHandler.BuildPicker)
	mux.HandleFunc("POST /api/explorer/picker/state", pickerHandler.SignState)

	// Folder routes
	mux.HandleFunc("POST /api/folders", folderHandler.CreateFolder)
	mux.HandleFunc("GET /api/folders/{id}", explorerHandler.GetFolder)
	mux.HandleFunc("PATCH /api/folders/{id}", folderHandler.UpdateFolder)
	mux.HandleFunc("DELETE /api/folders/{id}", folderHandler.DeleteFolder)
	mux.HandleFunc("POST /api/folders/{id}/move", folderHandler.MoveFolder)

	// File routes
	mux.HandleFunc("POST /api/files", fileHandler.CreateFile)
	mux.HandleFunc("PATCH /api/files/{id}", fileHandler.UpdateFile)
	mux.HandleFunc("DELETE /api/files/{id}", fileHandler.DeleteFile)
	mux.HandleFunc("POST /api/files/{id}/move", fileHandler.MoveFile)

	// Build middleware chain
	var handler http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Metrics → Routes
	// Metrics sits directly on the mux so it sees the matched route pattern.
	handler = metrics.Middleware(handler)
	handler = middleware.Auth(jwtVerifier, fallbackActor, logger)(handler)
	handler = middleware.Recovery(logger)(handler)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	handler = corsHandler.Handler(handler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
	logger.Info("server stopped")
}

// openContentStore connects the PostgreSQL store and applies migrations, or
// falls back to an empty in-memory store when DATABASE_URL is unset.
func openContentStore(
	ctx context.Context,
	cfg *config.Config,
	access explorerRepo.AccessChecker,
	logger *slog.Logger,
) (explorerRepo.ContentStore, repositories.TransactionManager, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set: using in-memory content store (data is lost on restart)")
		mem := memory.NewStore()
		return mem.ContentStore(access), mem.TxManager(), func() {}, nil
	}

	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return explorerRepo.ContentStore{}, nil, nil, err
	}

	tables := postgres.NewTableNames(cfg.TablePrefix)
	if err := postgres.RunMigrations(ctx, pool, tables, logger); err != nil {
		pool.Close()
		return explorerRepo.ContentStore{}, nil, nil, err
	}

	logger.Info("database connected",
		"max_conns", pool.Config().MaxConns,
		"min_conns", pool.Config().MinConns,
	)

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	store := explorerRepo.ContentStore{
		Folders: postgresExplorer.NewFolderRepository(repoConfig),
		Files:   postgresExplorer.NewFileEntryRepository(repoConfig),
		Access:  access,
	}
	return store, postgres.NewTransactionManager(pool, logger), pool.Close, nil
}
