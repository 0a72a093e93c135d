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

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"deptdocs/internal/auth"
	"deptdocs/internal/config"
	models "deptdocs/internal/domain/models/docsystem"
	"deptdocs/internal/domain/repositories"
	docsysRepo "deptdocs/internal/domain/repositories/docsystem"
	docsysSvc "deptdocs/internal/domain/services/docsystem"
	"deptdocs/internal/domain/storage"
	"deptdocs/internal/handler"
	"deptdocs/internal/metrics"
	"deptdocs/internal/middleware"
	"deptdocs/internal/repository/memory"
	"deptdocs/internal/repository/postgres"
	postgresDocsys "deptdocs/internal/repository/postgres/docsystem"
	"deptdocs/internal/service/access"
	serviceDocsys "deptdocs/internal/service/docsystem"
	"deptdocs/internal/storage/local"
	"deptdocs/internal/storage/s3"
)

// repos bundles the persistence backend chosen by STORE_BACKEND
type repos struct {
	depts   docsysRepo.DepartmentRepository
	folders docsysRepo.FolderRepository
	docs    docsysRepo.DocumentRepository
	logs    docsysRepo.DownloadLogRepository
	tx      repositories.TransactionManager
	close   func()
}

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, logCloser, err := config.NewLogger(cfg, "server")
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
		"store_backend", cfg.StoreBackend,
		"storage_backend", cfg.StorageBackend,
		"search_cache", cfg.SearchCache,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	verifier, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer verifier.Close()

	r, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer r.close()

	files, err := openStorage(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open file storage: %v", err)
	}

	cache, closeCache, err := openSearchCache(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open search cache: %v", err)
	}
	defer closeCache()

	// Create services
	policy := access.NewPolicy(cfg.Policy)
	authorizer := access.NewAuthorizer(policy, r.depts, r.folders, r.docs)

	departments := serviceDocsys.NewDepartmentDirectory(r.depts, policy, logger)
	folderTree := serviceDocsys.NewFolderTree(r.folders, r.docs, r.depts, r.tx, policy, authorizer, logger)
	auditor := serviceDocsys.NewDownloadAuditor(r.logs, r.docs, r.tx, policy, authorizer, logger)
	documents := serviceDocsys.NewDocumentStore(r.docs, r.folders, r.depts, r.logs, r.tx, policy, authorizer, auditor, files,
		serviceDocsys.UploadLimits{MaxBytes: cfg.MaxUploadBytes, AllowedExtensions: cfg.AllowedExtensions}, logger)
	search := serviceDocsys.NewSearchEngine(r.docs, policy, cache, serviceDocsys.SearchOptions{
		DefaultPageSize: cfg.SearchDefaultPageSize,
		MaxPageSize:     cfg.SearchMaxPageSize,
	}, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handler.Handlers{
		Departments: handler.NewDepartmentHandler(departments, folderTree, logger),
		Folders:     handler.NewFolderHandler(folderTree, logger),
		Documents:   handler.NewDocumentHandler(documents, search, auditor, cfg.MaxUploadBytes, logger),
		Metrics:     metrics.Handler(),
	})

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	var h http.Handler = mux
	h = middleware.Auth(verifier, logger)(h)
	h = middleware.Recovery(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Audit-Warning"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  60 * time.Second, // uploads
		WriteTimeout: 0,                // downloads stream for as long as they need
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func openRepositories(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*repos, error) {
	if cfg.StoreBackend == config.BackendMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		store := memory.NewStore()
		depts := memory.NewDepartmentRepository(store)
		if err := seedMemory(ctx, cfg, depts); err != nil {
			return nil, err
		}
		return &repos{
			depts:   depts,
			folders: memory.NewFolderRepository(store),
			docs:    memory.NewDocumentRepository(store),
			logs:    memory.NewDownloadLogRepository(store),
			tx:      memory.NewTransactionManager(store),
			close:   func() {},
		}, nil
	}

	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.TablePrefix, logger); err != nil {
		return nil, err
	}
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: postgres.NewTableNames(cfg.TablePrefix),
		Logger: logger,
	}
	return &repos{
		depts:   postgresDocsys.NewDepartmentRepository(repoConfig),
		folders: postgresDocsys.NewFolderRepository(repoConfig),
		docs:    postgresDocsys.NewDocumentRepository(repoConfig),
		logs:    postgresDocsys.NewDownloadLogRepository(repoConfig),
		tx:      postgres.NewTransactionManager(pool, logger),
		close:   pool.Close,
	}, nil
}

// seedMemory creates the general department the migrations would seed
func seedMemory(ctx context.Context, cfg *config.Config, depts docsysRepo.DepartmentRepository) error {
	return depts.Create(ctx, &models.Department{
		ID:     cfg.Policy.GeneralDepartmentID,
		Name:   "General",
		Active: true,
	})
}

func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.PhysicalStorage, error) {
	if cfg.StorageBackend == config.BackendS3 {
		st, err := s3.New(cfg.S3, logger)
		if err != nil {
			return nil, err
		}
		if err := st.EnsureBucket(ctx, cfg.S3.Region); err != nil {
			return nil, err
		}
		return st, nil
	}
	logger.Info("using local file storage", "dir", cfg.StorageDir)
	return local.New(cfg.StorageDir)
}

func openSearchCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (docsysSvc.SearchCache, func(), error) {
	switch cfg.SearchCache {
	case config.CacheRedis:
		c := serviceDocsys.NewRedisSearchCache(cfg.Redis, cfg.SearchCacheTTL, cfg.TablePrefix, logger)
		if err := c.Ping(ctx); err != nil {
			c.Close()
			return nil, nil, err
		}
		return c, func() { c.Close() }, nil
	case config.CacheMemory:
		return serviceDocsys.NewMemorySearchCache(cfg.SearchCacheTTL, serviceDocsys.DefaultSearchCacheEntries, nil), func() {}, nil
	default:
		return nil, func() {}, nil
	}
}
