package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/liamwears/reelshelf/internal/config"
	"github.com/liamwears/reelshelf/internal/database"
	"github.com/liamwears/reelshelf/internal/handlers"
	"github.com/liamwears/reelshelf/internal/middleware"
	"github.com/liamwears/reelshelf/internal/services"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Check for migrate command
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		direction := "up"
		if len(os.Args) > 2 {
			direction = os.Args[2]
		}
		runMigrations(direction)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	flags := log.LstdFlags
	if cfg.IsDevelopment() {
		flags |= log.Lshortfile
	}
	logger := log.New(os.Stdout, "[reelshelf] ", flags)
	logger.Printf("Starting ReelShelf server in %s mode", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis backs the rate limiter and, by default, the collection
	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       0,
		TLS:      cfg.Redis.TLS,
	}, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	var (
		db    *database.DB
		store services.BlobStore
	)
	if cfg.UsesPostgres() {
		db, err = database.New(ctx, database.Config{URL: cfg.Database.URL}, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		store = db.BlobStore()
	} else {
		store = database.NewRedisBlobStore(redisClient.Client, "reelshelf")
	}

	tmdbService := services.NewTMDBService(services.TMDBConfig{
		APIKey:       cfg.TMDB.APIKey,
		BaseURL:      cfg.TMDB.BaseURL,
		ImageBaseURL: cfg.TMDB.ImageBaseURL,
		Language:     cfg.TMDB.Language,
		RateLimit:    cfg.TMDB.RateLimit,
	})

	collection := services.NewCollectionService(store, cfg.Storage.Key, logger)
	catalogCache := services.NewCatalogCache(tmdbService, cfg.Catalog.PopularPages, logger)
	genreService := services.NewGenreService(tmdbService)
	library := services.NewLibrary(collection, catalogCache)

	guard := services.NewDuplicateGuard(library)
	engine := services.NewQueryEngine(tmdbService, library)
	resolver := services.NewDetailResolver(tmdbService, collection, services.DefaultDetailConfig(), logger)

	if err := collection.Load(ctx); err != nil {
		logger.Printf("Collection unavailable, adding movies is blocked until it can be read: %v", err)
	} else {
		logger.Printf("Loaded %d movies from the local collection", collection.Len())
	}

	// Catalog and genres warm up side by side; either may fail and be retried later
	warmCtx, cancelWarm := context.WithTimeout(ctx, 30*time.Second)
	var warm errgroup.Group
	warm.Go(func() error {
		return catalogCache.Refresh(warmCtx)
	})
	warm.Go(func() error {
		return genreService.Load(warmCtx)
	})
	if err := warm.Wait(); err != nil {
		logger.Printf("Warm-up incomplete: %v", err)
	}
	cancelWarm()

	// 100 req/min per IP in production, unlimited in local/dev
	rateLimiter := middleware.NewRateLimiter(redisClient.Client, 100, time.Minute, cfg.IsProduction(), cfg.Server.TrustedProxies, logger)

	presenter := handlers.NewPresenter(tmdbService, genreService)
	movieHandler := handlers.NewMovieHandler(library, guard, resolver, presenter, cfg.Catalog.PageSize, logger)
	searchHandler := handlers.NewSearchHandler(engine, presenter, logger)
	catalogHandler := handlers.NewCatalogHandler(catalogCache, genreService, logger)

	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, movieHandler, searchHandler, catalogHandler, rateLimiter.Limit)

	stores := map[string]handlers.Pinger{"redis": redisClient}
	if db != nil {
		stores["database"] = db
	}
	health := handlers.NewHealthHandler(stores, collection, catalogCache, genreService, logger)
	mux.HandleFunc("GET /health", health.Check)

	handler := middleware.Logger(logger)(mux)

	addr := cfg.ListenAddr()
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Printf("Server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Server forced to shutdown: %v", err)
	}

	logger.Println("Server exited")
}

// runMigrations applies or rolls back the Postgres migrations
func runMigrations(direction string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required to run migrations")
	}

	logger := log.New(os.Stdout, "[reelshelf] ", log.LstdFlags)
	ctx := context.Background()

	db, err := database.New(ctx, database.Config{URL: cfg.Database.URL, SkipSchemaCheck: true}, logger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	migrator := database.NewMigrator(db.Pool, logger)

	switch direction {
	case "up":
		err = migrator.Up(ctx)
	case "down":
		err = migrator.Down(ctx)
	default:
		err = fmt.Errorf("unknown migrate direction %q, want up or down", direction)
	}
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	logger.Println("Migrations completed successfully")
}
