package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sociopedia/sociopedia/server/internal/config"
	"github.com/sociopedia/sociopedia/server/internal/database"
	"github.com/sociopedia/sociopedia/server/internal/post/handler"
	"github.com/sociopedia/sociopedia/server/internal/post/repository"
	"github.com/sociopedia/sociopedia/server/internal/post/service"
	"github.com/sociopedia/sociopedia/server/internal/tokens"
	"github.com/sociopedia/sociopedia/server/internal/users"
	"github.com/sociopedia/sociopedia/server/pkg/logger"
	"github.com/sociopedia/sociopedia/server/pkg/middleware"
)

// posts serves only the post resource. Useful for running the feed apart
// from registration; user lookups go to the same users collection.
func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.SetFormat(cfg.Log.Format)
	ctx := context.Background()

	repo, lookup, closeDB, err := openBackends(ctx, database.Options{URI: cfg.MongoDB.URI, Database: cfg.MongoDB.Database, Timeout: cfg.MongoDB.Timeout})
	if err != nil {
		logger.Fatalf("%v", err)
	}
	defer closeDB()

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.CORS())

	opts := handler.Options{Timeout: cfg.MongoDB.Timeout, MaxBodyBytes: cfg.Uploads.MaxBytes, Posts: cfg.Posts}
	if cfg.AuthEnabled() {
		opts.Verifier = tokens.NewVerifier(cfg.JWT.Secret)
		if cfg.RateLimit.Enabled {
			opts.Limiter = middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		}
	}
	handler.RegisterPostRoutes(r, service.New(repo, lookup, cfg.Posts), opts)

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	logger.Infof("posts service listening on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}

// openBackends returns the Mongo-backed post and user stores when a URI is
// set, and fails if that store cannot be reached. Without a URI it serves
// from memory with no registered users.
func openBackends(ctx context.Context, o database.Options) (repository.Repository, service.UserLookup, func(), error) {
	if o.URI == "" {
		logger.Warnf("MONGO_URL not set, serving posts from memory with no registered users")
		return repository.NewMemoryRepo(), users.NewMemoryRepository(), func() {}, nil
	}
	db, err := database.Open(ctx, o)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("cannot connect to MongoDB at MONGO_URL: %w", err)
	}
	closeDB := func() { _ = db.Close(context.Background()) }

	mr := repository.NewMongoRepo(db.Collection("posts"))
	if err := mr.EnsureIndexes(ctx); err != nil {
		logger.Warnf("posts index: %v", err)
	}
	ur, err := users.NewMongoUserRepository(ctx, db.Collection("users"))
	if err != nil {
		closeDB()
		return nil, nil, nil, fmt.Errorf("users repository: %w", err)
	}
	return mr, ur, closeDB, nil
}
