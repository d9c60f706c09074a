package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sociopedia/sociopedia/server/handlers"
	"github.com/sociopedia/sociopedia/server/internal/config"
	"github.com/sociopedia/sociopedia/server/internal/database"
	posthandler "github.com/sociopedia/sociopedia/server/internal/post/handler"
	"github.com/sociopedia/sociopedia/server/internal/post/repository"
	"github.com/sociopedia/sociopedia/server/internal/post/service"
	"github.com/sociopedia/sociopedia/server/internal/sessions"
	"github.com/sociopedia/sociopedia/server/internal/storage"
	"github.com/sociopedia/sociopedia/server/internal/tokens"
	"github.com/sociopedia/sociopedia/server/internal/users"
	"github.com/sociopedia/sociopedia/server/pkg/logger"
	"github.com/sociopedia/sociopedia/server/pkg/metrics"
	"github.com/sociopedia/sociopedia/server/pkg/middleware"
)

var startTime = time.Now()

// app is everything main owns for the lifetime of the process.
type app struct {
	router *gin.Engine
	db     *database.Handle
	redis  *redis.Client
}

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.SetFormat(cfg.Log.Format)
	logger.Infof("config loaded: mongo=%v redis=%v auth=%v uploads=%s", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.AuthEnabled(), cfg.Uploads.Backend)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, cfg)
	if err != nil {
		logger.Fatalf("startup failed: %v", err)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      a.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("http shutdown: %v", err)
	}
	a.close(shutdownCtx)
}

// setup connects the backing services and builds the router. With no
// MONGO_URL everything runs in memory.
func setup(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), middleware.RequestID(), middleware.SecureHeaders(), middleware.CORS(), middleware.Metrics())

	if cfg.Redis.Host != "" {
		rc := redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rc.Ping(ctx).Err(); err != nil {
			logger.Warnf("redis %s:%s unavailable: %v", cfg.Redis.Host, cfg.Redis.Port, err)
			_ = rc.Close()
		} else {
			a.redis = rc
			sessions.SetBlacklistClient(rc)
			logger.Infof("connected to redis %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	// The global limiter sees anonymous traffic only and keys on client IP;
	// post mutations get a second one behind auth that keys on the caller.
	var limiter func() gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && a.redis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			limiter = func() gin.HandlerFunc {
				return middleware.RedisRateLimitMiddleware(a.redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win)
			}
		} else {
			limiter = func() gin.HandlerFunc {
				return middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
			}
		}
		r.Use(limiter())
	}

	var (
		userRepo    users.UserRepository = users.NewMemoryRepository()
		postRepo    repository.Repository = repository.NewMemoryRepo()
		sessionRepo sessions.Repository   = sessions.NewMemoryRepository()
	)
	if cfg.MongoDB.URI != "" {
		db, err := database.Open(ctx, database.Options{URI: cfg.MongoDB.URI, Database: cfg.MongoDB.Database, Timeout: cfg.MongoDB.Timeout})
		if err != nil {
			return nil, err
		}
		a.db = db

		ur, err := users.NewMongoUserRepository(ctx, db.Collection("users"))
		if err != nil {
			return nil, err
		}
		userRepo = ur

		pr := repository.NewMongoRepo(db.Collection("posts"))
		if err := pr.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("posts index: %w", err)
		}
		postRepo = pr

		if a.redis == nil {
			sr, err := sessions.NewMongoRepository(ctx, db.Collection("sessions"))
			if err != nil {
				return nil, err
			}
			sessionRepo = sr
		}
	}
	if a.redis != nil {
		sessionRepo = sessions.NewRedisRepository(a.redis, "")
		logger.Infof("using redis for session storage")
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	userSvc := users.NewService(userRepo)
	sessionSvc := sessions.NewService(sessionRepo, cfg.JWT.RefreshTokenTTL)

	handlers.NewAuthHandler(cfg, userSvc, sessionSvc, store).Register(r)
	handlers.RegisterAssets(r, store)
	handlers.RegisterSwagger(r)

	opts := posthandler.Options{Timeout: cfg.MongoDB.Timeout, MaxBodyBytes: cfg.Uploads.MaxBytes, Posts: cfg.Posts}
	if cfg.AuthEnabled() {
		opts.Verifier = tokens.NewVerifier(cfg.JWT.Secret)
		if limiter != nil {
			opts.Limiter = limiter()
		}
	}
	posthandler.RegisterPostRoutes(r, service.New(postRepo, userSvc, cfg.Posts), opts)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", a.ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.router = r
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.Uploads.Backend == "minio" {
		return storage.NewMinIOStore(ctx, storage.MinIOConfigFrom(cfg.Uploads))
	}
	return storage.NewDiskStore(cfg.Uploads.AssetsDir)
}

// ready reports 200 only when every configured dependency answers.
func (a *app) ready(c *gin.Context) {
	deps := gin.H{}
	ok := true
	if a.db != nil {
		err := a.db.Ping(c.Request.Context())
		deps["mongo"] = err == nil
		ok = ok && err == nil
	} else {
		deps["mongo"] = "memory"
	}
	if a.redis != nil {
		err := a.redis.Ping(c.Request.Context()).Err()
		deps["redis"] = err == nil
		ok = ok && err == nil
	}
	uptime := time.Since(startTime).String()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "deps": deps, "uptime": uptime})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": deps, "uptime": uptime})
}

func (a *app) close(ctx context.Context) {
	if err := a.db.Close(ctx); err != nil {
		logger.Errorf("mongo disconnect: %v", err)
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
