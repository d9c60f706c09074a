package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Uploads   UploadsConfig
	Posts     PostsConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type RateLimitConfig struct {
	Enabled       bool
	RPS           float64
	Burst         int
	UseRedis      bool
	WindowSeconds int
}

// UploadsConfig selects where multipart pictures end up.
// Backend is "disk" (AssetsDir) or "minio" (the MinIO* fields).
type UploadsConfig struct {
	Backend   string
	AssetsDir string
	MaxBytes  int64

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOUseSSL    bool
	MinIOBucket    string
}

// PostsConfig holds the compatibility switches of the posts API.
// Each switch restores one behaviour of the legacy server.
type PostsConfig struct {
	ReturnCollectionOnCreate bool
	UnfilteredUserPosts      bool
	LikeIsNoop               bool
	AllowMissingAuthor       bool
	// OldestFirst lists posts in insertion order instead of newest first.
	OldestFirst bool
}

type LogConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "3000")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("MONGO_DATABASE", "sociopedia")
	v.SetDefault("DB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("JWT_ACCESS_TOKEN_TTL", 15)
	v.SetDefault("JWT_REFRESH_TOKEN_TTL", 10080)
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	v.SetDefault("UPLOAD_BACKEND", "disk")
	v.SetDefault("ASSETS_DIR", "public/assets")
	v.SetDefault("UPLOAD_MAX_BYTES", 30<<20)
	v.SetDefault("MINIO_BUCKET", "sociopedia-assets")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	legacy := v.GetBool("POSTS_LEGACY")

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("PORT"),
			Host:         v.GetString("HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGO_URL"),
			Database: v.GetString("MONGO_DATABASE"),
			Timeout:  time.Duration(v.GetInt("DB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
		},
		JWT: JWTConfig{
			Secret:          os.Getenv("JWT_SECRET"),
			AccessTokenTTL:  time.Duration(v.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
			RefreshTokenTTL: time.Duration(v.GetInt("JWT_REFRESH_TOKEN_TTL")) * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Uploads: UploadsConfig{
			Backend:   v.GetString("UPLOAD_BACKEND"),
			AssetsDir: v.GetString("ASSETS_DIR"),
			MaxBytes:  v.GetInt64("UPLOAD_MAX_BYTES"),

			MinIOEndpoint:  v.GetString("MINIO_ENDPOINT"),
			MinIOAccessKey: v.GetString("MINIO_ACCESS_KEY"),
			MinIOSecretKey: os.Getenv("MINIO_SECRET_KEY"),
			MinIOUseSSL:    v.GetBool("MINIO_USE_SSL"),
			MinIOBucket:    v.GetString("MINIO_BUCKET"),
		},
		Posts: PostsConfig{
			ReturnCollectionOnCreate: legacy || v.GetBool("POSTS_RETURN_COLLECTION_ON_CREATE"),
			UnfilteredUserPosts:      legacy || v.GetBool("POSTS_UNFILTERED_USER_POSTS"),
			LikeIsNoop:               legacy || v.GetBool("POSTS_LIKE_NOOP"),
			AllowMissingAuthor:       legacy || v.GetBool("POSTS_ALLOW_MISSING_AUTHOR"),
			OldestFirst:              legacy || v.GetBool("POSTS_OLDEST_FIRST"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}

	// Basic validation
	if cfg.MongoDB.URI == "" {
		log.Println("WARNING: MONGO_URL is not set; falling back to in-memory storage")
	}
	if cfg.JWT.Secret == "" {
		log.Println("WARNING: JWT_SECRET is not set; post routes run without authorization")
	}

	return cfg, nil
}

// AuthEnabled reports whether mutating routes require a verified token.
func (c *Config) AuthEnabled() bool {
	return c.JWT.Secret != ""
}
