package storage

import "github.com/sociopedia/sociopedia/server/internal/config"

// MinIOConfig points the picture store at one bucket.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// MinIOConfigFrom picks the MinIO settings out of the uploads section.
func MinIOConfigFrom(u config.UploadsConfig) *MinIOConfig {
	bucket := u.MinIOBucket
	if bucket == "" {
		bucket = "sociopedia-assets"
	}
	return &MinIOConfig{
		Endpoint:  u.MinIOEndpoint,
		AccessKey: u.MinIOAccessKey,
		SecretKey: u.MinIOSecretKey,
		UseSSL:    u.MinIOUseSSL,
		Bucket:    bucket,
	}
}
