package main

import (
	"context"
	"testing"
	"time"

	"github.com/sociopedia/sociopedia/server/internal/database"
	"github.com/sociopedia/sociopedia/server/internal/post/repository"
	"github.com/stretchr/testify/require"
)

func TestOpenBackends_MemoryWithoutURI(t *testing.T) {
	repo, lookup, closeDB, err := openBackends(context.Background(), database.Options{})
	require.NoError(t, err)
	defer closeDB()
	require.IsType(t, &repository.MemoryRepo{}, repo)
	require.NotNil(t, lookup)
}

func TestOpenBackends_FailsWhenStoreUnreachable(t *testing.T) {
	repo, lookup, _, err := openBackends(context.Background(), database.Options{
		URI:         "mongodb://127.0.0.1:1/?connect=direct",
		Database:    "test",
		Timeout:     200 * time.Millisecond,
		MaxAttempts: 1,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "MONGO_URL")
	require.Nil(t, repo)
	require.Nil(t, lookup)
}
