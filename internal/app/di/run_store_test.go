package di

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock_retriever/internal/app/config"
	downloadadapters "stock_retriever/internal/feature/download/adapters"
	"stock_retriever/internal/feature/download/domain"
	"stock_retriever/internal/feature/download/domain/entity"
)

func TestNewRunStore_None(t *testing.T) {
	t.Parallel()

	store, err := NewRunStore(context.Background(), config.Config{})
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, "none", store.Backend)
	assert.IsType(t, downloadadapters.NopRunRepository{}, store.Repo)
	assert.NoError(t, store.Ping(context.Background()))

	_, err = store.Repo.FindByID(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestNewRunStore_SQLite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dsn := filepath.Join(t.TempDir(), "runs.db")
	store, err := NewRunStore(ctx, config.Config{DBDriver: "sqlite", DatabaseURL: dsn})
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, "sqlite", store.Backend)
	require.NoError(t, store.Ping(ctx))

	run := &entity.Run{ID: "run-1", Status: entity.RunCompleted, StartedAt: time.Now()}
	require.NoError(t, store.Repo.Save(ctx, run))
	got, err := store.Repo.FindByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, entity.RunCompleted, got.Status)
}

func TestNewRunStore_UnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := NewRunStore(context.Background(), config.Config{DBDriver: "oracle", DatabaseURL: "x"})
	assert.Error(t, err)
}
