package main

import (
	"context"
	"path/filepath"
	"testing"

	"tutorial-blog/pkg/cache"
	"tutorial-blog/pkg/database"
	"tutorial-blog/pkg/jwt"
	"tutorial-blog/pkg/logger"
	"tutorial-blog/services/blog/internal/entity"
	"tutorial-blog/services/blog/internal/repo/persistent"
	"tutorial-blog/services/blog/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedDatabase(t *testing.T) {
	ctx := context.Background()
	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, persistent.AutoMigrate(db))

	log := logger.New()
	userRepo := persistent.NewUserRepository(db)
	postRepo := persistent.NewPostRepository(db)
	authUseCase := usecase.NewAuthUseCase(userRepo, jwt.NewService("seed-secret"), cache.NewTokenBlacklist(nil), log)
	postUseCase := usecase.NewPostUseCase(postRepo, userRepo, log)

	t.Run("is repeatable", func(t *testing.T) {
		require.NoError(t, seedDatabase(ctx, userRepo, postRepo, authUseCase, postUseCase, 2, log))
		require.NoError(t, seedDatabase(ctx, userRepo, postRepo, authUseCase, postUseCase, 2, log))

		count, err := postRepo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(len(testUsers)*2), count)
	})

	t.Run("inactive demo user", func(t *testing.T) {
		dave, err := userRepo.GetByUsername(ctx, "dave")
		require.NoError(t, err)
		assert.False(t, dave.IsActive)

		_, _, err = authUseCase.Login(ctx, "dave", "password123")
		assert.ErrorIs(t, err, entity.ErrInactiveUser)

		_, err = postUseCase.CreatePost(ctx, dave.ID, usecase.PostForm{Title: "t", Text: "x"})
		assert.ErrorIs(t, err, entity.ErrUnauthorized)

		_, _, err = authUseCase.Login(ctx, "alice", "password123")
		assert.NoError(t, err)
	})
}
