package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/alumnos-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest []string
	assert.ErrorIs(t, repo.Get(ctx, "students:all", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "students:all", []string{"x"}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(ctx, "students:*"))
	n, err := repo.Incr(ctx, "students-gen")
	assert.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, repo.Close())
}

func TestCacheRepositoryUnreachableRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:         "127.0.0.1:1",
		DialTimeout:  200 * time.Millisecond,
		ReadTimeout:  200 * time.Millisecond,
		WriteTimeout: 200 * time.Millisecond,
		MaxRetries:   -1,
	})
	repo := NewCacheRepository(client, nil)
	defer repo.Close()
	ctx := context.Background()

	var dest []string
	err := repo.Get(ctx, "students:v0:all", &dest)
	require.Error(t, err)
	assert.False(t, errors.Is(err, appErrors.ErrCacheMiss), "transport failures must not look like misses")
	assert.Contains(t, err.Error(), "redis get students:v0:all")

	err = repo.Set(ctx, "students:v0:all", []string{"x"}, time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis set")

	_, err = repo.Incr(ctx, "students-gen")
	assert.ErrorContains(t, err, "redis incr students-gen")

	assert.ErrorContains(t, repo.DeleteByPattern(ctx, "students:*"), "redis scan pattern students:*")
}

func TestCacheRepositorySetRejectsUnencodableValue(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	repo := NewCacheRepository(client, nil)
	defer repo.Close()

	err := repo.Set(context.Background(), "students:v0:all", make(chan int), time.Minute)
	assert.ErrorContains(t, err, "marshal cache value for students:v0:all")
}
