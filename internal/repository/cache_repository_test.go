package repository

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/class-attendance-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "class-attendance")
	ctx := context.Background()

	var dest map[string]int
	assert.ErrorIs(t, repo.Get(ctx, "attendance:stats:all:any", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "k", 1, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(ctx, "attendance:stats:*"))
	assert.Error(t, repo.Ping(ctx))
}

func TestCacheRepositoryUnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	repo := NewCacheRepository(client, "class-attendance")
	ctx := context.Background()

	var dest map[string]int
	err := repo.Get(ctx, "k", &dest)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, appErrors.ErrCacheMiss)
	assert.Error(t, repo.DeleteByPattern(ctx, "k*"))
	assert.Error(t, repo.Ping(ctx))
}

func TestCacheRepositoryNamespacesKeys(t *testing.T) {
	assert.Equal(t, "ns:dashboard:2024-01-15", NewCacheRepository(nil, "ns").key("dashboard:2024-01-15"))
	assert.Equal(t, "dashboard:*", NewCacheRepository(nil, "").key("dashboard:*"))
}
