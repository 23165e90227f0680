//go:build integration

package docstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestRedis_Contract(t *testing.T) {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "failed to start redis container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	n := 0
	runStoreContract(t, func(t *testing.T) Store {
		n++
		s, err := Open(ctx, RedisAdapter, Options{Name: fmt.Sprintf("contract-%d", n), URL: url})
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})

	// Documents written through one client are visible through another.
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	writer := NewRedis(redis.NewClient(opts), "shared")
	reader := NewRedis(redis.NewClient(opts), "shared")
	t.Cleanup(func() { writer.Close(); reader.Close() })

	doc, err := NewDocument("remote", sumDoc{Sum: 7})
	require.NoError(t, err)
	rev, err := writer.Put(ctx, doc)
	require.NoError(t, err)
	got, err := reader.Get(ctx, "remote")
	require.NoError(t, err)
	require.Equal(t, rev, got.Rev)
}
