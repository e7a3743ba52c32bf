package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	Members int64 `json:"members"`
}

func TestJSONCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewJSONCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx := context.Background()

	var got snapshot
	ok, err := c.Get(ctx, "dashboard", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "dashboard", snapshot{Members: 7}, time.Minute))
	ok, err = c.Get(ctx, "dashboard", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(7), got.Members)

	mr.FastForward(2 * time.Minute)
	ok, err = c.Get(ctx, "dashboard", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNilJSONCacheMisses(t *testing.T) {
	var c *JSONCache
	ok, err := c.Get(context.Background(), "k", &snapshot{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Set(context.Background(), "k", snapshot{}, time.Minute))
}
