package cache

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestBlacklist(t *testing.T) (*TokenBlacklist, *mr.Miniredis) {
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewTokenBlacklist(client), m
}

func TestTokenBlacklist_RevokeAndExpire(t *testing.T) {
	bl, m := newTestBlacklist(t)
	ctx := context.Background()

	found, err := bl.Contains(ctx, "tok")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, bl.Revoke(ctx, "tok", 5*time.Second))
	found, err = bl.Contains(ctx, "tok")
	require.NoError(t, err)
	require.True(t, found)

	m.FastForward(6 * time.Second)
	found, err = bl.Contains(ctx, "tok")
	require.NoError(t, err)
	require.False(t, found)
}

func TestTokenBlacklist_NonPositiveTTLIsIgnored(t *testing.T) {
	bl, _ := newTestBlacklist(t)
	ctx := context.Background()

	require.NoError(t, bl.Revoke(ctx, "old", 0))
	found, err := bl.Contains(ctx, "old")
	require.NoError(t, err)
	require.False(t, found)
}

func TestTokenBlacklist_NilClient(t *testing.T) {
	bl := NewTokenBlacklist(nil)
	ctx := context.Background()

	require.NoError(t, bl.Revoke(ctx, "tok", time.Minute))
	found, err := bl.Contains(ctx, "tok")
	require.NoError(t, err)
	require.False(t, found)

	var none *TokenBlacklist
	found, err = none.Contains(ctx, "tok")
	require.NoError(t, err)
	require.False(t, found)
}
