package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/billforge/backend/internal/infrastructure/auth"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisBlacklist(t *testing.T) (*auth.RedisTokenBlacklist, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return auth.NewRedisTokenBlacklist(client, ""), mr
}

func TestTokenBlacklist_Implementations(t *testing.T) {
	impls := map[string]func(t *testing.T) auth.TokenBlacklist{
		"memory": func(t *testing.T) auth.TokenBlacklist { return auth.NewInMemoryTokenBlacklist() },
		"redis": func(t *testing.T) auth.TokenBlacklist {
			b, _ := newRedisBlacklist(t)
			return b
		},
	}

	for name, build := range impls {
		t.Run(name+"/jti", func(t *testing.T) {
			blacklist := build(t)
			ctx := context.Background()

			require.NoError(t, blacklist.AddToBlacklist(ctx, "jti-1", time.Hour))

			revoked, err := blacklist.IsBlacklisted(ctx, "jti-1")
			require.NoError(t, err)
			assert.True(t, revoked)

			revoked, err = blacklist.IsBlacklisted(ctx, "jti-2")
			require.NoError(t, err)
			assert.False(t, revoked)
		})

		t.Run(name+"/user", func(t *testing.T) {
			blacklist := build(t)
			ctx := context.Background()

			issuedBefore := time.Now().Add(-time.Minute)
			require.NoError(t, blacklist.AddUserTokensToBlacklist(ctx, "user_1", time.Hour))

			invalid, err := blacklist.IsUserTokenInvalidated(ctx, "user_1", issuedBefore)
			require.NoError(t, err)
			assert.True(t, invalid)

			invalid, err = blacklist.IsUserTokenInvalidated(ctx, "user_1", time.Now().Add(2*time.Second))
			require.NoError(t, err)
			assert.False(t, invalid, "tokens issued after sign-out stay valid")

			invalid, err = blacklist.IsUserTokenInvalidated(ctx, "user_2", issuedBefore)
			require.NoError(t, err)
			assert.False(t, invalid)
		})
	}
}

func TestInMemoryTokenBlacklist_ExpiredEntry(t *testing.T) {
	blacklist := auth.NewInMemoryTokenBlacklist()
	ctx := context.Background()

	require.NoError(t, blacklist.AddToBlacklist(ctx, "short", time.Millisecond))
	time.Sleep(10 * time.Millisecond)

	revoked, err := blacklist.IsBlacklisted(ctx, "short")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisTokenBlacklist_TTL(t *testing.T) {
	blacklist, mr := newRedisBlacklist(t)
	ctx := context.Background()

	require.NoError(t, blacklist.AddToBlacklist(ctx, "jti-ttl", time.Minute))
	assert.True(t, mr.Exists("billing:token:blacklist:jti:jti-ttl"))

	mr.FastForward(2 * time.Minute)

	revoked, err := blacklist.IsBlacklisted(ctx, "jti-ttl")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisTokenBlacklist_CorruptTimestamp(t *testing.T) {
	blacklist, mr := newRedisBlacklist(t)
	require.NoError(t, mr.Set("billing:token:blacklist:user:user_1", "yesterday"))

	_, err := blacklist.IsUserTokenInvalidated(context.Background(), "user_1", time.Now())
	assert.Error(t, err)
}

func TestRedisTokenBlacklist_Unavailable(t *testing.T) {
	blacklist, mr := newRedisBlacklist(t)
	mr.Close()

	_, err := blacklist.IsBlacklisted(context.Background(), "jti")
	assert.Error(t, err)
}

func TestUserTokenRevoker(t *testing.T) {
	blacklist := auth.NewInMemoryTokenBlacklist()
	revoker := auth.NewUserTokenRevoker(blacklist, 15*time.Minute)

	require.NoError(t, revoker.RevokeUserTokens(context.Background(), "user_1"))

	invalid, err := blacklist.IsUserTokenInvalidated(context.Background(), "user_1", time.Now().Add(-time.Second))
	require.NoError(t, err)
	assert.True(t, invalid)
}
