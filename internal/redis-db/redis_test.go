package redis_db

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blnkfinance/teller/config"
)

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		addr     string
		password string
		wantErr  bool
	}{
		{name: "docker style", url: "redis:6379", addr: "redis:6379"},
		{name: "url with password", url: "redis://:password123@localhost:6379", addr: "localhost:6379", password: "password123"},
		{name: "password without colon", url: "redis://secret@localhost:6379", addr: "localhost:6379", password: "secret"},
		{name: "bare password form", url: "secret@cache:6380", addr: "cache:6380", password: "secret"},
		{name: "empty", url: "  ", wantErr: true},
		{name: "bad scheme", url: "http://localhost:6379", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRedisURL(tt.url, false)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.addr, got.Addr)
			assert.Equal(t, tt.password, got.Password)
		})
	}
}

func TestParseRedisURL_TLS(t *testing.T) {
	opts, err := ParseRedisURL("rediss://:pw@cache.example.com:6380", true)
	require.NoError(t, err)
	require.NotNil(t, opts.TLSConfig)
	assert.True(t, opts.TLSConfig.InsecureSkipVerify)
}

func TestNewRedisClient_Empty(t *testing.T) {
	_, err := NewRedisClient(nil, false)
	assert.EqualError(t, err, "redis addresses list cannot be empty")
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient([]string{addr}, false)
	assert.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := FromConfig(config.RedisConfig{Dns: " " + mr.Addr() + " "})
	require.NoError(t, err)
	defer client.Close()
	assert.Equal(t, []string{mr.Addr()}, client.Addresses())

	ctx := context.Background()
	require.NoError(t, client.Client().Set(ctx, "teller:probe", "ok", time.Minute).Err())
	got, err := client.Client().Get(ctx, "teller:probe").Result()
	require.NoError(t, err)
	assert.Equal(t, "ok", got)

	require.NoError(t, client.Client().Del(ctx, "teller:probe").Err())
	_, err = client.Client().Get(ctx, "teller:probe").Result()
	assert.Equal(t, redis.Nil, err)
}
