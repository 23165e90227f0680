package docstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisURL(t *testing.T) {
	testCases := []struct {
		name    string
		opts    Options
		want    string
		wantErr bool
	}{
		{
			name: "explicit url wins",
			opts: Options{URL: "redis://cache:6380/1", Endpoint: &Endpoint{Hostname: "localhost", Port: 5984, Protocol: "http"}},
			want: "redis://cache:6380/1",
		},
		{
			name: "derived from remote endpoint",
			opts: Options{Endpoint: &Endpoint{Hostname: "localhost", Port: 6379, Protocol: "http"}},
			want: "redis://localhost:6379",
		},
		{
			name: "ipv6 endpoint",
			opts: Options{Endpoint: &Endpoint{Hostname: "::1", Port: 6379}},
			want: "redis://[::1]:6379",
		},
		{name: "nothing to connect to", opts: Options{}, wantErr: true},
		{name: "endpoint without port", opts: Options{Endpoint: &Endpoint{Hostname: "localhost"}}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := RedisURL(tc.opts)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRedisAdapter_DerivedURLIsDialable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The derived URL parses; only the dial fails against a cancelled context.
	_, err := Open(ctx, RedisAdapter, Options{Name: "x", Endpoint: &Endpoint{Hostname: "localhost", Port: 6379, Protocol: "http"}})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "invalid URL scheme")
	assert.Contains(t, err.Error(), "redis ping failed")
}
