package prober

import (
	"context"
	"testing"
	"time"

	"github.com/manu3618/reflecto/internal/mirror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReachableFilter(t *testing.T) {
	srv := testMirrorServer(t)
	l := mirror.List{
		Mirrors: []mirror.Mirror{
			{URL: srv.URL + "/a/", Protocol: mirror.ProtocolHTTP},
			{URL: "http://127.0.0.1:1/dead/", Protocol: mirror.ProtocolHTTP},
			{URL: srv.URL + "/b/", Protocol: mirror.ProtocolHTTP},
		},
		Source: "test",
	}

	got := ReachableFilter(context.Background(), l, 500*time.Millisecond, 8)

	require.Len(t, got.Mirrors, 2)
	assert.Equal(t, srv.URL+"/a/", got.Mirrors[0].URL)
	assert.Equal(t, srv.URL+"/b/", got.Mirrors[1].URL)
	assert.Equal(t, "test", got.Source)
}

func TestReachableFilterEmpty(t *testing.T) {
	got := ReachableFilter(context.Background(), mirror.List{}, time.Second, 8)
	assert.Empty(t, got.Mirrors)
}

func TestHostPort(t *testing.T) {
	for _, tc := range []struct {
		url  string
		want string
	}{
		{"https://mirror.example.org/archlinux/", "mirror.example.org:443"},
		{"http://mirror.example.org/archlinux/", "mirror.example.org:80"},
		{"rsync://mirror.example.org/archlinux/", "mirror.example.org:873"},
		{"ftp://mirror.example.org/archlinux/", "mirror.example.org:21"},
		{"http://mirror.example.org:8080/archlinux/", "mirror.example.org:8080"},
	} {
		got, err := hostPort(mirror.Mirror{URL: tc.url})
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}
