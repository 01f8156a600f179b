package prober

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/manu3618/reflecto/internal/mirror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProber(t *testing.T, cfg Config) *Prober {
	t.Helper()
	p, err := New(cfg)
	require.NoError(t, err)
	return p
}

func TestProbeSuccess(t *testing.T) {
	payload := make([]byte, 64*1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(30 * time.Millisecond)
		w.Write(payload)
	}))
	defer srv.Close()

	p := newProber(t, Config{})
	m := mirror.Mirror{URL: srv.URL + "/archlinux/", Protocol: mirror.ProtocolHTTP}

	got, err := p.Probe(context.Background(), m, 0)
	require.NoError(t, err)
	require.NotNil(t, got.DownloadRate)
	assert.Positive(t, *got.DownloadRate)
	assert.False(t, math.IsNaN(*got.DownloadRate))

	// the input mirror is never mutated
	assert.Nil(t, m.DownloadRate)
}

func TestProbeZeroBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := newProber(t, Config{})
	m := mirror.Mirror{URL: srv.URL + "/archlinux/"}

	got, err := p.Probe(context.Background(), m, 0)
	require.NoError(t, err)
	require.NotNil(t, got.DownloadRate)
	assert.True(t, math.IsNaN(*got.DownloadRate), "zero-byte transfer must yield the NaN sentinel")
}

func TestProbeTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	p := newProber(t, Config{})
	m := mirror.Mirror{URL: srv.URL + "/archlinux/"}

	got, err := p.Probe(context.Background(), m, 50*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Nil(t, got.DownloadRate)
}

func TestProbeNetworkError(t *testing.T) {
	p := newProber(t, Config{})
	// nothing listens on port 1
	m := mirror.Mirror{URL: "http://127.0.0.1:1/archlinux/"}

	got, err := p.Probe(context.Background(), m, 0)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Nil(t, got.DownloadRate)
}

func TestProbeUserAgentAndPath(t *testing.T) {
	var gotPath, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("db"))
	}))
	defer srv.Close()

	p := newProber(t, Config{UserAgent: "reflecto/1.0"})
	m := mirror.Mirror{URL: srv.URL + "/archlinux/"}

	_, err := p.Probe(context.Background(), m, 0)
	require.NoError(t, err)
	assert.Equal(t, "/archlinux/"+DefaultSamplePath, gotPath)
	assert.Equal(t, "reflecto/1.0", gotUA)
}

func TestRateFrom(t *testing.T) {
	assert.InDelta(t, 1.0, rateFrom(1_000_000, time.Second), 1e-9)
	assert.InDelta(t, 0.5, rateFrom(500_000, time.Second), 1e-9)
	assert.True(t, math.IsNaN(rateFrom(0, time.Second)))
}
