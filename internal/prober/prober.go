package prober

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/manu3618/reflecto/internal/mirror"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"
)

// ErrTimeout marks a probe that did not complete before its deadline.
var ErrTimeout = errors.New("probe timed out")

// DefaultSamplePath is the well-known file downloaded to measure a
// mirror's throughput.
const DefaultSamplePath = "extra/os/x86_64/extra.db"

// Config tunes how a single bandwidth probe is performed.
type Config struct {
	// SamplePath is the path fetched under each mirror URL.
	SamplePath string
	// UserAgent is sent with every probe request.
	UserAgent string
	// SOCKS5Proxy, when set (host:port), routes probe traffic through a
	// SOCKS5 proxy.
	SOCKS5Proxy string
}

// Prober performs one timed download per mirror and reports the
// resulting transfer rate. It never mutates the mirror it is given.
type Prober struct {
	config    Config
	transport *http.Transport
}

func New(cfg Config) (*Prober, error) {
	if cfg.SamplePath == "" {
		cfg.SamplePath = DefaultSamplePath
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
	}

	if cfg.SOCKS5Proxy != "" {
		dialer, err := proxy.SOCKS5("tcp", cfg.SOCKS5Proxy, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("socks5 dialer: %w", err)
		}
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}

	return &Prober{config: cfg, transport: transport}, nil
}

// Probe downloads the sample file from m and returns a copy of m with
// DownloadRate set to bytes / (1000 * elapsed-ms). A zero-byte transfer
// yields the NaN sentinel. timeout <= 0 means no deadline, in which
// case only a network failure can occur.
func (p *Prober) Probe(ctx context.Context, m mirror.Mirror, timeout time.Duration) (mirror.Mirror, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.sampleURL(m), nil)
	if err != nil {
		return m, fmt.Errorf("create request: %w", err)
	}
	if p.config.UserAgent != "" {
		req.Header.Set("User-Agent", p.config.UserAgent)
	}

	client := &http.Client{Transport: p.transport}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return m, p.classify(ctx, err)
	}
	defer resp.Body.Close()

	received, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return m, p.classify(ctx, err)
	}
	elapsed := time.Since(start)

	rate := rateFrom(received, elapsed)
	m.DownloadRate = &rate

	log.WithFields(log.Fields{
		"url":     m.URL,
		"bytes":   received,
		"elapsed": elapsed.Milliseconds(),
		"rate":    rate,
	}).Debug("download rate updated")

	return m, nil
}

func (p *Prober) sampleURL(m mirror.Mirror) string {
	return strings.TrimSuffix(m.URL, "/") + "/" + p.config.SamplePath
}

// classify separates the deadline elapsing from any other transport
// failure. No partial-byte accounting is attempted on timeout.
func (p *Prober) classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("probe failed: %w", err)
}

// rateFrom computes the transfer rate in kB/s. A zero-byte transfer is
// NaN, which distinguishes "connected but empty" from "unprobed".
func rateFrom(bytes int64, elapsed time.Duration) float64 {
	if bytes == 0 {
		return math.NaN()
	}
	return float64(bytes) / (1000.0 * float64(elapsed.Milliseconds()))
}
