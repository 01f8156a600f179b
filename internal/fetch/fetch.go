package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/manu3618/reflecto/internal/metrics"
	"github.com/manu3618/reflecto/internal/mirror"
	log "github.com/sirupsen/logrus"
)

// DefaultStatusURL is the canonical mirror status document.
const DefaultStatusURL = "https://archlinux.org/mirrors/status/json"

// maxBodySize caps the status document read at 50MB.
const maxBodySize = 50 * 1024 * 1024

// Client fetches and decodes the mirror status document.
type Client struct {
	userAgent string
	metrics   *metrics.Collector
	http      *http.Client
}

func NewClient(userAgent string, mc *metrics.Collector) *Client {
	return &Client{
		userAgent: userAgent,
		metrics:   mc,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Fetch downloads the status document at url and decodes it into a
// mirror list stamped with its provenance. Any transport or decode
// failure is fatal to the whole operation: no partial list is returned.
func (c *Client) Fetch(ctx context.Context, url string) (mirror.List, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return mirror.List{}, fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return mirror.List{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return mirror.List{}, fmt.Errorf("fetch %s: HTTP %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return mirror.List{}, fmt.Errorf("read body: %w", err)
	}

	l, err := mirror.Decode(body, url)
	if err != nil {
		return mirror.List{}, err
	}

	log.WithFields(log.Fields{
		"source":  url,
		"mirrors": len(l.Mirrors),
		"elapsed": time.Since(start).Milliseconds(),
	}).Info("mirror status fetched")

	if c.metrics != nil {
		c.metrics.RecordMirrorsFetched(url, len(l.Mirrors))
	}

	return l, nil
}
