package prober

import (
	"context"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/manu3618/reflecto/internal/mirror"
	log "github.com/sirupsen/logrus"
)

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
	"ftp":   "21",
	"rsync": "873",
}

// ReachableFilter drops mirrors whose host does not accept a TCP
// connection within the timeout. It is a cheap pre-filter that prunes
// dead hosts before the full bandwidth probes, and it also covers
// protocols the prober cannot speak (ftp, rsync). Concurrency is
// bounded by a semaphore; order is preserved.
func ReachableFilter(ctx context.Context, l mirror.List, timeout time.Duration, concurrency int) mirror.List {
	if len(l.Mirrors) == 0 || concurrency < 1 {
		return l
	}

	start := time.Now()
	keep := make([]bool, len(l.Mirrors))

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, m := range l.Mirrors {
		addr, err := hostPort(m)
		if err != nil {
			log.WithField("url", m.URL).WithError(err).Warn("unparseable mirror url")
			continue
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(i int, addr string) {
			defer wg.Done()
			defer func() { <-sem }()
			keep[i] = testTCPConnection(addr, timeout)
		}(i, addr)
	}
	wg.Wait()

	reachable := make([]mirror.Mirror, 0, len(l.Mirrors))
	for i, m := range l.Mirrors {
		if keep[i] {
			reachable = append(reachable, m)
		}
	}

	log.WithFields(log.Fields{
		"reachable": len(reachable),
		"total":     len(l.Mirrors),
		"elapsed":   time.Since(start).Milliseconds(),
	}).Info("reachability filter complete")

	return mirror.List{Mirrors: reachable, Source: l.Source}
}

func hostPort(m mirror.Mirror) (string, error) {
	u, err := url.Parse(m.URL)
	if err != nil {
		return "", err
	}
	port := u.Port()
	if port == "" {
		port = defaultPorts[u.Scheme]
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}

func testTCPConnection(addr string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
