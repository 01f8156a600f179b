package prober

import (
	"context"
	"math"
	"time"

	"github.com/manu3618/reflecto/internal/metrics"
	"github.com/manu3618/reflecto/internal/mirror"
	log "github.com/sirupsen/logrus"
)

// Coordinator fans bandwidth probes out over a whole mirror list and
// reconciles the results back into a single list.
type Coordinator struct {
	prober  *Prober
	metrics *metrics.Collector
}

func NewCoordinator(p *Prober, mc *metrics.Collector) *Coordinator {
	return &Coordinator{prober: p, metrics: mc}
}

type probeResult struct {
	mirror mirror.Mirror
	err    error
}

// UpdateRates probes every mirror concurrently and stops consuming
// completions once limit probes have succeeded (limit is clamped to the
// list size; 0 skips probing entirely). Failed probes are logged and
// carried over unchanged; they never abort the run. The returned list
// holds exactly the input's mirrors: successfully probed ones first, in
// completion order, then the rest in their original order.
func (c *Coordinator) UpdateRates(ctx context.Context, l mirror.List, timeout time.Duration, limit int) mirror.List {
	original := l.Mirrors
	n := len(original)

	left := limit
	if left > n {
		left = n
	}

	probeCtx, cancel := context.WithCancel(ctx)
	// Best-effort abandonment: once enough probes succeeded the rest
	// are cancelled without waiting for confirmed teardown.
	defer cancel()

	start := time.Now()

	// Buffered to the task count so abandoned probes can still report
	// and exit.
	results := make(chan probeResult, n)
	for _, m := range original {
		go func(m mirror.Mirror) {
			updated, err := c.prober.Probe(probeCtx, m, timeout)
			results <- probeResult{mirror: updated, err: err}
		}(m)
	}

	updated := make([]mirror.Mirror, 0, n)
	reported := 0
	for left > 0 && reported < n {
		res := <-results
		reported++
		if res.err != nil {
			log.WithField("url", res.mirror.URL).WithError(res.err).Debug("failed to update a mirror")
			if c.metrics != nil {
				c.metrics.RecordProbeFailure()
			}
			continue
		}
		if c.metrics != nil {
			c.metrics.RecordProbeSuccess()
			if r := res.mirror.DownloadRate; r != nil && !math.IsNaN(*r) {
				c.metrics.RecordProbeRate(*r)
			}
		}
		updated = append(updated, res.mirror)
		left--
	}
	cancel()

	log.WithFields(log.Fields{
		"probed":  len(updated),
		"total":   n,
		"elapsed": time.Since(start).Milliseconds(),
	}).Info("bandwidth probing complete")

	// Reconcile: carry over every mirror without a successful probe so
	// the output set matches the input set exactly.
	probed := make(map[string]struct{}, len(updated))
	for _, m := range updated {
		probed[m.URL] = struct{}{}
	}
	for _, m := range original {
		if _, ok := probed[m.URL]; !ok {
			updated = append(updated, m)
		}
	}

	return mirror.List{Mirrors: updated, Source: l.Source}
}
