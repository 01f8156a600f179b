package main

import (
	"context"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/manu3618/reflecto/internal/api"
	"github.com/manu3618/reflecto/internal/config"
	"github.com/manu3618/reflecto/internal/fetch"
	"github.com/manu3618/reflecto/internal/metrics"
	"github.com/manu3618/reflecto/internal/mirror"
	"github.com/manu3618/reflecto/internal/prober"
	"github.com/manu3618/reflecto/internal/render"
	"github.com/manu3618/reflecto/internal/snapshot"
	"github.com/manu3618/reflecto/internal/storage"
	"github.com/manu3618/reflecto/internal/types"
	log "github.com/sirupsen/logrus"
)

const version = "1.0.0"

func main() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)
	log.Infof("Starting reflecto mirror ranking service v%s", version)

	// Load configuration
	cfg, err := config.Load("config.json")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Set log level
	if level, err := log.ParseLevel(cfg.Logging.Level); err == nil {
		log.SetLevel(level)
	}

	// Initialize metrics
	metricsCollector := metrics.NewCollector(cfg.Metrics.Namespace)

	// Initialize storage
	store, err := storage.NewStorage(cfg.Storage.Type, cfg.Storage.Path)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	// Initialize snapshot manager
	snapshotMgr := snapshot.NewManager(store, cfg.Storage.PersistIntervalSeconds)

	// Serve the previous mirrorlist until the first cycle completes
	if err := snapshotMgr.LoadFromStorage(); err != nil {
		log.Warnf("Failed to load previous result: %v (starting fresh)", err)
	}

	// Initialize fetch client and prober
	fetchClient := fetch.NewClient(cfg.Fetch.UserAgent, metricsCollector)

	p, err := prober.New(prober.Config{
		SamplePath:  cfg.Probe.SamplePath,
		UserAgent:   cfg.Fetch.UserAgent,
		SOCKS5Proxy: cfg.Probe.SOCKS5Proxy,
	})
	if err != nil {
		log.Fatalf("Failed to initialize prober: %v", err)
	}
	coordinator := prober.NewCoordinator(p, metricsCollector)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	refresh := func() {
		runGenerationCycle(ctx, cfg, fetchClient, coordinator, snapshotMgr, metricsCollector)
	}

	// Start generation loop
	go runGenerationLoop(ctx, cfg.Fetch.IntervalSeconds, refresh)

	// Start API server
	apiServer := api.NewServer(cfg, snapshotMgr, metricsCollector, refresh)
	go func() {
		if err := apiServer.Start(); err != nil {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	log.Infof("Service started successfully on %s", cfg.API.Addr)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down gracefully...")
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("API server shutdown error: %v", err)
	}

	snapshotMgr.Close()
	log.Info("Shutdown complete")
}

func runGenerationLoop(ctx context.Context, intervalSeconds int, refresh func()) {
	// Run immediately on startup
	refresh()

	ticker := time.NewTicker(time.Duration(intervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Generation loop stopped")
			return
		case <-ticker.C:
			refresh()
		}
	}
}

func runGenerationCycle(ctx context.Context, cfg *config.Config, fetchClient *fetch.Client,
	coordinator *prober.Coordinator, snap *snapshot.Manager, mc *metrics.Collector) {

	start := time.Now()
	log.Info("Starting generation cycle")

	// PHASE 1: Fetch and decode the mirror status document
	list, err := fetchClient.Fetch(ctx, cfg.Fetch.StatusURL)
	if err != nil {
		log.Errorf("Fetch failed: %v", err)
		return
	}
	total := len(list.Mirrors)

	// PHASE 2: Filter
	list = list.Filter(cfg.Selection.Criteria())
	log.Infof("Filter retained %d of %d mirrors", len(list.Mirrors), total)

	// PHASE 3: Reachability pre-filter (if enabled)
	if cfg.Probe.EnableFastFilter && len(list.Mirrors) > 0 {
		list = prober.ReachableFilter(ctx, list,
			time.Duration(cfg.Probe.FastFilterTimeoutMs)*time.Millisecond,
			cfg.Probe.FastFilterConcurrency)
	}

	// PHASE 4: Bandwidth probing, only needed when ranking by rate
	sortKey := cfg.Selection.SortKey()
	if sortKey == mirror.SortRate || cfg.Probe.TargetCount > 0 {
		target := cfg.Probe.TargetCount
		if target == 0 {
			target = cfg.Selection.Limit
		}
		timeout := time.Duration(cfg.Probe.TimeoutSeconds) * time.Second
		list = coordinator.UpdateRates(ctx, list, timeout, target)
	}

	// PHASE 5: Rank and render
	list.Sort(sortKey)
	mirrorlist := render.Mirrorlist(list, cfg.Selection.Limit)
	countries := render.Countries(list)
	ranked := list.Truncate(cfg.Selection.Limit)

	probed := 0
	for _, m := range ranked.Mirrors {
		if m.DownloadRate != nil && !math.IsNaN(*m.DownloadRate) {
			probed++
		}
	}

	elapsed := time.Since(start)
	snap.Update(&types.Result{
		Mirrors:    ranked.Mirrors,
		Mirrorlist: mirrorlist,
		Countries:  countries,
		Stats: types.Stats{
			TotalMirrors: total,
			Retained:     len(ranked.Mirrors),
			Probed:       probed,
			SortedBy:     string(sortKey),
			Source:       ranked.Source,
			GenerationMs: elapsed.Milliseconds(),
			GeneratedAt:  time.Now(),
		},
	})

	mc.SetMirrorsRetained(len(ranked.Mirrors))
	mc.RecordGenerationDuration(elapsed.Seconds())

	log.Infof("Generation cycle complete: %d mirrors in %v", len(ranked.Mirrors), elapsed)
}
