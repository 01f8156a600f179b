package api

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/manu3618/reflecto/internal/config"
	"github.com/manu3618/reflecto/internal/metrics"
	"github.com/manu3618/reflecto/internal/snapshot"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type Server struct {
	config      *config.Config
	snapshot    *snapshot.Manager
	metrics     *metrics.Collector
	router      *gin.Engine
	httpServer  *http.Server
	rateLimiter *RateLimiter

	// refresh triggers an asynchronous generation cycle.
	refresh func()
}

type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	rps := float64(requestsPerMinute) / 60.0
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    requestsPerMinute / 10, // Allow bursts
	}
}

func (rl *RateLimiter) GetLimiter(key string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[key]
	rl.mu.RUnlock()

	if exists {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := rl.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rl.rate, rl.burst)
	rl.limiters[key] = limiter

	return limiter
}

func NewServer(cfg *config.Config, snap *snapshot.Manager, metricsCollector *metrics.Collector, refresh func()) *Server {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		config:      cfg,
		snapshot:    snap,
		metrics:     metricsCollector,
		router:      router,
		rateLimiter: NewRateLimiter(cfg.API.RateLimitPerMinute),
		refresh:     refresh,
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	// Middleware
	s.router.Use(s.loggingMiddleware())
	s.router.Use(s.metricsMiddleware())

	// Public endpoints
	s.router.GET("/health", s.handleHealth)

	// Metrics endpoint (usually scraped by Prometheus)
	if s.config.Metrics.Enabled {
		s.router.GET(s.config.Metrics.Endpoint, gin.WrapH(promhttp.Handler()))
	}

	// Protected endpoints
	protected := s.router.Group("/")
	if s.config.API.EnableAPIKeyAuth {
		protected.Use(s.authMiddleware())
	}
	if s.config.API.EnableIPRateLimit {
		protected.Use(s.rateLimitMiddleware())
	}

	protected.GET("/mirrorlist", s.handleMirrorlist)
	protected.GET("/countries", s.handleCountries)
	protected.GET("/stat", s.handleStat)
	protected.POST("/refresh", s.handleRefresh)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.config.API.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Infof("Starting API server on %s", s.config.API.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info("Shutting down API server...")
	return s.httpServer.Shutdown(ctx)
}

// Middleware

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		log.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     path,
			"status":   statusCode,
			"duration": duration.Milliseconds(),
			"ip":       c.ClientIP(),
		}).Info("API request")
	}
}

func (s *Server) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		s.metrics.RecordAPIRequest(method, path, status)
		s.metrics.RecordAPIDuration(method, path, duration)
	}
}

func (s *Server) authMiddleware() gin.HandlerFunc {
	expectedKey := os.Getenv(s.config.API.APIKeyEnv)
	if expectedKey == "" {
		log.Warn("API key not set in environment, authentication disabled")
	}

	return func(c *gin.Context) {
		if expectedKey == "" {
			c.Next()
			return
		}

		// Check header first
		apiKey := c.GetHeader("X-Api-Key")
		if apiKey == "" {
			// Check query parameter
			apiKey = c.Query("key")
		}

		if apiKey != expectedKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or missing API key",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		limiter := s.rateLimiter.GetLimiter(ip)

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// Handlers

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (s *Server) handleMirrorlist(c *gin.Context) {
	result := s.snapshot.Get()
	if len(result.Mirrors) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "No mirrorlist generated yet",
		})
		return
	}

	format := c.Query("format")
	acceptHeader := c.GetHeader("Accept")
	wantsJSON := format == "json" || strings.Contains(acceptHeader, "application/json")

	if wantsJSON {
		c.JSON(http.StatusOK, gin.H{
			"mirrors": result.Mirrors,
			"stats":   result.Stats,
			"updated": result.Updated.Format(time.RFC3339),
		})
		return
	}

	c.String(http.StatusOK, result.Mirrorlist+"\n")
}

func (s *Server) handleCountries(c *gin.Context) {
	result := s.snapshot.Get()
	if len(result.Mirrors) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "No mirrorlist generated yet",
		})
		return
	}

	c.String(http.StatusOK, result.Countries+"\n")
}

func (s *Server) handleStat(c *gin.Context) {
	result := s.snapshot.Get()

	c.JSON(http.StatusOK, gin.H{
		"total_mirrors": result.Stats.TotalMirrors,
		"retained":      result.Stats.Retained,
		"probed":        result.Stats.Probed,
		"sorted_by":     result.Stats.SortedBy,
		"source":        result.Stats.Source,
		"generation_ms": result.Stats.GenerationMs,
		"generated_at":  result.Stats.GeneratedAt.Format(time.RFC3339),
		"updated":       result.Updated.Format(time.RFC3339),
	})
}

func (s *Server) handleRefresh(c *gin.Context) {
	log.Info("Manual refresh triggered via API")

	if s.refresh != nil {
		go s.refresh()
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Refresh triggered",
	})
}
