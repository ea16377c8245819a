// Package server serves reconciliation reports for one pair of datasets
// over HTTP.
//
// Every request reconciles the loaded left and right tables under the
// base config with query-parameter overrides:
//
//	GET /api/reconcile?tolerance=0.02&min=0&max=1000&policy=reject
//
// Reports are content-addressed (see cache.Key), so equal requests are
// served from the report cache and concurrent identical requests share a
// single engine run.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/singleflight"

	"github.com/roach88/recon/internal/cache"
	"github.com/roach88/recon/internal/engine"
	"github.com/roach88/recon/internal/ir"
	"github.com/roach88/recon/internal/metrics"
)

// Server holds the router and the datasets it reconciles.
type Server struct {
	R *gin.Engine

	left   *ir.Table
	right  *ir.Table
	base   engine.Config

	// Table digests feed every cache key; the tables never change after New.
	leftDigest  string
	rightDigest string
	digestErr   error

	engine *engine.Engine
	logger *slog.Logger
	cache  *cache.ReportCache
	meter  *metrics.Metrics
	sf     singleflight.Group
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEngine sets the engine used for runs. Default: engine.New with the
// server's logger.
func WithEngine(e *engine.Engine) Option {
	return func(s *Server) {
		s.engine = e
	}
}

// WithCache enables report caching.
func WithCache(c *cache.ReportCache) Option {
	return func(s *Server) {
		s.cache = c
	}
}

// WithMetrics records runs and requests and mounts GET /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.meter = m
	}
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type summaryResponse struct {
	RunID    string               `json:"run_id"`
	Digest   string               `json:"digest"`
	Config   engine.Config        `json:"config"`
	Summary  engine.BucketSummary `json:"summary"`
	Stats    engine.Stats         `json:"stats"`
	Warnings int                  `json:"warnings"`
}

type datasetInfo struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    int      `json:"rows"`
}

// New wires the router, middleware and handlers.
func New(left, right *ir.Table, base engine.Config, opts ...Option) *Server {
	s := &Server{
		left:   left,
		right:  right,
		base:   base,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = engine.New(engine.WithLogger(s.logger))
	}
	s.leftDigest, s.rightDigest, s.digestErr = tableDigests(left, right)
	if s.digestErr != nil {
		s.logger.Error("digest datasets", "error", s.digestErr)
	}

	g := gin.New()
	g.Use(s.requestLogger(), gin.Recovery())

	g.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	g.GET("/api/datasets", s.getDatasets)
	g.GET("/api/reconcile", s.getReconcile)
	g.GET("/api/summary", s.getSummary)
	if s.meter != nil {
		g.GET("/metrics", gin.WrapH(s.meter.Handler()))
	}

	s.R = g
	return s
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.R.ServeHTTP(w, r)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		latency := time.Since(start)
		s.logger.Info("http_request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"ip", c.ClientIP(),
			"latency", latency,
		)
		if s.meter != nil {
			s.meter.HTTPRequests.WithLabelValues(c.Request.Method, path, fmt.Sprint(c.Writer.Status())).Inc()
			s.meter.HTTPDuration.WithLabelValues(c.Request.Method, path).Observe(latency.Seconds())
		}
	}
}

// --- Helpers ---

func (s *Server) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, apiError{Code: "bad_request", Message: msg})
}

func (s *Server) internalError(c *gin.Context, where string, err error) {
	s.logger.Error("internal_error", "where", where, "error", err)
	c.JSON(http.StatusInternalServerError, apiError{Code: "internal_server_error", Message: "internal server error"})
}

// runError maps an engine error onto a response. Config errors are the
// caller's fault; data errors mean the loaded datasets cannot be
// reconciled under any parameters.
func (s *Server) runError(c *gin.Context, err error) {
	code := engine.ErrorCodeOf(err)
	switch code {
	case engine.ErrCodeInvalidConfig:
		c.JSON(http.StatusBadRequest, apiError{Code: string(code), Message: err.Error()})
	case engine.ErrCodeSchema, engine.ErrCodeTypeKind, engine.ErrCodeDuplicateKey:
		c.JSON(http.StatusUnprocessableEntity, apiError{Code: string(code), Message: err.Error()})
	default:
		s.internalError(c, "reconcile", err)
	}
}

// --- Handlers ---

func (s *Server) getDatasets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"left":  describe(s.left),
		"right": describe(s.right),
	})
}

func describe(t *ir.Table) datasetInfo {
	return datasetInfo{Name: t.Name, Columns: t.Columns, Rows: t.Len()}
}

func (s *Server) getReconcile(c *gin.Context) {
	cfg, err := ParseConfig(s.base, c.Request.URL.Query())
	if err != nil {
		s.badRequest(c, err.Error())
		return
	}

	body, err := s.report(cfg)
	if err != nil {
		s.runError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func (s *Server) getSummary(c *gin.Context) {
	cfg, err := ParseConfig(s.base, c.Request.URL.Query())
	if err != nil {
		s.badRequest(c, err.Error())
		return
	}

	body, err := s.report(cfg)
	if err != nil {
		s.runError(c, err)
		return
	}

	// The tables are skipped; only the headline fields are decoded.
	var res struct {
		RunID    string               `json:"run_id"`
		Digest   string               `json:"digest"`
		Config   engine.Config        `json:"config"`
		Summary  engine.BucketSummary `json:"summary"`
		Stats    engine.Stats         `json:"stats"`
		Warnings []engine.Warning     `json:"warnings"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		s.internalError(c, "decode report", err)
		return
	}
	c.JSON(http.StatusOK, summaryResponse{
		RunID:    res.RunID,
		Digest:   res.Digest,
		Config:   res.Config,
		Summary:  res.Summary,
		Stats:    res.Stats,
		Warnings: len(res.Warnings),
	})
}

// report returns the rendered report for cfg, from the cache when
// possible. Concurrent misses for the same key share one run.
func (s *Server) report(cfg engine.Config) ([]byte, error) {
	// Validate before keying so a bad config never reaches the cache.
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if s.digestErr != nil {
		return nil, s.digestErr
	}
	key, err := cache.KeyFor(s.leftDigest, s.rightDigest, cfg)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		body, ok, err := s.cache.Get(key)
		if err != nil {
			s.logger.Warn("report cache read failed", "error", err)
		}
		if s.meter != nil {
			s.meter.ObserveCache(ok)
		}
		if ok {
			return body, nil
		}
	}

	v, err, shared := s.sf.Do(key, func() (any, error) {
		// A run that finished between the lookup above and Do has
		// already filled the cache.
		if s.cache != nil {
			if body, ok, _ := s.cache.Get(key); ok {
				return body, nil
			}
		}
		start := time.Now()
		res, err := s.engine.Run(s.left, s.right, cfg)
		if s.meter != nil {
			s.meter.ObserveRun(res, time.Since(start), err)
		}
		if err != nil {
			return nil, err
		}
		body, err := json.Marshal(res)
		if err != nil {
			return nil, fmt.Errorf("encode report: %w", err)
		}
		if s.cache != nil {
			if err := s.cache.Set(key, body); err != nil {
				s.logger.Warn("report cache write failed", "error", err)
			}
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("report shared with concurrent request", "key", key)
	}
	return v.([]byte), nil
}

func tableDigests(left, right *ir.Table) (l, r string, err error) {
	if l, err = ir.TableDigest(left); err != nil {
		return "", "", fmt.Errorf("left dataset: %w", err)
	}
	if r, err = ir.TableDigest(right); err != nil {
		return "", "", fmt.Errorf("right dataset: %w", err)
	}
	return l, r, nil
}
