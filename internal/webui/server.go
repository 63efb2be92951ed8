package webui

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yourusername/linkedin-connector/internal/batch"
	"github.com/yourusername/linkedin-connector/internal/config"
	"github.com/yourusername/linkedin-connector/internal/connection"
	"github.com/yourusername/linkedin-connector/internal/logger"
	"github.com/yourusername/linkedin-connector/internal/report"
)

const (
	previewRows = 50
	// maxJobs bounds the uploads kept in memory; the oldest idle ones go first
	maxJobs = 20
)

//go:embed templates/*.html
var templateFS embed.FS

// ErrRunActive is returned when a second run is started while one is going
var ErrRunActive = errors.New("another run is already in progress")

// Runner executes a batch. *batch.Runner implements it.
type Runner interface {
	Run(ctx context.Context, tasks []connection.Task, limit int, obs batch.Observer) ([]connection.Result, error)
}

// Server is the browser dashboard: upload, preview, run, download
type Server struct {
	runner       Runner
	defaultLimit int
	maxUpload    int64
	startTime    time.Time

	engine     *gin.Engine
	httpServer *http.Server

	mu      sync.Mutex
	jobs    map[string]*Job
	order   []string
	maxJobs int
	active  string

	// runs outlive the request that started them
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer wires the routes. gatherer backs /metrics and may be nil.
func NewServer(cfg config.ServerConfig, run config.RunConfig, runner Runner, gatherer prometheus.Gatherer) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger())
	engine.MaxMultipartMemory = cfg.MaxUploadBytes
	engine.SetHTMLTemplate(template.Must(template.New("").Funcs(template.FuncMap{
		"inc": func(i int) int { return i + 1 },
	}).ParseFS(templateFS, "templates/*.html")))

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		runner:       runner,
		defaultLimit: run.DefaultLimit,
		maxUpload:    cfg.MaxUploadBytes,
		startTime:    time.Now(),
		engine:       engine,
		jobs:         make(map[string]*Job),
		maxJobs:      maxJobs,
		ctx:          ctx,
		cancel:       cancel,
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: cfg.GetWriteTimeout(),
	}

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s.setupRoutes(gatherer)

	return s
}

func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	s.engine.GET("/", s.handleIndex)
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	s.engine.POST("/uploads", s.handleUpload)

	jobs := s.engine.Group("/jobs/:id")
	{
		jobs.GET("", s.handleJob)
		jobs.POST("/start", s.handleStart)
		jobs.GET("/status", s.handleStatus)
		jobs.GET("/report.csv", s.handleReport)
	}
}

// Handler exposes the router, mainly for httptest
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	logger.Info("Web UI listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start web server: %w", err)
	}
	return nil
}

// Shutdown cancels the active run, waits for it to release the browser,
// then stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn("Timed out waiting for the active run to stop")
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down web server: %w", err)
	}
	return nil
}

// Wait blocks until no run is in flight
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{})
}

func (s *Server) handleHealth(c *gin.Context) {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"uptime":     time.Since(s.startTime).Round(time.Second).String(),
		"active_job": active,
	})
}

func (s *Server) handleUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)

	header, err := c.FormFile("file")
	if err != nil {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("no CSV file uploaded: %w", err))
		return
	}

	f, err := header.Open()
	if err != nil {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("failed to open upload: %w", err))
		return
	}
	defer f.Close()

	tasks, err := report.LoadTasks(f)
	if err == nil && len(tasks) == 0 {
		err = batch.ErrNoTasks
	}
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}

	job := newJob(header.Filename, tasks)
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
	s.evictLocked()
	s.mu.Unlock()

	logger.Info("CSV uploaded", "job_id", job.ID, "file", header.Filename, "rows", len(tasks))
	c.Redirect(http.StatusSeeOther, "/jobs/"+job.ID)
}

func (s *Server) handleJob(c *gin.Context) {
	job, ok := s.lookup(c)
	if !ok {
		return
	}

	v := job.view(previewRows)
	c.HTML(http.StatusOK, "job.html", gin.H{
		"Job":          v,
		"DefaultLimit": s.limitFor(len(job.Tasks)),
		"Refresh":      v.State == JobRunning,
	})
}

func (s *Server) handleStart(c *gin.Context) {
	job, ok := s.lookup(c)
	if !ok {
		return
	}

	limit := s.limitFor(len(job.Tasks))
	if raw := c.PostForm("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.renderError(c, http.StatusBadRequest, fmt.Errorf("%w: %q", batch.ErrInvalidLimit, raw))
			return
		}
		limit = n
	}
	if limit < 1 || limit > len(job.Tasks) {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("%w: got %d for %d rows", batch.ErrInvalidLimit, limit, len(job.Tasks)))
		return
	}

	if err := s.launch(job, limit); err != nil {
		s.renderError(c, http.StatusConflict, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/jobs/"+job.ID)
}

func (s *Server) handleStatus(c *gin.Context) {
	job, ok := s.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, job.view(0))
}

func (s *Server) handleReport(c *gin.Context) {
	job, ok := s.lookup(c)
	if !ok {
		return
	}

	results := job.Results()
	if len(results) == 0 {
		s.renderError(c, http.StatusNotFound, errors.New("no results to download yet"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
	c.Header("Content-Type", report.ContentType)
	c.Status(http.StatusOK)
	if err := report.Write(c.Writer, results); err != nil {
		logger.Error("Failed to write report", "job_id", job.ID, "error", err)
	}
}

// launch starts job in the background unless another run holds the browser
func (s *Server) launch(job *Job, limit int) error {
	s.mu.Lock()
	if s.active != "" {
		s.mu.Unlock()
		return ErrRunActive
	}
	s.active = job.ID
	job.start(limit)
	s.wg.Add(1)
	s.mu.Unlock()

	logger.Info("Run started", "job_id", job.ID, "limit", limit)

	go func() {
		defer s.wg.Done()

		results, err := s.runner.Run(s.ctx, job.Tasks, limit, job)
		job.finish(results, err)
		if err != nil {
			logger.Error("Run failed", "job_id", job.ID, "processed", len(results), "error", err)
		} else {
			logger.Info("Run finished", "job_id", job.ID, "processed", len(results))
		}

		s.mu.Lock()
		s.active = ""
		s.mu.Unlock()
	}()
	return nil
}

// evictLocked drops the oldest jobs beyond maxJobs, never the running one.
// s.mu must be held.
func (s *Server) evictLocked() {
	for i := 0; len(s.jobs) > s.maxJobs && i < len(s.order); {
		id := s.order[i]
		if id == s.active {
			i++
			continue
		}
		delete(s.jobs, id)
		s.order = append(s.order[:i], s.order[i+1:]...)
		logger.Debug("Evicted job", "job_id", id)
	}
}

func (s *Server) lookup(c *gin.Context) (*Job, bool) {
	s.mu.Lock()
	job, ok := s.jobs[c.Param("id")]
	s.mu.Unlock()

	if !ok {
		s.renderError(c, http.StatusNotFound, errors.New("unknown job"))
	}
	return job, ok
}

func (s *Server) limitFor(rows int) int {
	return batch.DefaultLimit(rows, s.defaultLimit)
}

func (s *Server) renderError(c *gin.Context, code int, err error) {
	if c.GetHeader("Accept") == "application/json" {
		c.JSON(code, gin.H{"error": err.Error()})
		return
	}
	c.HTML(code, "error.html", gin.H{"Code": code, "Error": err.Error()})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
