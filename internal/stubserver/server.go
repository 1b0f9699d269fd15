// Package stubserver is a loopback detection service that replays fixture
// results. It speaks the same multipart protocol as the real service and is
// used for local development and tests.
package stubserver

import (
	"context"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"

	"detectview/internal/errors"
	"detectview/internal/log"
	"detectview/pkg/types"
)

// Behavior controls how the server answers for one file name.
type Behavior string

const (
	// Replay answers with the fixture results (the default).
	Replay Behavior = "replay"
	// Fail answers with HTTP 500.
	Fail Behavior = "fail"
	// Garbage answers 200 with a body that is not JSON.
	Garbage Behavior = "garbage"
	// NoResults answers 200 with a JSON object lacking "results".
	NoResults Behavior = "no_results"
)

// Fixtures maps an uploaded file name to the results returned for it.
type Fixtures struct {
	Results   map[string][]types.DetectionResult `yaml:"results"`
	Behaviors map[string]Behavior                `yaml:"behaviors"`
}

// LoadFixtures reads fixtures from a YAML file.
func LoadFixtures(path string) (Fixtures, error) {
	var f Fixtures
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, errors.NewFileError("fixture file not found", path, errors.FileNotFound, err)
		}
		return f, errors.NewFileError("cannot read fixture file", path, errors.FileAccessDenied, err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, errors.Wrapf(err, "error parsing fixture file %s", path)
	}
	return f, nil
}

// Request records one upload seen by the server.
type Request struct {
	Filename    string
	ContentType string
	Size        int64
	Received    time.Time
}

// Server answers detection requests from fixtures.
type Server struct {
	engine   *gin.Engine
	mu       sync.Mutex
	fixtures Fixtures
	requests []Request
}

// New creates a Server. Unknown file names get a result with no boxes.
func New(fixtures Fixtures) *Server {
	s := &Server{fixtures: fixtures}
	if s.fixtures.Results == nil {
		s.fixtures.Results = map[string][]types.DetectionResult{}
	}
	if s.fixtures.Behaviors == nil {
		s.fixtures.Behaviors = map[string]Behavior{}
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.OPTIONS("/", s.handleOptions)
	router.POST("/", s.handleDetect)
	s.engine = router
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// SetResults replaces the fixture results for filename.
func (s *Server) SetResults(filename string, results ...types.DetectionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixtures.Results[filename] = results
}

// SetBehavior sets how the server answers uploads of filename.
func (s *Server) SetBehavior(filename string, b Behavior) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixtures.Behaviors[filename] = b
}

// Requests returns the uploads received so far, in arrival order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("stub detection service listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func setCORS(c *gin.Context) {
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Requested-With, Cache-Control")
	c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
}

func (s *Server) handleOptions(c *gin.Context) {
	setCORS(c)
	c.JSON(http.StatusOK, struct{}{})
}

func (s *Server) handleDetect(c *gin.Context) {
	setCORS(c)

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart body is missing"})
		return
	}
	files := form.File["files"]
	if len(files) != 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one file is expected in field files"})
		return
	}
	header := files[0]

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Received:    time.Now(),
	})
	behavior := s.fixtures.Behaviors[header.Filename]
	results, ok := s.fixtures.Results[header.Filename]
	s.mu.Unlock()

	switch behavior {
	case Fail:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "detection failed"})
	case Garbage:
		c.String(http.StatusOK, "<html>not json</html>")
	case NoResults:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	default:
		if !ok {
			results = []types.DetectionResult{{Filename: header.Filename}}
		}
		c.JSON(http.StatusOK, types.DetectionResponse{Results: results})
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.LogWithFields(
			log.F("method", c.Request.Method),
			log.F("path", c.Request.URL.Path),
			log.F("status", c.Writer.Status()),
			log.F("latency", time.Since(start).String()),
		).Debug("stub request")
	}
}
