// Package server exposes a viewer session over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	"go.uber.org/zap"

	"github.com/inodb/ideogram-genes/internal/assembly"
	"github.com/inodb/ideogram-genes/internal/lookup"
	"github.com/inodb/ideogram-genes/internal/metrics"
	"github.com/inodb/ideogram-genes/internal/render"
	"github.com/inodb/ideogram-genes/internal/session"
	"github.com/inodb/ideogram-genes/internal/view"
)

// Prompt is shown while no genes are loaded.
const Prompt = "Please choose a text file to add its genes to a pull-down menu"

// maxUploadBytes bounds a text/plain upload body.
const maxUploadBytes = 8 << 20

// Server serves one session.
type Server struct {
	echo    *echo.Echo
	session *session.Session
	adapter *render.Adapter
	metrics *metrics.Collector
	logger  *zap.Logger
	version string
}

// Options wires a Server's collaborators. Metrics and Logger are optional.
type Options struct {
	Session *session.Session
	Adapter *render.Adapter
	Metrics *metrics.Collector
	Logger  *zap.Logger
	Version string
}

// New builds the echo instance and registers all routes.
func New(opts Options) *Server {
	s := &Server{
		echo:    echo.New(),
		session: opts.Session,
		adapter: opts.Adapter,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		version: opts.Version,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.POST},
	}))
	e.Use(s.requestLogger)

	e.GET("/", s.handleRoot)
	e.GET("/healthz", s.handleHealth)
	e.GET("/api/state", s.handleState)
	e.POST("/api/upload", s.handleUpload)
	e.POST("/api/select", s.handleSelect)
	e.GET("/api/ideogram", s.handleIdeogram)
	e.GET("/api/assemblies", s.handleAssemblies)
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}
	return s
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("listening", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving on %s: %w", addr, err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		s.logger.Debug("request",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().Status),
			zap.Duration("elapsed", time.Since(start)))
		return nil
	}
}

func (s *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := http.StatusText(code)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	} else {
		s.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}

	if c.Response().Committed {
		return
	}
	if err := c.JSON(code, map[string]string{"error": msg}); err != nil {
		s.logger.Warn("writing error response", zap.Error(err))
	}
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"name":        "ideogram-genes",
		"description": "Resolve gene lists to chromosome coordinates and draw them on an ideogram",
		"version":     s.version,
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(c echo.Context) error {
	return c.JSON(http.StatusOK, newStateResponse(s.session.State()))
}

func (s *Server) handleUpload(c echo.Context) error {
	ctx := c.Request().Context()
	ctype := c.Request().Header.Get(echo.HeaderContentType)

	var batches []session.Batch
	switch {
	case strings.HasPrefix(ctype, echo.MIMEMultipartForm):
		form, err := c.MultipartForm()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid multipart form: "+err.Error())
		}
		files := form.File["files"]
		if len(files) == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, `no files in form field "files"`)
		}
		for _, fh := range files {
			f, err := fh.Open()
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "opening upload: "+err.Error())
			}
			b, err := s.session.SubmitReader(ctx, fh.Filename, f)
			f.Close()
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}
			batches = append(batches, b)
		}
	case ctype == "" || strings.HasPrefix(ctype, echo.MIMETextPlain):
		body := io.LimitReader(c.Request().Body, maxUploadBytes)
		b, err := s.session.SubmitReader(ctx, "", body)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		batches = append(batches, b)
	default:
		return echo.NewHTTPError(http.StatusUnsupportedMediaType,
			"upload must be multipart/form-data or text/plain")
	}

	resp := uploadResponse{
		stateResponse: newStateResponse(s.session.State()),
		Batches:       make([]batchSummary, 0, len(batches)),
	}
	for _, b := range batches {
		resp.Batches = append(resp.Batches, newBatchSummary(b))
	}
	return c.JSON(http.StatusOK, resp)
}

type selectRequest struct {
	Gene string `json:"gene"`
}

func (s *Server) handleSelect(c echo.Context) error {
	var req selectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Gene) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "gene is required")
	}

	st, err := s.session.Select(req.Gene)
	if errors.Is(err, view.ErrUnknownGene) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newStateResponse(st))
}

type ideogramResponse struct {
	Key    uint64        `json:"key"`
	Params render.Params `json:"params"`
}

func (s *Server) handleIdeogram(c echo.Context) error {
	key, params, ok := s.adapter.Mounted()
	if !ok {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "ideogram not mounted")
	}
	return c.JSON(http.StatusOK, ideogramResponse{Key: key, Params: params})
}

func (s *Server) handleAssemblies(c echo.Context) error {
	return c.JSON(http.StatusOK, assembly.Mapping())
}

// stateResponse is the state as the page consumes it.
type stateResponse struct {
	view.State
	SelectedGene *string `json:"selectedGene"`
	GenesFound   int     `json:"genesFound"`
	Prompt       string  `json:"prompt,omitempty"`
}

func newStateResponse(st view.State) stateResponse {
	r := stateResponse{State: st, GenesFound: len(st.Genes)}
	if name, ok := st.Selected(); ok {
		r.SelectedGene = &name
	}
	if len(st.Genes) == 0 {
		r.Prompt = Prompt
	}
	return r
}

type uploadResponse struct {
	stateResponse
	Batches []batchSummary `json:"batches"`
}

type batchSummary struct {
	ID         string       `json:"id"`
	Source     string       `json:"source,omitempty"`
	Submitted  int          `json:"submitted"`
	Resolved   int          `json:"resolved"`
	Unresolved []unresolved `json:"unresolved"`
	Error      string       `json:"error,omitempty"`
}

type unresolved struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

func newBatchSummary(b session.Batch) batchSummary {
	sum := batchSummary{
		ID:         b.ID,
		Source:     b.Source,
		Submitted:  b.Result.Submitted,
		Resolved:   len(b.Result.Annotations),
		Unresolved: make([]unresolved, 0, len(b.Result.Failures)),
	}
	for _, f := range b.Result.Failures {
		sum.Unresolved = append(sum.Unresolved, unresolved{Name: f.Name, Reason: lookup.Reason(f.Err)})
	}
	if b.Err != nil {
		sum.Error = b.Err.Error()
	}
	return sum
}
