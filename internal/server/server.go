package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/agenthands/topoclean/internal/config"
	"github.com/agenthands/topoclean/internal/core"
	"github.com/agenthands/topoclean/internal/core/model"
	"github.com/agenthands/topoclean/internal/drawing"
	"github.com/agenthands/topoclean/internal/driver"
	"github.com/agenthands/topoclean/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DrawingStore is a store the API can load into and wipe.
type DrawingStore interface {
	store.EntityStore
	store.Loader
	Clear(ctx context.Context) error
}

type Server struct {
	Cleaner *core.Cleaner
	Store   DrawingStore
	closers []func(context.Context) error
}

func New(c *core.Cleaner, s DrawingStore) *Server {
	return &Server{Cleaner: c, Store: s}
}

// NewServer builds the store named in cfg and a cleaner over it.
func NewServer(cfg *config.Config) (*Server, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	switch cfg.Server.Store {
	case "memgraph":
		d, err := driver.NewMemgraphDriver(cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Memgraph: %w", err)
		}
		if err := d.BuildIndices(context.Background()); err != nil {
			_ = d.Close(context.Background())
			return nil, fmt.Errorf("failed to build indices: %w", err)
		}
		s := store.NewMemgraphStore(d, cfg.Memgraph.GroupID)
		srv := New(core.NewCleaner(s, cfg, logger), s)
		srv.closers = append(srv.closers, d.Close)
		return srv, nil
	default:
		s := store.NewMemoryStore()
		return New(core.NewCleaner(s, cfg, logger), s), nil
	}
}

func (s *Server) Close(ctx context.Context) error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c(ctx))
	}
	return errors.Join(errs...)
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/drawings", s.ImportDrawing)
	r.GET("/drawings", s.ExportDrawing)
	r.GET("/actions", s.Actions)
	r.POST("/check", s.Check)
	r.POST("/fix/:id", s.Fix)
	r.POST("/fix-all", s.FixAll)
	r.POST("/results/:id/reject", s.Reject)
	r.POST("/results/:id/unreject", s.Unreject)
	r.GET("/results", s.Results)
	r.POST("/check-and-fix", s.CheckAndFix)
	r.POST("/clean", s.Clean)
	r.POST("/polygons", s.Polygons)

	return r
}

// fail writes err with the status its kind maps to.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrUnknownAction), errors.Is(err, core.ErrActionDisabled):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrResultNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, model.ErrCancelled), errors.Is(err, context.Canceled):
		status = http.StatusRequestTimeout
	}
	if status == http.StatusInternalServerError {
		log.Printf("Request %s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
}

func (s *Server) ImportDrawing(c *gin.Context) {
	var doc drawing.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		badRequest(c, err)
		return
	}
	if err := doc.Validate(); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	if c.DefaultQuery("append", "false") != "true" {
		if err := s.Store.Clear(ctx); err != nil {
			fail(c, err)
			return
		}
	}
	s.Cleaner.Reset()
	handles, err := doc.Load(ctx, s.Store)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"handles": handles})
}

func (s *Server) ExportDrawing(c *gin.Context) {
	doc, err := drawing.Export(c.Request.Context(), s.Store, c.Query("name"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) Actions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"actions": s.Cleaner.Actions()})
}

func (s *Server) Check(c *gin.Context) {
	var req core.CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	g, err := s.Cleaner.Check(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": g, "summary": s.Cleaner.Summarizer.Group(g)})
}

func (s *Server) Fix(c *gin.Context) {
	r, err := s.Cleaner.Fix(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": r})
}

type FixAllRequest struct {
	Action model.ActionType `json:"action" binding:"required"`
}

func (s *Server) FixAll(c *gin.Context) {
	var req FixAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sum, err := s.Cleaner.FixAll(c.Request.Context(), req.Action)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": sum, "message": sum.String()})
}

func (s *Server) Reject(c *gin.Context) {
	r, err := s.Cleaner.Reject(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": r})
}

func (s *Server) Unreject(c *gin.Context) {
	r, err := s.Cleaner.Unreject(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": r})
}

func (s *Server) Results(c *gin.Context) {
	name := c.Query("action")
	if name == "" {
		c.JSON(http.StatusOK, gin.H{"groups": s.Cleaner.Groups()})
		return
	}
	t, err := model.ParseActionType(name)
	if err != nil {
		fail(c, err)
		return
	}
	g, ok := s.Cleaner.Results(t)
	if !ok {
		fail(c, fmt.Errorf("no check of %s: %w", t, model.ErrResultNotFound))
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": g})
}

func (s *Server) CheckAndFix(c *gin.Context) {
	var req core.CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	conv, err := s.Cleaner.CheckAndFixAll(c.Request.Context(), req)
	if errors.Is(err, model.ErrConvergenceExceeded) {
		c.JSON(http.StatusOK, gin.H{"convergence": conv, "error": err.Error()})
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"convergence": conv})
}

type CleanRequest struct {
	Sequence  []model.ActionType   `json:"sequence"`
	Selection []model.EntityHandle `json:"selection"`
}

func (s *Server) Clean(c *gin.Context) {
	var req CleanRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	rep, err := s.Cleaner.RunSequence(c.Request.Context(), req.Sequence, req.Selection)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) Polygons(c *gin.Context) {
	var req core.PolygonRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	rep, err := s.Cleaner.ExtractPolygons(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}
