package server

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/seedbank/internal/mesh"
	"github.com/danmuck/seedbank/internal/observability"
	"github.com/danmuck/seedbank/internal/packaging"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const Version = "0.1.0"

const shutdownTimeout = 5 * time.Second

var ErrNilNode = errors.New("server: node is required")

type Config struct {
	Addr        string
	ContentDir  string
	CorsOrigins []string
}

// Server is the local HTTP surface of one node. It plants and reads seeds
// directly on the node and never sends mesh messages.
type Server struct {
	Addr       string
	ContentDir string
	Started    time.Time

	node     *mesh.Node
	router   *gin.Engine
	basePath string
	home     *template.Template
}

// New builds a standalone server with its own gin engine and middleware.
func New(node *mesh.Node, cfg Config) (*Server, error) {
	if node == nil {
		return nil, ErrNilNode
	}
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger, node.ID()))
	r.Use(observability.RequestMetricsMiddleware(node.ID()))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CorsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	return &Server{
		Addr:       cfg.Addr,
		ContentDir: cfg.ContentDir,
		Started:    time.Now(),
		node:       node,
		router:     r,
		home:       template.Must(template.New("home").Parse(homeTemplate)),
	}, nil
}

// Attach mounts the routes of node on an existing router under basePath.
func Attach(node *mesh.Node, router *gin.Engine, basePath, contentDir string) (*Server, error) {
	if node == nil {
		return nil, ErrNilNode
	}
	return &Server{
		ContentDir: contentDir,
		Started:    time.Now(),
		node:       node,
		router:     router,
		basePath:   basePath,
		home:       template.Must(template.New("home").Parse(homeTemplate)),
	}, nil
}

func (s *Server) Node() *mesh.Node {
	return s.node
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

// Plant stores seed on the served node.
func (s *Server) Plant(id string, seed mesh.Seed) error {
	if err := s.node.StoreSeed(id, seed); err != nil {
		return err
	}
	log.Info().Str("node", s.node.ID()).Str("seed_id", id).Msg("seed planted")
	return nil
}

// PlantBundles plants every .seed bundle in dir under its package id.
func (s *Server) PlantBundles(dir string) (int, error) {
	bundles, errs := packaging.Scan(dir)
	for _, b := range bundles {
		if err := s.Plant(b.Metadata.ID, b.Payload()); err != nil {
			errs = append(errs, err)
		}
	}
	return len(bundles), errors.Join(errs...)
}

// Serve registers routes and blocks until ctx is done or the listener fails.
func (s *Server) Serve(ctx context.Context) error {
	s.RegisterRoutes()
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("node", s.node.ID()).Str("addr", s.Addr).Msg("seedbank server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Str("node", s.node.ID()).Msg("seedbank server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) routes() gin.IRoutes {
	if s.basePath == "" {
		return s.router
	}
	return s.router.Group(s.basePath)
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"http://localhost:3000"}
	}
	return out
}
