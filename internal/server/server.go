// Package server provides the HTTP surface of the resource host: it
// serves the in-memory wrapped-script resources the pipeline installs,
// plus health and metrics endpoints.
package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/microfront/hoist/internal/config"
	"github.com/microfront/hoist/internal/logging"
	"github.com/microfront/hoist/internal/script"
)

// Server wraps the gin router and its dependencies.
type Server struct {
	router *gin.Engine
	blobs  *script.BlobStore
	logger *logging.Logger
	cfg    *config.Config
}

// New creates the resource-host server. Blob serving is cross-origin by
// nature (micro-apps load from many origins), so CORS is wide open for
// GET.
func New(cfg *config.Config, blobs *script.BlobStore, registry *prometheus.Registry, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET"},
	}))

	s := &Server{
		router: router,
		blobs:  blobs,
		logger: logger,
		cfg:    cfg,
	}

	router.GET("/health", s.handleHealth)
	router.GET("/blob/:id", s.handleBlob)
	if registry != nil {
		router.GET("/metrics", gin.WrapH(
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		))
	}
	return s
}

// Run starts the server on the configured address.
func (s *Server) Run() error {
	addr := s.cfg.Server.Host + ":" + s.cfg.Server.Port
	s.logger.Info("resource host listening", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"blobs":  s.blobs.Len(),
	})
}

// handleBlob serves an installed resource. The blob URL scheme maps onto
// the path: blob:hoist/<id> is fetched as /blob/<id>.
func (s *Server) handleBlob(c *gin.Context) {
	url := script.BlobURLForID(c.Param("id"))
	content, contentType, err := s.blobs.Get(url)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "blob not found"})
		return
	}
	c.Data(http.StatusOK, contentType, []byte(content))
}
