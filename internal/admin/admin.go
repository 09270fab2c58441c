// Package admin exposes a read-only HTTP surface beside the UDP loop:
// health, metrics, facility availability and live monitor
// subscriptions. All state reads are funnelled through the server's
// Inspect seam so the dispatch goroutine remains the sole owner of the
// store.
package admin

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"bookd/internal/monitor"
	"bookd/internal/observability"
	"bookd/internal/semantics"
	"bookd/internal/store"
)

// Inspector runs fn between datagrams on the dispatch goroutine.
type Inspector interface {
	Inspect(fn func(st *store.Store, reg *monitor.Registry, cache *semantics.ReplyCache))
}

// Server is the admin HTTP endpoint.
type Server struct {
	addr      string
	engine    *gin.Engine
	inspector Inspector
	startedAt time.Time
}

func New(addr string, inspector Inspector, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(observability.RequestLogger(logger))
	engine.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	s := &Server{
		addr:      addr,
		engine:    engine,
		inspector: inspector,
		startedAt: time.Now(),
	}
	s.registerRoutes()
	return s
}

// Run blocks serving HTTP on the configured address.
func (s *Server) Run() error {
	observability.RegisterMetrics()
	return s.engine.Run(s.addr)
}

// Handler exposes the route tree, for tests.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) registerRoutes() {
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.startedAt).String(),
			"service": "bookd-admin",
		})
	})

	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.engine.GET("/facilities", func(c *gin.Context) {
		type entry struct {
			Name     string `json:"name"`
			Bookings int    `json:"bookings"`
			Summary  string `json:"summary"`
		}
		var out []entry
		s.inspector.Inspect(func(st *store.Store, _ *monitor.Registry, _ *semantics.ReplyCache) {
			for _, name := range st.Names() {
				f, _ := st.Get(name)
				out = append(out, entry{
					Name:     name,
					Bookings: f.BookingCount(),
					Summary:  f.WeeklySummary(),
				})
			}
		})
		c.JSON(http.StatusOK, gin.H{"facilities": out})
	})

	s.engine.GET("/facilities/:name", func(c *gin.Context) {
		name := c.Param("name")
		var text string
		var found bool
		s.inspector.Inspect(func(st *store.Store, _ *monitor.Registry, _ *semantics.ReplyCache) {
			if f, ok := st.Get(name); ok {
				found = true
				text = store.StatusText(f, store.AllDays())
			}
		})
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "no such facility"})
			return
		}
		c.String(http.StatusOK, text)
	})

	s.engine.GET("/monitors", func(c *gin.Context) {
		type entry struct {
			ID       string    `json:"id"`
			Peer     string    `json:"peer"`
			Facility string    `json:"facility"`
			ExpireAt time.Time `json:"expire_at"`
		}
		var out []entry
		var cacheEntries int
		s.inspector.Inspect(func(_ *store.Store, reg *monitor.Registry, cache *semantics.ReplyCache) {
			for _, sub := range reg.Live() {
				out = append(out, entry{
					ID:       sub.ID.String(),
					Peer:     sub.Addr.String(),
					Facility: sub.Facility,
					ExpireAt: sub.ExpireAt,
				})
			}
			cacheEntries = cache.Len()
		})
		c.JSON(http.StatusOK, gin.H{
			"monitors":            out,
			"reply_cache_entries": cacheEntries,
		})
	})
}
