package http

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/keremar/watchroom/internal/adapters/ws"
	"github.com/keremar/watchroom/internal/app"
	"github.com/keremar/watchroom/internal/config"
	"github.com/keremar/watchroom/internal/domain"
)

// ClientTokenMiddleware pins a long-lived token to the browser. It is not
// the connection id — connection ids are fresh per WebSocket upgrade —
// but it ties reconnects together in the logs.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// SetupRouter wires REST lookups, the metrics endpoint, static UI and the
// WebSocket upgrade.
func SetupRouter(ctx context.Context, cfg *config.Config, orch *app.Orchestrator, promReg *prometheus.Registry) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("WatchroomSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})))

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	startedAt := time.Now()
	api := r.Group("/api")

	// GET /api/create-room — reserve a fresh room code.
	api.GET("/create-room", func(c *gin.Context) {
		if orch.Hub.Draining() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "server is shutting down"})
			return
		}
		room := orch.Registry.CreateRoom()
		if orch.Metrics != nil {
			orch.Metrics.IncRoomsCreated()
		}
		c.JSON(http.StatusOK, gin.H{
			"roomId":  room.ID(),
			"success": true,
		})
	})

	// GET /api/room/:roomId — room lookup, case-insensitive.
	api.GET("/room/:roomId", func(c *gin.Context) {
		room, ok := orch.Registry.Lookup(domain.RoomID(c.Param("roomId")))
		if !ok {
			c.JSON(http.StatusOK, gin.H{"exists": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"exists": true,
			"room":   room.Info(),
		})
	})

	// GET /api/status — operational diagnostics.
	api.GET("/status", func(c *gin.Context) {
		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)
		c.JSON(http.StatusOK, gin.H{
			"status":         "running",
			"uptime":         int64(time.Since(startedAt).Seconds()),
			"rooms":          orch.Registry.Count(),
			"connectedUsers": orch.Hub.Count(),
			"memory": gin.H{
				"used":  mem.HeapAlloc / 1024 / 1024,
				"total": mem.HeapSys / 1024 / 1024,
			},
		})
	})

	wsCtl := ws.NewController(orch, cfg)
	api.GET("/ws", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("client_token", c.GetString("client_token")).Msg("ws endpoint hit")
		wsCtl.HandleWS(ctx, c)
	})

	return r
}
