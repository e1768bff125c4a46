package http

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/parlor/internal/adapters/ws"
	"github.com/dkeye/parlor/internal/config"
	"github.com/dkeye/parlor/internal/coordinator"
	"github.com/dkeye/parlor/internal/domain"
	"github.com/dkeye/parlor/internal/session"
	"github.com/dkeye/parlor/internal/store"
)

// IdentityMiddleware assigns every browser a stable anonymous identity,
// carried in the cookie session under "uid".
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessions.Default(c)
		uid, _ := s.Get("uid").(string)
		if uid == "" {
			uid = string(session.NewIdentity())
			s.Set("uid", uid)
			if err := s.Save(); err != nil {
				log.Error().Err(err).Str("module", "adapters.http").Msg("save session")
			}
		}
		c.Set("uid", uid)
		c.Next()
	}
}

func identity(c *gin.Context) domain.UserID {
	return domain.UserID(c.GetString("uid"))
}

func SetupRouter(cfg *config.Config, coord *coordinator.Coordinator, profiles *session.Registry, st store.Store, version string) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	cookieStore := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("ParlorSessions", cookieStore))
	r.Use(IdentityMiddleware())

	h := &handlers{coord: coord, profiles: profiles, version: version}
	feed := ws.NewController(coord, st)

	r.GET("/healthz", h.health)
	r.GET("/version", h.serveVersion)

	api := r.Group("/api")

	api.GET("/profile", h.getProfile)
	api.PUT("/profile", h.putProfile)
	api.DELETE("/profile", h.resetProfile)

	api.POST("/rooms", h.createRoom)
	api.GET("/rooms/:code", h.getRoom)
	api.POST("/rooms/:code/join", h.joinRoom)
	api.POST("/rooms/:code/leave", h.leaveRoom)
	api.GET("/rooms/:code/qr", h.roomQR)
	api.GET("/rooms/:code/ws", func(c *gin.Context) {
		feed.HandleFeed(c)
	})

	api.GET("/lobbies", h.listLobbies)

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}
