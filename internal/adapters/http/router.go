package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mkamel/airwave/internal/adapters/signal"
	"github.com/mkamel/airwave/internal/app"
	"github.com/mkamel/airwave/internal/config"
	"github.com/mkamel/airwave/internal/core"
	"github.com/mkamel/airwave/internal/domain"
	"github.com/rs/zerolog/log"
)

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware pins a stable per-client token in a cookie; it
// doubles as the websocket session id.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// AuthRequired resolves the bearer credential to an identity and stores
// it in the request context.
func AuthRequired(provider core.IdentityProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		credential := c.Query("token")
		if credential == "" {
			credential = c.GetHeader("Authorization")
			if len(credential) > 7 && credential[:7] == "Bearer " {
				credential = credential[7:]
			}
		}
		ident, err := provider.Authenticate(c.Request.Context(), credential)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set("identity", ident)
		c.Next()
	}
}

// RoomListItem is the public room directory entry.
type RoomListItem struct {
	Name        domain.RoomName   `json:"name"`
	Category    string            `json:"category"`
	Admin       domain.Identity   `json:"admin"`
	MemberCount int               `json:"memberCount"`
	Activated   bool              `json:"activated"`
	Visibility  domain.Visibility `json:"visibility"`
}

func SetupRouter(ctx context.Context, cfg *config.Config, ctl *signal.Controller, registry core.RoomRegistry, relay *app.Relay, provider core.IdentityProvider) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("AirwaveSessions", store))
	r.Use(ClientTokenMiddleware())

	log.Info().Str("module", "adapters.http").Msg("router setup")

	api := r.Group("/api")

	api.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctl.HandleSignal(ctx, c)
	})

	api.GET("/rooms", func(c *gin.Context) {
		rooms, err := registry.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		out := make([]RoomListItem, 0, len(rooms))
		for _, room := range rooms {
			if room.Visibility != domain.VisibilityPublic {
				continue
			}
			out = append(out, RoomListItem{
				Name:        room.Name,
				Category:    room.Category,
				Admin:       room.Admin,
				MemberCount: len(room.Members()),
				Activated:   room.Activated,
				Visibility:  room.Visibility,
			})
		}
		c.JSON(http.StatusOK, gin.H{"results": len(out), "data": out})
	})

	api.GET("/rooms/:name/chat", AuthRequired(provider), func(c *gin.Context) {
		ident := c.MustGet("identity").(*domain.Identity)
		msgs, err := relay.HistoryFor(c.Request.Context(), ident.ID, domain.RoomName(c.Param("name")))
		if err != nil {
			status := http.StatusInternalServerError
			if core.IsKind(err, core.KindNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": len(msgs), "data": msgs})
	})

	return r
}
