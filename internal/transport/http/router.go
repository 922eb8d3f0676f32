// Package http wires the gin router: token-gated websocket endpoint plus
// a couple of introspection routes.
package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mkoval/dealroom/internal/auth"
	"github.com/mkoval/dealroom/internal/config"
	"github.com/mkoval/dealroom/internal/domain"
	"github.com/mkoval/dealroom/internal/realtime"
	"github.com/mkoval/dealroom/internal/transport/ws"
)

// AuthMiddleware verifies the bearer token and attaches the resulting
// identity to the request context. Browsers cannot set headers on a
// websocket upgrade, so a token query parameter is accepted as well.
func AuthMiddleware(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			header := c.GetHeader("Authorization")
			token = strings.TrimPrefix(header, "Bearer ")
		}
		user, err := verifier.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("user", user)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, orch *realtime.Orchestrator, verifier *auth.Verifier) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	ctl := ws.NewController(orch, cfg)

	api := r.Group("/api", AuthMiddleware(verifier))
	api.GET("/ws", func(c *gin.Context) {
		ctl.HandleWS(ctx, c)
	})
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, orch.Rooms.List())
	})
	api.GET("/presence/:user", func(c *gin.Context) {
		online := orch.Registry.Online(domain.UserID(c.Param("user")))
		c.JSON(http.StatusOK, gin.H{"online": online})
	})

	log.Info().Str("module", "transport.http").Msg("router setup")
	return r
}
