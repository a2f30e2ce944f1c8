package handler

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	ctxRequestID    = "request_id"
)

// RequestID tags each request with an id, reusing the caller's header when
// one is sent.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(ctxRequestID)
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// NewRouter wires every endpoint. Route computation and the profile require
// a bearer token.
func NewRouter(h *Handler, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), RequestID(), cors.New(corsConfig(allowedOrigins)))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"status":  "ok",
		})
	})

	api := r.Group("/api")
	{
		api.POST("/signup", h.Signup)
		api.POST("/register", h.Signup)
		api.POST("/login", h.Login)

		api.GET("/areas", h.Areas)
		api.GET("/locations/search", h.SearchLocations)
		api.GET("/nodes", h.Nodes)
		api.GET("/nodes/:id", h.NodeByID)
		api.GET("/pollution/status", h.PollutionStatus)

		authorized := api.Group("")
		authorized.Use(h.auth.Middleware())
		{
			authorized.POST("/route", h.Route)
			authorized.GET("/me", h.Me)
		}
	}

	// the browser client posts to /route without the /api prefix
	r.POST("/route", h.auth.Middleware(), h.Route)

	return r
}
