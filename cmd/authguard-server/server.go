package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/authguard"
	"github.com/MrEthical07/authguard/middleware/ginguard"
	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

type server struct {
	engine  *authguard.Engine
	metrics http.Handler
	logger  *slog.Logger
}

func (s *server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), clientIP())

	r.POST("/login", s.login)
	r.POST("/token/refresh", ginguard.RefreshGuard(s.engine, nil), s.refresh)
	r.POST("/logout", ginguard.AccessGuard(s.engine, nil), s.logout)
	r.GET("/users/:user_id/profile", ginguard.AccessGuard(s.engine, ginguard.Param("user_id")), s.profile)
	r.GET("/healthz", s.health)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics))
	}
	return r
}

func reject(c *gin.Context, err error) {
	rej := authguard.RejectionFor(err)
	c.Header("Cache-Control", "no-store")
	c.AbortWithStatusJSON(rej.Status, rej)
}

func (s *server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "identifier and password are required"})
		return
	}

	pair, err := s.engine.Authenticate(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		reject(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, pair)
}

func (s *server) refresh(c *gin.Context) {
	res, _ := ginguard.AuthResultFromGin(c)
	access, err := s.engine.ReissueAccessToken(c.Request.Context(), res)
	if err != nil {
		reject(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{"access_token": access})
}

func (s *server) logout(c *gin.Context) {
	res, _ := ginguard.AuthResultFromGin(c)
	if err := s.engine.Logout(c.Request.Context(), res.Identity); err != nil {
		reject(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) profile(c *gin.Context) {
	res, _ := ginguard.AuthResultFromGin(c)
	c.JSON(http.StatusOK, gin.H{
		"user_id":    res.Identity,
		"details":    res.UserDetails,
		"expires_at": res.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (s *server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	latency, err := s.engine.Ping(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "health check failed", slog.Any("error", err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "store_latency_ms": latency.Milliseconds()})
}

func (s *server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.InfoContext(c.Request.Context(), "request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
			slog.String("ip", c.ClientIP()),
		)
	}
}

func clientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(authguard.WithClientIP(c.Request.Context(), c.ClientIP()))
		c.Next()
	}
}
