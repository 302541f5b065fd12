// Package server is the HTTP edge: a gin JSON API that maps requests
// onto store and orchestrator calls. Identity is a uuid cookie; a first
// request creates the user with default preferences.
package server

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nanban-ai/nanban/internal/catalog"
	"github.com/nanban-ai/nanban/internal/conversation"
	"github.com/nanban-ai/nanban/internal/orchestrator"
	"github.com/nanban-ai/nanban/internal/prompt"
	"github.com/nanban-ai/nanban/internal/store"
)

const (
	userCookie       = "nanban_uid"
	userCookieMaxAge = 365 * 24 * 60 * 60
)

// Server wires the JSON API together.
type Server struct {
	store        *store.Store
	orch         *orchestrator.Orchestrator
	catalog      *catalog.Catalog
	historyLimit int
	logger       zerolog.Logger
	router       *gin.Engine
}

// New builds the server and its routes.
func New(st *store.Store, orch *orchestrator.Orchestrator, cat *catalog.Catalog, historyLimit int, logger zerolog.Logger) *Server {
	s := &Server{
		store:        st,
		orch:         orch,
		catalog:      cat,
		historyLimit: historyLimit,
		logger:       logger.With().Str("component", "server").Logger(),
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())

	r.GET("/healthz", s.handleHealth)

	api := r.Group("/api")
	api.Use(s.identify())
	{
		api.POST("/chat", s.handleChat)
		api.POST("/preferences", s.handlePreferences)
		api.POST("/memory", s.handleMemory)
		api.DELETE("/memory", s.handleForget)
		api.POST("/checkin", s.handleCheckin)
		api.POST("/clear-history", s.handleClearHistory)
		api.GET("/stats", s.handleStats)
	}

	s.router = r
	return s
}

// Handler exposes the router for http.Server and tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

// identify resolves the cookie user, creating one on first contact.
func (s *Server) identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(userCookie)
		if err != nil || id == "" {
			id = uuid.NewString()
			c.SetCookie(userCookie, id, userCookieMaxAge, "/", "", false, true)
		}

		user, err := s.store.GetUser(c.Request.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			if err := s.store.CreateUser(c.Request.Context(), id,
				"", string(catalog.DefaultDialect), string(catalog.DefaultPersona)); err != nil {
				s.fail(c, err)
				return
			}
			user, err = s.store.GetUser(c.Request.Context(), id)
			if err != nil {
				s.fail(c, err)
				return
			}
		} else if err != nil {
			s.fail(c, err)
			return
		}

		c.Set("user", user)
		c.Next()
	}
}

func currentUser(c *gin.Context) *store.User {
	return c.MustGet("user").(*store.User)
}

func (s *Server) fail(c *gin.Context, err error) {
	s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type chatRequest struct {
	Message   string `json:"message"`
	Image     string `json:"image"`      // base64-encoded payload
	ImageMIME string `json:"image_mime"` // e.g. image/jpeg
	Mood      string `json:"mood"`
	ReplyMode string `json:"reply_mode"`
}

type chatResponse struct {
	Response    string   `json:"response"`
	Fallback    bool     `json:"fallback"`
	Audio       string   `json:"audio,omitempty"` // base64 MP3
	Suggestions []string `json:"suggestions,omitempty"`
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var imageData []byte
	if req.Image != "" {
		var err error
		imageData, err = base64.StdEncoding.DecodeString(req.Image)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image encoding"})
			return
		}
	}

	ctx := c.Request.Context()
	user := currentUser(c)

	history, err := s.store.History(ctx, user.ID, s.historyLimit)
	if err != nil {
		s.fail(c, err)
		return
	}
	memory, err := s.store.GetMemory(ctx, user.ID)
	if err != nil {
		s.fail(c, err)
		return
	}

	reply, err := s.orch.Respond(ctx, orchestrator.Request{
		Message:   req.Message,
		ImageData: imageData,
		ImageMIME: req.ImageMIME,
		Dialect:   catalog.Dialect(user.Dialect),
		Persona:   catalog.Persona(user.Persona),
		UserName:  user.Name,
		Mood:      req.Mood,
		ReplyMode: prompt.ReplyMode(req.ReplyMode),
		History:   history,
		Memory:    memory,
		Voice:     user.VoiceEnabled,
	})
	if errors.Is(err, orchestrator.ErrEmptyMessage) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message or image required"})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}

	userTurn := req.Message
	if userTurn == "" {
		userTurn = "[image]"
	}
	if err := s.store.AppendTurn(ctx, user.ID, conversation.RoleUser, userTurn); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.store.AppendTurn(ctx, user.ID, conversation.RoleAssistant, reply.Text); err != nil {
		s.fail(c, err)
		return
	}

	resp := chatResponse{
		Response:    reply.Text,
		Fallback:    reply.Fallback,
		Suggestions: reply.Suggestions,
	}
	if len(reply.Audio) > 0 {
		resp.Audio = base64.StdEncoding.EncodeToString(reply.Audio)
	}
	c.JSON(http.StatusOK, resp)
}

type preferencesRequest struct {
	Name         string `json:"name"`
	Dialect      string `json:"dialect"`
	Persona      string `json:"persona"`
	VoiceEnabled *bool  `json:"voice_enabled"`
}

func (s *Server) handlePreferences(c *gin.Context) {
	var req preferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user := currentUser(c)

	// Unknown identifiers settle on the defaults rather than erroring.
	dialect := s.catalog.ResolveDialect(catalog.Dialect(req.Dialect)).ID
	persona := s.catalog.ResolvePersona(catalog.Persona(req.Persona)).ID

	name := req.Name
	if name == "" {
		name = user.Name
	}
	voice := user.VoiceEnabled
	if req.VoiceEnabled != nil {
		voice = *req.VoiceEnabled
	}

	if err := s.store.UpdatePreferences(c.Request.Context(), user.ID, name, string(dialect), string(persona), voice); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"name":          name,
		"dialect":       dialect,
		"persona":       persona,
		"voice_enabled": voice,
	})
}

type memoryRequest struct {
	Consent   string `json:"consent"`
	Facts     string `json:"facts"`
	Mood      string `json:"mood"`
	ReplyMode string `json:"reply_mode"`
}

func (s *Server) handleMemory(c *gin.Context) {
	var req memoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	consent := store.Consent(req.Consent)
	switch consent {
	case store.ConsentGranted, store.ConsentDenied, store.ConsentUnset:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "consent must be granted, denied or unset"})
		return
	}

	user := currentUser(c)
	if err := s.store.SetMemory(c.Request.Context(), user.ID, store.Memory{
		Consent:   consent,
		Facts:     req.Facts,
		Mood:      req.Mood,
		ReplyMode: req.ReplyMode,
	}); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"consent": consent})
}

func (s *Server) handleForget(c *gin.Context) {
	user := currentUser(c)
	if err := s.store.ClearMemory(c.Request.Context(), user.ID); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"forgotten": true})
}

type checkinRequest struct {
	Mood string `json:"mood" binding:"required"`
}

func (s *Server) handleCheckin(c *gin.Context) {
	var req checkinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mood required"})
		return
	}

	user := currentUser(c)
	if err := s.store.RecordCheckin(c.Request.Context(), user.ID, req.Mood); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recorded": true})
}

func (s *Server) handleClearHistory(c *gin.Context) {
	user := currentUser(c)
	if err := s.store.ClearHistory(c.Request.Context(), user.ID); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

func (s *Server) handleStats(c *gin.Context) {
	user := currentUser(c)
	stats, err := s.store.Stats(c.Request.Context(), user.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
