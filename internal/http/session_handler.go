package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fan-vote/internal/idp"
	"fan-vote/internal/service"
)

// SessionHandler expone el ciclo de autenticacion delegado al proveedor y
// la identidad resuelta de la sesion actual.
type SessionHandler struct {
	logger   *zap.Logger
	provider idp.Provider
	resolver *service.SessionResolver
}

func NewSessionHandler(logger *zap.Logger, provider idp.Provider, resolver *service.SessionResolver) *SessionHandler {
	return &SessionHandler{
		logger:   logger,
		provider: provider,
		resolver: resolver,
	}
}

// Login maneja POST /auth/login.
func (h *SessionHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	session, err := h.provider.SignInWithPassword(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, idp.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not login"})
		return
	}

	identity, err := h.resolver.HandleEvent(c.Request.Context(), signedInEvent(session))
	if err != nil {
		h.logger.Error("post-login resolution failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not resolve identity, please retry"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": session, "identity": identity})
}

// Signup maneja POST /auth/signup.
func (h *SessionHandler) Signup(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid signup request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	session, err := h.provider.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, idp.ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "this email is already registered"})
			return
		}
		h.logger.Error("signup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not sign up"})
		return
	}

	identity, err := h.resolver.HandleEvent(c.Request.Context(), signedInEvent(session))
	if err != nil {
		h.logger.Error("post-signup resolution failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not resolve identity, please retry"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"session": session, "identity": identity})
}

// OAuth maneja POST /auth/oauth: devuelve la URL de autorizacion federada.
func (h *SessionHandler) OAuth(c *gin.Context) {
	var req struct {
		Provider   string `json:"provider" binding:"required"`
		RedirectTo string `json:"redirect_to"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid oauth request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	url, err := h.provider.SignInWithOAuth(c.Request.Context(), req.Provider, req.RedirectTo)
	if err != nil {
		h.logger.Error("oauth url failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start oauth"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// Refresh maneja POST /auth/refresh.
func (h *SessionHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid refresh request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	session, err := h.provider.RefreshSession(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, idp.ErrSessionNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		h.logger.Error("refresh failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not refresh session"})
		return
	}

	if _, err := h.resolver.HandleEvent(c.Request.Context(), refreshedEvent(session)); err != nil {
		h.logger.Warn("post-refresh resolution failed", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

// Logout maneja POST /auth/logout. El sign-out local registra la supresion
// del eco SIGNED_OUT que el proveedor levantara despues para este subject.
func (h *SessionHandler) Logout(c *gin.Context) {
	subject, _ := GetAuthSubject(c)
	if err := h.resolver.SignOut(c.Request.Context(), GetAccessToken(c), subject); err != nil {
		h.logger.Warn("logout completed with provider error", zap.Error(err))
	}
	c.Status(http.StatusNoContent)
}

// Resolve maneja GET /session: la identidad resuelta de la sesion actual.
func (h *SessionHandler) Resolve(c *gin.Context) {
	identity, err := h.resolver.ResolveCurrent(c.Request.Context(), GetAccessToken(c))
	if err != nil {
		h.logger.Error("session resolution failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not resolve identity, please retry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": identity})
}

// Event maneja POST /session/events: el relay del stream onAuthStateChange
// del proveedor hacia el resolutor.
func (h *SessionHandler) Event(c *gin.Context) {
	var req struct {
		Type string `json:"type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	event := domainEvent(req.Type)
	if subject, ok := GetAuthSubject(c); ok {
		event.Subject = &subject
	}
	identity, err := h.resolver.HandleEvent(c.Request.Context(), event)
	if err != nil {
		h.logger.Error("auth event resolution failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not resolve identity, please retry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": identity})
}
