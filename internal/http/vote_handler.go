package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"fan-vote/internal/domain"
	"fan-vote/internal/repository"
	"fan-vote/internal/service"
)

// VoteHandler mantiene dependencias para el flujo de votacion.
type VoteHandler struct {
	logger   *zap.Logger
	votes    *service.VoteService
	otp      *service.OTPVerifier
	resolver *service.SessionResolver
	artists  repository.ArtistRepository
	tallies  repository.TallyRepository
}

func NewVoteHandler(logger *zap.Logger, votes *service.VoteService, otp *service.OTPVerifier, resolver *service.SessionResolver, artists repository.ArtistRepository, tallies repository.TallyRepository) *VoteHandler {
	return &VoteHandler{
		logger:   logger,
		votes:    votes,
		otp:      otp,
		resolver: resolver,
		artists:  artists,
		tallies:  tallies,
	}
}

// RequestOTP maneja POST /votes/otp/request.
func (h *VoteHandler) RequestOTP(c *gin.Context) {
	var req struct {
		FlowID string `json:"flow_id" binding:"required"`
		Phone  string `json:"phone" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid otp request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.otp.Issue(c.Request.Context(), req.FlowID, req.Phone); err != nil {
		switch {
		case errors.Is(err, service.ErrRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		case errors.Is(err, service.ErrOTPOutstanding):
			c.JSON(http.StatusConflict, gin.H{"error": "a code is already outstanding"})
			return
		case errors.Is(err, service.ErrOTPInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		h.logger.Error("otp request failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not send code, please retry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "otp_sent"})
}

// VerifyOTP maneja POST /votes/otp/verify.
func (h *VoteHandler) VerifyOTP(c *gin.Context) {
	var req struct {
		FlowID string `json:"flow_id" binding:"required"`
		Phone  string `json:"phone" binding:"required"`
		Code   string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid otp verify request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.otp.Verify(c.Request.Context(), req.FlowID, req.Phone, req.Code); err != nil {
		switch {
		case errors.Is(err, service.ErrOTPExpired), errors.Is(err, service.ErrOTPInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired code"})
			return
		case errors.Is(err, service.ErrOTPNotRequested):
			c.JSON(http.StatusBadRequest, gin.H{"error": "code not requested"})
			return
		}
		h.logger.Error("otp verify failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not verify code, please retry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "phone_confirmed"})
}

// Submit maneja POST /votes.
func (h *VoteHandler) Submit(c *gin.Context) {
	var req struct {
		FlowID    string `json:"flow_id"`
		ArtistID  string `json:"artist_id" binding:"required"`
		Phone     string `json:"phone" binding:"required"`
		VoterName string `json:"voter_name" binding:"required"`
		Message   string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid vote request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	// La identidad sale exclusivamente del request: sin token el voto es
	// anonimo, con token se resuelve la sesion de ese token. Nunca se hereda
	// estado resuelto de otro request.
	identity := domain.Unauthenticated()
	if subject, ok := GetAuthSubject(c); ok {
		resolved, err := h.resolver.ResolveCurrent(c.Request.Context(), GetAccessToken(c))
		if err != nil {
			h.logger.Error("pre-vote resolution failed", zap.String("subject_id", subject.ID), zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not resolve identity, please retry"})
			return
		}
		identity = resolved
	}

	vote, err := h.votes.Submit(c.Request.Context(), identity, service.SubmitInput{
		FlowID:    req.FlowID,
		ArtistID:  req.ArtistID,
		Phone:     req.Phone,
		VoterName: req.VoterName,
		Message:   req.Message,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyVotedToday):
			c.JSON(http.StatusConflict, gin.H{"error": "already voted today"})
			return
		case errors.Is(err, service.ErrArtistNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "artist not found"})
			return
		case errors.Is(err, service.ErrPhoneMismatch):
			c.JSON(http.StatusBadRequest, gin.H{"error": "phone does not match the one on file"})
			return
		case errors.Is(err, service.ErrPhoneNotVerified):
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid or expired code"})
			return
		case errors.Is(err, service.ErrInvalidVote):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		h.logger.Error("vote submit failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not submit vote, please retry"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"vote": vote})
}

// Status maneja GET /votes/status: el pre-chequeo consultivo para la UI.
func (h *VoteHandler) Status(c *gin.Context) {
	phone := c.Query("phone")
	artistID := c.Query("artist_id")

	voted, err := h.votes.AlreadyVotedToday(c.Request.Context(), phone, artistID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidVote) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		h.logger.Error("vote status failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not check vote status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"already_voted_today": voted, "day": h.votes.Today()})
}

// ListArtists maneja GET /artists.
func (h *VoteHandler) ListArtists(c *gin.Context) {
	artists, err := h.artists.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list artists failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list artists"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"artists": artists})
}

// ArtistTally maneja GET /artists/:id/tally.
func (h *VoteHandler) ArtistTally(c *gin.Context) {
	artistID := c.Param("id")
	tally, err := h.tallies.Get(c.Request.Context(), artistID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusOK, gin.H{"tally": tally})
			return
		}
		h.logger.Error("get tally failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read tally"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tally": tally})
}
