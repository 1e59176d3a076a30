package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fan-vote/internal/domain"
	"fan-vote/internal/service"
)

// MemberHandler mantiene dependencias para el registro de membresias.
type MemberHandler struct {
	logger   *zap.Logger
	registry *service.RegistryGateway
	resolver *service.SessionResolver
}

func NewMemberHandler(logger *zap.Logger, registry *service.RegistryGateway, resolver *service.SessionResolver) *MemberHandler {
	return &MemberHandler{
		logger:   logger,
		registry: registry,
		resolver: resolver,
	}
}

// CompleteProfile maneja POST /members: crea el perfil del subject
// autenticado en exactamente una clase.
func (h *MemberHandler) CompleteProfile(c *gin.Context) {
	subject, ok := GetAuthSubject(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	var req struct {
		Class         string `json:"class" binding:"required,oneof=individual sponsor"`
		Email         string `json:"email"`
		LastName      string `json:"last_name" binding:"required"`
		FirstName     string `json:"first_name" binding:"required"`
		LastNameKana  string `json:"last_name_kana"`
		FirstNameKana string `json:"first_name_kana"`
		BirthDate     string `json:"birth_date"`
		Gender        string `json:"gender"`
		PhoneNumber   string `json:"phone_number"`
		Nickname      string `json:"nickname"`

		CompanyName    string `json:"company_name"`
		CompanyAddress string `json:"company_address"`
		Department     string `json:"department"`
		Position       string `json:"position"`
		ContactPhone   string `json:"contact_phone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid complete profile request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	profile, err := h.registry.CompleteProfile(c.Request.Context(), domain.MemberClass(req.Class), subject, service.ProfileInput{
		Email:          req.Email,
		LastName:       req.LastName,
		FirstName:      req.FirstName,
		LastNameKana:   req.LastNameKana,
		FirstNameKana:  req.FirstNameKana,
		BirthDate:      req.BirthDate,
		Gender:         req.Gender,
		PhoneNumber:    req.PhoneNumber,
		Nickname:       req.Nickname,
		CompanyName:    req.CompanyName,
		CompanyAddress: req.CompanyAddress,
		Department:     req.Department,
		Position:       req.Position,
		ContactPhone:   req.ContactPhone,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailAlreadyRegistered):
			c.JSON(http.StatusConflict, gin.H{"error": "this email is already registered"})
			return
		case errors.Is(err, service.ErrProfileExists):
			c.JSON(http.StatusConflict, gin.H{"error": "profile already exists", "member": profile})
			return
		case errors.Is(err, service.ErrInvalidProfile):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid profile fields"})
			return
		case errors.Is(err, service.ErrAllocatorExhausted):
			h.logger.Error("member id allocation exhausted", zap.String("subject_id", subject.ID))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "registration could not be completed, please retry"})
			return
		}
		h.logger.Error("complete profile failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration could not be completed, please retry"})
		return
	}

	// La identidad resuelta cambia de PendingProfile a Member.
	if _, err := h.resolver.HandleEvent(c.Request.Context(), domain.AuthEvent{
		Type:    domain.EventTokenRefreshed,
		Subject: &subject,
	}); err != nil {
		h.logger.Warn("post-registration resolution failed", zap.Error(err))
	}

	c.JSON(http.StatusCreated, gin.H{"member": profile})
}
