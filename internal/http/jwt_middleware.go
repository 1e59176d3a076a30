package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"fan-vote/internal/domain"
)

const (
	authSubjectKey = "auth_subject"
	accessTokenKey = "access_token"
)

var errTokenInvalid = errors.New("token invalid")

// accessClaims son los claims del access token HS256 del proveedor de
// identidad; este servicio solo los valida, nunca emite tokens propios.
type accessClaims struct {
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	AppMetadata struct {
		Provider string `json:"provider,omitempty"`
	} `json:"app_metadata,omitempty"`
	jwt.RegisteredClaims
}

// SubjectAuthMiddleware valida el access token del proveedor y deja el
// AuthSubject en el contexto. Con required=false un request sin token sigue
// como anonimo; un token presente pero invalido siempre es 401.
func SubjectAuthMiddleware(secret string, required bool) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			if required {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
				c.Abort()
				return
			}
			c.Next()
			return
		}

		token := strings.TrimSpace(header[len("Bearer "):])
		subject, err := parseSubject(key, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set(authSubjectKey, subject)
		c.Set(accessTokenKey, token)
		c.Next()
	}
}

func parseSubject(secret []byte, token string) (domain.AuthSubject, error) {
	if len(secret) == 0 || token == "" {
		return domain.AuthSubject{}, errTokenInvalid
	}
	var claims accessClaims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(token, &claims, func(_ *jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return domain.AuthSubject{}, errTokenInvalid
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return domain.AuthSubject{}, errTokenInvalid
	}
	return domain.AuthSubject{
		ID:       claims.Subject,
		Email:    claims.Email,
		Phone:    claims.Phone,
		Provider: claims.AppMetadata.Provider,
	}, nil
}

// GetAuthSubject obtiene el subject autenticado desde el contexto.
func GetAuthSubject(c *gin.Context) (domain.AuthSubject, bool) {
	val, ok := c.Get(authSubjectKey)
	if !ok {
		return domain.AuthSubject{}, false
	}
	subject, ok := val.(domain.AuthSubject)
	return subject, ok
}

// GetAccessToken devuelve el token crudo del request, si lo hubo.
func GetAccessToken(c *gin.Context) string {
	val, ok := c.Get(accessTokenKey)
	if !ok {
		return ""
	}
	token, _ := val.(string)
	return token
}
