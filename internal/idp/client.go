package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fan-vote/internal/domain"
)

// HTTPClient implementa Provider contra un servicio de autenticacion
// hospedado estilo GoTrue (REST + tokens HS256).
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient construye un cliente apuntando al endpoint de auth del proveedor.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	User         struct {
		ID          string `json:"id"`
		Email       string `json:"email"`
		Phone       string `json:"phone"`
		AppMetadata struct {
			Provider string `json:"provider"`
		} `json:"app_metadata"`
	} `json:"user"`
}

type errorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"msg"`
}

func (c *HTTPClient) SignInWithPassword(ctx context.Context, email, password string) (Session, error) {
	body := map[string]string{"email": email, "password": password}
	var tr tokenResponse
	status, raw, err := c.post(ctx, "/token?grant_type=password", "", body, &tr)
	if err != nil {
		return Session{}, err
	}
	if status == http.StatusBadRequest || status == http.StatusUnauthorized {
		return Session{}, ErrInvalidCredentials
	}
	if status >= 400 {
		return Session{}, fmt.Errorf("idp sign-in: status=%d body=%s", status, raw)
	}
	return c.session(tr), nil
}

func (c *HTTPClient) SignUp(ctx context.Context, email, password string) (Session, error) {
	body := map[string]string{"email": email, "password": password}
	var tr tokenResponse
	status, raw, err := c.post(ctx, "/signup", "", body, &tr)
	if err != nil {
		return Session{}, err
	}
	if status == http.StatusUnprocessableEntity || status == http.StatusConflict {
		return Session{}, ErrUserExists
	}
	if status >= 400 {
		return Session{}, fmt.Errorf("idp sign-up: status=%d body=%s", status, raw)
	}
	return c.session(tr), nil
}

func (c *HTTPClient) SignInWithOAuth(_ context.Context, provider, redirectTo string) (string, error) {
	if strings.TrimSpace(provider) == "" {
		return "", fmt.Errorf("idp oauth: provider required")
	}
	q := url.Values{}
	q.Set("provider", provider)
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	return c.baseURL + "/authorize?" + q.Encode(), nil
}

func (c *HTTPClient) GetSession(ctx context.Context, accessToken string) (Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user", nil)
	if err != nil {
		return Session{}, err
	}
	c.setHeaders(req, accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("idp get session: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Session{}, fmt.Errorf("idp get session: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return Session{}, ErrSessionNotFound
	}
	if resp.StatusCode >= 400 {
		return Session{}, fmt.Errorf("idp get session: status=%d body=%s", resp.StatusCode, raw)
	}

	var user struct {
		ID          string `json:"id"`
		Email       string `json:"email"`
		Phone       string `json:"phone"`
		AppMetadata struct {
			Provider string `json:"provider"`
		} `json:"app_metadata"`
	}
	if err := json.Unmarshal(raw, &user); err != nil {
		return Session{}, fmt.Errorf("idp get session: %w", err)
	}
	if user.ID == "" {
		return Session{}, ErrSessionNotFound
	}
	return Session{
		AccessToken: accessToken,
		Subject: domain.AuthSubject{
			ID:       user.ID,
			Email:    user.Email,
			Phone:    user.Phone,
			Provider: user.AppMetadata.Provider,
		},
	}, nil
}

func (c *HTTPClient) RefreshSession(ctx context.Context, refreshToken string) (Session, error) {
	body := map[string]string{"refresh_token": refreshToken}
	var tr tokenResponse
	status, raw, err := c.post(ctx, "/token?grant_type=refresh_token", "", body, &tr)
	if err != nil {
		return Session{}, err
	}
	if status == http.StatusBadRequest || status == http.StatusUnauthorized {
		return Session{}, ErrSessionNotFound
	}
	if status >= 400 {
		return Session{}, fmt.Errorf("idp refresh: status=%d body=%s", status, raw)
	}
	return c.session(tr), nil
}

func (c *HTTPClient) SignOut(ctx context.Context, accessToken string) error {
	status, raw, err := c.post(ctx, "/logout", accessToken, struct{}{}, nil)
	if err != nil {
		return err
	}
	if status >= 400 && status != http.StatusUnauthorized {
		return fmt.Errorf("idp sign-out: status=%d body=%s", status, raw)
	}
	return nil
}

func (c *HTTPClient) SendPhoneOTP(ctx context.Context, phone string) error {
	body := map[string]string{"phone": phone}
	status, raw, err := c.post(ctx, "/otp", "", body, nil)
	if err != nil {
		return err
	}
	if status >= 400 {
		return fmt.Errorf("idp send otp: status=%d body=%s", status, raw)
	}
	return nil
}

func (c *HTTPClient) VerifyPhoneOTP(ctx context.Context, phone, code string) (OTPResult, error) {
	body := map[string]string{"type": "sms", "phone": phone, "token": code}
	status, raw, err := c.post(ctx, "/verify", "", body, nil)
	if err != nil {
		return OTPInvalid, err
	}
	if status < 400 {
		return OTPOk, nil
	}
	if status >= 500 {
		return OTPInvalid, fmt.Errorf("idp verify otp: status=%d body=%s", status, raw)
	}

	// El proveedor distingue expiracion via error_code; nunca colapsar a invalido.
	var er errorResponse
	_ = json.Unmarshal(raw, &er)
	if er.ErrorCode == "otp_expired" || strings.Contains(strings.ToLower(er.Message), "expired") {
		return OTPExpired, nil
	}
	return OTPInvalid, nil
}

func (c *HTTPClient) session(tr tokenResponse) Session {
	var expiresAt time.Time
	if tr.ExpiresIn > 0 {
		expiresAt = time.Now().UTC().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    expiresAt,
		Subject: domain.AuthSubject{
			ID:       tr.User.ID,
			Email:    tr.User.Email,
			Phone:    tr.User.Phone,
			Provider: tr.User.AppMetadata.Provider,
		},
	}
}

func (c *HTTPClient) post(ctx context.Context, path, accessToken string, body any, out any) (int, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("idp marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	c.setHeaders(req, accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("idp request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("idp read response: %w", err)
	}
	if out != nil && resp.StatusCode < 400 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, raw, fmt.Errorf("idp unmarshal response: %w", err)
		}
	}
	return resp.StatusCode, raw, nil
}

func (c *HTTPClient) setHeaders(req *http.Request, accessToken string) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	} else if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
