package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SupabaseClient delegates credential handling to Supabase's GoTrue service.
// Token issuance and verification live there; this client only forwards.
type SupabaseClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewSupabaseClient(baseURL, apiKey string) *SupabaseClient {
	return &SupabaseClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type SignUpRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	OrgRole   string `json:"org_role" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// APIError is a non-2xx reply from GoTrue, carrying its message and status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase auth: %s (status %d)", e.Message, e.StatusCode)
}

func (c *SupabaseClient) SignUp(ctx context.Context, req SignUpRequest) error {
	body := map[string]any{
		"email":    req.Email,
		"password": req.Password,
		"data": map[string]any{
			"first_name": req.FirstName,
			"last_name":  req.LastName,
			"org_role":   req.OrgRole,
		},
	}
	return c.post(ctx, "/auth/v1/signup", body, nil)
}

func (c *SupabaseClient) SignIn(ctx context.Context, req LoginRequest) (*Session, error) {
	body := map[string]any{
		"email":    req.Email,
		"password": req.Password,
	}
	var session Session
	if err := c.post(ctx, "/auth/v1/token?grant_type=password", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *SupabaseClient) post(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Message: gotrueMessage(raw)}
	}
	if out != nil {
		return json.Unmarshal(raw, out)
	}
	return nil
}

// GoTrue spells its error message differently across endpoints.
func gotrueMessage(raw []byte) string {
	var payload struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		for _, m := range []string{payload.Msg, payload.Message, payload.ErrorDescription} {
			if m != "" {
				return m
			}
		}
	}
	return "authentication request failed"
}
