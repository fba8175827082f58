// Package auth provides optional token authentication for remote agents.
package auth

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	// ErrInvalidToken indicates the token is definitively invalid.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrUnavailable indicates the auth service could not be reached.
	ErrUnavailable = errors.New("auth: unavailable")
)

// Identity is the agent behind a token
type Identity struct {
	AgentID string `json:"agent_id"`
	Name    string `json:"name"`
}

// Validator checks a bearer token and returns the agent's identity
type Validator interface {
	Validate(ctx context.Context, token string) (*Identity, error)
}

// StaticValidator accepts a fixed set of API keys
type StaticValidator struct {
	keys [][]byte
}

// NewStaticValidator accepts any of keys. Empty keys are ignored.
func NewStaticValidator(keys ...string) *StaticValidator {
	v := &StaticValidator{}
	for _, k := range keys {
		if k != "" {
			v.keys = append(v.keys, []byte(k))
		}
	}
	return v
}

// Validate implements Validator
func (v *StaticValidator) Validate(_ context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	for i, k := range v.keys {
		if subtle.ConstantTimeCompare(k, []byte(token)) == 1 {
			return &Identity{AgentID: fmt.Sprintf("key-%d", i+1), Name: "api key"}, nil
		}
	}
	return nil, ErrInvalidToken
}

// HTTPValidator validates tokens by calling an external service
type HTTPValidator struct {
	url    string
	secret string
	client *http.Client
}

// NewHTTPValidator calls url for every token. secret, if set, is sent as
// X-Auth-Secret.
func NewHTTPValidator(url, secret string) *HTTPValidator {
	return &HTTPValidator{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: 500 * time.Millisecond},
	}
}

type validateRequest struct {
	Token string `json:"token"`
}

type validateResponse struct {
	Valid   bool   `json:"valid"`
	AgentID string `json:"agent_id,omitempty"`
	Name    string `json:"name,omitempty"`
}

// Validate implements Validator. Transport failures and unexpected statuses
// wrap ErrUnavailable.
func (v *HTTPValidator) Validate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	body, err := json.Marshal(validateRequest{Token: token})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if v.secret != "" {
		req.Header.Set("X-Auth-Secret", v.secret)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrInvalidToken
	default:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out validateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrUnavailable, err)
	}
	if !out.Valid {
		return nil, ErrInvalidToken
	}
	return &Identity{AgentID: out.AgentID, Name: out.Name}, nil
}
