package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticValidator(t *testing.T) {
	v := NewStaticValidator("alpha", "", "beta")

	id, err := v.Validate(context.Background(), "beta")
	require.NoError(t, err)
	assert.Equal(t, "key-2", id.AgentID)

	_, err = v.Validate(context.Background(), "gamma")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = v.Validate(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHTTPValidator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "s3cret", r.Header.Get("X-Auth-Secret"))
		var req validateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		switch req.Token {
		case "valid":
			_ = json.NewEncoder(w).Encode(validateResponse{Valid: true, AgentID: "a-1", Name: "trainer"})
		case "forbidden":
			w.WriteHeader(http.StatusForbidden)
		case "broken":
			w.WriteHeader(http.StatusBadGateway)
		default:
			_ = json.NewEncoder(w).Encode(validateResponse{Valid: false})
		}
	}))
	defer srv.Close()

	v := NewHTTPValidator(srv.URL, "s3cret")
	ctx := context.Background()

	id, err := v.Validate(ctx, "valid")
	require.NoError(t, err)
	assert.Equal(t, &Identity{AgentID: "a-1", Name: "trainer"}, id)

	_, err = v.Validate(ctx, "nope")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = v.Validate(ctx, "forbidden")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = v.Validate(ctx, "broken")
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = v.Validate(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHTTPValidatorUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPValidator(url, "").Validate(context.Background(), "token")
	assert.True(t, errors.Is(err, ErrUnavailable))
}

type stubValidator struct{ err error }

func (s stubValidator) Validate(context.Context, string) (*Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &Identity{AgentID: "stub"}, nil
}

func TestMiddleware(t *testing.T) {
	var seen *Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	})

	tests := []struct {
		name string
		v    Validator
		want int
	}{
		{"valid", stubValidator{}, http.StatusOK},
		{"invalid", stubValidator{err: ErrInvalidToken}, http.StatusUnauthorized},
		{"unavailable", stubValidator{err: ErrUnavailable}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/v1/envs", nil)
			req.Header.Set("Authorization", "Bearer abc")
			Middleware(tt.v)(next).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				require.NotNil(t, seen)
				assert.Equal(t, "stub", seen.AgentID)
			}
		})
	}
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/ws?token=q", nil)
	assert.Equal(t, "q", TokenFromRequest(req))

	req.Header.Set("Authorization", "Bearer  h ")
	assert.Equal(t, "h", TokenFromRequest(req))

	req.Header.Set("Authorization", "Basic xyz")
	assert.Equal(t, "", TokenFromRequest(req))
}
