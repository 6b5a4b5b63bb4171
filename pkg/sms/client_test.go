package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(Config{
		AccountSID:       "AC123",
		AuthToken:        "secret",
		VerifyServiceSID: "VA456",
		BaseURL:          server.URL,
		Timeout:          time.Second,
	})
}

func TestSendOTP(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/Services/VA456/Verifications", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "secret", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "+919876543210", r.PostForm.Get("To"))
		assert.Equal(t, "sms", r.PostForm.Get("Channel"))

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"sid": "VE789", "status": "pending"})
	})

	sid, err := client.SendOTP(context.Background(), "+919876543210")
	require.NoError(t, err)
	assert.Equal(t, "VE789", sid)
}

func TestSendOTPRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"code": 60200, "message": "Invalid parameter `To`"})
	})

	_, err := client.SendOTP(context.Background(), "+910000000000")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRejected)

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "Invalid parameter `To`", perr.Message)
}

func TestSendOTPUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.SendOTP(context.Background(), "+919876543210")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSendOTPTimeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.SendOTP(ctx, "+919876543210")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestVerifyOTP(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    map[string]interface{}
		wantErr error
	}{
		{
			name:   "Approved",
			status: http.StatusOK,
			body:   map[string]interface{}{"status": "approved"},
		},
		{
			name:    "Pending means wrong code",
			status:  http.StatusOK,
			body:    map[string]interface{}{"status": "pending"},
			wantErr: ErrInvalidCode,
		},
		{
			name:    "Verification not found",
			status:  http.StatusNotFound,
			body:    map[string]interface{}{"code": 20404, "message": "not found"},
			wantErr: ErrInvalidCode,
		},
		{
			name:    "Provider down",
			status:  http.StatusBadGateway,
			body:    map[string]interface{}{},
			wantErr: ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/Services/VA456/VerificationCheck", r.URL.Path)
				require.NoError(t, r.ParseForm())
				assert.Equal(t, "123456", r.PostForm.Get("Code"))

				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(tt.body)
			})

			err := client.VerifyOTP(context.Background(), "+919876543210", "123456")
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestDevMode(t *testing.T) {
	client := NewClient(Config{})

	sid, err := client.SendOTP(context.Background(), "+919876543210")
	require.NoError(t, err)
	assert.Equal(t, "dev", sid)

	assert.NoError(t, client.VerifyOTP(context.Background(), "+919876543210", "000000"))
	assert.ErrorIs(t, client.VerifyOTP(context.Background(), "+919876543210", "12ab"), ErrInvalidCode)
}
