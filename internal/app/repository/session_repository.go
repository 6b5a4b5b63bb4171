package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nidaro/nidaro-backend/internal/app/model"
	"github.com/nidaro/nidaro-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	pendingSignupPrefix   = "signup:"
	panVerificationPrefix = "pan_verification:"
	captchaSessionPrefix  = "captcha:"
)

// ErrSessionNotFound is returned when a key is absent or has already expired.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository stores short-lived signup state with a TTL. Take* reads
// and deletes a key atomically, so only one caller can consume a session.
type SessionRepository interface {
	SavePendingSignup(ctx context.Context, signup *model.PendingSignup, ttl time.Duration) error
	GetPendingSignup(ctx context.Context, mobileNo string) (*model.PendingSignup, error)
	TakePendingSignup(ctx context.Context, mobileNo string) (*model.PendingSignup, error)
	DeletePendingSignup(ctx context.Context, mobileNo string) error

	SavePANVerification(ctx context.Context, session *model.PANVerificationSession, ttl time.Duration) error
	GetPANVerification(ctx context.Context, id string) (*model.PANVerificationSession, error)
	TakePANVerification(ctx context.Context, id string) (*model.PANVerificationSession, error)
	DeletePANVerification(ctx context.Context, id string) error

	SaveCaptchaSession(ctx context.Context, session *model.CaptchaSession, ttl time.Duration) error
	GetCaptchaSession(ctx context.Context, id string) (*model.CaptchaSession, error)
	TakeCaptchaSession(ctx context.Context, id string) (*model.CaptchaSession, error)
	DeleteCaptchaSession(ctx context.Context, id string) error
}

type sessionRepository struct {
	client *redis.Client
}

func NewSessionRepository(client *redis.Client) SessionRepository {
	return &sessionRepository{client: client}
}

func (r *sessionRepository) SavePendingSignup(ctx context.Context, signup *model.PendingSignup, ttl time.Duration) error {
	return r.setJSON(ctx, pendingSignupPrefix+signup.MobileNo, signup, ttl)
}

func (r *sessionRepository) GetPendingSignup(ctx context.Context, mobileNo string) (*model.PendingSignup, error) {
	var signup model.PendingSignup
	if err := r.getJSON(ctx, pendingSignupPrefix+mobileNo, &signup); err != nil {
		return nil, err
	}
	return &signup, nil
}

func (r *sessionRepository) TakePendingSignup(ctx context.Context, mobileNo string) (*model.PendingSignup, error) {
	var signup model.PendingSignup
	if err := r.takeJSON(ctx, pendingSignupPrefix+mobileNo, &signup); err != nil {
		return nil, err
	}
	return &signup, nil
}

func (r *sessionRepository) DeletePendingSignup(ctx context.Context, mobileNo string) error {
	return r.delete(ctx, pendingSignupPrefix+mobileNo)
}

func (r *sessionRepository) SavePANVerification(ctx context.Context, session *model.PANVerificationSession, ttl time.Duration) error {
	return r.setJSON(ctx, panVerificationPrefix+session.ID, session, ttl)
}

func (r *sessionRepository) GetPANVerification(ctx context.Context, id string) (*model.PANVerificationSession, error) {
	var session model.PANVerificationSession
	if err := r.getJSON(ctx, panVerificationPrefix+id, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) TakePANVerification(ctx context.Context, id string) (*model.PANVerificationSession, error) {
	var session model.PANVerificationSession
	if err := r.takeJSON(ctx, panVerificationPrefix+id, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) DeletePANVerification(ctx context.Context, id string) error {
	return r.delete(ctx, panVerificationPrefix+id)
}

func (r *sessionRepository) SaveCaptchaSession(ctx context.Context, session *model.CaptchaSession, ttl time.Duration) error {
	return r.setJSON(ctx, captchaSessionPrefix+session.ID, session, ttl)
}

func (r *sessionRepository) GetCaptchaSession(ctx context.Context, id string) (*model.CaptchaSession, error) {
	var session model.CaptchaSession
	if err := r.getJSON(ctx, captchaSessionPrefix+id, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) TakeCaptchaSession(ctx context.Context, id string) (*model.CaptchaSession, error) {
	var session model.CaptchaSession
	if err := r.takeJSON(ctx, captchaSessionPrefix+id, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) DeleteCaptchaSession(ctx context.Context, id string) error {
	return r.delete(ctx, captchaSessionPrefix+id)
}

func (r *sessionRepository) setJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		logger.Error("Failed to store session", err, map[string]interface{}{
			"key_prefix": keyPrefix(key),
		})
		return err
	}
	return nil
}

func (r *sessionRepository) getJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrSessionNotFound
		}
		logger.Error("Failed to load session", err, map[string]interface{}{
			"key_prefix": keyPrefix(key),
		})
		return err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode session: %w", err)
	}
	return nil
}

func (r *sessionRepository) takeJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.GetDel(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrSessionNotFound
		}
		logger.Error("Failed to take session", err, map[string]interface{}{
			"key_prefix": keyPrefix(key),
		})
		return err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode session: %w", err)
	}
	return nil
}

func (r *sessionRepository) delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		logger.Error("Failed to delete session", err, map[string]interface{}{
			"key_prefix": keyPrefix(key),
		})
		return err
	}
	return nil
}

func keyPrefix(key string) string {
	prefix, _, _ := strings.Cut(key, ":")
	return prefix + ":"
}
