package util

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// SessionClaims is the payload of the session token issued after mobile login.
type SessionClaims struct {
	AccountID    string `json:"accountId"`
	MobileNo     string `json:"mobileNo"`
	BusinessName string `json:"businessName"`
	IsVerified   bool   `json:"isVerified"`
	jwt.RegisteredClaims
}

// SessionToken is a signed token together with its id and expiry.
type SessionToken struct {
	Token     string
	TokenID   string
	ExpiresAt time.Time
}

// GenerateSessionToken signs an HS256 session token for the given account.
func GenerateSessionToken(accountID, mobileNo, businessName string, isVerified bool, secret string, expiry time.Duration) (*SessionToken, error) {
	now := time.Now()
	expiresAt := now.Add(expiry)
	tokenID := uuid.NewString()

	claims := SessionClaims{
		AccountID:    accountID,
		MobileNo:     mobileNo,
		BusinessName: businessName,
		IsVerified:   isVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return &SessionToken{
		Token:     signed,
		TokenID:   tokenID,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateToken verifies signature and expiry and returns the claims.
func ValidateToken(tokenString, secret string) (*SessionClaims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method %v", ErrInvalidToken, token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
