package util

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-testing"

func TestGenerateSessionToken(t *testing.T) {
	tests := []struct {
		name         string
		accountID    string
		mobileNo     string
		businessName string
		isVerified   bool
	}{
		{
			name:         "Verified account",
			accountID:    "acc-1",
			mobileNo:     "+919876543210",
			businessName: "Sharma Traders",
			isVerified:   true,
		},
		{
			name:         "Unverified account",
			accountID:    "acc-2",
			mobileNo:     "+918765432109",
			businessName: "Gupta Textiles",
			isVerified:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := GenerateSessionToken(tt.accountID, tt.mobileNo, tt.businessName, tt.isVerified, testSecret, 7*24*time.Hour)
			require.NoError(t, err)
			require.NotNil(t, token)
			assert.NotEmpty(t, token.Token)
			assert.NotEmpty(t, token.TokenID)
			assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), token.ExpiresAt, time.Minute)
		})
	}
}

func TestValidateToken(t *testing.T) {
	token, err := GenerateSessionToken("acc-123", "+919876543210", "Sharma Traders", true, testSecret, 15*time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		secret  string
		wantErr error
	}{
		{
			name:    "Valid token",
			token:   token.Token,
			secret:  testSecret,
			wantErr: nil,
		},
		{
			name:    "Invalid secret",
			token:   token.Token,
			secret:  "wrong-secret",
			wantErr: ErrInvalidToken,
		},
		{
			name:    "Invalid token format",
			token:   "invalid.token.format",
			secret:  testSecret,
			wantErr: ErrInvalidToken,
		},
		{
			name:    "Empty token",
			token:   "",
			secret:  testSecret,
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ValidateToken(tt.token, tt.secret)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
			} else {
				require.NoError(t, err)
				require.NotNil(t, claims)
				assert.Equal(t, "acc-123", claims.AccountID)
				assert.Equal(t, "+919876543210", claims.MobileNo)
				assert.Equal(t, "Sharma Traders", claims.BusinessName)
				assert.True(t, claims.IsVerified)
				assert.Equal(t, token.TokenID, claims.ID)
			}
		})
	}
}

func TestExpiredToken(t *testing.T) {
	token, err := GenerateSessionToken("acc-1", "+919876543210", "Sharma Traders", false, testSecret, -time.Minute)
	require.NoError(t, err)

	claims, err := ValidateToken(token.Token, testSecret)
	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Nil(t, claims)
}

func TestRejectsNoneAlgorithm(t *testing.T) {
	claims := SessionClaims{
		AccountID: "acc-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ValidateToken(unsigned, testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIDsAreUnique(t *testing.T) {
	first, err := GenerateSessionToken("acc-1", "+919876543210", "A", false, testSecret, time.Hour)
	require.NoError(t, err)
	second, err := GenerateSessionToken("acc-1", "+919876543210", "A", false, testSecret, time.Hour)
	require.NoError(t, err)

	assert.NotEqual(t, first.TokenID, second.TokenID)
}
