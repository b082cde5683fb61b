package util

import (
	"institute_backend/internal/model"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	user := &model.User{Email: "wang@example.com", Role: model.Teacher}
	user.ID = 9

	token, err := GenerateJWT(user, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, uint(9), claims.UserID)
	assert.Equal(t, model.Teacher, claims.Role)
	assert.Equal(t, "9", claims.Subject)
	assert.Equal(t, TokenIssuer, claims.Issuer)
}

func TestParseJWTRejects(t *testing.T) {
	user := &model.User{}
	user.ID = 1

	expired, err := GenerateJWT(user, "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(expired, "secret")
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	valid, err := GenerateJWT(user, "secret", time.Hour)
	require.NoError(t, err)
	_, err = ParseJWT(valid, "other")
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	// 其他签名算法一律拒绝
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseJWT(none, "secret")
	assert.Error(t, err)

	// 签名正确但签发方不是本服务
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = ParseJWT(foreign, "secret")
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}
