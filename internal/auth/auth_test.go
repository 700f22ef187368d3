package auth

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSignerEmptySecretDisablesAuth(t *testing.T) {
	assert.Nil(t, NewSigner(""))

	called := false
	h := Middleware(nil, http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	assert.True(t, called)
}

func TestIssueAndValidate(t *testing.T) {
	s := NewSigner("s3cret")

	tok, exp, err := s.Issue("assistant", time.Hour)
	require.NoError(t, err)
	require.NotNil(t, exp)

	claims, err := s.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, "assistant", claims.Subject)
	assert.Equal(t, issuer, claims.Issuer)

	_, err = NewSigner("other").Validate(tok)
	assert.Error(t, err)

	_, _, err = s.Issue("", time.Hour)
	assert.Error(t, err)
}

func TestIssueWithoutExpiry(t *testing.T) {
	s := NewSigner("s3cret")
	tok, exp, err := s.Issue("assistant", 0)
	require.NoError(t, err)
	assert.Nil(t, exp)

	claims, err := Inspect(tok)
	require.NoError(t, err)
	assert.Nil(t, claims.ExpiresAt)
}

func signed(t *testing.T, secret string, c jwt.RegisteredClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: c}).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func TestValidateRejectsBadClaims(t *testing.T) {
	s := NewSigner("s3cret")

	expired := signed(t, "s3cret", jwt.RegisteredClaims{
		Subject:   "assistant",
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})
	_, err := s.Validate(expired)
	assert.Error(t, err)

	foreign := signed(t, "s3cret", jwt.RegisteredClaims{Subject: "assistant", Issuer: "someone-else"})
	_, err = s.Validate(foreign)
	assert.Error(t, err)

	anonymous := signed(t, "s3cret", jwt.RegisteredClaims{Issuer: issuer})
	_, err = s.Validate(anonymous)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	s := NewSigner("s3cret")
	var subject string
	h := Middleware(s, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = SubjectFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid token")

	tok, _, err := s.Issue("assistant", time.Hour)
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "bearer "+tok)
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "assistant", subject)
}

func TestTokenStorage(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(TokenEnv, "")

	_, err := GetToken()
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, SetToken("Bearer abc.def.ghi", nil))
	ti, err := GetToken()
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", ti.Token)
	assert.Equal(t, "file", ti.Source)

	info, err := os.Stat(filepath.Join(home, ".todo-copilot", credFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	t.Setenv(TokenEnv, "from-env")
	ti, err = GetToken()
	require.NoError(t, err)
	assert.Equal(t, "env", ti.Source)
	assert.Equal(t, "from-env", ti.Token)

	t.Setenv(TokenEnv, "")
	require.NoError(t, DeleteToken())
	require.NoError(t, DeleteToken())
	_, err = GetToken()
	assert.ErrorIs(t, err, ErrNoToken)

	assert.Error(t, SetToken("   ", nil))
}
