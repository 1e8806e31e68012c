package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"realestate-app/database"
	"realestate-app/internal/domain/users"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "auth.db")), database.Config())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func newHandler(t *testing.T) *Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return &Handler{
		DB:                openDB(t),
		JWTSecret:         []byte("auth-secret"),
		TokenTTL:          2 * time.Hour,
		AllowRegistration: true,
	}
}

func call(h gin.HandlerFunc, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	h(c)
	return w
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out["error"]
}

func TestPasswordStrength(t *testing.T) {
	assert.True(t, isPasswordStrong("abcdefg1"))
	assert.False(t, isPasswordStrong("abc1"))
	assert.False(t, isPasswordStrong("abcdefgh"))
	assert.False(t, isPasswordStrong("12345678"))
}

func TestEmailFormat(t *testing.T) {
	assert.True(t, isEmailValid("a.b+c@example.co"))
	assert.False(t, isEmailValid("no-at-sign"))
	assert.False(t, isEmailValid("a@b"))
}

func TestRegister(t *testing.T) {
	h := newHandler(t)

	w := call(h.Register, `{"email":"Admin@Example.com","password":"secret123"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var admin users.Administrator
	require.NoError(t, h.DB.Where("email = ?", "admin@example.com").First(&admin).Error)
	require.NotNil(t, admin.Password)
	assert.NotEqual(t, "secret123", *admin.Password)

	w = call(h.Register, `{"email":"admin@example.com","password":"secret123"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "User already exists", errorOf(t, w))

	cases := map[string]string{
		`{"email":"","password":"secret123"}`:     "Email and password are required",
		`{"email":"nope","password":"secret123"}`: "Invalid email format",
		`{"email":"b@example.com","password":"x"}`: "Password must be at least 8 characters long and contain both letters and numbers",
	}
	for body, want := range cases {
		w := call(h.Register, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, want, errorOf(t, w), body)
	}
}

func TestRegisterDisabled(t *testing.T) {
	h := newHandler(t)
	h.AllowRegistration = false

	w := call(h.Register, `{"email":"admin@example.com","password":"secret123"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLoginIssuesToken(t *testing.T) {
	h := newHandler(t)
	require.Equal(t, http.StatusCreated, call(h.Register, `{"email":"admin@example.com","password":"secret123"}`).Code)

	w := call(h.Login, `{"email":"admin@example.com","password":"secret123"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out struct {
		AuthToken string `json:"auth_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(out.AuthToken, claims, func(*jwt.Token) (interface{}, error) {
		return h.JWTSecret, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "admin", claims["role"])
	assert.Equal(t, "admin@example.com", claims["email"])
	assert.EqualValues(t, 1, claims["admin_id"])

	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), exp.Time, time.Minute)

	w = call(h.Login, `{"email":"admin@example.com","password":"wrong-pass1"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid email or password", errorOf(t, w))

	w = call(h.Login, `{"email":"ghost@example.com","password":"secret123"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginRejectsGoogleOnlyAccount(t *testing.T) {
	h := newHandler(t)
	sub := "google-1"
	require.NoError(t, h.DB.Create(&users.Administrator{Email: "g@example.com", AuthProvider: "google", GoogleSub: &sub}).Error)

	w := call(h.Login, `{"email":"g@example.com","password":"secret123"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "This account uses Google sign-in", errorOf(t, w))
}

func TestLinkGoogleAdmin(t *testing.T) {
	db := openDB(t)
	require.NoError(t, db.Create(&users.Administrator{Email: "owner@example.com", AuthProvider: "local"}).Error)

	admin, err := linkGoogleAdmin(db, &googleIDClaims{Sub: "sub-1", Email: "Owner@Example.com", EmailVerified: true})
	require.NoError(t, err)
	require.NotNil(t, admin.GoogleSub)
	assert.Equal(t, "sub-1", *admin.GoogleSub)

	// found by subject even after an email change
	require.NoError(t, db.Model(&users.Administrator{}).Where("id = ?", admin.ID).Update("email", "new@example.com").Error)
	again, err := linkGoogleAdmin(db, &googleIDClaims{Sub: "sub-1", Email: "owner@example.com", EmailVerified: true})
	require.NoError(t, err)
	assert.Equal(t, admin.ID, again.ID)

	_, err = linkGoogleAdmin(db, &googleIDClaims{Sub: "sub-2", Email: "stranger@example.com", EmailVerified: true})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestGoogleStartRedirects(t *testing.T) {
	h := newHandler(t)
	h.Google = NewGoogleSignIn("client-id", "client-secret", "http://localhost/api/auth/google/callback", "")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/auth/google", nil)
	h.GoogleStart(c)

	require.Equal(t, http.StatusFound, w.Code)
	loc := w.Header().Get("Location")
	assert.Contains(t, loc, "accounts.google.com")
	assert.Contains(t, loc, "client_id=client-id")
	assert.Contains(t, w.Header().Get("Set-Cookie"), "oauth_state=")
}

func TestGoogleCallbackRejectsStateMismatch(t *testing.T) {
	h := newHandler(t)
	h.Google = NewGoogleSignIn("client-id", "client-secret", "http://localhost/cb", "")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/cb?state=abc&code=xyz", nil)
	c.Request.AddCookie(&http.Cookie{Name: "oauth_state", Value: "other"})
	h.GoogleCallback(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid oauth state", errorOf(t, w))
}
