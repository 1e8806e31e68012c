package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"realestate-app/internal/domain/users"
	"realestate-app/internal/logging"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"
)

const googleIssuer = "https://accounts.google.com"

// GoogleSignIn lets an already registered administrator sign in with the
// Google account of the same email. It never creates administrators.
type GoogleSignIn struct {
	OAuth            *oauth2.Config
	FrontendRedirect string
}

func NewGoogleSignIn(clientID, clientSecret, redirectURL, frontendRedirect string) *GoogleSignIn {
	return &GoogleSignIn{
		OAuth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				oidc.ScopeOpenID,
				"email",
				"profile",
			},
			Endpoint: google.Endpoint,
		},
		FrontendRedirect: frontendRedirect,
	}
}

func randomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GET /api/auth/google
func (h *Handler) GoogleStart(c *gin.Context) {
	if h.Google == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Google sign-in is not configured"})
		return
	}

	state, err := randomState()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate state"})
		return
	}

	// state lives in an HttpOnly cookie for 5 minutes
	c.SetCookie("oauth_state", state, 300, "/", "", false, true)

	c.Redirect(http.StatusFound, h.Google.OAuth.AuthCodeURL(state, oauth2.AccessTypeOnline))
}

// GET /api/auth/google/callback
func (h *Handler) GoogleCallback(c *gin.Context) {
	if h.Google == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Google sign-in is not configured"})
		return
	}

	state := c.Query("state")
	code := c.Query("code")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code/state"})
		return
	}

	cookieState, err := c.Cookie("oauth_state")
	if err != nil || cookieState != state {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth state"})
		return
	}

	ctx := c.Request.Context()
	tok, err := h.Google.OAuth.Exchange(ctx, code)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "failed to exchange code"})
		return
	}

	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing id_token"})
		return
	}

	claims, err := h.Google.verify(ctx, rawIDToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	admin, err := linkGoogleAdmin(h.DB.WithContext(ctx), claims)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No administrator registered for this Google account"})
			return
		}
		logging.FromContext(ctx).Error("link google administrator", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign in"})
		return
	}

	tokenString, err := h.issueToken(admin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create token"})
		return
	}

	if h.Google.FrontendRedirect == "" {
		c.JSON(http.StatusOK, gin.H{"auth_token": tokenString})
		return
	}
	c.Redirect(http.StatusFound, h.Google.FrontendRedirect+"?token="+url.QueryEscape(tokenString))
}

type googleIDClaims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

func (g *GoogleSignIn) verify(ctx context.Context, rawIDToken string) (*googleIDClaims, error) {
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, errors.New("failed to init google oidc provider")
	}

	idToken, err := provider.Verifier(&oidc.Config{ClientID: g.OAuth.ClientID}).Verify(ctx, rawIDToken)
	if err != nil {
		return nil, errors.New("invalid id_token")
	}

	var claims googleIDClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, errors.New("failed to decode token claims")
	}
	if claims.Email == "" || claims.Sub == "" {
		return nil, errors.New("token missing required claims")
	}
	if !claims.EmailVerified {
		return nil, errors.New("google email is not verified")
	}
	return &claims, nil
}

// linkGoogleAdmin finds the administrator by Google subject, falling back to
// email and recording the subject on first use.
func linkGoogleAdmin(db *gorm.DB, gc *googleIDClaims) (users.Administrator, error) {
	var admin users.Administrator

	err := db.Where("google_sub = ?", gc.Sub).First(&admin).Error
	if err == nil {
		return admin, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return users.Administrator{}, err
	}

	if err := db.Where("email = ?", strings.ToLower(gc.Email)).First(&admin).Error; err != nil {
		return users.Administrator{}, err
	}
	if admin.GoogleSub == nil {
		sub := gc.Sub
		admin.GoogleSub = &sub
		if err := db.Model(&admin).Update("google_sub", sub).Error; err != nil {
			return users.Administrator{}, err
		}
	}
	return admin, nil
}
