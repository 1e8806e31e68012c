package auth

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"realestate-app/internal/domain/users"
	"realestate-app/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Handler issues and checks administrator credentials.
type Handler struct {
	DB                *gorm.DB
	JWTSecret         []byte
	TokenTTL          time.Duration
	AllowRegistration bool
	Google            *GoogleSignIn // nil when Google sign-in is off
}

func isPasswordStrong(password string) bool {
	if len(password) < 8 {
		return false
	}
	hasLetter := false
	hasDigit := false
	for _, c := range password {
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
			hasLetter = true
		case '0' <= c && c <= '9':
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func isEmailValid(email string) bool {
	return emailPattern.MatchString(email)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/register
func (h *Handler) Register(c *gin.Context) {
	if !h.AllowRegistration {
		c.JSON(http.StatusForbidden, gin.H{"error": "Registration is disabled"})
		return
	}

	var input credentials
	if err := c.ShouldBindJSON(&input); err != nil || input.Email == "" || input.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	if !isEmailValid(input.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email format"})
		return
	}
	if !isPasswordStrong(input.Password) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters long and contain both letters and numbers"})
		return
	}

	ctx := c.Request.Context()
	var existing int64
	if err := h.DB.WithContext(ctx).Model(&users.Administrator{}).Where("email = ?", input.Email).Count(&existing).Error; err != nil {
		logging.FromContext(ctx).Error("lookup administrator", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "User already exists"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}
	hashed := string(hashedPassword)

	admin := users.Administrator{
		Email:        input.Email,
		Password:     &hashed,
		AuthProvider: "local",
	}
	if err := h.DB.WithContext(ctx).Create(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "User already exists"})
			return
		}
		logging.FromContext(ctx).Error("create administrator", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}

	logging.FromContext(ctx).Info("administrator registered", "admin_id", admin.ID)
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully"})
}

// POST /api/login
func (h *Handler) Login(c *gin.Context) {
	var input credentials
	if err := c.ShouldBindJSON(&input); err != nil || input.Email == "" || input.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	var admin users.Administrator
	err := h.DB.WithContext(c.Request.Context()).
		Where("email = ?", strings.ToLower(strings.TrimSpace(input.Email))).
		First(&admin).Error
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if admin.Password == nil || *admin.Password == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "This account uses Google sign-in"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*admin.Password), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	tokenString, err := h.issueToken(admin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"auth_token": tokenString})
}

// GET /api/protected
func (h *Handler) Protected(c *gin.Context) {
	adminID := c.GetUint("admin_id")
	if adminID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Welcome, user %d!", adminID)})
}

func (h *Handler) issueToken(admin users.Administrator) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      fmt.Sprint(admin.ID),
		"admin_id": admin.ID,
		"email":    admin.Email,
		"role":     users.RoleAdmin,
		"iat":      now.Unix(),
		"exp":      now.Add(h.TokenTTL).Unix(),
	})
	return token.SignedString(h.JWTSecret)
}
