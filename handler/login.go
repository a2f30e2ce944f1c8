package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"eco-route/config"
	"eco-route/db"
	"eco-route/model"
	"eco-route/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ErrAuth covers every authentication failure: missing or bad credentials,
// and invalid or expired tokens.
var ErrAuth = errors.New("authentication failed")

// context keys set by the auth middleware
const (
	ctxUserID = "user_id"
	ctxEmail  = "email"
)

// Claims is the JWT payload.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Auth issues and verifies HS256 tokens.
type Auth struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewAuth(cfg config.AuthConfig) *Auth {
	return &Auth{secret: cfg.Secret, ttl: cfg.TTL, issuer: cfg.Issuer, now: time.Now}
}

// IssueToken signs a token for u.
func (a *Auth) IssueToken(u *model.User) (string, error) {
	now := a.now()
	claims := &Claims{
		UserID: u.ID,
		Email:  u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    a.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies signature, issuer and expiry.
func (a *Auth) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuth, err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("%w: invalid token", ErrAuth)
	}
	return claims, nil
}

// Middleware rejects requests without a valid "Authorization: Bearer" token.
func (a *Auth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(tokenString) == "" {
			abortWithError(c, http.StatusUnauthorized, "Authorization token required")
			return
		}

		claims, err := a.ParseToken(strings.TrimSpace(tokenString))
		if err != nil {
			log.Printf("[%s] auth: %v", requestID(c), err)
			abortWithError(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxEmail, claims.Email)
		c.Next()
	}
}

type SignupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Message string        `json:"message"`
	Token   string        `json:"token"`
	User    model.Profile `json:"user"`
}

// Signup creates an account and logs it in.
func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, "Name, a valid email and a password of at least 6 characters are required")
		return
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		respondError(c, fmt.Errorf("hash password: %w", err))
		return
	}
	user := &model.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    req.Email,
		Password: hashed,
	}
	if err := h.users.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, db.ErrEmailTaken) {
			respondMessage(c, http.StatusBadRequest, "Email already registered")
			return
		}
		respondError(c, err)
		return
	}

	token, err := h.auth.IssueToken(user)
	if err != nil {
		respondError(c, err)
		return
	}
	log.Printf("[%s] signup: user %s", requestID(c), user.ID)
	c.JSON(http.StatusCreated, AuthResponse{
		Message: "User registered successfully",
		Token:   token,
		User:    user.Profile(),
	})
}

// Login exchanges email and password for a token.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.users.FindByEmail(c.Request.Context(), req.Email)
	if err != nil && !errors.Is(err, db.ErrUserNotFound) {
		respondError(c, err)
		return
	}
	if err != nil || !utils.CheckPassword(user.Password, req.Password) {
		respondError(c, fmt.Errorf("%w: invalid email or password", ErrAuth))
		return
	}

	token, err := h.auth.IssueToken(user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, AuthResponse{
		Message: "Login successful",
		Token:   token,
		User:    user.Profile(),
	})
}

// Me returns the authenticated user's profile.
func (h *Handler) Me(c *gin.Context) {
	user, err := h.users.FindByID(c.Request.Context(), c.GetString(ctxUserID))
	if errors.Is(err, db.ErrUserNotFound) {
		respondError(c, fmt.Errorf("%w: account no longer exists", ErrAuth))
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user.Profile()})
}
