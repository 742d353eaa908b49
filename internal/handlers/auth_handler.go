package handlers

import (
	"net/http"
	"time"

	"glyke/internal/middleware"
	"glyke/internal/services"

	"github.com/gin-gonic/gin"
)

// TokenRevoker stores revoked token ids until they expire.
type TokenRevoker interface {
	RevokeToken(jti string, ttl time.Duration) error
}

type AuthHandler struct {
	userService services.UserService
	jwtSecret   string
	tokenTTL    time.Duration
	revoker     TokenRevoker
}

// NewAuthHandler builds the sign-up/sign-in endpoints. revoker may be nil, in
// which case logout cannot invalidate tokens early.
func NewAuthHandler(userService services.UserService, jwtSecret string, tokenTTL time.Duration, revoker TokenRevoker) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		jwtSecret:   jwtSecret,
		tokenTTL:    tokenTTL,
		revoker:     revoker,
	}
}

type signUpRequest struct {
	Username  string `json:"username" form:"username"`
	Email     string `json:"email" form:"email"`
	FirstName string `json:"first_name" form:"first_name"`
	LastName  string `json:"last_name" form:"last_name"`
	Password  string `json:"password" form:"password"`
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	user, err := h.userService.SignUp(services.SignUpInput{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

type signInRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// SignInPage answers the login redirect target.
func (h *AuthHandler) SignInPage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Sign in required",
		"next":    safeNext(c.Query("next")),
	})
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	user, err := h.userService.Authenticate(req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, claims, err := middleware.GenerateToken(h.jwtSecret, user, h.tokenTTL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": claims.ExpiresAt.Time,
		"user":       user,
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if h.revoker != nil && claims.ExpiresAt != nil {
		if err := h.revoker.RevokeToken(claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
			respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.userService.GetUserByID(middleware.CurrentClaims(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
