package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sociopedia/sociopedia/server/internal/config"
	"github.com/sociopedia/sociopedia/server/internal/sessions"
	"github.com/sociopedia/sociopedia/server/internal/storage"
	"github.com/sociopedia/sociopedia/server/internal/tokens"
	"github.com/sociopedia/sociopedia/server/internal/users"
	"github.com/sociopedia/sociopedia/server/pkg/logger"
)

// RegisterRequest is the multipart registration form. The picture file is
// optional; without it picturePath is taken as sent.
type RegisterRequest struct {
	FirstName   string                `form:"firstName" binding:"required,min=2,max=50"`
	LastName    string                `form:"lastName" binding:"required,min=2,max=50"`
	Email       string                `form:"email" binding:"required,email,max=50"`
	Password    string                `form:"password" binding:"required,min=5"`
	PicturePath string                `form:"picturePath"`
	Friends     []string              `form:"friends"`
	Location    string                `form:"location"`
	Occupation  string                `form:"occupation"`
	Picture     *multipart.FileHeader `form:"picture"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	cfg         *config.Config
	usersSvc    *users.Service
	sessionsSvc *sessions.Service
	store       storage.Store
	verifier    *tokens.Verifier
}

func NewAuthHandler(cfg *config.Config, u *users.Service, s *sessions.Service, st storage.Store) *AuthHandler {
	return &AuthHandler{cfg: cfg, usersSvc: u, sessionsSvc: s, store: st, verifier: tokens.NewVerifier(cfg.JWT.Secret)}
}

// Register mounts /auth and the read-only /users lookup.
func (h *AuthHandler) Register(rg gin.IRouter) {
	a := rg.Group("/auth")
	a.POST("/register", h.SignUp)
	a.POST("/login", h.Login)
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", h.Logout)

	rg.GET("/users/:id", h.GetUser)
}

// SignUp stores the uploaded picture, then creates the user.
func (h *AuthHandler) SignUp(c *gin.Context) {
	if h.cfg.Uploads.MaxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.Uploads.MaxBytes)
	}
	var req RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	picturePath := req.PicturePath
	if req.Picture != nil {
		key, err := storage.SaveUpload(c.Request.Context(), h.store, req.Picture)
		if err != nil {
			if errors.Is(err, storage.ErrInvalidName) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			logger.Errorf("store picture: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store picture"})
			return
		}
		picturePath = key
	}

	u, err := h.usersSvc.Register(c.Request.Context(), users.RegisterInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		PicturePath: picturePath,
		Friends:     req.Friends,
		Location:    req.Location,
		Occupation:  req.Occupation,
	})
	if err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		logger.Errorf("register user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	logger.Infof("registered user %s", u.ID)
	c.JSON(http.StatusCreated, u)
}

// Login checks credentials and returns an access token plus a refresh token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := h.usersSvc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Errorf("login lookup: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	access, err := tokens.GenerateAccessToken(h.cfg, u, h.cfg.JWT.AccessTokenTTL)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to create access token", "details": err.Error()})
		return
	}
	rft, err := h.sessionsSvc.Create(c.Request.Context(), u.ID)
	if err != nil {
		logger.Errorf("failed to create session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":        access,
		"refreshToken": rft,
		"expiresIn":    int(h.cfg.JWT.AccessTokenTTL.Seconds()),
		"user":         u,
	})
}

// Refresh accepts a refresh token and returns a new access token
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, err := h.sessionsSvc.Validate(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "validation failed"})
		return
	}
	u, err := h.usersSvc.GetByID(c.Request.Context(), sess.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user lookup failed"})
		return
	}
	access, err := tokens.GenerateAccessToken(h.cfg, u, h.cfg.JWT.AccessTokenTTL)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to create access token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": access, "expiresIn": int(h.cfg.JWT.AccessTokenTTL.Seconds())})
}

// Logout invalidates the refresh token and blacklists the bearer access token
// when one is supplied and still valid.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if auth := c.GetHeader("Authorization"); auth != "" {
		var at string
		if n, _ := fmt.Sscanf(auth, "Bearer %s", &at); n == 1 {
			if ttl := h.remaining(c, at); ttl > 0 {
				if err := sessions.BlacklistAccessToken(c.Request.Context(), at, ttl); err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to blacklist access token"})
					return
				}
			}
		}
	}
	if err := h.sessionsSvc.Revoke(c.Request.Context(), req.RefreshToken); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// remaining returns how long a verified access token would stay valid, or 0.
func (h *AuthHandler) remaining(c *gin.Context, raw string) time.Duration {
	tok, err := h.verifier.Verify(c.Request.Context(), raw)
	if err != nil {
		return 0
	}
	var claims map[string]interface{}
	if err := tok.Claims(&claims); err != nil {
		return 0
	}
	exp, err := tokens.ExpiresAt(claims)
	if err != nil {
		return 0
	}
	return time.Until(exp)
}

// GetUser returns the public profile of a user.
func (h *AuthHandler) GetUser(c *gin.Context) {
	u, err := h.usersSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, u)
}
