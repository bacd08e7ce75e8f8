package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"tutorial-blog/pkg/logger"
	"tutorial-blog/pkg/middleware"
	"tutorial-blog/services/blog/internal/entity"
	"tutorial-blog/services/blog/internal/usecase"

	"github.com/gin-gonic/gin"
)

const (
	msgBadLogin     = "Please enter a correct username and password. Note that both fields may be case-sensitive."
	msgInactiveUser = "This account is inactive."
	msgTooManyLogin = "Too many login attempts. Please try again later."
)

type CookieSettings struct {
	Secure bool
	MaxAge time.Duration
}

type AuthHandler struct {
	authUseCase usecase.AuthUseCase
	logger      *logger.Logger
	cookie      CookieSettings
}

func NewAuthHandler(authUseCase usecase.AuthUseCase, logger *logger.Logger, cookie CookieSettings) *AuthHandler {
	return &AuthHandler{
		authUseCase: authUseCase,
		logger:      logger,
		cookie:      cookie,
	}
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=150"`
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *entity.User `json:"user"`
}

// Register godoc
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration data"
// @Success      201  {object}  AuthResponse
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := h.authUseCase.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, entity.ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to register user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}

	h.setSessionCookie(c, token)
	c.JSON(http.StatusCreated, AuthResponse{Token: token, User: user})
}

// Login godoc
// @Summary      Login user
// @Description  Authenticate and return a session token. The token is also set as the session_token cookie.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200  {object}  AuthResponse
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := h.authUseCase.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, entity.ErrInvalidCredentials) || errors.Is(err, entity.ErrInactiveUser) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to log in: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log in"})
		return
	}

	h.setSessionCookie(c, token)
	c.JSON(http.StatusOK, AuthResponse{Token: token, User: user})
}

// Logout godoc
// @Summary      Logout
// @Description  Revoke the presented session token and clear the cookie
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.revokeSession(c); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log out"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me godoc
// @Summary      Get current user info
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  entity.User
// @Failure      401  {object}  map[string]string
// @Router       /me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := h.authUseCase.GetUser(c.Request.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}
		h.logger.Error("Failed to load user %s: %v", identity.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) LoginPage(c *gin.Context) {
	renderPage(c, http.StatusOK, "accounts/login.html", gin.H{
		"title": "Log in",
		"next":  c.Query("next"),
	})
}

func (h *AuthHandler) LoginSubmit(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.renderLoginError(c, req.Username, msgBadLogin)
		return
	}

	_, token, err := h.authUseCase.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrInvalidCredentials):
			h.renderLoginError(c, req.Username, msgBadLogin)
		case errors.Is(err, entity.ErrInactiveUser):
			h.renderLoginError(c, req.Username, msgInactiveUser)
		default:
			h.logger.Error("Failed to log in: %v", err)
			serverError(c)
		}
		return
	}

	h.setSessionCookie(c, token)
	c.Redirect(http.StatusFound, safeRedirect(c.Query("next")))
}

func (h *AuthHandler) LogoutSubmit(c *gin.Context) {
	if err := h.revokeSession(c); err != nil {
		serverError(c)
		return
	}
	c.Redirect(http.StatusFound, "/posts/")
}

// LoginThrottled answers a rate-limited login form submission.
func (h *AuthHandler) LoginThrottled(c *gin.Context) {
	renderPage(c, http.StatusTooManyRequests, "accounts/login.html", gin.H{
		"title":    "Log in",
		"username": c.PostForm("username"),
		"error":    msgTooManyLogin,
		"next":     c.Query("next"),
	})
}

func (h *AuthHandler) renderLoginError(c *gin.Context, username, message string) {
	renderPage(c, http.StatusOK, "accounts/login.html", gin.H{
		"title":    "Log in",
		"username": username,
		"error":    message,
		"next":     c.Query("next"),
	})
}

func (h *AuthHandler) revokeSession(c *gin.Context) error {
	if token := middleware.SessionToken(c); token != "" {
		if err := h.authUseCase.Logout(c.Request.Context(), token); err != nil {
			h.logger.Error("Failed to log out: %v", err)
			return err
		}
	}
	h.clearSessionCookie(c)
	return nil
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookieName, token, int(h.cookie.MaxAge.Seconds()), "/", "", h.cookie.Secure, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookieName, "", -1, "/", "", h.cookie.Secure, true)
}

// safeRedirect only follows local paths.
func safeRedirect(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/posts/"
	}
	return next
}
