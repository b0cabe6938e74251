package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"shelfwise/api/models"
	"shelfwise/api/store"
	"shelfwise/api/utils"
)

type AuthHandlers struct {
	UserStore *store.UserStore
}

func NewAuthHandlers(userStore *store.UserStore) *AuthHandlers {
	return &AuthHandlers{UserStore: userStore}
}

func (h *AuthHandlers) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationError(c, "Invalid request body", nil)
		return
	}

	// Check if the email is already taken before hashing.
	_, err := h.UserStore.GetUserByEmail(c.Request.Context(), req.Email)
	if err == nil {
		utils.RespondError(c, http.StatusConflict, "User with this email already exists")
		return
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		log.Printf("ERROR: Database error during signup email check: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to check user existence")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("ERROR: Failed to hash password for %s: %v", req.Email, err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to process password")
		return
	}

	user, err := h.UserStore.CreateUser(c.Request.Context(), req.Email, hashedPassword, req.FirstName, req.LastName)
	if err != nil {
		log.Printf("ERROR: Failed to create user in DB for email %s: %v", req.Email, err)
		if strings.Contains(err.Error(), "already exists") {
			utils.RespondError(c, http.StatusConflict, "User with this email already exists")
		} else {
			utils.RespondError(c, http.StatusInternalServerError, "Failed to register user")
		}
		return
	}

	log.Printf("User registered: ID=%d, Email=%s", user.ID, user.Email)
	utils.RespondCreated(c, "User registered successfully", gin.H{"user": user})
}

// Login authenticates a user and issues a JWT in an httpOnly cookie.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationError(c, "Invalid request body", nil)
		return
	}

	user, err := h.UserStore.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		log.Printf("Login failed for email %s: %v", req.Email, err)
		utils.RespondError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword(user.HashedPassword, []byte(req.Password)); err != nil {
		log.Printf("Login failed for email %s: password mismatch", req.Email)
		utils.RespondError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	tokenString, err := utils.GenerateJWT(user)
	if err != nil {
		log.Printf("ERROR: Failed to generate JWT for user %d: %v", user.ID, err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to generate authentication token")
		return
	}

	c.SetCookie(
		"jwt_token",
		tokenString,
		int(24*time.Hour/time.Second),
		"/",
		"",
		false,
		true,
	)

	log.Printf("User logged in: ID=%d, Email=%s", user.ID, user.Email)
	utils.RespondSuccess(c, http.StatusOK, gin.H{"user": user})
}

func (h *AuthHandlers) Logout(c *gin.Context) {
	// Expire the JWT cookie immediately.
	c.SetCookie(
		"jwt_token",
		"",
		-1,
		"/",
		"",
		false,
		true,
	)

	utils.RespondSuccess(c, http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Me returns the authenticated user's profile.
func (h *AuthHandlers) Me(c *gin.Context) {
	userID := c.MustGet("user_id").(int64)

	user, err := h.UserStore.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			utils.RespondError(c, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("ERROR: Failed to load user %d: %v", userID, err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to load profile")
		return
	}

	utils.RespondSuccess(c, http.StatusOK, gin.H{"user": user})
}
