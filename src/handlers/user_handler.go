package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/JavierChicano/inversiones-app/src/config"
	"github.com/JavierChicano/inversiones-app/src/database"
	"github.com/JavierChicano/inversiones-app/src/logger"
	"github.com/JavierChicano/inversiones-app/src/model"
	"github.com/JavierChicano/inversiones-app/src/security"
	"github.com/JavierChicano/inversiones-app/src/services"
	"github.com/JavierChicano/inversiones-app/src/utils"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

const minPasswordLength = 6

type UserHandler struct {
	authService  *security.AuthService
	emailService services.EmailService
}

func NewUserHandler(authService *security.AuthService, emailService services.EmailService) *UserHandler {
	return &UserHandler{
		authService:  authService,
		emailService: emailService,
	}
}

type userResponse struct {
	ID                 string `json:"id"`
	Email              string `json:"email"`
	Name               string `json:"name"`
	CurrencyPreference string `json:"currencyPreference"`
	IsEmailVerified    bool   `json:"isEmailVerified"`
}

func toUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:                 user.ID,
		Email:              user.Email,
		Name:               user.Name,
		CurrencyPreference: user.CurrencyPreference,
		IsEmailVerified:    user.IsEmailVerified,
	}
}

func (h *UserHandler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	payload.Email = strings.ToLower(strings.TrimSpace(payload.Email))
	if !emailRegex.MatchString(payload.Email) {
		utils.SendJSONError(w, "Invalid email address", http.StatusBadRequest)
		return
	}
	if len(payload.Password) < minPasswordLength {
		utils.SendJSONError(w, "Password must be at least 6 characters", http.StatusBadRequest)
		return
	}

	hashedPassword, err := h.authService.HashPassword(payload.Password)
	if err != nil {
		logger.L.Error("failed to hash password during registration", "error", err)
		utils.SendJSONError(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	user := &model.User{
		Email:    payload.Email,
		Password: hashedPassword,
		Name:     strings.TrimSpace(payload.Name),
	}
	if err := user.CreateUser(database.DB); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			utils.SendJSONError(w, "Email already registered", http.StatusConflict)
			return
		}
		logger.L.Error("failed to create user", "email", payload.Email, "error", err)
		utils.SendJSONError(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	token, err := h.authService.GenerateVerificationToken()
	if err == nil {
		expiry := time.Now().Add(config.Cfg.VerificationTokenExpiry)
		if err := model.SetVerificationToken(database.DB, user.ID, token, expiry); err != nil {
			logger.L.Error("failed to store verification token", "userID", user.ID, "error", err)
		} else if err := h.emailService.SendVerificationEmail(user.Email, user.Name, token); err != nil {
			logger.L.Error("failed to send verification email", "userID", user.ID, "error", err)
		}
	}

	logger.L.Info("user registered", "userID", user.ID, "email", user.Email)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "User registered successfully. Please check your email to verify your account.",
		"user":    toUserResponse(user),
	})
}

func (h *UserHandler) LoginUserHandler(w http.ResponseWriter, r *http.Request) {
	var credentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	credentials.Email = strings.ToLower(strings.TrimSpace(credentials.Email))
	user, err := model.GetUserByEmail(database.DB, credentials.Email)
	if err != nil {
		logger.L.Debug("login failed, user lookup", "email", credentials.Email, "error", err)
		utils.SendJSONError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}
	if err := user.CheckPassword(credentials.Password); err != nil {
		logger.L.Debug("login failed, password mismatch", "email", credentials.Email)
		utils.SendJSONError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}
	if !user.IsEmailVerified {
		utils.SendJSONError(w, "Email address not verified", http.StatusForbidden)
		return
	}

	h.issueSession(w, r, user)
}

// issueSession mints the token pair, records the session and writes the
// login response.
func (h *UserHandler) issueSession(w http.ResponseWriter, r *http.Request, user *model.User) {
	accessToken, err := h.authService.GenerateToken(user.ID)
	if err != nil {
		logger.L.Error("failed to generate access token", "userID", user.ID, "error", err)
		utils.SendJSONError(w, "Failed to generate access token", http.StatusInternalServerError)
		return
	}
	refreshToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		utils.SendJSONError(w, "Failed to generate refresh token", http.StatusInternalServerError)
		return
	}

	session := &model.Session{
		UserID:       user.ID,
		Token:        accessToken,
		RefreshToken: refreshToken,
		UserAgent:    r.UserAgent(),
		ClientIP:     r.RemoteAddr,
		ExpiresAt:    time.Now().Add(config.Cfg.RefreshTokenExpiry),
	}
	if err := model.CreateSession(database.DB, session); err != nil {
		logger.L.Error("failed to create session", "userID", user.ID, "error", err)
		utils.SendJSONError(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	logger.L.Info("user logged in", "userID", user.ID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user":          toUserResponse(user),
	})
}

func (h *UserHandler) RefreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.RefreshToken == "" {
		utils.SendJSONError(w, "Refresh token is required", http.StatusBadRequest)
		return
	}

	session, err := model.GetSessionByRefreshToken(database.DB, payload.RefreshToken)
	if err != nil {
		logger.L.Warn("refresh failed, session lookup", "error", err)
		utils.SendJSONError(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}
	if session.IsBlocked || time.Now().After(session.ExpiresAt) {
		utils.SendJSONError(w, "Session expired", http.StatusUnauthorized)
		return
	}

	newAccessToken, err := h.authService.GenerateToken(session.UserID)
	if err != nil {
		utils.SendJSONError(w, "Failed to generate new access token", http.StatusInternalServerError)
		return
	}
	if err := model.UpdateSessionToken(database.DB, session.ID, newAccessToken); err != nil {
		logger.L.Error("failed to rotate session token", "sessionID", session.ID, "error", err)
		utils.SendJSONError(w, "Failed to refresh session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"access_token": newAccessToken,
	})
}

func (h *UserHandler) LogoutUserHandler(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == "" {
		utils.SendJSONError(w, "Authorization header required", http.StatusUnauthorized)
		return
	}

	if err := model.DeleteSessionByToken(database.DB, tokenString); err != nil {
		logger.L.Warn("logout: failed to delete session", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) VerifyEmailHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		utils.SendJSONError(w, "Verification token is required", http.StatusBadRequest)
		return
	}

	if err := model.VerifyEmailByToken(database.DB, token); err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			utils.SendJSONError(w, "Invalid or expired verification token", http.StatusBadRequest)
			return
		}
		logger.L.Error("email verification failed", "error", err)
		utils.SendJSONError(w, "Failed to verify email", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Email verified successfully"})
}

// HandleGetMe returns the authenticated user's profile.
func (h *UserHandler) HandleGetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}
	user, err := model.GetUserByID(database.DB, userID)
	if err != nil {
		utils.SendJSONError(w, "User not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(user))
}

// HandleCheckUserData reports whether the user has any transactions yet,
// so the frontend can decide between onboarding and the dashboard.
func (h *UserHandler) HandleCheckUserData(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}
	hasData, err := model.HasTransactions(database.DB, userID)
	if err != nil {
		logger.L.Error("failed to check user data", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to check user data", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"hasData": hasData})
}
