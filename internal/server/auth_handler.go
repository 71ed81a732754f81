package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kolavi/blog-pipeline/internal/config"
)

// adminSubject is the fixed token subject for the single admin identity.
var adminSubject = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// AuthHandler exchanges the admin password for a JWT. There is a single
// operator identity; the token only gates access to the /blog routes.
type AuthHandler struct {
	passwordConfig    *config.PasswordConfig
	adminPasswordHash string
	tokens            *TokenService
	validator         *validator.Validate
}

// NewAuthHandler creates an AuthHandler with the given dependencies.
func NewAuthHandler(passwordConfig *config.PasswordConfig, adminPasswordHash string, tokens *TokenService) *AuthHandler {
	return &AuthHandler{
		passwordConfig:    passwordConfig,
		adminPasswordHash: adminPasswordHash,
		tokens:            tokens,
		validator:         validator.New(),
	}
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Token string `json:"token"`
}

// Login handles password login requests.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		http.Error(w, extractValidationErrors(err), http.StatusBadRequest)
		return
	}

	if h.adminPasswordHash == "" || !h.passwordConfig.VerifyPassword(req.Password, h.adminPasswordHash) {
		err := &ErrInvalidCredentials{}
		http.Error(w, err.Error(), HTTPStatus(err))
		return
	}

	token, err := h.tokens.Issue(adminSubject)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(LoginResponse{Token: token}); err != nil {
		// Response already sent
		return
	}
}

// extractValidationErrors extracts validation error messages from validator errors.
func extractValidationErrors(err error) string {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrors) > 0 {
			ve := validationErrors[0]
			return fmt.Sprintf("validation error: %s - %s", ve.Field(), ve.Tag())
		}
	}
	return "validation error: invalid request"
}
