package handlers

import (
	"errors"

	"github.com/denizyilmazer/mingle-backend/internal/dto"
	"github.com/denizyilmazer/mingle-backend/internal/middleware"
	"github.com/denizyilmazer/mingle-backend/internal/models"
	"github.com/denizyilmazer/mingle-backend/internal/providers"
	"github.com/denizyilmazer/mingle-backend/internal/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

type AuthHandler struct {
	authService *services.AuthService
	registry    *providers.Registry
}

func NewAuthHandler(authService *services.AuthService, registry *providers.Registry) *AuthHandler {
	return &AuthHandler{authService: authService, registry: registry}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, err := h.authService.RegisterWithPassword(req.Email, req.Password, req.DisplayName, req.ReferralCode)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		if errors.Is(err, services.ErrWeakPassword) {
			return badRequest(c, err.Error())
		}
		return internalError(c)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.RegisterResponse{
		UserID:    user.ID,
		EmailSent: user.Email != nil,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := h.authService.AuthenticateViaPassword(req.Email, req.Password, req.Origin)
	if err != nil {
		var locked *services.AccountLockedError
		if errors.As(err, &locked) {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.LockedResponse{
				Error:                true,
				Message:              "Too many failed attempts, account temporarily locked",
				LockRemainingMinutes: locked.RemainingMinutes(),
			})
		}
		if errors.Is(err, services.ErrAccountBlocked) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "Account is blocked",
			})
		}
		if errors.Is(err, services.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return internalError(c)
	}

	return c.JSON(authResponse(result))
}

// ProviderLogin verifies a raw provider payload with the named adapter
// and resolves it to a unified account.
func (h *AuthHandler) ProviderLogin(c *fiber.Ctx) error {
	var req dto.ProviderLoginRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	profile, err := h.registry.Resolve(req.Provider, providers.Payload(req.Payload))
	if err != nil {
		if errors.Is(err, providers.ErrUnknownProvider) {
			return badRequest(c, "Unknown login provider")
		}
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Provider payload verification failed",
		})
	}

	result, err := h.authService.AuthenticateViaProvider(profile, req.ReferralCode)
	if err != nil {
		if errors.Is(err, services.ErrAccountBlocked) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "Account is blocked",
			})
		}
		return internalError(c)
	}

	return c.JSON(authResponse(result))
}

func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	var req dto.VerifyEmailRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := h.authService.VerifyEmail(req.Token)
	if err != nil {
		return tokenError(c, err)
	}
	return c.JSON(authResponse(result))
}

func (h *AuthHandler) ResendVerification(c *fiber.Ctx) error {
	var req dto.ResendVerificationRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	// Same response whether or not the address exists.
	h.authService.ResendVerification(req.Email)
	return c.JSON(fiber.Map{"message": "If the address is registered, a verification email is on its way"})
}

func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	// Same response whether or not the address exists.
	h.authService.RequestPasswordReset(req.Email)
	return c.JSON(fiber.Map{"message": "If the address is registered, a reset email is on its way"})
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.authService.ResetPassword(req.Token, req.NewPassword); err != nil {
		if errors.Is(err, services.ErrWeakPassword) {
			return badRequest(c, err.Error())
		}
		return tokenError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password updated, please log in again"})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	session, ok := middleware.CurrentSession(c)
	if !ok {
		return unauthorized(c)
	}
	if err := h.authService.Logout(session.ID); err != nil {
		return internalError(c)
	}
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthorized(c)
	}
	return c.JSON(userResponse(user))
}

func (h *AuthHandler) LinkProvider(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthorized(c)
	}

	var req dto.LinkProviderRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	updated, err := h.authService.LinkProvider(user.ID, req.Provider, req.ExternalID)
	if err != nil {
		if errors.Is(err, services.ErrExternalIDTaken) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: true, Message: "That account is already linked to another user",
			})
		}
		return badRequest(c, err.Error())
	}
	return c.JSON(userResponse(updated))
}

func (h *AuthHandler) UnlinkProvider(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthorized(c)
	}

	provider := c.Params("provider")
	updated, err := h.authService.UnlinkProvider(user.ID, provider)
	if err != nil {
		if errors.Is(err, services.ErrLastAuthMethod) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: true, Message: "Cannot remove the last login method",
			})
		}
		return badRequest(c, err.Error())
	}
	return c.JSON(userResponse(updated))
}

func (h *AuthHandler) DeleteAccount(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthorized(c)
	}

	var req dto.DeleteAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.authService.DeleteAccount(user.ID, req.Password); err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Incorrect password. Please try again.",
			})
		}
		return internalError(c)
	}
	return c.JSON(fiber.Map{"message": "Account deleted successfully"})
}

func parseBody(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return err
	}
	return validate.Struct(req)
}

func authResponse(result *services.LoginResult) dto.AuthResponse {
	return dto.AuthResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      userResponse(result.User),
	}
}

func userResponse(user *models.User) dto.UserResponse {
	linked := make([]string, 0, 4)
	if user.TelegramID != nil {
		linked = append(linked, models.ProviderTelegram)
	}
	if user.GoogleID != nil {
		linked = append(linked, models.ProviderGoogle)
	}
	if user.GitHubID != nil {
		linked = append(linked, models.ProviderGitHub)
	}
	if user.PasswordHash != nil {
		linked = append(linked, "password")
	}

	resp := dto.UserResponse{
		ID:            user.ID,
		DisplayName:   user.DisplayName,
		EmailVerified: user.EmailVerified,
		AvatarURL:     user.AvatarURL,
		ReferralCode:  user.ReferralCode,
		ReferralCount: user.ReferralCount,
		Providers:     linked,
	}
	if user.Email != nil {
		resp.Email = *user.Email
	}
	return resp
}

func tokenError(c *fiber.Ctx, err error) error {
	if errors.Is(err, services.ErrTokenExpired) {
		return c.Status(fiber.StatusGone).JSON(dto.ErrorResponse{
			Error: true, Message: "Token expired, please request a new one",
		})
	}
	if errors.Is(err, services.ErrTokenInvalid) {
		return badRequest(c, "Invalid token")
	}
	if errors.Is(err, services.ErrAccountBlocked) {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "Account is blocked",
		})
	}
	return internalError(c)
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Message: message,
	})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Message: "Unauthorized",
	})
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: true, Message: "Internal server error",
	})
}
