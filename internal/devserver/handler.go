package devserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/finnri/finnri/internal/api"
)

// Handler exposes the auth contract over HTTP.
type Handler struct {
	svc *Service
}

// NewHandler constructs the auth HTTP handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type guestRequest struct {
	DeviceID string `json:"device_id"`
}

// Guest creates an anonymous session for a device.
func (h *Handler) Guest(c *fiber.Ctx) error {
	var req guestRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	token, user, err := h.svc.Guest(c.UserContext(), req.DeviceID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(api.AuthResponse{Token: token, User: user.Payload()})
}

type identifyRequest struct {
	Identifier string `json:"identifier"`
}

// Identify reports whether an identifier already belongs to an account.
func (h *Handler) Identify(c *fiber.Ctx) error {
	var req identifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Identifier == "" {
		return fiber.NewError(http.StatusBadRequest, "identifier is required")
	}
	res, err := h.svc.Identify(c.UserContext(), req.Identifier)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(api.IdentifyResult{Exists: res.Exists, IsGuest: res.IsGuest})
}

// SendOTP issues a one-time code for the identifier.
func (h *Handler) SendOTP(c *fiber.Ctx) error {
	var req identifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Identifier == "" {
		return fiber.NewError(http.StatusBadRequest, "identifier is required")
	}
	if err := h.svc.SendOTP(c.UserContext(), req.Identifier); err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(http.StatusNoContent)
}

type verifyRequest struct {
	Identifier string `json:"identifier"`
	OTP        string `json:"otp"`
}

// VerifyOTP exchanges a correct code for a claim token.
func (h *Handler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	claim, err := h.svc.VerifyOTP(c.UserContext(), req.Identifier, req.OTP)
	if err != nil {
		if errors.Is(err, ErrBadCode) {
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"claim_token": claim})
}

type registerRequest struct {
	ClaimToken        string `json:"claim_token"`
	PIN               string `json:"pin"`
	GuestUUID         string `json:"guest_uuid"`
	DeviceID          string `json:"device_id"`
	BiometricsEnabled bool   `json:"biometrics_enabled"`
}

// Register consumes a claim token and creates a PIN-protected account.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	token, user, err := h.svc.Register(c.UserContext(), RegisterInput{
		ClaimToken:        req.ClaimToken,
		PIN:               req.PIN,
		GuestUUID:         req.GuestUUID,
		DeviceID:          req.DeviceID,
		BiometricsEnabled: req.BiometricsEnabled,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrClaimRejected):
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		case errors.Is(err, ErrPINTooShort), errors.Is(err, ErrIdentifierTaken):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusCreated).JSON(api.AuthResponse{Token: token, User: user.Payload()})
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	PIN        string `json:"pin"`
	DeviceID   string `json:"device_id"`
}

// Login authenticates an existing account. Credential failures share one
// undifferentiated response.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	token, user, err := h.svc.Login(c.UserContext(), req.Identifier, req.PIN, req.DeviceID)
	if err != nil {
		if errors.Is(err, ErrAuthFailed) {
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(api.AuthResponse{Token: token, User: user.Payload()})
}

type profileRequest struct {
	Username          *string `json:"username"`
	Email             *string `json:"email"`
	Phone             *string `json:"phone"`
	BiometricsEnabled *bool   `json:"biometrics_enabled"`
}

// UpdateProfile applies a partial update to the authenticated user.
func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	userUUID, _ := c.Locals("user_uuid").(string)
	if userUUID == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
	}
	var req profileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.svc.UpdateProfile(c.UserContext(), userUUID, ProfilePatch{
		Username:          req.Username,
		Email:             req.Email,
		Phone:             req.Phone,
		BiometricsEnabled: req.BiometricsEnabled,
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return fiber.NewError(http.StatusUnauthorized, "user not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"user": user.Payload()})
}

// BearerAuth validates the Authorization header and stashes the user UUID in
// the request locals.
func (h *Handler) BearerAuth(c *fiber.Ctx) error {
	token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
	}
	user, err := h.svc.Authenticate(c.UserContext(), token)
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, "invalid token")
	}
	c.Locals("user_uuid", user.UUID)
	return c.Next()
}

func bearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
