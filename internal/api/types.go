package api

import "time"

// User is the identity record returned by the backend. Field names mirror the
// backend's JSON contract.
type User struct {
	ID                int64     `json:"ID"`
	UUID              string    `json:"uuid"`
	Username          string    `json:"username"`
	Email             string    `json:"email,omitempty"`
	Phone             string    `json:"phone,omitempty"`
	IsGuest           bool      `json:"is_guest"`
	HasPIN            bool      `json:"has_pin"`
	DeviceID          string    `json:"device_id,omitempty"`
	BiometricsEnabled bool      `json:"biometrics_enabled"`
	CreatedAt         time.Time `json:"created_at"`
}

// AuthResponse is the shared success shape of every session-creating call.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// IdentifyResult reports whether an identifier already belongs to an account.
type IdentifyResult struct {
	Exists  bool `json:"exists"`
	IsGuest bool `json:"is_guest"`
}

// RegisterInput is the payload for claiming a verified identifier with a new
// PIN. GuestUUID, when set, binds an existing guest account's history to the
// newly claimed account.
type RegisterInput struct {
	ClaimToken        string `json:"claim_token"`
	PIN               string `json:"pin"`
	GuestUUID         string `json:"guest_uuid,omitempty"`
	DeviceID          string `json:"device_id,omitempty"`
	BiometricsEnabled bool   `json:"biometrics_enabled"`
}

// LoginInput is the payload for authenticating an existing account.
type LoginInput struct {
	Identifier string `json:"identifier"`
	PIN        string `json:"pin"`
	DeviceID   string `json:"device_id,omitempty"`
}

// ProfileUpdate carries the partial user fields accepted by the profile
// endpoint. Nil fields are left untouched.
type ProfileUpdate struct {
	Username          *string `json:"username,omitempty"`
	Email             *string `json:"email,omitempty"`
	Phone             *string `json:"phone,omitempty"`
	BiometricsEnabled *bool   `json:"biometrics_enabled,omitempty"`
}
