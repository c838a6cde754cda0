package devserver

import (
	"strings"
	"time"

	"github.com/finnri/finnri/internal/api"
)

// User is the dev server's identity record.
type User struct {
	ID                int64
	UUID              string
	Username          string
	Email             string
	Phone             string
	IsGuest           bool
	PINHash           []byte
	DeviceID          string
	BiometricsEnabled bool
	CreatedAt         time.Time
}

// Payload converts the record to the wire shape shared with the client.
func (u User) Payload() api.User {
	return api.User{
		ID:                u.ID,
		UUID:              u.UUID,
		Username:          u.Username,
		Email:             u.Email,
		Phone:             u.Phone,
		IsGuest:           u.IsGuest,
		HasPIN:            len(u.PINHash) > 0,
		DeviceID:          u.DeviceID,
		BiometricsEnabled: u.BiometricsEnabled,
		CreatedAt:         u.CreatedAt,
	}
}

// isEmail distinguishes the two identifier channels.
func isEmail(identifier string) bool {
	return strings.Contains(identifier, "@")
}

// usernameFor derives a display name from a claimed identifier.
func usernameFor(identifier string) string {
	if isEmail(identifier) {
		if at := strings.Index(identifier, "@"); at > 0 {
			return identifier[:at]
		}
	}
	return identifier
}
