package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Sentinel conditions the flow controller branches on. Anything else is a
// transport or server failure and is surfaced as *Error.
var (
	// ErrAuthFailed is returned by Login on a credentials mismatch. The
	// backend deliberately does not say whether the identifier or the PIN
	// was wrong, and neither does this client.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrInvalidCode is returned by VerifyOTP when the server rejects the
	// submitted code. The server does not distinguish wrong from expired
	// codes, so neither does this client.
	ErrInvalidCode = errors.New("invalid verification code")

	// ErrClaimRejected is returned by Register when the claim token is
	// missing, expired, or already consumed.
	ErrClaimRejected = errors.New("claim token rejected")
)

// Error is a non-2xx response from the backend that does not map to one of
// the sentinel conditions above.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
}

// decodeErrorBody extracts a short message from an error response. The dev
// server and Fiber's default error handler both produce either a JSON object
// with an "error"/"message" field or a plain text body.
func decodeErrorBody(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(raw) == 0 {
		return "request failed"
	}

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}

	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		return "request failed"
	}
	return msg
}
