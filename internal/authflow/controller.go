package authflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/finnri/finnri/internal/api"
	"github.com/finnri/finnri/internal/session"
)

// Backend is the slice of the API client the flow controller needs.
type Backend interface {
	GuestLogin(ctx context.Context, deviceID string) (api.AuthResponse, error)
	Identify(ctx context.Context, identifier string) (api.IdentifyResult, error)
	SendOTP(ctx context.Context, identifier string) error
	VerifyOTP(ctx context.Context, identifier, otp string) (string, error)
	Register(ctx context.Context, in api.RegisterInput) (api.AuthResponse, error)
	Login(ctx context.Context, in api.LoginInput) (api.AuthResponse, error)
}

// Sessions is the slice of the session store the flow controller needs. Only
// terminal transitions write session state.
type Sessions interface {
	Establish(ctx context.Context, token string, user api.User) error
	GuestUUID() string
}

// ErrBusy is returned when a submission arrives while a previous network call
// is still in flight. The new call is never dispatched.
var ErrBusy = errors.New("a request is already in flight")

// User-facing messages, scoped to the step that produced them.
const (
	msgGeneric       = "Something went wrong. Please try again."
	msgIdentifier    = "Enter your email or phone number."
	msgOTPSend       = "We couldn't send your code. Please try again."
	msgOTPCode       = "Enter the code we sent you."
	msgOTPInvalid    = "That code didn't work. Check it and try again."
	msgPINTooShort   = "Your PIN must be at least 4 digits."
	msgAuthFailed    = "Incorrect details. Please check and try again."
	msgClaimExpired  = "Your verification expired. Please start over."
	msgGuestFailed   = "We couldn't start a guest session. Please try again."
	msgSessionFailed = "We couldn't save your session. Please try again."
)

// Controller drives the auth flow: Choice → Identify → (OTPVerify) →
// PINEntry → Authenticated. It issues at most one network call at a time,
// clears the previous error before every dispatch, and drops responses that
// arrive after the user has navigated elsewhere.
type Controller struct {
	mu       sync.Mutex
	backend  Backend
	sessions Sessions
	logger   *slog.Logger
	deviceID string

	step Step
	busy bool
	err  string
	gen  uint64 // bumped on every transition; in-flight results with an older gen are dropped
}

// NewController starts a flow at the Choice step. An empty deviceID falls
// back to the generated per-install identifier.
func NewController(backend Backend, sessions Sessions, deviceID string, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if deviceID == "" {
		deviceID = session.DeviceID()
	}
	return &Controller{
		backend:  backend,
		sessions: sessions,
		logger:   logger,
		deviceID: deviceID,
		step:     Choice{},
	}
}

// Step returns the current flow step.
func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// Busy reports whether a network call is in flight. UIs use it to disable
// duplicate submission.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Err returns the user-facing error message for the current step, or empty.
func (c *Controller) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// ChooseChannel moves from Choice to Identify for the picked channel. No
// network call is involved.
func (c *Controller) ChooseChannel(channel Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.step.(Choice); !ok || c.busy {
		return
	}
	c.transition(Identify{Channel: channel})
}

// Back returns to the previous step per the flow table. It may be called
// while a request is in flight; the eventual response is then discarded.
func (c *Controller) Back() {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch s := c.step.(type) {
	case Identify:
		c.transition(Choice{})
	case OTPVerify:
		c.transition(Identify{Channel: s.Channel, Identifier: s.Identifier})
	case PINEntry:
		c.transition(Identify{Channel: s.Channel, Identifier: s.Identifier})
	default:
		return
	}
	c.busy = false
}

// ContinueAsGuest bootstraps an anonymous session from the Choice step. This
// is the only path that creates an account without identifier or PIN.
func (c *Controller) ContinueAsGuest(ctx context.Context) error {
	gen, err := c.begin(func(s Step) bool { _, ok := s.(Choice); return ok })
	if err != nil {
		return err
	}

	res, err := c.backend.GuestLogin(ctx, c.deviceID)
	if err != nil {
		c.fail(gen, msgGuestFailed)
		return err
	}
	return c.complete(ctx, gen, res)
}

// SubmitIdentifier resolves the entered identifier and branches the flow:
// an existing account goes straight to PIN login, a new identifier gets an
// OTP sent and moves to code verification.
func (c *Controller) SubmitIdentifier(ctx context.Context, identifier string) error {
	identifier = strings.TrimSpace(identifier)

	c.mu.Lock()
	step, ok := c.step.(Identify)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("identifier not expected at this step")
	}
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	if identifier == "" {
		c.err = msgIdentifier
		c.mu.Unlock()
		return nil
	}
	c.busy = true
	c.err = ""
	c.step = Identify{Channel: step.Channel, Identifier: identifier}
	gen := c.gen
	c.mu.Unlock()

	res, err := c.backend.Identify(ctx, identifier)
	if err != nil {
		// A transport failure is not "does not exist"; the flow stays put.
		c.fail(gen, msgGeneric)
		return err
	}

	if res.Exists {
		c.settle(gen, func() {
			c.transition(PINEntry{Channel: step.Channel, Identifier: identifier, Mode: PINLogin})
		})
		return nil
	}

	if c.stale(gen) {
		return nil
	}
	if err := c.backend.SendOTP(ctx, identifier); err != nil {
		c.fail(gen, msgOTPSend)
		return err
	}
	c.settle(gen, func() {
		c.transition(OTPVerify{Channel: step.Channel, Identifier: identifier})
	})
	return nil
}

// SubmitCode verifies the one-time code. Success moves to PIN entry in
// register mode, holding the claim token; failure keeps the flow on the code
// step with an error surfaced.
func (c *Controller) SubmitCode(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)

	c.mu.Lock()
	step, ok := c.step.(OTPVerify)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("verification code not expected at this step")
	}
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	if code == "" {
		c.err = msgOTPCode
		c.mu.Unlock()
		return nil
	}
	c.busy = true
	c.err = ""
	gen := c.gen
	c.mu.Unlock()

	claim, err := c.backend.VerifyOTP(ctx, step.Identifier, code)
	if err != nil {
		if errors.Is(err, api.ErrInvalidCode) {
			c.fail(gen, msgOTPInvalid)
		} else {
			c.fail(gen, msgGeneric)
		}
		return err
	}

	c.settle(gen, func() {
		c.transition(PINEntry{
			Channel:    step.Channel,
			Identifier: step.Identifier,
			Mode:       PINRegister,
			claimToken: claim,
		})
	})
	return nil
}

// SubmitPIN finishes the flow. In login mode it authenticates the existing
// account; in register mode it consumes the claim token to create one,
// binding any current guest session's history to it. The PIN itself is only
// length-checked here and never stored.
func (c *Controller) SubmitPIN(ctx context.Context, pin string, biometricsEnabled bool) error {
	c.mu.Lock()
	step, ok := c.step.(PINEntry)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("PIN not expected at this step")
	}
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	if len(pin) < 4 {
		c.err = msgPINTooShort
		c.mu.Unlock()
		return nil
	}
	c.busy = true
	c.err = ""
	gen := c.gen
	c.mu.Unlock()

	var res api.AuthResponse
	var err error
	switch step.Mode {
	case PINLogin:
		res, err = c.backend.Login(ctx, api.LoginInput{
			Identifier: step.Identifier,
			PIN:        pin,
			DeviceID:   c.deviceID,
		})
	case PINRegister:
		res, err = c.backend.Register(ctx, api.RegisterInput{
			ClaimToken:        step.claimToken,
			PIN:               pin,
			GuestUUID:         c.sessions.GuestUUID(),
			DeviceID:          c.deviceID,
			BiometricsEnabled: biometricsEnabled,
		})
	default:
		c.fail(gen, msgGeneric)
		return fmt.Errorf("unknown PIN mode %q", step.Mode)
	}

	if err != nil {
		switch {
		case errors.Is(err, api.ErrAuthFailed):
			c.fail(gen, msgAuthFailed)
		case errors.Is(err, api.ErrClaimRejected):
			c.fail(gen, msgClaimExpired)
		default:
			c.fail(gen, msgGeneric)
		}
		return err
	}
	return c.complete(ctx, gen, res)
}

// begin reserves the single in-flight slot. allowed guards the step the call
// is legal from.
func (c *Controller) begin(allowed func(Step) bool) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !allowed(c.step) {
		return 0, fmt.Errorf("action not available at this step")
	}
	if c.busy {
		return 0, ErrBusy
	}
	c.busy = true
	c.err = ""
	return c.gen, nil
}

// settle applies a result if the flow is still on the transition that issued
// the request; otherwise the result is dropped.
func (c *Controller) settle(gen uint64, apply func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.busy = false
	apply()
}

func (c *Controller) fail(gen uint64, msg string) {
	c.settle(gen, func() { c.err = msg })
}

func (c *Controller) stale(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen != c.gen
}

// complete establishes the session and enters the terminal step.
func (c *Controller) complete(ctx context.Context, gen uint64, res api.AuthResponse) error {
	c.mu.Lock()
	if gen != c.gen {
		// The user navigated away while the call was in flight; the late
		// session is not applied.
		c.mu.Unlock()
		return nil
	}
	c.busy = false
	c.mu.Unlock()

	if err := c.sessions.Establish(ctx, res.Token, res.User); err != nil {
		c.fail(gen, msgSessionFailed)
		return err
	}

	c.mu.Lock()
	c.transition(Authenticated{User: res.User})
	c.mu.Unlock()

	c.logger.Info("session established",
		"user_uuid", res.User.UUID,
		"is_guest", res.User.IsGuest,
	)
	return nil
}

// transition swaps the step, clears any step-scoped error, and invalidates
// in-flight requests. Callers hold the lock.
func (c *Controller) transition(next Step) {
	c.step = next
	c.err = ""
	c.gen++
}
