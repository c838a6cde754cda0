package devserver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/finnri/finnri/internal/config"
	"github.com/finnri/finnri/internal/logging"
)

func testConfig() config.Config {
	return config.Config{
		TokenSecret:   "service-test-secret",
		TokenTTL:      time.Hour,
		OTPCodeTTL:    time.Minute,
		ClaimTokenTTL: time.Minute,
	}
}

func newTestService() (*Service, ChallengeStore) {
	challenges := NewMemoryChallengeStore()
	svc := NewService(NewMemoryRepository(), challenges, testConfig(), logging.Discard())
	return svc, challenges
}

// registerUser runs the full OTP + claim flow and returns the created user.
func registerUser(t *testing.T, svc *Service, challenges ChallengeStore, identifier, pin string) User {
	t.Helper()
	ctx := context.Background()

	if err := svc.SendOTP(ctx, identifier); err != nil {
		t.Fatalf("send otp: %v", err)
	}
	code, err := challenges.GetCode(ctx, identifier)
	if err != nil {
		t.Fatalf("read code: %v", err)
	}
	claim, err := svc.VerifyOTP(ctx, identifier, code)
	if err != nil {
		t.Fatalf("verify otp: %v", err)
	}
	_, user, err := svc.Register(ctx, RegisterInput{ClaimToken: claim, PIN: pin})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return user
}

func TestRegisterFlow(t *testing.T) {
	svc, challenges := newTestService()
	ctx := context.Background()

	res, err := svc.Identify(ctx, "new@x.com")
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	if res.Exists {
		t.Fatalf("expected unknown identifier")
	}

	user := registerUser(t, svc, challenges, "new@x.com", "4321")
	if user.IsGuest {
		t.Fatalf("expected non-guest account")
	}
	if user.Email != "new@x.com" {
		t.Fatalf("expected email identifier, got %+v", user)
	}
	if len(user.PINHash) == 0 {
		t.Fatalf("expected PIN hash stored")
	}

	res, err = svc.Identify(ctx, "new@x.com")
	if err != nil {
		t.Fatalf("identify after register: %v", err)
	}
	if !res.Exists || res.IsGuest {
		t.Fatalf("expected existing non-guest account, got %+v", res)
	}
}

func TestVerifyOTPWrongGuessKeepsCode(t *testing.T) {
	svc, challenges := newTestService()
	ctx := context.Background()

	if err := svc.SendOTP(ctx, "new@x.com"); err != nil {
		t.Fatalf("send otp: %v", err)
	}
	if _, err := svc.VerifyOTP(ctx, "new@x.com", "999999"); !errors.Is(err, ErrBadCode) {
		t.Fatalf("expected ErrBadCode, got %v", err)
	}

	// The pending code survives a wrong guess; the right one still works.
	code, err := challenges.GetCode(ctx, "new@x.com")
	if err != nil {
		t.Fatalf("expected code kept after wrong guess: %v", err)
	}
	if _, err := svc.VerifyOTP(ctx, "new@x.com", code); err != nil {
		t.Fatalf("verify with correct code: %v", err)
	}

	// A correct verification consumes the code.
	if _, err := svc.VerifyOTP(ctx, "new@x.com", code); !errors.Is(err, ErrBadCode) {
		t.Fatalf("expected consumed code rejected, got %v", err)
	}
}

func TestClaimTokenSingleUse(t *testing.T) {
	svc, challenges := newTestService()
	ctx := context.Background()

	if err := svc.SendOTP(ctx, "new@x.com"); err != nil {
		t.Fatalf("send otp: %v", err)
	}
	code, err := challenges.GetCode(ctx, "new@x.com")
	if err != nil {
		t.Fatalf("read code: %v", err)
	}
	claim, err := svc.VerifyOTP(ctx, "new@x.com", code)
	if err != nil {
		t.Fatalf("verify otp: %v", err)
	}

	// A short PIN is rejected before the claim is consumed.
	if _, _, err := svc.Register(ctx, RegisterInput{ClaimToken: claim, PIN: "12"}); !errors.Is(err, ErrPINTooShort) {
		t.Fatalf("expected ErrPINTooShort, got %v", err)
	}
	if _, _, err := svc.Register(ctx, RegisterInput{ClaimToken: claim, PIN: "4321"}); err != nil {
		t.Fatalf("register after rejected PIN: %v", err)
	}

	// The consumed claim can never be redeemed again.
	if _, _, err := svc.Register(ctx, RegisterInput{ClaimToken: claim, PIN: "4321"}); !errors.Is(err, ErrClaimRejected) {
		t.Fatalf("expected ErrClaimRejected on reuse, got %v", err)
	}
	if _, _, err := svc.Register(ctx, RegisterInput{ClaimToken: "never-issued", PIN: "4321"}); !errors.Is(err, ErrClaimRejected) {
		t.Fatalf("expected ErrClaimRejected for unknown claim, got %v", err)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, challenges := newTestService()
	ctx := context.Background()

	registerUser(t, svc, challenges, "existing@x.com", "4321")

	_, _, errUnknown := svc.Login(ctx, "nobody@x.com", "4321", "")
	_, _, errWrongPIN := svc.Login(ctx, "existing@x.com", "0000", "")
	if !errors.Is(errUnknown, ErrAuthFailed) || !errors.Is(errWrongPIN, ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed for both, got %v and %v", errUnknown, errWrongPIN)
	}
	if errUnknown.Error() != errWrongPIN.Error() {
		t.Fatalf("failure modes must be indistinguishable: %q vs %q", errUnknown, errWrongPIN)
	}

	token, user, err := svc.Login(ctx, "existing@x.com", "4321", "device-1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token == "" || user.Email != "existing@x.com" {
		t.Fatalf("unexpected login result %+v", user)
	}
}

func TestGuestNotDeduplicated(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, first, err := svc.Guest(ctx, "web_guest_ab12cd")
	if err != nil {
		t.Fatalf("guest: %v", err)
	}
	_, second, err := svc.Guest(ctx, "web_guest_ab12cd")
	if err != nil {
		t.Fatalf("guest again: %v", err)
	}

	if !first.IsGuest || !second.IsGuest {
		t.Fatalf("expected guest accounts")
	}
	if first.UUID == second.UUID {
		t.Fatalf("guest bootstrap must not deduplicate by device id")
	}
}

func TestGuestUpgradeKeepsRecord(t *testing.T) {
	svc, challenges := newTestService()
	ctx := context.Background()

	_, guest, err := svc.Guest(ctx, "web_guest_ab12cd")
	if err != nil {
		t.Fatalf("guest: %v", err)
	}

	if err := svc.SendOTP(ctx, "claimed@x.com"); err != nil {
		t.Fatalf("send otp: %v", err)
	}
	code, err := challenges.GetCode(ctx, "claimed@x.com")
	if err != nil {
		t.Fatalf("read code: %v", err)
	}
	claim, err := svc.VerifyOTP(ctx, "claimed@x.com", code)
	if err != nil {
		t.Fatalf("verify otp: %v", err)
	}

	_, user, err := svc.Register(ctx, RegisterInput{
		ClaimToken:        claim,
		PIN:               "4321",
		GuestUUID:         guest.UUID,
		BiometricsEnabled: true,
	})
	if err != nil {
		t.Fatalf("register with guest uuid: %v", err)
	}
	if user.UUID != guest.UUID {
		t.Fatalf("expected guest record upgraded in place")
	}
	if user.IsGuest {
		t.Fatalf("expected is_guest cleared")
	}
	if user.Email != "claimed@x.com" {
		t.Fatalf("expected claimed identifier set, got %+v", user)
	}
	if !user.BiometricsEnabled {
		t.Fatalf("expected biometrics flag stored")
	}
}

func TestAuthenticateAndUpdateProfile(t *testing.T) {
	svc, challenges := newTestService()
	ctx := context.Background()

	user := registerUser(t, svc, challenges, "ada@x.com", "4321")
	token, _, err := svc.Login(ctx, "ada@x.com", "4321", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	authed, err := svc.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if authed.UUID != user.UUID {
		t.Fatalf("expected token to resolve to registered user")
	}

	if _, err := svc.Authenticate(ctx, "garbage"); err == nil {
		t.Fatalf("expected garbage token rejected")
	}

	name := "Ada"
	phone := "+15550001111"
	updated, err := svc.UpdateProfile(ctx, user.UUID, ProfilePatch{Username: &name, Phone: &phone})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Username != "Ada" || updated.Phone != "+15550001111" {
		t.Fatalf("unexpected profile %+v", updated)
	}
	if updated.Email != "ada@x.com" {
		t.Fatalf("expected untouched fields kept, got %+v", updated)
	}
}
