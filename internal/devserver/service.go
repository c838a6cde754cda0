package devserver

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/finnri/finnri/internal/config"
)

var (
	// ErrAuthFailed covers both an unknown identifier and a wrong PIN. The
	// two are intentionally indistinguishable to prevent identifier
	// enumeration.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrBadCode covers a wrong, expired, or never-sent verification code.
	ErrBadCode = errors.New("invalid or expired code")

	// ErrClaimRejected covers a missing, expired, or already consumed claim
	// token.
	ErrClaimRejected = errors.New("verification expired or already used")

	// ErrPINTooShort rejects PINs under the 4-digit minimum.
	ErrPINTooShort = errors.New("PIN must be at least 4 digits")

	// ErrIdentifierTaken rejects registration for an identifier that gained
	// an account between identify and register.
	ErrIdentifierTaken = errors.New("account already exists for this identifier")
)

// Service implements the identity semantics behind the auth endpoints.
type Service struct {
	repo       Repository
	challenges ChallengeStore
	cfg        config.Config
	logger     *slog.Logger
}

// NewService wires the identity service.
func NewService(repo Repository, challenges ChallengeStore, cfg config.Config, logger *slog.Logger) *Service {
	return &Service{repo: repo, challenges: challenges, cfg: cfg, logger: logger}
}

// Guest creates a session for an anonymous device. Repeated calls with the
// same device id create distinct accounts; deduplication is not promised.
func (s *Service) Guest(ctx context.Context, deviceID string) (string, User, error) {
	user := User{
		UUID:      uuid.NewString(),
		Username:  "Guest",
		IsGuest:   true,
		DeviceID:  deviceID,
		CreatedAt: time.Now().UTC(),
	}
	user, err := s.repo.Create(ctx, user)
	if err != nil {
		return "", User{}, err
	}

	token, err := signToken(user, []byte(s.cfg.TokenSecret), s.cfg.TokenTTL)
	if err != nil {
		return "", User{}, err
	}
	return token, user, nil
}

// IdentifyResult reports the outcome of resolving an identifier.
type IdentifyResult struct {
	Exists  bool
	IsGuest bool
}

// Identify is a pure lookup; an unknown identifier is a valid answer, not an
// error.
func (s *Service) Identify(ctx context.Context, identifier string) (IdentifyResult, error) {
	user, err := s.repo.FindByIdentifier(ctx, identifier)
	if errors.Is(err, ErrUserNotFound) {
		return IdentifyResult{}, nil
	}
	if err != nil {
		return IdentifyResult{}, err
	}
	return IdentifyResult{Exists: true, IsGuest: user.IsGuest}, nil
}

// SendOTP generates a delivery code for the identifier. There is no real
// delivery channel on the dev server; the code goes to the log instead.
func (s *Service) SendOTP(ctx context.Context, identifier string) error {
	code, err := generateCode()
	if err != nil {
		return err
	}
	if err := s.challenges.PutCode(ctx, identifier, code, s.cfg.OTPCodeTTL); err != nil {
		return err
	}
	s.logger.Info("otp code issued", "identifier", identifier, "code", code)
	return nil
}

// VerifyOTP checks a single code attempt. A wrong guess does not consume the
// pending code; a correct one does, and yields a single-use claim token.
func (s *Service) VerifyOTP(ctx context.Context, identifier, code string) (string, error) {
	pending, err := s.challenges.GetCode(ctx, identifier)
	if errors.Is(err, ErrChallengeNotFound) {
		return "", ErrBadCode
	}
	if err != nil {
		return "", err
	}
	if pending != code {
		return "", ErrBadCode
	}

	if err := s.challenges.DeleteCode(ctx, identifier); err != nil {
		return "", err
	}
	claim := uuid.NewString()
	if err := s.challenges.PutClaim(ctx, claim, identifier, s.cfg.ClaimTokenTTL); err != nil {
		return "", err
	}
	return claim, nil
}

// RegisterInput carries the registration request.
type RegisterInput struct {
	ClaimToken        string
	PIN               string
	GuestUUID         string
	DeviceID          string
	BiometricsEnabled bool
}

// Register consumes the claim token and creates (or upgrades) a PIN-protected
// account for the identifier the token proves.
func (s *Service) Register(ctx context.Context, in RegisterInput) (string, User, error) {
	if len(in.PIN) < 4 {
		return "", User{}, ErrPINTooShort
	}

	identifier, err := s.challenges.TakeClaim(ctx, in.ClaimToken)
	if errors.Is(err, ErrChallengeNotFound) {
		return "", User{}, ErrClaimRejected
	}
	if err != nil {
		return "", User{}, err
	}

	if _, err := s.repo.FindByIdentifier(ctx, identifier); err == nil {
		return "", User{}, ErrIdentifierTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return "", User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.PIN), bcrypt.DefaultCost)
	if err != nil {
		return "", User{}, err
	}

	user, err := s.claimUser(ctx, identifier, in, hash)
	if err != nil {
		return "", User{}, err
	}

	token, err := signToken(user, []byte(s.cfg.TokenSecret), s.cfg.TokenTTL)
	if err != nil {
		return "", User{}, err
	}
	s.logger.Info("account registered", "user_uuid", user.UUID, "claimed_guest", in.GuestUUID != "")
	return token, user, nil
}

// claimUser upgrades the referenced guest account when one is supplied and
// still a guest; otherwise it creates a fresh record.
func (s *Service) claimUser(ctx context.Context, identifier string, in RegisterInput, pinHash []byte) (User, error) {
	if in.GuestUUID != "" {
		guest, err := s.repo.FindByUUID(ctx, in.GuestUUID)
		if err == nil && guest.IsGuest {
			guest.IsGuest = false
			guest.Username = usernameFor(identifier)
			guest.PINHash = pinHash
			guest.BiometricsEnabled = in.BiometricsEnabled
			if in.DeviceID != "" {
				guest.DeviceID = in.DeviceID
			}
			setIdentifier(&guest, identifier)
			if err := s.repo.Update(ctx, guest); err != nil {
				return User{}, err
			}
			return guest, nil
		}
		if err != nil && !errors.Is(err, ErrUserNotFound) {
			return User{}, err
		}
	}

	user := User{
		UUID:              uuid.NewString(),
		Username:          usernameFor(identifier),
		PINHash:           pinHash,
		DeviceID:          in.DeviceID,
		BiometricsEnabled: in.BiometricsEnabled,
		CreatedAt:         time.Now().UTC(),
	}
	setIdentifier(&user, identifier)
	return s.repo.Create(ctx, user)
}

// Login verifies identifier and PIN. Both failure modes return the same
// ErrAuthFailed.
func (s *Service) Login(ctx context.Context, identifier, pin, deviceID string) (string, User, error) {
	user, err := s.repo.FindByIdentifier(ctx, identifier)
	if errors.Is(err, ErrUserNotFound) {
		return "", User{}, ErrAuthFailed
	}
	if err != nil {
		return "", User{}, err
	}

	if len(user.PINHash) == 0 || bcrypt.CompareHashAndPassword(user.PINHash, []byte(pin)) != nil {
		return "", User{}, ErrAuthFailed
	}

	if user.DeviceID == "" && deviceID != "" {
		user.DeviceID = deviceID
		if err := s.repo.Update(ctx, user); err != nil {
			return "", User{}, err
		}
	}

	token, err := signToken(user, []byte(s.cfg.TokenSecret), s.cfg.TokenTTL)
	if err != nil {
		return "", User{}, err
	}
	return token, user, nil
}

// ProfilePatch carries the partial profile update.
type ProfilePatch struct {
	Username          *string
	Email             *string
	Phone             *string
	BiometricsEnabled *bool
}

// UpdateProfile applies non-nil patch fields to the user.
func (s *Service) UpdateProfile(ctx context.Context, userUUID string, patch ProfilePatch) (User, error) {
	user, err := s.repo.FindByUUID(ctx, userUUID)
	if err != nil {
		return User{}, err
	}
	if patch.Username != nil {
		user.Username = *patch.Username
	}
	if patch.Email != nil {
		user.Email = *patch.Email
	}
	if patch.Phone != nil {
		user.Phone = *patch.Phone
	}
	if patch.BiometricsEnabled != nil {
		user.BiometricsEnabled = *patch.BiometricsEnabled
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (User, error) {
	sub, err := parseToken(token, []byte(s.cfg.TokenSecret))
	if err != nil {
		return User{}, err
	}
	return s.repo.FindByUUID(ctx, sub)
}

func setIdentifier(user *User, identifier string) {
	if isEmail(identifier) {
		user.Email = identifier
	} else {
		user.Phone = identifier
	}
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
