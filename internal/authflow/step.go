package authflow

import "github.com/finnri/finnri/internal/api"

// Channel is the identifier delivery channel the user picked.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPhone Channel = "phone"
)

// PINMode says what submitting a PIN means: proving an existing account or
// setting the PIN on a newly claimed one.
type PINMode string

const (
	PINLogin    PINMode = "login"
	PINRegister PINMode = "register"
)

// Step is the current position in the auth flow, as a closed set of concrete
// step values. Each step carries exactly the context it is legal to hold, so
// a PIN entry without a resolved identifier or claim token cannot be
// constructed.
type Step interface {
	isStep()
}

// Choice is the flow entry point: pick a channel or continue as guest.
type Choice struct{}

// Identify collects the identifier for the chosen channel.
type Identify struct {
	Channel    Channel
	Identifier string // last submitted value, kept for back-navigation refill
}

// OTPVerify waits for the one-time code sent to a new identifier.
type OTPVerify struct {
	Channel    Channel
	Identifier string
}

// PINEntry collects the PIN. Mode PINRegister additionally holds the claim
// token obtained from OTP verification; it is unexported so the register
// variant can only be reached through a verified code.
type PINEntry struct {
	Channel    Channel
	Identifier string
	Mode       PINMode
	claimToken string
}

// Authenticated is terminal: a session has been established.
type Authenticated struct {
	User api.User
}

func (Choice) isStep()        {}
func (Identify) isStep()      {}
func (OTPVerify) isStep()     {}
func (PINEntry) isStep()      {}
func (Authenticated) isStep() {}
