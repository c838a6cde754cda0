package session

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

const deviceIDPrefix = "web_guest_"

var (
	deviceOnce sync.Once
	deviceID   string
)

// DeviceID returns the device identifier used for guest bootstrap and device
// binding at registration. It is generated once per process; it only needs to
// be unique enough to avoid collisions, not cryptographically strong.
func DeviceID() string {
	deviceOnce.Do(func() {
		suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		deviceID = deviceIDPrefix + suffix
	})
	return deviceID
}
