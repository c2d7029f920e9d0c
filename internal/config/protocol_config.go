package config

import (
	"time"

	"github.com/openape/openape-go/discovery"
)

type ProtocolConfig interface {
	GetPolicyMode() discovery.PolicyMode
	GetAuthCodeTimeout() time.Duration
	GetRPID() string
	GetRPOrigin() string
}

type Protocol struct{}

var _ ProtocolConfig = Protocol{}

// GetPolicyMode returns the access policy this IdP enforces; it should match
// the mode published in the domain's discovery record.
func (Protocol) GetPolicyMode() discovery.PolicyMode {
	return discovery.PolicyMode(GetEnv(policyModeVar, string(discovery.PolicyAllowlistUser)))
}

func (Protocol) GetAuthCodeTimeout() time.Duration {
	return 5 * time.Minute
}

func (Protocol) GetRPID() string {
	return GetEnv("WEBAUTHN_RP_ID", "localhost")
}

func (Protocol) GetRPOrigin() string {
	return GetEnv("WEBAUTHN_RP_ORIGIN", "http://localhost:8080")
}
