package discovery

// PolicyMode is the access policy an IdP publishes in its discovery record.
// It is a closed enumeration in the data; unrecognised values fall through to
// requiring explicit user consent, never to a silent allow.
type PolicyMode string

const (
	// PolicyOpen allows any SP without user interaction.
	PolicyOpen PolicyMode = "open"
	// PolicyDeny rejects every SP.
	PolicyDeny PolicyMode = "deny"
	// PolicyAllowlistUser allows SPs the user has previously granted consent to.
	PolicyAllowlistUser PolicyMode = "allowlist-user"
	// PolicyAllowlistAdmin defers to an admin-managed allowlist. The reference
	// policy engine has no data source for it and must not fail open.
	PolicyAllowlistAdmin PolicyMode = "allowlist-admin"
)

// Record is the published discovery record mapping an email domain to its
// chosen IdP and policy mode. Immutable once returned by a resolver.
type Record struct {
	Version int        `json:"version" yaml:"version"`
	IdP     string     `json:"idp" yaml:"idp"`
	Mode    PolicyMode `json:"mode,omitempty" yaml:"mode,omitempty"`
}

// IdPConfig is the usable projection of a discovery record. Mode may be empty,
// which downstream policy evaluation treats as "require consent".
type IdPConfig struct {
	IdPURL string
	Mode   PolicyMode
	Record *Record
}
