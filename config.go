package sentinel

// Config holds configuration for the Sentinel engine.
type Config struct {
	// Strategy combines votes into a decision. Defaults to affirmative.
	Strategy Strategy `json:"strategy,omitempty" mapstructure:"strategy" yaml:"strategy"`

	// AllowIfAllAbstain grants access when every vote abstains.
	AllowIfAllAbstain bool `json:"allow_if_all_abstain,omitempty" mapstructure:"allow_if_all_abstain" yaml:"allow_if_all_abstain"`

	// AllowIfEqualGrantedDenied grants access on a consensus tie.
	// Ties deny by default.
	AllowIfEqualGrantedDenied bool `json:"allow_if_equal_granted_denied,omitempty" mapstructure:"allow_if_equal_granted_denied" yaml:"allow_if_equal_granted_denied"`

	// RejectPublicInvocations denies operations with no registered rule.
	RejectPublicInvocations bool `json:"reject_public_invocations,omitempty" mapstructure:"reject_public_invocations" yaml:"reject_public_invocations"`

	// AuditDenialsOnly records only denied decisions in the audit store.
	AuditDenialsOnly bool `json:"audit_denials_only,omitempty" mapstructure:"audit_denials_only" yaml:"audit_denials_only"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{Strategy: StrategyAffirmative}
}
