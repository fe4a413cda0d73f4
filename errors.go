package sentinel

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/sentinel/audit"
	"github.com/xraph/sentinel/rule"
)

var (
	// ErrCredentialsNotFound is returned when a protected operation is
	// invoked with no Authentication in the SecurityContext.
	ErrCredentialsNotFound = errors.New("sentinel: authentication credentials not found")

	// ErrAccessDenied is returned when the caller's authorities do not
	// satisfy the operation's access rule.
	ErrAccessDenied = errors.New("sentinel: access denied")

	// ErrConfiguration is returned by construction-time validation
	// (rule registration, filter ordering, chain building).
	ErrConfiguration = errors.New("sentinel: invalid configuration")

	// ErrInvalidInvocation is returned at dispatch time for an invocation
	// that cannot be checked, such as one with no operation.
	ErrInvalidInvocation = errors.New("sentinel: invalid invocation")

	// ErrRuleNotFound is returned when a persisted rule cannot be found.
	ErrRuleNotFound = rule.ErrNotFound

	// ErrAuditEntryNotFound is returned when an audit entry cannot be found.
	ErrAuditEntryNotFound = audit.ErrNotFound

	// ErrRuleSourceRequired is returned by NewEngine without a rule source.
	ErrRuleSourceRequired = errors.New("sentinel: rule source is required")

	// ErrRegistryFrozen is returned when registering into a frozen Registry.
	ErrRegistryFrozen = errors.New("sentinel: rule registry is frozen")
)

// AccessDeniedError carries the decision that denied an invocation.
// It matches ErrAccessDenied with errors.Is.
type AccessDeniedError struct {
	Operation string
	Result    *Result
}

func (e *AccessDeniedError) Error() string {
	if e.Result == nil {
		return fmt.Sprintf("%s: %s", ErrAccessDenied, e.Operation)
	}
	return fmt.Sprintf("%s: %s: %s (%s)", ErrAccessDenied, e.Operation, e.Result.Reason, e.Result.Decision)
}

// Unwrap returns ErrAccessDenied.
func (e *AccessDeniedError) Unwrap() error { return ErrAccessDenied }

// ConfigError reports an invalid ordering, registration or chain
// definition. Filters names every filter involved in the problem.
// It matches ErrConfiguration with errors.Is.
type ConfigError struct {
	Filters []string
	Reason  string
}

// NewConfigError returns a ConfigError for the named filters.
func NewConfigError(reason string, filters ...string) *ConfigError {
	return &ConfigError{Filters: filters, Reason: reason}
}

func (e *ConfigError) Error() string {
	if len(e.Filters) == 0 {
		return fmt.Sprintf("%s: %s", ErrConfiguration, e.Reason)
	}
	return fmt.Sprintf("%s: %s [%s]", ErrConfiguration, e.Reason, strings.Join(e.Filters, ", "))
}

// Unwrap returns ErrConfiguration.
func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// IsDenied reports whether err is an access or credentials fault.
func IsDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied) || errors.Is(err, ErrCredentialsNotFound)
}
