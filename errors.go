package membership

import "github.com/goliatone/go-errors"

const (
	TextCodeValidationFailed      = "VALIDATION_FAILED"
	TextCodeInvalidCredentials    = "INVALID_CREDENTIALS"
	TextCodeInvalidOrExpiredToken = "INVALID_OR_EXPIRED_TOKEN"
	TextCodeConflict              = "CONFLICT"
	TextCodeForbidden             = "FORBIDDEN"
	TextCodeNotFound              = "NOT_FOUND"
	TextCodeAccountDisabled       = "ACCOUNT_DISABLED"
)

// ErrValidationFailed is returned when a payload is malformed or missing
// required fields.
var ErrValidationFailed = errors.New("validation failed", errors.CategoryValidation).
	WithTextCode(TextCodeValidationFailed).
	WithCode(errors.CodeBadRequest)

// ErrInvalidCredentials covers both an unknown identifier and a wrong
// password. Callers must never learn which half failed, so both paths
// return this exact value with no metadata attached.
var ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidOrExpiredToken is the single fail-closed outcome for any bad
// token, session or verification alike: signature mismatch, malformed
// payload, and expiry are indistinguishable to the caller.
var ErrInvalidOrExpiredToken = errors.New("invalid or expired token", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidOrExpiredToken).
	WithCode(errors.CodeUnauthorized)

// ErrConflict is returned for duplicate emails and no-op role transitions.
var ErrConflict = errors.New("conflicting state", errors.CategoryConflict).
	WithTextCode(TextCodeConflict).
	WithCode(errors.CodeConflict)

// ErrForbidden covers both role-threshold failures and protection
// invariant failures. The two are deliberately indistinguishable.
var ErrForbidden = errors.New("forbidden", errors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrNotFound is returned for unknown members or targets.
var ErrNotFound = errors.New("record not found", errors.CategoryNotFound).
	WithTextCode(TextCodeNotFound).
	WithCode(errors.CodeNotFound)

// ErrAccountDisabled is returned when an administratively deactivated
// account attempts to authenticate.
var ErrAccountDisabled = errors.New("account is disabled", errors.CategoryAuthz).
	WithTextCode(TextCodeAccountDisabled).
	WithCode(errors.CodeForbidden)

// errWithMetadata clones the sentinel before attaching metadata.
// WithMetadata mutates its receiver, so decorating a package-level
// sentinel directly would leak one request's metadata into every
// other request that matches the same error.
func errWithMetadata(base *errors.Error, meta map[string]any) *errors.Error {
	clone := base.Clone()
	if clone == nil {
		return base
	}
	clone.Source = base
	return clone.WithMetadata(meta)
}
