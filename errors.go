package entrada

import "github.com/goliatone/go-errors"

const (
	TextCodeMissingExternalID  = "identity_missing_external_id"
	TextCodeAutoRegisterOff    = "identity_auto_register_disabled"
	TextCodeRegistrationFailed = "identity_registration_failed"
	TextCodeProviderNotEnabled = "identity_provider_not_enabled"
	TextCodeLinkNotFound       = "identity_link_not_found"
	TextCodeLastAuthMethod     = "identity_last_auth_method"
	TextCodeHandlerUnresolved  = "identity_handler_unresolved"
)

// ErrMissingExternalID is returned when the payload lacks a usable provider
// user id. Resolution aborts before any write.
var ErrMissingExternalID = errors.New("social payload is missing provider user id", errors.CategoryBadInput).
	WithTextCode(TextCodeMissingExternalID).
	WithCode(errors.CodeBadRequest)

// ErrAutoRegistrationDisabled is returned when no existing user matches and
// auto-registration is configured off.
var ErrAutoRegistrationDisabled = errors.New("auto-registration is disabled and no matching user found", errors.CategoryAuth).
	WithTextCode(TextCodeAutoRegisterOff).
	WithCode(errors.CodeForbidden)

// ErrRegistrationFailed is returned when the registration transaction rolls
// back, or when the post-registration hook fails after commit. In the latter
// case the user and link rows persist; callers must treat this as
// "registration reported failed, but a user row may exist".
var ErrRegistrationFailed = errors.New("failed to create user account", errors.CategoryOperation).
	WithTextCode(TextCodeRegistrationFailed)

// ErrProviderNotEnabled is returned when the named provider is not in the
// configured enabled list.
var ErrProviderNotEnabled = errors.New("social provider not enabled", errors.CategoryNotFound).
	WithTextCode(TextCodeProviderNotEnabled).
	WithCode(errors.CodeNotFound)

// ErrLinkNotFound is returned when a social account link does not exist or
// is not owned by the requesting user.
var ErrLinkNotFound = errors.New("social account link not found", errors.CategoryNotFound).
	WithTextCode(TextCodeLinkNotFound).
	WithCode(errors.CodeNotFound)

// ErrLastAuthMethod is returned when unlinking would remove the only way a
// password-less account can authenticate.
var ErrLastAuthMethod = errors.New("cannot unlink last authentication method", errors.CategoryValidation).
	WithTextCode(TextCodeLastAuthMethod).
	WithCode(errors.CodeBadRequest)

// ErrHandlerUnresolved is returned at construction time when the
// post-registration hook is enabled but its handler cannot be resolved.
var ErrHandlerUnresolved = errors.New("post-registration handler is enabled but not resolvable", errors.CategoryValidation).
	WithTextCode(TextCodeHandlerUnresolved).
	WithCode(errors.CodeBadRequest)
