package chat

import (
	"github.com/goliatone/go-errors"
)

// Vendor error codes surfaced by auth clients. These are the wire codes the
// classifier maps to user-facing messages; unknown codes pass through.
const (
	CodeUserNotFound       = "auth/user-not-found"
	CodeWrongPassword      = "auth/wrong-password"
	CodeEmailInUse         = "auth/email-already-in-use"
	CodeWeakPassword       = "auth/weak-password"
	CodeInvalidEmail       = "auth/invalid-email"
	CodePopupClosed        = "auth/popup-closed-by-user"
	CodePopupBlocked       = "auth/popup-blocked"
	CodePopupCancelled     = "auth/cancelled-popup-request"
	CodeCredentialConflict = "auth/account-exists-with-different-credential"
)

// Local text codes, raised by the session store itself rather than the
// vendor.
const (
	TextCodeUnverifiedEmail = "session_email_unverified"
	TextCodeNoActiveSession = "session_not_signed_in"
	TextCodeAlreadyVerified = "session_already_verified"
	TextCodeProfileMissing  = "session_profile_missing"
)

// ErrUnverifiedEmail is returned when a password login succeeds but the
// identity's email has not been verified; the store signs the identity back
// out before surfacing it.
var ErrUnverifiedEmail = errors.New("Please verify your email before logging in", errors.CategoryAuth).
	WithTextCode(TextCodeUnverifiedEmail).
	WithCode(errors.CodeForbidden)

// ErrNoActiveSession is returned by actions that need a signed-in identity.
var ErrNoActiveSession = errors.New("No user is currently signed in", errors.CategoryAuth).
	WithTextCode(TextCodeNoActiveSession).
	WithCode(errors.CodeUnauthorized)

// ErrAlreadyVerified is returned when requesting verification mail for an
// identity whose email is already verified.
var ErrAlreadyVerified = errors.New("Email is already verified", errors.CategoryValidation).
	WithTextCode(TextCodeAlreadyVerified).
	WithCode(errors.CodeBadRequest)

// ErrProfileNotFound is returned when an identity has no parallel profile
// record in the document store.
var ErrProfileNotFound = errors.New("profile record not found", errors.CategoryNotFound).
	WithTextCode(TextCodeProfileMissing).
	WithCode(errors.CodeNotFound)
