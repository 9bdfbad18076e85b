package chat

import (
	"github.com/goliatone/go-errors"
)

// vendorMessages maps vendor error codes to the fixed copy we show users.
var vendorMessages = map[string]string{
	CodeUserNotFound:       "No account found with this email address",
	CodeWrongPassword:      "Incorrect password",
	CodeEmailInUse:         "This email is already registered",
	CodeWeakPassword:       "Password should be at least 6 characters",
	CodeInvalidEmail:       "Please enter a valid email address",
	CodePopupClosed:        "Sign in was cancelled. Please try again",
	CodePopupBlocked:       "Pop-up was blocked by your browser. Please allow pop-ups for this site",
	CodePopupCancelled:     "Multiple pop-up requests were made. Please try again",
	CodeCredentialConflict: "An account already exists with the same email address but different sign-in credentials",
}

// Classify rewrites a vendor auth failure into a user-facing error. Known
// vendor codes get their fixed message; anything else passes through with
// the original message. The vendor code, category and metadata survive
// classification so callers can still branch on them.
func Classify(err error) *errors.Error {
	if err == nil {
		return nil
	}

	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return errors.Wrap(err, errors.CategoryAuth, err.Error()).
			WithCode(errors.CodeUnauthorized)
	}

	msg, known := vendorMessages[richErr.TextCode]
	if !known {
		return richErr
	}

	classified := errors.New(msg, richErr.Category).
		WithTextCode(richErr.TextCode).
		WithCode(richErr.Code)

	if len(richErr.Metadata) > 0 {
		classified = classified.WithMetadata(richErr.Metadata)
	}

	return classified
}

// ErrorMessage returns the user-facing message for an auth failure. It is
// what views render next to login and registration forms.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if classified := Classify(err); classified != nil {
		return classified.Message
	}
	return err.Error()
}
