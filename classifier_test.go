package chat_test

import (
	stderrors "errors"
	"testing"

	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chat "github.com/hallwaychat/go-chat"
)

func TestClassifyNilIsNil(t *testing.T) {
	assert.Nil(t, chat.Classify(nil))
}

func TestClassifyKnownVendorCodes(t *testing.T) {
	cases := []struct {
		code    string
		message string
	}{
		{chat.CodeUserNotFound, "No account found with this email address"},
		{chat.CodeWrongPassword, "Incorrect password"},
		{chat.CodeEmailInUse, "This email is already registered"},
		{chat.CodeWeakPassword, "Password should be at least 6 characters"},
		{chat.CodeInvalidEmail, "Please enter a valid email address"},
		{chat.CodePopupClosed, "Sign in was cancelled. Please try again"},
		{chat.CodePopupBlocked, "Pop-up was blocked by your browser. Please allow pop-ups for this site"},
		{chat.CodePopupCancelled, "Multiple pop-up requests were made. Please try again"},
		{chat.CodeCredentialConflict, "An account already exists with the same email address but different sign-in credentials"},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			vendor := errors.New("vendor detail the user never sees", errors.CategoryAuth).
				WithTextCode(tc.code).
				WithCode(errors.CodeUnauthorized).
				WithMetadata(map[string]any{"attempt": 1})

			classified := chat.Classify(vendor)
			require.NotNil(t, classified)

			assert.Equal(t, tc.message, classified.Message)
			assert.Equal(t, tc.code, classified.TextCode, "vendor code must survive classification")
			assert.Equal(t, errors.CategoryAuth, classified.Category)
			assert.Equal(t, errors.CodeUnauthorized, classified.Code)
			assert.Equal(t, 1, classified.Metadata["attempt"])
		})
	}
}

func TestClassifyUnknownCodePassesThrough(t *testing.T) {
	vendor := errors.New("quota exhausted", errors.CategoryOperation).
		WithTextCode("auth/too-many-requests")

	classified := chat.Classify(vendor)
	require.NotNil(t, classified)
	assert.Equal(t, "quota exhausted", classified.Message)
	assert.Equal(t, "auth/too-many-requests", classified.TextCode)
}

func TestClassifyWrapsPlainErrors(t *testing.T) {
	classified := chat.Classify(stderrors.New("connection refused"))
	require.NotNil(t, classified)

	assert.Equal(t, "connection refused", classified.Message)
	assert.Equal(t, errors.CategoryAuth, classified.Category)
	assert.Equal(t, errors.CodeUnauthorized, classified.Code)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "", chat.ErrorMessage(nil))

	vendor := errors.New("raw", errors.CategoryAuth).WithTextCode(chat.CodeWrongPassword)
	assert.Equal(t, "Incorrect password", chat.ErrorMessage(vendor))

	assert.Equal(t, "boom", chat.ErrorMessage(stderrors.New("boom")))
}
