package auth_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"

	auth "github.com/goliatone/go-wedding-auth"
)

func TestCodeFromError(t *testing.T) {
	tests := []struct {
		err  error
		want auth.ErrorCode
	}{
		{nil, ""},
		{&auth.VerificationError{Reason: auth.ReasonExpired, Err: errors.New("exp")}, auth.CodeTokenExpired},
		{&auth.VerificationError{Reason: auth.ReasonMalformed}, auth.CodeInvalidToken},
		{&auth.VerificationError{Reason: auth.ReasonBadSignature}, auth.CodeInvalidToken},
		{auth.ErrMissingToken, auth.CodeInvalidToken},
		{fmt.Errorf("wrap: %w", auth.ErrInvalidClaims), auth.CodeInvalidToken},
		{auth.ErrInvalidCredentials, auth.CodeInvalidCredentials},
		{fmt.Errorf("load: %w", auth.ErrWeddingNotFound), auth.CodeNotFound},
		{errors.New("disk on fire"), auth.CodeInternalError},
		{goerrors.Wrap(auth.ErrInvalidClaims, goerrors.CategoryBadInput, "missing username"), auth.CodeInvalidToken},
		{goerrors.New("token TTL must be positive", goerrors.CategoryBadInput), auth.CodeBadRequest},
		{goerrors.New("slug is required", goerrors.CategoryValidation), auth.CodeBadRequest},
		{goerrors.New("no such guest", goerrors.CategoryNotFound), auth.CodeNotFound},
		{goerrors.New("bad password", goerrors.CategoryAuth), auth.CodeInvalidCredentials},
		{goerrors.New("not yours", goerrors.CategoryAuthz), auth.CodeAccessDenied},
		{goerrors.Wrap(errors.New("db down"), goerrors.CategoryInternal, "find account"), auth.CodeInternalError},
		{fmt.Errorf("outer: %w", goerrors.New("empty body", goerrors.CategoryBadInput)), auth.CodeBadRequest},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, auth.CodeFromError(tt.err), "%v", tt.err)
	}
}

func TestErrorCode_StatusAndMessage(t *testing.T) {
	tests := []struct {
		code   auth.ErrorCode
		status int
	}{
		{auth.CodeTokenExpired, http.StatusUnauthorized},
		{auth.CodeInvalidToken, http.StatusUnauthorized},
		{auth.CodeInvalidCredentials, http.StatusUnauthorized},
		{auth.CodeArchived, http.StatusForbidden},
		{auth.CodeAccessDenied, http.StatusForbidden},
		{auth.CodeNotFound, http.StatusNotFound},
		{auth.CodeBadRequest, http.StatusBadRequest},
		{auth.CodeInternalError, http.StatusInternalServerError},
	}

	messages := map[string]bool{}
	for _, tt := range tests {
		assert.Equal(t, tt.status, tt.code.StatusCode(), tt.code)
		msg := tt.code.Message()
		assert.NotEmpty(t, msg)
		assert.False(t, messages[msg], "duplicate message %q", msg)
		messages[msg] = true
	}

	assert.Equal(t, "session expired, please sign in again", auth.CodeTokenExpired.Message())
}

func TestErrorHelpers(t *testing.T) {
	expired := &auth.VerificationError{Reason: auth.ReasonExpired, Err: errors.New("exp")}
	assert.True(t, auth.IsTokenExpiredError(expired))
	assert.False(t, auth.IsMalformedError(expired))

	assert.True(t, auth.IsMalformedError(auth.ErrMissingToken))
	assert.True(t, auth.IsMalformedError(&auth.VerificationError{Reason: auth.ReasonMalformed}))
	assert.False(t, auth.IsTokenExpiredError(errors.New("other")))
}
