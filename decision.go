package auth

import "net/http"

// AccessDecision is the uniform result of authentication and authorization.
// It is either fully authenticated (User set, StatusCode 200) or fully
// rejected (StatusCode, Code and Error set, User nil). Build it through
// Allow and Deny only.
type AccessDecision struct {
	Authenticated bool      `json:"authenticated"`
	StatusCode    int       `json:"statusCode"`
	Code          ErrorCode `json:"code,omitempty"`
	Error         string    `json:"error,omitempty"`
	User          Identity  `json:"-"`
}

// Allow returns an authenticated decision for user.
func Allow(user Identity) AccessDecision {
	if user == nil {
		return Deny(CodeInvalidToken)
	}
	return AccessDecision{
		Authenticated: true,
		StatusCode:    http.StatusOK,
		User:          user,
	}
}

// Deny returns a rejected decision for code.
func Deny(code ErrorCode) AccessDecision {
	return AccessDecision{
		StatusCode: code.StatusCode(),
		Code:       code,
		Error:      code.Message(),
	}
}

// Allowed is shorthand for d.Authenticated.
func (d AccessDecision) Allowed() bool {
	return d.Authenticated
}

// ErrorBody is the JSON body sent with a rejected decision.
type ErrorBody struct {
	Error string    `json:"error"`
	Code  ErrorCode `json:"code"`
}

// Body returns the HTTP error body for a rejected decision.
func (d AccessDecision) Body() ErrorBody {
	return ErrorBody{Error: d.Error, Code: d.Code}
}

// DecisionStage names the check that produced a decision.
type DecisionStage string

const (
	StageAuthenticate DecisionStage = "authenticate"
	StageAuthorize    DecisionStage = "authorize"
)

// DecisionEvent reports a decision to listeners.
type DecisionEvent struct {
	Stage     DecisionStage
	WeddingID string
	Decision  AccessDecision
}

// DecisionListener observes every decision taken by the Authorizer and Gate.
type DecisionListener interface {
	OnDecision(event DecisionEvent)
}

// DecisionListenerFunc adapts a function into a DecisionListener.
type DecisionListenerFunc func(event DecisionEvent)

// OnDecision satisfies DecisionListener.
func (f DecisionListenerFunc) OnDecision(event DecisionEvent) {
	if f != nil {
		f(event)
	}
}
