package transport

import (
	"net/http"
	"strings"
	"unicode"

	"github.com/agentstation/reposcout/pkg/errors"
)

// Authenticator applies a credential to outgoing requests.
type Authenticator interface {
	Apply(req *http.Request)
	Validate() error
}

// BearerAuth sends "Authorization: Bearer <token>" (Airtable personal access tokens).
type BearerAuth struct {
	Token string
}

// Apply implements the Authenticator interface for BearerAuth.
func (a *BearerAuth) Apply(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+a.Token)
}

// Validate implements the Authenticator interface for BearerAuth.
func (a *BearerAuth) Validate() error {
	return validateToken("bearer", a.Token)
}

// TokenAuth sends "Authorization: token <token>" (GitHub classic and fine-grained tokens).
type TokenAuth struct {
	Token string
}

// Apply implements the Authenticator interface for TokenAuth.
func (a *TokenAuth) Apply(req *http.Request) {
	req.Header.Set("Authorization", "token "+a.Token)
}

// Validate implements the Authenticator interface for TokenAuth.
func (a *TokenAuth) Validate() error {
	return validateToken("token", a.Token)
}

// validateToken checks that a credential is present and shaped like a token.
func validateToken(method, token string) error {
	if token == "" {
		return errors.NewFatalError("authenticate", 0, method+" credential is empty", errors.ErrAPIKeyRequired)
	}
	if strings.IndexFunc(token, unicode.IsSpace) >= 0 {
		return errors.NewFatalError("authenticate", 0, method+" credential contains whitespace", errors.ErrAPIKeyInvalid)
	}
	return nil
}
