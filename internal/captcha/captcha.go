// Package captcha verifies human-verification proofs against the
// Google reCAPTCHA siteverify endpoint.  The check runs before any
// credential comparison; a failed proof short-circuits the login.
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const verifyURL = "https://www.google.com/recaptcha/api/siteverify"

// ErrFailed is returned when the verification service rejects the
// submitted token.
var ErrFailed = errors.New("captcha verification failed")

// Verifier validates reCAPTCHA response tokens.  A Verifier with an
// empty secret is disabled and accepts everything, so deployments
// without a configured secret keep working.
type Verifier struct {
	secret string
	client *http.Client
}

// NewVerifier returns a Verifier for the given secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: secret,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Enabled reports whether a secret is configured.
func (v *Verifier) Enabled() bool { return v.secret != "" }

// Verify posts the token to siteverify.  ErrFailed is returned both
// when the service says "no" and when the token is empty; transport
// errors surface as-is so the caller can respond 422 without claiming
// the user is a bot.
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) error {
	if !v.Enabled() {
		return nil
	}
	if token == "" {
		return ErrFailed
	}
	form := url.Values{
		"secret":   {v.secret},
		"response": {token},
	}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, verifyURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := v.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	var body struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}
	if !body.Success {
		return ErrFailed
	}
	return nil
}
