// Package google checks Google OAuth access tokens against the userinfo endpoint.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	dErrors "schoolbridge/pkg/domain-errors"
)

// DefaultUserInfoURL is Google's OpenID Connect userinfo endpoint.
const DefaultUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// Identity is what Google reports for the token's owner.
type Identity struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Verifier fetches the identity behind an access token.
type Verifier struct {
	userInfoURL string
	httpClient  *http.Client
	timeout     time.Duration
}

type Option func(*Verifier)

// WithUserInfoURL points the verifier at another endpoint, e.g. an httptest server.
func WithUserInfoURL(url string) Option {
	return func(v *Verifier) { v.userInfoURL = url }
}

// WithHTTPClient sets the base transport client used under the oauth2 token source.
func WithHTTPClient(c *http.Client) Option {
	return func(v *Verifier) { v.httpClient = c }
}

func NewVerifier(opts ...Option) *Verifier {
	v := &Verifier{
		userInfoURL: DefaultUserInfoURL,
		httpClient:  http.DefaultClient,
		timeout:     5 * time.Second,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify resolves accessToken and checks that it belongs to googleID and email.
// Any mismatch or upstream rejection is reported as unauthorized.
func (v *Verifier) Verify(ctx context.Context, accessToken, googleID, email string) (*Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, v.httpClient)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build userinfo request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "google token verification failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "google token rejected")
	}

	var identity Identity
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&identity); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "google userinfo unreadable")
	}
	if identity.Subject != googleID || !strings.EqualFold(identity.Email, email) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "google token does not match user")
	}
	return &identity, nil
}
