package upstream

import (
	"context"
	"errors"
	"net/http"

	"github.com/ccapconnect/dashboard/internal/session"
)

// ErrNoToken is returned when a 2xx login response carries no access
// token. The auth controller treats it like any other login failure.
var ErrNoToken = errors.New("login response contained no access token")

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", body, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", ErrNoToken
	}
	return resp.AccessToken, nil
}

// Me fetches the authoritative identity for the token.
func (c *Client) Me(ctx context.Context, token string) (*session.Identity, error) {
	var id session.Identity
	if err := c.do(ctx, http.MethodGet, "/auth/me", token, nil, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

// RegistrationInput is a student self-registration request.
type RegistrationInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// RegisterStudent creates a new student account.
func (c *Client) RegisterStudent(ctx context.Context, in RegistrationInput) error {
	return c.do(ctx, http.MethodPost, "/auth/register-student", "", in, nil)
}

// RequestPasswordReset asks the backend to email a reset link.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.do(ctx, http.MethodPost, "/auth/reset-password/request", "", body, nil)
}

// ConfirmPasswordReset completes a reset with the emailed token.
func (c *Client) ConfirmPasswordReset(ctx context.Context, resetToken, newPassword string) error {
	body := map[string]string{
		"token":        resetToken,
		"new_password": newPassword,
	}
	return c.do(ctx, http.MethodPost, "/auth/reset-password/confirm", "", body, nil)
}
