package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Login exchanges credentials for a bearer token (OAuth2 password grant) and
// stores it in the session store. The request never carries a token.
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResponse, error) {
	const op = "login"
	if strings.TrimSpace(creds.Username) == "" {
		return nil, validationError(op, "username is required")
	}
	if creds.Password == "" {
		return nil, validationError(op, "password is required")
	}

	form := url.Values{}
	form.Set("username", creds.Username)
	form.Set("password", creds.Password)
	form.Set("grant_type", "password")

	var resp LoginResponse
	if err := c.do(ctx, formCall(op, "/token", form), &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, &Error{Op: op, Kind: KindMalformedPayload, Status: http.StatusOK, Detail: "response carries no access_token"}
	}

	if err := c.store.SetToken(ctx, resp.AccessToken); err != nil {
		return nil, fmt.Errorf("%s: store token: %w", op, err)
	}
	c.logger.Info("logged in", "username", creds.Username)
	return &resp, nil
}

// Logout forgets the stored token. The API keeps no server-side session.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Register creates a user account. No token is sent.
func (c *Client) Register(ctx context.Context, req RegistrationRequest) (*User, error) {
	const op = "register"
	if strings.TrimSpace(req.Username) == "" {
		return nil, validationError(op, "username is required")
	}
	if strings.TrimSpace(req.Email) == "" {
		return nil, validationError(op, "email is required")
	}
	if req.Password == "" {
		return nil, validationError(op, "password is required")
	}

	cl, err := jsonCall(op, http.MethodPost, "/users/", req)
	if err != nil {
		return nil, err
	}
	cl.anonymous = true

	var user User
	if err := c.do(ctx, cl, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SignUp registers an account and logs straight into it.
func (c *Client) SignUp(ctx context.Context, req RegistrationRequest) (*LoginResponse, error) {
	if _, err := c.Register(ctx, req); err != nil {
		return nil, err
	}
	return c.Login(ctx, Credentials{Username: req.Username, Password: req.Password})
}
