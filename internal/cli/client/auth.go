package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// SignIn authenticates with email and password. The credential is captured
// according to the client's credential mode; the response body is not used as
// the source of the current user.
func (c *Client) SignIn(ctx context.Context, email, password string) error {
	return c.authenticate(ctx, "/signin", email, password)
}

// SignUp registers a new account and signs it in.
func (c *Client) SignUp(ctx context.Context, email, password string) error {
	return c.authenticate(ctx, "/signup", email, password)
}

func (c *Client) authenticate(ctx context.Context, endpoint, email, password string) error {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, c.authPath+endpoint, nil, CredentialsRequest{
		Email:    email,
		Password: password,
	}, &resp)
	if err != nil {
		return err
	}

	if err := c.creds.accept(resp.token()); err != nil {
		return err
	}
	return nil
}

// SignOut asks the backend to end the session. The local credential is
// cleared whether or not the backend call succeeds.
func (c *Client) SignOut(ctx context.Context) error {
	backendErr := c.do(ctx, http.MethodPost, c.authPath+"/signout", nil, nil, nil)

	if err := c.creds.clear(); err != nil {
		return errors.Join(backendErr, fmt.Errorf("failed to clear local credentials: %w", err))
	}
	return backendErr
}

// CurrentUser returns the user the stored credential belongs to.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, c.authPath+"/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
