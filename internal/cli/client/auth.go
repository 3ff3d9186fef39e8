package client

import (
	"context"
	"net/http"

	"github.com/fmcg-dev/fmcg/internal/types"
)

// Login authenticates the user and returns the session token.
// It is the only call that never carries a session header.
func (c *Client) Login(ctx context.Context, email, password string) (*types.LoginResponse, error) {
	req, err := jsonRequest(http.MethodPost, "/auth/login", types.LoginRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, err
	}
	req.anonymous = true

	body, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	var resp types.LoginResponse
	if err := decode(body, "", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout invalidates the given session token on the backend
func (c *Client) Logout(ctx context.Context, token string) error {
	req, err := jsonRequest(http.MethodPost, "/auth/logout", struct{}{})
	if err != nil {
		return err
	}
	req.token = token

	_, err = c.do(ctx, req)
	return err
}

// Verify validates the given session token and returns the user it belongs to
func (c *Client) Verify(ctx context.Context, token string) (*types.VerifyResponse, error) {
	body, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/auth/verify",
		token:  token,
	})
	if err != nil {
		return nil, err
	}

	var resp types.VerifyResponse
	if err := decode(body, "", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
