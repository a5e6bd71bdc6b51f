// Package httpidp is an [authkit.IdentityProvider] over a remote HTTP
// identity service. The provider is an opaque boundary: this client learns
// success or failure plus a declared reason, never raw secrets or hashes.
package httpidp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	authkit "github.com/allyelvis/authkit"
)

// Client calls the identity provider's sign-in endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ authkit.IdentityProvider = (*Client)(nil)

// New returns a Client for the provider at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInResponse struct {
	Error string `json:"error"`
}

// SignIn implements [authkit.IdentityProvider]. A 2xx response is success;
// a 4xx response is a credential rejection whose error message becomes the
// declared reason; anything else is a provider outage.
func (c *Client) SignIn(ctx context.Context, email, password string) error {
	body, err := json.Marshal(signInRequest{Email: email, Password: password})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sign-in", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		var decoded signInResponse
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(data, &decoded) == nil && decoded.Error != "" {
			return errors.New(decoded.Error)
		}
		return errors.New("credentials rejected")
	}

	return fmt.Errorf("identity provider error: status %d", resp.StatusCode)
}
