// Package api implements the REST client for the parlor backend: auth,
// roster, message history and the authoritative send path.
//
// The realtime channel only forwards events; persistence confirmation always
// comes from the POST /messages/send response handled here.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TokenSource supplies the bearer token attached to authorized requests.
// session.Session satisfies this.
type TokenSource interface {
	Token() (string, bool)
}

// Client is a thin wrapper over the backend's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

// NewClient creates a REST client rooted at baseURL. tokens may be nil for
// a client used only for the unauthenticated auth endpoints.
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
	}
}

// Login exchanges email/password for a token and identity.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var out AuthResult
	if err := c.do(ctx, http.MethodPost, "/users/login", loginRequest{Email: email, Password: password}, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account. The backend responds with an OTP challenge
// delivered out of band; VerifyOTP completes the flow.
func (c *Client) Register(ctx context.Context, username, email, password string) error {
	return c.do(ctx, http.MethodPost, "/users/signup", registerRequest{Username: username, Email: email, Password: password}, nil, false)
}

// VerifyOTP confirms a registration code and returns the authenticated
// identity, same shape as Login.
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) (*AuthResult, error) {
	var out AuthResult
	if err := c.do(ctx, http.MethodPost, "/users/verify-otp", verifyOTPRequest{Email: email, OTP: otp}, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPeers fetches the roster with the caller's own id filtered out.
func (c *Client) ListPeers(ctx context.Context, excludeID string) ([]Peer, error) {
	var all []Peer
	if err := c.do(ctx, http.MethodGet, "/users/all-users", nil, &all, true); err != nil {
		return nil, err
	}
	peers := make([]Peer, 0, len(all))
	for _, p := range all {
		if p.ID == excludeID {
			continue
		}
		peers = append(peers, p)
	}
	return peers, nil
}

// FetchHistory returns the full message history with peerID, oldest first.
func (c *Client) FetchHistory(ctx context.Context, peerID string) ([]Message, error) {
	var msgs []Message
	if err := c.do(ctx, http.MethodGet, "/messages/"+peerID, nil, &msgs, true); err != nil {
		return nil, err
	}
	return msgs, nil
}

// SendMessage persists a message to peerID and returns the authoritative
// server copy.
func (c *Client) SendMessage(ctx context.Context, peerID, text string) (*Message, error) {
	var msg Message
	if err := c.do(ctx, http.MethodPost, "/messages/send/"+peerID, sendRequest{Text: text}, &msg, true); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, authorized bool) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	if authorized {
		if c.tokens == nil {
			return ErrNoCredential
		}
		token, ok := c.tokens.Token()
		if !ok {
			return ErrNoCredential
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &AuthError{Status: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: decodeErrorMessage(resp.Body)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding %s response: %w", path, err)
		}
	}
	return nil
}

func decodeErrorMessage(r io.Reader) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return ""
	}
	return payload.Message
}
