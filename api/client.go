// Package api implements the HTTP client for the taskboard REST boundary.
//
// The server speaks devise-token-auth style authentication: every
// authenticated request carries the access-token, client, and uid headers,
// and sign-in style responses return fresh values for the same three in
// their response headers. The client attaches credentials, decodes JSON,
// and sorts failures into a small error taxonomy. It does not retry;
// callers own that decision.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"taskboard/credstore"
	internalstrings "taskboard/internal/strings"
)

// Header names shared with the server protocol.
const (
	HeaderAccessToken = "access-token"
	HeaderClient      = "client"
	HeaderUID         = "uid"
)

// CredentialSource supplies the session triple for authenticated calls.
type CredentialSource interface {
	Credential() (credstore.Credential, bool)
}

// Client calls the taskboard API.
type Client struct {
	baseURL string
	client  *http.Client
	creds   CredentialSource
}

// NewClient creates a client for the given base URL or address.
func NewClient(baseURL string, creds CredentialSource) *Client {
	baseURL = internalstrings.TrimTrailingSlash(baseURL)
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	return &Client{baseURL: baseURL, client: &http.Client{}, creds: creds}
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request issues an authenticated API call and decodes the JSON response
// into dest. It fails fast with ErrUnauthenticated when the stored
// credential triple is incomplete, before any request is sent.
func (c *Client) Request(ctx context.Context, method, path string, payload, dest any) error {
	if c.creds == nil {
		return ErrUnauthenticated
	}
	cred, ok := c.creds.Credential()
	if !ok {
		return ErrUnauthenticated
	}
	_, err := c.do(ctx, method, path, payload, dest, &cred)
	return err
}

// RequestAnon issues an unauthenticated API call and returns the response
// headers, which sign-in style endpoints use to deliver fresh credentials.
func (c *Client) RequestAnon(ctx context.Context, method, path string, payload, dest any) (http.Header, error) {
	return c.do(ctx, method, path, payload, dest, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload, dest any, cred *credstore.Credential) (http.Header, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cred != nil {
		req.Header.Set(HeaderAccessToken, cred.AccessToken)
		req.Header.Set(HeaderClient, cred.Client)
		req.Header.Set(HeaderUID, cred.UID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.Header, readErrorResponse(resp)
	}

	if dest == nil {
		return resp.Header, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.Header, &MalformedResponseError{Err: err}
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return resp.Header, &MalformedResponseError{}
	}
	if err := json.Unmarshal(trimmed, dest); err != nil {
		return resp.Header, &MalformedResponseError{Err: err}
	}
	return resp.Header, nil
}

// errorPayload covers the error body shapes the Rails side produces:
// {"message": "..."}, {"error": "..."}, {"errors": ["..."]}, and the
// devise-token-auth {"errors": {"full_messages": ["..."]}}.
type errorPayload struct {
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Errors  json.RawMessage `json:"errors"`
}

func (p *errorPayload) messages() []string {
	var messages []string
	if len(p.Errors) > 0 {
		var list []string
		if err := json.Unmarshal(p.Errors, &list); err == nil {
			messages = append(messages, list...)
		} else {
			var nested struct {
				FullMessages []string `json:"full_messages"`
			}
			if err := json.Unmarshal(p.Errors, &nested); err == nil {
				messages = append(messages, nested.FullMessages...)
			}
		}
	}
	if p.Message != "" {
		messages = append(messages, p.Message)
	}
	if p.Error != "" {
		messages = append(messages, p.Error)
	}
	return messages
}

func readErrorResponse(resp *http.Response) error {
	var payload errorPayload
	var messages []string
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		messages = payload.messages()
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		message := "invalid credentials"
		if len(messages) > 0 {
			message = strings.Join(messages, "; ")
		}
		return &AuthError{Message: message}
	case resp.StatusCode >= 400 && resp.StatusCode <= 499 && len(messages) > 0:
		return &ValidationError{Status: resp.StatusCode, Errors: messages}
	default:
		return &RequestError{Status: resp.StatusCode, Message: strings.Join(messages, "; ")}
	}
}
