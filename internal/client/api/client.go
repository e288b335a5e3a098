// Package api is a thin HTTP client for the reconstruction gateway.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/platerecon/internal/common"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
)

// Error is a non-2xx response from the gateway.
type Error struct {
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Detail)
}

// Unwrap lets callers match 401 responses with errors.Is(err, ErrUnauthorized).
func (e *Error) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	IsActive  bool      `json:"is_active"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

type ModelStatus struct {
	Loaded      bool    `json:"loaded"`
	ModelPath   string  `json:"model_path"`
	InputShape  []int64 `json:"input_shape"`
	OutputShape []int64 `json:"output_shape"`
}

type Reconstruction struct {
	ID       string
	Digest   string
	Filename string
	PNG      []byte
}

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// SetToken sets the bearer token sent with protected calls.
func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) Register(ctx context.Context, email, username, password string) (*User, error) {
	body, err := json.Marshal(map[string]string{"email": email, "username": username, "password": password})
	if err != nil {
		return nil, err
	}

	var u User
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", bytes.NewReader(body), "application/json", false, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login exchanges credentials for an access token. login may be the email
// or the username.
func (c *Client) Login(ctx context.Context, login string, password []byte) (string, error) {
	form := url.Values{"username": {login}, "password": {string(password)}}

	var res struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", strings.NewReader(form.Encode()),
		"application/x-www-form-urlencoded", false, &res); err != nil {
		return "", err
	}
	if !strings.EqualFold(res.TokenType, common.BearerScheme) || res.AccessToken == "" {
		return "", fmt.Errorf("unexpected token response (type %q)", res.TokenType)
	}
	return res.AccessToken, nil
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, "", true, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) ModelStatus(ctx context.Context) (*ModelStatus, error) {
	var s ModelStatus
	if err := c.do(ctx, http.MethodGet, "/api/model/status", nil, "", true, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Reconstruct uploads an image and returns the reconstructed PNG.
func (c *Client) Reconstruct(ctx context.Context, filename string, data []byte) (*Reconstruction, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filepath.Base(filename))))
	hdr.Set("Content-Type", http.DetectContentType(data))
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, http.MethodPost, "/api/reconstruct", &buf, mw.FormDataContentType(), true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	png, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	return &Reconstruction{
		ID:       resp.Header.Get("X-Reconstruction-ID"),
		Digest:   resp.Header.Get("X-Image-Digest"),
		Filename: dispositionFilename(resp.Header.Get("Content-Disposition")),
		PNG:      png,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, auth bool, out any) error {
	resp, err := c.send(ctx, method, path, body, contentType, auth)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// send performs the request and turns transport failures into ErrUnavailable
// and non-2xx responses into *Error.
func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string, auth bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if auth {
		if c.token == "" {
			return nil, fmt.Errorf("%w: not logged in", ErrUnauthorized)
		}
		req.Header.Set(common.AuthorizationHeader, "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		apiErr := &Error{StatusCode: resp.StatusCode}
		var e struct {
			Detail string `json:"detail"`
		}
		if json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&e) == nil {
			apiErr.Detail = e.Detail
		}
		return nil, apiErr
	}
	return resp, nil
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func dispositionFilename(v string) string {
	_, params, err := mime.ParseMediaType(v)
	if err != nil {
		return ""
	}
	return params["filename"]
}
