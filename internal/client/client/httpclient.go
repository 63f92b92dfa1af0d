package client

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

	"github.com/dmitrijs2005/zkvault/internal/client/models"
	"github.com/dmitrijs2005/zkvault/internal/common"
)

type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient returns a client for the API at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Register(ctx context.Context, username, password string) (*models.Profile, error) {
	var p models.Profile
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", "", credentialsRequest{username, password}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) (*models.Profile, error) {
	var p models.Profile
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", "", credentialsRequest{username, password}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Me returns the profile behind accessToken; it doubles as a session check.
func (c *HTTPClient) Me(ctx context.Context, accessToken string) (*models.Profile, error) {
	var p models.Profile
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/me", accessToken, nil, &p); err != nil {
		return nil, err
	}
	p.AccessToken = accessToken
	return &p, nil
}

// PushSalt asks the server to store salt for the profile's user. The server
// only accepts it when it has none; a different stored salt is a conflict.
func (c *HTTPClient) PushSalt(ctx context.Context, profile models.Profile, salt string) error {
	return c.do(ctx, http.MethodPut, "/api/v1/users/me/salt", profile.AccessToken, saltRequest{Salt: salt}, nil)
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/ping", "", nil, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return mapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return mapStatus(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func mapTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
}

func mapStatus(resp *http.Response) error {
	var e errorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&e)
	msg := e.Error
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", common.ErrorUnauthorized, msg)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", common.ErrorConflict, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", common.ErrorNotFound, msg)
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %s", common.ErrUnavailable, msg)
	default:
		return fmt.Errorf("api error %d: %s", resp.StatusCode, msg)
	}
}
