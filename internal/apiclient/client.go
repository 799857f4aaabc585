// Package apiclient is the Go SDK for the scorerooms HTTP API, used by the
// CLI and by integration tooling.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/contadorvs/scorerooms/pkg/roomdto"
)

// APIError is a non-2xx response carrying the server's error code and the
// user-facing message. Mutations are never retried; the caller re-triggers.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("api error: status=%d code=%s", e.Status, e.Code)
}

type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) CreateRoom(ctx context.Context, req roomdto.CreateRoomRequest) (*roomdto.CreateRoomResponse, error) {
	var resp roomdto.CreateRoomResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/rooms", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetRoom(ctx context.Context, code string) (*roomdto.Room, error) {
	var resp roomdto.Room
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/rooms/"+url.PathEscape(code), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) MyRooms(ctx context.Context, deviceID string) ([]roomdto.Room, error) {
	var resp roomdto.RoomListResponse
	path := "/rooms?device=" + url.QueryEscape(deviceID)
	if err := c.doJSON(ctx, fasthttp.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Rooms, nil
}

func (c *Client) Join(ctx context.Context, code string, req roomdto.JoinRequest) (*roomdto.Room, error) {
	var resp roomdto.Room
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/rooms/"+url.PathEscape(code)+"/join", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Leave(ctx context.Context, code, deviceID string) error {
	req := roomdto.DeviceRequest{DeviceID: deviceID}
	return c.doJSON(ctx, fasthttp.MethodPost, "/rooms/"+url.PathEscape(code)+"/leave", req, nil)
}

func (c *Client) ChangeTeam(ctx context.Context, code, deviceID, teamID string) error {
	req := roomdto.ChangeTeamRequest{DeviceID: deviceID, TeamID: teamID}
	return c.doJSON(ctx, fasthttp.MethodPost, "/rooms/"+url.PathEscape(code)+"/team", req, nil)
}

func (c *Client) Score(ctx context.Context, code, key string, delta int64) error {
	req := roomdto.ScoreRequest{Key: key, Delta: delta}
	return c.doJSON(ctx, fasthttp.MethodPost, "/rooms/"+url.PathEscape(code)+"/score", req, nil)
}

func (c *Client) ResetScores(ctx context.Context, code, deviceID string) error {
	req := roomdto.DeviceRequest{DeviceID: deviceID}
	return c.doJSON(ctx, fasthttp.MethodPost, "/rooms/"+url.PathEscape(code)+"/reset", req, nil)
}

func (c *Client) FinishRoom(ctx context.Context, code, deviceID string) error {
	req := roomdto.DeviceRequest{DeviceID: deviceID}
	return c.doJSON(ctx, fasthttp.MethodPost, "/rooms/"+url.PathEscape(code)+"/finish", req, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		apiErr := &APIError{Status: status}
		var body roomdto.ErrorResponse
		if err := json.Unmarshal(resp.Body(), &body); err == nil {
			apiErr.Code = body.Error
			apiErr.Message = body.Message
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}
