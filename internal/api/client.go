// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"grimm.is/uplinkd/internal/controller"
	"grimm.is/uplinkd/internal/errors"
	"grimm.is/uplinkd/internal/probe"
	"grimm.is/uplinkd/internal/state"
)

// Client talks to a running daemon's management API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the daemon listening at addr
// (host:port). Deadlines come from the caller's context; a switch can
// legitimately run for minutes.
func NewClient(addr string) *Client {
	return &Client{
		baseURL: "http://" + addr,
		http:    &http.Client{},
	}
}

// Status fetches the controller snapshot.
func (c *Client) Status(ctx context.Context) (*controller.Status, error) {
	var st controller.Status
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Events fetches up to limit recent events, newest first.
func (c *Client) Events(ctx context.Context, limit int) ([]state.Event, error) {
	path := "/api/v1/events"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	var resp struct {
		Events []state.Event `json:"events"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// Switch requests a manual switch to iface.
func (c *Client) Switch(ctx context.Context, iface string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/switch", SwitchRequest{Interface: iface}, nil)
}

// Probe runs an on-demand probe of iface on the daemon.
func (c *Client) Probe(ctx context.Context, iface string) (*probe.Result, error) {
	var res probe.Result
	if err := c.do(ctx, http.MethodPost, "/api/v1/probe/"+iface, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Restart asks the daemon to reseed and restart its monitoring loop.
func (c *Client) Restart(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/restart", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var buf *bytes.Buffer
	if body != nil {
		buf = &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return errors.Wrap(err, errors.KindInternal, "failed to encode request")
		}
	}

	var reader *bytes.Buffer
	if buf != nil {
		reader = buf
	} else {
		reader = &bytes.Buffer{}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "failed to build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, errors.KindUnavailable, "daemon not reachable at %s", c.baseURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var er ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&er) == nil && er.Error != "" {
			return errors.Errorf(kindFromStatus(resp.StatusCode), "%s", er.Error)
		}
		return errors.Errorf(kindFromStatus(resp.StatusCode), "daemon returned %s", resp.Status)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrap(err, errors.KindInternal, "failed to decode response")
		}
	}
	return nil
}

func kindFromStatus(status int) errors.Kind {
	switch status {
	case http.StatusBadRequest:
		return errors.KindValidation
	case http.StatusNotFound:
		return errors.KindNotFound
	case http.StatusConflict:
		return errors.KindConflict
	case http.StatusServiceUnavailable:
		return errors.KindUnavailable
	case http.StatusGatewayTimeout:
		return errors.KindTimeout
	default:
		return errors.KindInternal
	}
}
