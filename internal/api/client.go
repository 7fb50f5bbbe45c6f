package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/syncthingtray/syncthingtray/internal/api/middleware"
	"github.com/syncthingtray/syncthingtray/internal/controller"
	apperrors "github.com/syncthingtray/syncthingtray/internal/errors"
)

// ErrTrayNotRunning indicates no tray instance answers on the control address.
var ErrTrayNotRunning = errors.New("tray not running - start syncthingtray first or enable control-listen")

// Client talks to the control API of a running tray.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient returns a client for addr, either "host:port" or a full base URL.
func NewClient(addr string) *Client {
	base := strings.TrimRight(strings.TrimSpace(addr), "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: base,
		client:  &http.Client{Timeout: 40 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set(middleware.ClientHeader, "1")
	resp, err := c.client.Do(req)
	if err != nil {
		var netErr *net.OpError
		if errors.As(err, &netErr) {
			return ErrTrayNotRunning
		}
		if strings.Contains(err.Error(), "connection refused") ||
			strings.Contains(err.Error(), "No connection could be made") {
			return ErrTrayNotRunning
		}
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var appErr apperrors.AppError
		if json.Unmarshal(body, &appErr) == nil && appErr.Message != "" {
			return &appErr
		}
		return fmt.Errorf("control API returned status %d", resp.StatusCode)
	}
	if result == nil {
		return nil
	}
	return json.Unmarshal(body, result)
}

// Status fetches the tray's current snapshot.
func (c *Client) Status(ctx context.Context) (controller.Snapshot, error) {
	var resp StatusResponse
	err := c.do(ctx, http.MethodGet, "/v1/status", &resp)
	return resp.Status, err
}

// Start asks the tray to start the daemon.
func (c *Client) Start(ctx context.Context) (controller.Snapshot, error) {
	var resp StatusResponse
	err := c.do(ctx, http.MethodPost, "/v1/start", &resp)
	return resp.Status, err
}

// Stop asks the tray to stop the daemon.
func (c *Client) Stop(ctx context.Context) (controller.Snapshot, error) {
	var resp StatusResponse
	err := c.do(ctx, http.MethodPost, "/v1/stop", &resp)
	return resp.Status, err
}

// Output fetches the newest n captured lines.
func (c *Client) Output(ctx context.Context, n int) (OutputResponse, error) {
	var resp OutputResponse
	err := c.do(ctx, http.MethodGet, "/v1/output?lines="+strconv.Itoa(n), &resp)
	return resp, err
}
