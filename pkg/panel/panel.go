// Package panel delivers purchased items by executing console commands
// against the game-server management panel.
package panel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

var (
	// ErrAmbiguous marks a delivery whose outcome is unknown: the request
	// timed out, so the remote command may or may not have executed. Callers
	// must not treat this as a definite failure — an automatic refund here
	// could hand out free items.
	ErrAmbiguous = errors.New("command delivery ambiguous")

	// ErrRejected marks a definite remote failure: the panel answered and
	// refused the command.
	ErrRejected = errors.New("command rejected by panel")
)

// Executor sends a console command to a managed game server.
type Executor interface {
	SendCommand(ctx context.Context, serverID string, command string) error
}

// Client is the Pterodactyl client-API implementation of Executor.
type Client struct {
	BaseURL string
	APIKey  string

	httpClient *http.Client
}

// NewClient creates a Client with a bounded request timeout.
func NewClient(baseURL string, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Make sure we conform to the interface
var _ Executor = (*Client)(nil)

// SendCommand posts the command to the panel's console endpoint. The panel
// acknowledges accepted commands with 204 and no body.
func (c *Client) SendCommand(ctx context.Context, serverID string, command string) error {
	payload, err := json.Marshal(map[string]string{"command": command})
	if err != nil {
		return fmt.Errorf("failed to marshal command: %w", err)
	}

	url := fmt.Sprintf("%s/api/client/servers/%s/command", c.BaseURL, serverID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build command request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("command %q on server %s: %w", command, serverID, ErrAmbiguous)
		}
		return fmt.Errorf("failed to reach panel for server %s: %w", serverID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("panel returned status %d for server %s: %w", resp.StatusCode, serverID, ErrRejected)
	}
	return nil
}

// isTimeout distinguishes "the request may have been delivered" from definite
// transport failures like connection refused.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
