package apiclient

import (
	"net/url"

	"github.com/marmos91/aund/internal/fileserver"
)

// ListSessions returns the file server's live sessions.
func (c *Client) ListSessions() ([]fileserver.SessionInfo, error) {
	var sessions []fileserver.SessionInfo
	if err := c.get("/api/v1/sessions", &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Logoff ends a session by id.
func (c *Client) Logoff(id string) error {
	return c.delete("/api/v1/sessions/" + url.PathEscape(id))
}

// ListDiscs returns the served discs.
func (c *Client) ListDiscs() ([]fileserver.DiscInfo, error) {
	var discs []fileserver.DiscInfo
	if err := c.get("/api/v1/discs", &discs); err != nil {
		return nil, err
	}
	return discs, nil
}

// Ready returns nil when the server's readiness probe passes.
func (c *Client) Ready() error {
	return c.get("/health/ready", nil)
}
