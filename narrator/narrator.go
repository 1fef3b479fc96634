// Package narrator posts a finding set to an optional remote text-generation
// endpoint and returns its prose narration. This is the spec's named-but-
// unspecified "optional remote text-generation client" (spec.md §1); the
// reasoner has no knowledge of it, and it is never invoked unless the
// caller explicitly configures an endpoint, the same opt-in shape as the
// teacher's engine.Notifier webhook/Slack/Telegram destinations.
package narrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chrono-triage/dumptriage/model"
)

// Client posts a triage result to a configured endpoint and returns its
// narration.
type Client struct {
	endpoint string
	http     *http.Client
}

// New returns a Client that posts to endpoint. The zero Client (endpoint
// == "") is inert: Narrate returns ("", nil) without making a request.
func New(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Enabled reports whether an endpoint was configured.
func (c *Client) Enabled() bool { return c.endpoint != "" }

type request struct {
	DumpPath string          `json:"dump_path"`
	Findings []model.Finding `json:"findings"`
}

type response struct {
	Narration string `json:"narration"`
}

// Narrate posts findings to the configured endpoint and returns the
// prose narration it responds with. A misconfigured or unreachable
// endpoint is a recoverable condition here, never fatal to the CLI: the
// caller falls back to showing only the structured findings.
func (c *Client) Narrate(ctx context.Context, dumpPath string, findings []model.Finding) (string, error) {
	if !c.Enabled() {
		return "", nil
	}
	if err := validateEndpoint(c.endpoint); err != nil {
		return "", err
	}

	body, err := json.Marshal(request{DumpPath: dumpPath, Findings: findings})
	if err != nil {
		return "", fmt.Errorf("narrator: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("narrator: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("narrator: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("narrator: endpoint returned %s", resp.Status)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("narrator: decode response: %w", err)
	}
	return out.Narration, nil
}

// validateEndpoint mirrors the teacher's webhook guard (engine.AlertConfig
// notifications): http/https only, and no loopback, private, or cloud
// metadata host, since the endpoint comes from a CLI flag a user could
// mistype or a config file they didn't author, and dump findings can
// contain sensitive strings from the inspected process.
func validateEndpoint(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("narrate endpoint is empty")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid narrate endpoint: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("narrate endpoint must use http or https, got %q", scheme)
	}
	host := strings.ToLower(u.Hostname())
	switch host {
	case "localhost", "metadata.google.internal":
		return fmt.Errorf("narrate endpoint host %q is blocked", host)
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsPrivate() {
			return fmt.Errorf("narrate endpoint host %q is blocked", host)
		}
	}
	return nil
}
