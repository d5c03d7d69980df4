package iplookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultEchoURL = "https://api64.ipify.org?format=json"
	DefaultTimeout = 3 * time.Second
	UserAgent      = "hearth-household-verifier"

	maxBodyBytes = 1024
)

// Client asks a public IP echo service which address our requests come from.
type Client struct {
	httpClient *http.Client
	logger     *logrus.Logger
	userAgent  string
	url        string
}

// NewClient creates an echo client. A zero timeout uses DefaultTimeout; lookups are
// meant to fail fast rather than hold up a verification.
func NewClient(logger *logrus.Logger, url string, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultEchoURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:    logger,
		userAgent: UserAgent,
		url:       url,
	}
}

// Lookup returns the public address reported by the echo service. Both
// {"ip": "..."} JSON bodies and plain text bodies are accepted.
func (c *Client) Lookup(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, text/plain")

	c.logger.WithField("url", c.url).Debug("looking up public ip")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request to ip echo service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ip echo service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	return parseEchoBody(body)
}

func parseEchoBody(body []byte) (string, error) {
	text := strings.TrimSpace(string(body))

	if strings.HasPrefix(text, "{") {
		var payload struct {
			IP string `json:"ip"`
		}
		if err := json.Unmarshal([]byte(text), &payload); err != nil {
			return "", fmt.Errorf("malformed ip echo response: %w", err)
		}
		text = strings.TrimSpace(payload.IP)
	}

	ip := net.ParseIP(text)
	if ip == nil {
		return "", fmt.Errorf("ip echo service returned an invalid address: %q", text)
	}

	return ip.String(), nil
}

// Close drops idle keep-alive connections to the echo service.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
