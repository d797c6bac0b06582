package resolve

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/git-lfs/go-netrc/netrc"

	"github.com/depfix-cli/depfix/internal/manifest"
)

const (
	// DefaultServiceURL is the analysis service endpoint.
	DefaultServiceURL = "https://api.depfix.dev"

	analyzePath = "/v1/analyze"
)

// Client talks to the dependency-analysis service.
type Client struct {
	// BaseURL is the service root, without a trailing slash.
	BaseURL string
	// Token authenticates requests; empty means anonymous.
	Token string
	// HTTPClient is the underlying client.
	HTTPClient *http.Client
	// Verbose enables request diagnostics on stderr.
	Verbose bool
}

// NewClient builds a client from the environment.
// The service URL comes from DEPFIX_SERVICE, the token from DEPFIX_TOKEN
// or, failing that, from the ~/.netrc entry for the service host.
func NewClient() (*Client, error) {
	base := os.Getenv("DEPFIX_SERVICE")
	if base == "" {
		base = DefaultServiceURL
	}

	token := os.Getenv("DEPFIX_TOKEN")
	if token == "" {
		token = netrcToken(base)
	}

	return &Client{
		BaseURL:    base,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// netrcToken looks up a password for the service host in ~/.netrc.
// A missing or unparsable netrc is not an error; the client just runs
// unauthenticated and lets the service reject it.
func netrcToken(base string) string {
	u, err := url.Parse(base)
	if err != nil {
		return ""
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	rc, err := netrc.ParseFile(filepath.Join(home, ".netrc"))
	if err != nil || rc == nil {
		return ""
	}

	if machine := rc.FindMachine(u.Hostname(), ""); machine != nil {
		return machine.Password
	}
	return ""
}

// Analyze posts the sanitized manifest summary and returns the service's
// validated solution.
func (c *Client) Analyze(sum *manifest.Summary) (*Solution, error) {
	body, err := json.Marshal(sum)
	if err != nil {
		return nil, fmt.Errorf("encoding summary: %w", err)
	}

	endpoint := c.BaseURL + analyzePath
	if c.Verbose {
		fmt.Fprintf(os.Stderr, "Requesting analysis from %s\n", endpoint)
	}

	req, err := http.NewRequest("POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting analysis: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("analysis service: %s: %s", resp.Status, bytes.TrimSpace(msg))
	}

	var sol Solution
	if err := json.NewDecoder(resp.Body).Decode(&sol); err != nil {
		return nil, fmt.Errorf("decoding solution: %w", err)
	}

	if err := sol.Validate(); err != nil {
		return nil, fmt.Errorf("invalid solution: %w", err)
	}

	return &sol, nil
}
