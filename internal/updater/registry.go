package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Registry looks up the latest published version of an npm package.
type Registry struct {
	BaseURL    string
	HTTPClient *http.Client
	Retry      RetryConfig
}

type registryManifest struct {
	Version string `json:"version"`
}

// Latest returns the version tagged latest for pkg. Lookup failures return
// Unknown along with the error.
func (r *Registry) Latest(ctx context.Context, pkg string) (VersionInfo, error) {
	endpoint := strings.TrimRight(r.BaseURL, "/") + "/" + url.PathEscape(pkg) + "/latest"
	client := r.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	var raw string
	err := withRetry(ctx, r.Retry, "registry lookup", func() error {
		v, err := fetchRegistryVersion(ctx, client, endpoint)
		if err != nil {
			return err
		}
		raw = v
		return nil
	})
	if err != nil {
		return Unknown, fmt.Errorf("looking up %s: %w", pkg, err)
	}

	v, err := ParseVersion(raw)
	if err != nil {
		return Unknown, fmt.Errorf("registry returned %w", err)
	}
	return v, nil
}

func fetchRegistryVersion(ctx context.Context, client *http.Client, endpoint string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent())

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", permanent(fmt.Errorf("package not found in registry"))
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("registry returned status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return "", permanent(fmt.Errorf("registry returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading registry response: %w", err)
	}
	var m registryManifest
	if err := json.Unmarshal(body, &m); err != nil {
		return "", permanent(fmt.Errorf("parsing registry response: %w", err))
	}
	if m.Version == "" {
		return "", permanent(fmt.Errorf("registry response has no version"))
	}
	return m.Version, nil
}
