package azureopenai

import (
	"fmt"
	"net/url"
	"strings"
)

func normalizeEndpoint(endpoint string) string {
	return strings.TrimRight(strings.TrimSpace(endpoint), "/")
}

// ValidateEndpoint accepts an empty endpoint (backend disabled) or an absolute
// https URL without userinfo, query or fragment.
func ValidateEndpoint(endpoint string) error {
	endpoint = normalizeEndpoint(endpoint)
	if endpoint == "" {
		return nil
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid AZURE_OPENAI_ENDPOINT: %w", err)
	}
	if !u.IsAbs() || u.Hostname() == "" {
		return fmt.Errorf("invalid AZURE_OPENAI_ENDPOINT %q: absolute URL with host is required", endpoint)
	}
	if u.User != nil {
		return fmt.Errorf("invalid AZURE_OPENAI_ENDPOINT %q: userinfo is not allowed", endpoint)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("invalid AZURE_OPENAI_ENDPOINT %q: query and fragment are not allowed", endpoint)
	}
	if strings.ToLower(u.Scheme) != "https" {
		return fmt.Errorf("invalid AZURE_OPENAI_ENDPOINT %q: https is required", endpoint)
	}
	return nil
}
