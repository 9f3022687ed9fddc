// Package validation checks user supplied URLs before they reach the fetcher
// or the WebSocket origin check.
package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateURL accepts absolute http and https URLs with a host and without
// user info or a fragment.
func ValidateURL(rawURL string) error {
	if strings.ContainsAny(rawURL, " \t\r\n\\") {
		return fmt.Errorf("URL contains whitespace or backslashes")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	// Only allow http/https schemes to prevent protocol handlers
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %q (only http/https allowed)", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL must have a valid hostname")
	}
	if parsed.User != nil {
		return fmt.Errorf("URL must not carry credentials")
	}
	if parsed.Fragment != "" {
		return fmt.Errorf("URL must not have a fragment")
	}
	return nil
}

// ValidateOrigin accepts a browser origin: scheme and host only, as sent in
// the Origin header. "*" is accepted as the wildcard.
func ValidateOrigin(origin string) error {
	if origin == "*" {
		return nil
	}
	if err := ValidateURL(origin); err != nil {
		return err
	}
	parsed, _ := url.Parse(origin)
	if (parsed.Path != "" && parsed.Path != "/") || parsed.RawQuery != "" {
		return fmt.Errorf("origin must not have a path or query")
	}
	return nil
}
