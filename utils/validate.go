package utils

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidateItemURL checks that a submitted URL is fetchable by the pipeline.
// Only public http(s) URLs are accepted; loopback and private targets are
// rejected so the fetcher cannot be pointed at internal services.
func ValidateItemURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("url is required")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("url is not parseable: %v", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("url has no host")
	}

	host := parsed.Hostname()
	if strings.EqualFold(host, "localhost") {
		return fmt.Errorf("url targets a local address")
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			return fmt.Errorf("url targets a private or local address")
		}
	}

	return nil
}
