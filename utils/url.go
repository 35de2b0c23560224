package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateMediaURL rejects URL schemes that must never reach a media engine
// (file://, data:, and friends). Empty values and pipe inputs are allowed,
// as is anything http(s).
func ValidateMediaURL(rawURL string) error {
	if rawURL == "" || strings.HasPrefix(rawURL, "pipe:") {
		return nil
	}
	lower := strings.ToLower(rawURL)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return nil
	}
	return fmt.Errorf("unsupported media URL scheme in %q", rawURL)
}

// EncodeURLWithSpaces properly encodes a URL that may contain unencoded spaces.
// Imported catalogs sometimes store video URLs with raw spaces which need to be
// %20 encoded before a media element will fetch them.
func EncodeURLWithSpaces(rawURL string) (string, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	// Build URL with properly encoded path and query
	encoded := parsedURL.Scheme + "://" + parsedURL.Host + parsedURL.EscapedPath()
	if parsedURL.RawQuery != "" {
		// Encode spaces in query string as %20
		encodedQuery := strings.ReplaceAll(parsedURL.RawQuery, " ", "%20")
		encoded += "?" + encodedQuery
	}
	return encoded, nil
}
