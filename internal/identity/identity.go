package identity

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/shoplens/shoplens/models"
)

// Platform names used as the first component of every ProductKey.
const (
	PlatformAmazon   = "amazon"
	PlatformFlipkart = "flipkart"
)

var (
	amazonPathPatterns = []*regexp.Regexp{
		regexp.MustCompile(`/dp/([A-Z0-9]{8,10})`),
		regexp.MustCompile(`/gp/product/([A-Z0-9]{8,10})`),
		regexp.MustCompile(`/ASIN/([A-Z0-9]{8,10})`),
	}
	flipkartPIDPattern  = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	flipkartPathPattern = regexp.MustCompile(`/p/itm([A-Za-z0-9]+)`)

	// subdomains of an amazon domain, never amazon as a subdomain of
	// something else
	amazonHostPattern = regexp.MustCompile(`^(?:[a-z0-9-]+\.)*amazon\.(?:com|in|co\.[a-z]{2}|com\.[a-z]{2}|[a-z]{2})$`)
)

// Resolve derives the stable ProductKey for a product URL. It is a pure
// function: query-string decoration (ref tags, tracking params) never changes
// the result, and the same URL always resolves to the same key. URLs that do
// not match a known platform's address shape fail with models.ErrInvalidURL.
func Resolve(raw string) (models.ProductKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.ProductKey{}, fmt.Errorf("empty url: %w", models.ErrInvalidURL)
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return models.ProductKey{}, fmt.Errorf("unparseable url %q: %w", raw, models.ErrInvalidURL)
	}
	host := strings.ToLower(parsed.Host)

	switch {
	case isAmazonHost(host):
		if id := amazonASIN(parsed.Path); id != "" {
			return models.ProductKey{Platform: PlatformAmazon, ID: id}, nil
		}
	case isFlipkartHost(host):
		if id := flipkartID(parsed); id != "" {
			return models.ProductKey{Platform: PlatformFlipkart, ID: id}, nil
		}
	}
	return models.ProductKey{}, fmt.Errorf("no product id in url %q: %w", raw, models.ErrInvalidURL)
}

// Supported reports whether a URL resolves to a known platform.
func Supported(raw string) bool {
	_, err := Resolve(raw)
	return err == nil
}

// SupportedPlatforms lists the platforms the resolver recognises.
func SupportedPlatforms() []string {
	return []string{PlatformAmazon, PlatformFlipkart}
}

func isAmazonHost(host string) bool {
	return amazonHostPattern.MatchString(host)
}

func isFlipkartHost(host string) bool {
	return host == "flipkart.com" || strings.HasSuffix(host, ".flipkart.com")
}

// amazonASIN extracts the canonical ASIN from the URL path. ASINs live in the
// path, never in query parameters, so tracking decoration cannot leak in.
func amazonASIN(path string) string {
	for _, p := range amazonPathPatterns {
		if m := p.FindStringSubmatch(path); m != nil {
			return m[1]
		}
	}
	return ""
}

// flipkartID extracts the FSN. Flipkart URLs carry it either as the pid query
// parameter or embedded in the /p/itm<FSN> path segment.
func flipkartID(u *url.URL) string {
	if pid := u.Query().Get("pid"); pid != "" && flipkartPIDPattern.MatchString(pid) {
		return strings.ToUpper(pid)
	}
	if m := flipkartPathPattern.FindStringSubmatch(u.Path); m != nil {
		return strings.ToUpper(m[1])
	}
	return ""
}
