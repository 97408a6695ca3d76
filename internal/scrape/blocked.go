package scrape

import (
	"bytes"
	"net/http"
	"strings"
)

// Blocked reports whether a fetch result looks like a bot-protection
// challenge or block page rather than real content, and names the suspected
// vendor. Challenge pages read as plausible HTML, so they must be rejected
// before text extraction or they poison the analysis.
func Blocked(res *FetchResult) (bool, string) {
	if res == nil {
		return false, ""
	}
	if res.StatusCode != http.StatusForbidden && res.StatusCode != http.StatusServiceUnavailable &&
		res.StatusCode != http.StatusTooManyRequests {
		return false, ""
	}

	server := strings.ToLower(res.Headers.Get("Server"))
	switch {
	case strings.Contains(server, "cloudflare"),
		bytes.Contains(res.Body, []byte("cf-browser-verification")),
		bytes.Contains(res.Body, []byte("cf-turnstile")),
		bytes.Contains(res.Body, []byte("Attention Required! | Cloudflare")):
		return true, "Cloudflare"
	case strings.Contains(server, "akamai"),
		bytes.Contains(res.Body, []byte("Reference #")) && bytes.Contains(res.Body, []byte("Access Denied")):
		return true, "Akamai"
	case strings.Contains(server, "datadome"),
		res.Headers.Get("X-DataDome") != "",
		bytes.Contains(res.Body, []byte("geo.captcha-delivery.com")):
		return true, "DataDome"
	case res.Headers.Get("X-Px-Captcha") != "",
		bytes.Contains(res.Body, []byte("client.perimeterx.net")),
		bytes.Contains(res.Body, []byte("px-captcha")):
		return true, "PerimeterX"
	}

	// Unattributed 403/503/429 still means we did not get content.
	return true, "unknown"
}
