package bridge

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/keilo/waytrack/internal/models"
)

const (
	deepLinkScheme = "app"
	deepLinkHost   = "mapclick"
)

// NavDecision is the bridge's verdict on an outgoing navigation attempt.
type NavDecision struct {
	// Cancel is true when the navigation must not be followed. It is set for
	// every app://mapclick URL regardless of payload validity; those URLs are
	// never dereferenced as network requests.
	Cancel bool
	// Tap carries the decoded destination when both coordinates were present
	// and finite. Malformed payloads leave it nil with Cancel still set.
	Tap *models.GeoPoint
}

// HandleNavigation inspects one outgoing navigation from the map surface.
// Anything that is not a well-formed absolute app://mapclick URI is allowed
// to proceed unmodified.
func (b *Bridge) HandleNavigation(rawURL string) NavDecision {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() {
		return NavDecision{}
	}

	if !strings.EqualFold(u.Scheme, deepLinkScheme) || !strings.EqualFold(u.Host, deepLinkHost) {
		return NavDecision{}
	}

	query := parseQuery(u.RawQuery)

	latText, okLat := query["lat"]
	lngText, okLng := query["lng"]
	if !okLat || !okLng {
		b.tapIgnored(rawURL)
		return NavDecision{Cancel: true}
	}

	lat, okLat := parseFinite(latText)
	lng, okLng := parseFinite(lngText)
	if !okLat || !okLng {
		b.tapIgnored(rawURL)
		return NavDecision{Cancel: true}
	}

	p := models.GeoPoint{Latitude: lat, Longitude: lng}

	if b.metrics != nil {
		b.metrics.BridgeTapDecoded()
	}

	b.mu.RLock()
	fn := b.onTap
	b.mu.RUnlock()
	if fn != nil {
		fn(p)
	}

	return NavDecision{Cancel: true, Tap: &p}
}

// Malformed payloads are ignorable noise, not user-facing errors.
func (b *Bridge) tapIgnored(rawURL string) {
	b.logger.Debug("Ignoring malformed map tap", zap.String("url", rawURL))
	if b.metrics != nil {
		b.metrics.BridgeTapIgnored()
	}
}

// parseQuery builds a case-insensitive key/value map from a raw query string.
// Pairs without '=', or with '=' at the first or last position, are dropped,
// as are pairs that fail percent-decoding. Later duplicates win.
func parseQuery(rawQuery string) map[string]string {
	result := make(map[string]string)

	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}

		idx := strings.Index(pair, "=")
		if idx <= 0 || idx == len(pair)-1 {
			continue
		}

		key, err := url.QueryUnescape(pair[:idx])
		if err != nil {
			continue
		}
		value, err := url.QueryUnescape(pair[idx+1:])
		if err != nil {
			continue
		}

		result[strings.ToLower(key)] = value
	}

	return result
}

func parseFinite(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
