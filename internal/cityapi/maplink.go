package cityapi

import (
	"regexp"
	"strings"
)

// Platform names a map handler family.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformWeb     Platform = "web"
)

// MapLink holds a native URL per platform plus the web fallback used when a
// native handler is unavailable.
type MapLink struct {
	Native   map[Platform]string
	Fallback string
}

// For returns the native URL for p, or the fallback.
func (l MapLink) For(p Platform) string {
	if u, ok := l.Native[p]; ok && u != "" {
		return u
	}
	return l.Fallback
}

// MapLinks builds map URLs for a coordinate pair.
func MapLinks(c Coordinates) (MapLink, error) {
	if err := c.Validate(); err != nil {
		return MapLink{}, err
	}
	query := c.String()
	fallback := "https://www.google.com/maps/search/?api=1&query=" + query
	return MapLink{
		Native: map[Platform]string{
			PlatformIOS:     "maps://?q=" + query + "&ll=" + query,
			PlatformAndroid: "geo:" + query,
			PlatformWeb:     fallback,
		},
		Fallback: fallback,
	}, nil
}

var schemeURL = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+\-.]*://`)

var bareSchemes = []string{"geo:", "tel:", "sms:", "intent:"}

// IsOpenableURL reports whether u carries a scheme a link handler can open.
func IsOpenableURL(u string) bool {
	if strings.TrimSpace(u) == "" {
		return false
	}
	if schemeURL.MatchString(u) {
		return true
	}
	for _, prefix := range bareSchemes {
		if strings.HasPrefix(u, prefix) {
			return true
		}
	}
	return false
}
