package trinity

import (
	"fmt"
)

// The Arctium CDN mirrors Blizzard's NGDP metadata for custom servers. The
// %s placeholders are the client's own region/product format arguments and
// must be preserved in replacements.
const (
	arctiumCDNBase = "http://ngdp.arctium.io"

	// DefaultCDNsURL replaces the standalone cdns endpoint.
	DefaultCDNsURL = arctiumCDNBase + "/customs/wow/cdns"
)

// VersionsURL returns the default replacement for the versions endpoint.
// When the client build is known it is pinned into the path so the CDN can
// serve metadata matching the installed client.
func VersionsURL(build int) string {
	if build > 0 {
		return fmt.Sprintf("%s/%%s/%%s/%d/versions", arctiumCDNBase, build)
	}
	return arctiumCDNBase + "/%s/%s/versions"
}

// UnifiedURL returns the default replacement for the unified API endpoint
// used by newer client builds, where the final %s selects versions or cdns
// at runtime.
func UnifiedURL(build int) string {
	if build > 0 {
		return fmt.Sprintf("%s/%%s/%%s/%d/%%s", arctiumCDNBase, build)
	}
	return arctiumCDNBase + "/%s/%s/%s"
}

// URLReplacement lays a URL into a byte slice of exactly slot bytes, padded
// with NULs. The client reads these strings as C strings, so trailing NULs
// are invisible to it. A URL longer than the slot is an error, never a
// truncation: a silently cut URL would send clients somewhere unintended.
func URLReplacement(url string, slot int) ([]byte, error) {
	if len(url) > slot {
		return nil, fmt.Errorf("replacement URL %q is %d bytes but must fit in %d", url, len(url), slot)
	}
	out := make([]byte, slot)
	copy(out, url)
	return out, nil
}
