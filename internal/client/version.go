package client

import (
	"fmt"
	"regexp"
	"strconv"
)

// Version is the four-part client version embedded in the executable,
// e.g. 10.2.5.53584. Build is the part private-server CDNs key off of.
type Version struct {
	Major int
	Minor int
	Patch int
	Build int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Patch, v.Build)
}

// Client executables carry their version as a plain dotted string; builds
// are 5-6 digit numbers, which keeps this from matching stray IP addresses.
var versionPattern = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{1,2})\.(\d{5,6})`)

// ExtractVersion scans the executable bytes for the first embedded version
// string. Returns false when no version can be found, in which case callers
// fall back to URLs without a pinned build.
func ExtractVersion(data []byte) (Version, bool) {
	m := versionPattern.FindSubmatch(data)
	if m == nil {
		return Version{}, false
	}

	var parts [4]int
	for i := 0; i < 4; i++ {
		n, err := strconv.Atoi(string(m[i+1]))
		if err != nil {
			return Version{}, false
		}
		parts[i] = n
	}

	return Version{Major: parts[0], Minor: parts[1], Patch: parts[2], Build: parts[3]}, true
}
