package targeting

import (
	"strconv"
	"strings"
)

// versionComponents parses up to three dot-separated integer components,
// filling missing ones with zero. A non-integer component invalidates the
// whole version.
func versionComponents(version string) (major, minor, patch int, ok bool) {
	components := [3]int{}
	parts := strings.Split(version, ".")
	for i := 0; i < len(components) && i < len(parts); i++ {
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return 0, 0, 0, false
		}
		components[i] = n
	}
	return components[0], components[1], components[2], true
}

// floatVersion collapses a version to a "major.minor" float for ordered
// comparison.
func floatVersion(version string) (float64, bool) {
	major, minor, _, ok := versionComponents(version)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(strconv.Itoa(major)+"."+strconv.Itoa(minor), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
