// Package version compares tool version strings. Manifest versions are
// semantic-version-ish but vendors are sloppy ("1.6", "v3.1.1",
// "2021.04.03"), so comparison is by component, never by literal string.
package version

import (
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// Compare returns -1, 0, or 1 as a is lower than, equal to, or higher
// than b. Valid semver strings (with or without the "v" prefix) compare
// per semver; everything else falls back to numeric-aware component
// comparison.
func Compare(a, b string) int {
	va, vb := normalize(a), normalize(b)
	if semver.IsValid(va) && semver.IsValid(vb) {
		return semver.Compare(va, vb)
	}
	return compareComponents(a, b)
}

func normalize(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

func compareComponents(a, b string) int {
	as := split(a)
	bs := split(b)
	for i := 0; i < len(as) || i < len(bs); i++ {
		// A missing component ranks below any present one: 1.6 < 1.6.1.
		if i >= len(as) {
			return -1
		}
		if i >= len(bs) {
			return 1
		}
		if c := compareComponent(as[i], bs[i]); c != 0 {
			return c
		}
	}
	return 0
}

func split(v string) []string {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	return strings.FieldsFunc(v, func(r rune) bool {
		return r == '.' || r == '-' || r == '_' || r == '+'
	})
}

func compareComponent(a, b string) int {
	an, aerr := strconv.Atoi(a)
	bn, berr := strconv.Atoi(b)
	switch {
	case aerr == nil && berr == nil:
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	case aerr == nil:
		// Numeric components rank above purely textual ones.
		return 1
	case berr == nil:
		return -1
	default:
		return strings.Compare(a, b)
	}
}
