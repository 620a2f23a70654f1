package core

import (
	"fmt"
)

// Version is a PDF version such as 1.7
type Version struct {
	Major int
	Minor int
}

var (
	Version14 = Version{1, 4}
	// Version15 is the first version with cross-reference streams and
	// object streams.
	Version15 = Version{1, 5}
	Version17 = Version{1, 7}
)

// String returns the version in header form (e.g., "1.7")
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Less reports whether v is older than o.
func (v Version) Less(o Version) bool {
	if v.Major != o.Major {
		return v.Major < o.Major
	}
	return v.Minor < o.Minor
}

// ParseVersion parses "M.m" as found after "%PDF-".
func ParseVersion(s string) (Version, error) {
	var v Version
	if len(s) != 3 || s[1] != '.' || !isDigit(s[0]) || !isDigit(s[2]) {
		return v, NewError(CodeInvalidDataType, "invalid version %q", s)
	}
	v.Major = int(s[0] - '0')
	v.Minor = int(s[2] - '0')
	return v, nil
}
