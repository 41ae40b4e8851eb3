package keypath

import (
	"fmt"
	"regexp"
	"strings"
)

// segmentRegex matches a single branch name.
var segmentRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Path is the parsed form of a dot-separated key path.
type Path []string

// isValidSegmentName checks for undesirable but technically valid names.
func isValidSegmentName(name string) bool {
	return name != "-"
}

// Parse creates a Path from its canonical string representation.
func Parse(raw string) (Path, error) {
	if raw == "" {
		return nil, fmt.Errorf("key path cannot be empty")
	}

	var p Path
	for _, segment := range strings.Split(raw, ".") {
		if segment == "" {
			return nil, fmt.Errorf("key path %q contains empty segment", raw)
		}
		if !segmentRegex.MatchString(segment) || !isValidSegmentName(segment) {
			return nil, fmt.Errorf("invalid key path segment %q in %q", segment, raw)
		}
		p = append(p, segment)
	}
	return p, nil
}

// MustParse is like Parse but panics on error. Intended for constants.
func MustParse(raw string) Path {
	p, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// String serializes the path into its canonical representation.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// Equal reports whether both paths address the same branch.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Child returns a new path with name appended.
func (p Path) Child(name string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, name)
}

// Parent returns the path without its last segment. The parent of a single
// segment path is empty.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1]
}

// Last returns the final segment, or "" for an empty path.
func (p Path) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}
