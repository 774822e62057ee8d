package plugin

import (
	"fmt"
	"strconv"
	"strings"
)

// VersionConstraint restricts acceptable plugin versions to a single major version.
type VersionConstraint struct {
	MajorVersion int
}

// ParseVersionConstraint parses a string in the form "N.x" into a VersionConstraint.
func ParseVersionConstraint(s string) (*VersionConstraint, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, fmt.Errorf("version constraint string is empty")
	}

	parts := strings.Split(trimmed, ".")
	if len(parts) != 2 || parts[1] != "x" {
		return nil, fmt.Errorf("invalid version constraint '%s' (expected format: N.x)", s)
	}

	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid major version in constraint '%s'", s)
	}
	if major < 0 {
		return nil, fmt.Errorf("major version must be non-negative in constraint '%s'", s)
	}

	return &VersionConstraint{MajorVersion: major}, nil
}

// MustParseVersionConstraint panics if the constraint cannot be parsed.
func MustParseVersionConstraint(s string) *VersionConstraint {
	vc, err := ParseVersionConstraint(s)
	if err != nil {
		panic(err)
	}
	return vc
}

// Satisfies reports whether version has the constrained major version. A nil
// constraint accepts anything.
func (vc *VersionConstraint) Satisfies(version string) bool {
	if vc == nil {
		return true
	}
	major, ok := parseMajor(version)
	if !ok {
		return false
	}
	return major == vc.MajorVersion
}

func parseMajor(version string) (int, bool) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(version), "v")
	if trimmed == "" {
		return 0, false
	}
	major, err := strconv.Atoi(strings.SplitN(trimmed, ".", 2)[0])
	if err != nil {
		return 0, false
	}
	return major, true
}

// String returns the canonical representation of the constraint.
func (vc *VersionConstraint) String() string {
	if vc == nil {
		return ""
	}
	return fmt.Sprintf("%d.x", vc.MajorVersion)
}

// Dependency is one entry of plugin_dependencies: a plugin name with an
// optional "@N.x" major version constraint.
type Dependency struct {
	Name       string
	Constraint *VersionConstraint
}

// ParseDependency parses "name" or "name@N.x".
func ParseDependency(s string) (Dependency, error) {
	name, constraint, found := strings.Cut(strings.TrimSpace(s), "@")
	name = strings.TrimSpace(name)
	if name == "" {
		return Dependency{}, fmt.Errorf("dependency '%s' has no plugin name", s)
	}
	if !found {
		return Dependency{Name: name}, nil
	}

	vc, err := ParseVersionConstraint(constraint)
	if err != nil {
		return Dependency{}, fmt.Errorf("dependency '%s': %w", s, err)
	}
	return Dependency{Name: name, Constraint: vc}, nil
}

func (d Dependency) String() string {
	if d.Constraint == nil {
		return d.Name
	}
	return d.Name + "@" + d.Constraint.String()
}
