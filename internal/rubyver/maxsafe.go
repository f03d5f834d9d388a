package rubyver

import "github.com/hashicorp/go-version"

// maxSafeRule pairs a framework version range with the highest ruby known to be safe for
// it. Rules are ordered; the first matching range wins.
type maxSafeRule struct {
	frameworks string
	ruby       string
}

var maxSafeRules = []maxSafeRule{
	{"< 7.1", "3.2"},
	{"< 7.3", "3.3"},
	{"< 8.1", "3.4"},
}

// MaxSafeRuby returns the highest officially supported ruby for the given framework
// version, or nil when the framework version is unknown or no range matches
// (unconstrained).
func MaxSafeRuby(framework *version.Version) *version.Version {
	if framework == nil {
		return nil
	}

	for _, rule := range maxSafeRules {
		constraint, err := version.NewConstraint(rule.frameworks)
		if err != nil {
			continue
		}

		if constraint.Check(framework) {
			return version.Must(version.NewVersion(rule.ruby))
		}
	}

	return nil
}
