package rubyver

import (
	"strings"

	"github.com/hashicorp/go-version"
	"github.com/rubyci/matrixgen/pkg/log"
)

// RequirementSatisfied reports whether the discovered framework version meets the given
// constraint expression. An empty requirement or an unknown framework version always
// satisfies. An unparseable expression is logged as a warning and treated as not
// satisfied; a broken constraint should drop its item, not kill the run.
func RequirementSatisfied(logger log.Logger, requirement string, framework *version.Version) bool {
	requirement = strings.TrimSpace(requirement)
	if requirement == "" || framework == nil {
		return true
	}

	constraint, err := version.NewConstraint(requirement)
	if err != nil {
		logger.Warnf("Ignoring malformed version requirement %q: %s", requirement, err)
		return false
	}

	return constraint.Check(framework)
}
