package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	pep440 "github.com/aquasecurity/go-pep440-version"
	debversion "github.com/knqyf263/go-deb-version"

	"feedstock/internal/types"
)

// preparedConstraint is a pre-parsed version constraint ready for
// repeated comparison. PEP 440 specifiers are preferred; constraints
// whose version is not valid PEP 440 fall back to Debian-style
// comparison, which gives a total order over arbitrary version strings
// (openssl-style "1.1.1t" and friends).
type preparedConstraint struct {
	op     types.ConstraintOp
	pep    pep440.Specifiers
	deb    debversion.Version
	usePep bool
}

// versionCache memoizes parsed version objects to avoid repeated parsing
// during constraint evaluation and sorting.
type versionCache struct {
	pep  map[string]pep440.Version
	deb  map[string]debversion.Version
	spec map[string]pep440.Specifiers
}

func newVersionCache() *versionCache {
	return &versionCache{
		pep:  map[string]pep440.Version{},
		deb:  map[string]debversion.Version{},
		spec: map[string]pep440.Specifiers{},
	}
}

// pepVersion returns a parsed PEP 440 version, caching the result.
func (c *versionCache) pepVersion(value string) (pep440.Version, error) {
	if parsed, ok := c.pep[value]; ok {
		return parsed, nil
	}
	parsed, err := pep440.Parse(value)
	if err != nil {
		return pep440.Version{}, err
	}
	c.pep[value] = parsed
	return parsed, nil
}

// debVersion returns a parsed Debian version, caching the result.
func (c *versionCache) debVersion(value string) (debversion.Version, error) {
	if parsed, ok := c.deb[value]; ok {
		return parsed, nil
	}
	parsed, err := debversion.NewVersion(value)
	if err != nil {
		return debversion.Version{}, err
	}
	c.deb[value] = parsed
	return parsed, nil
}

// pepSpec returns parsed PEP 440 specifiers, caching the result.
func (c *versionCache) pepSpec(value string) (pep440.Specifiers, error) {
	if parsed, ok := c.spec[value]; ok {
		return parsed, nil
	}
	parsed, err := pep440.NewSpecifiers(value)
	if err != nil {
		return pep440.Specifiers{}, err
	}
	c.spec[value] = parsed
	return parsed, nil
}

// compare returns -1, 0, or 1 comparing two version strings. PEP 440
// semantics apply when both sides parse; otherwise both sides are
// compared as Debian versions. Returns 0 on parse errors.
func (c *versionCache) compare(a string, b string) int {
	v1, err1 := c.pepVersion(a)
	v2, err2 := c.pepVersion(b)
	if err1 == nil && err2 == nil {
		return v1.Compare(v2)
	}
	d1, err1 := c.debVersion(a)
	d2, err2 := c.debVersion(b)
	if err1 != nil || err2 != nil {
		return 0
	}
	return d1.Compare(d2)
}

// bestCompatibleVersion selects the highest version from available that
// satisfies all of the dependency's constraints. Returns an error if
// no compatible version exists.
func bestCompatibleVersion(dep types.Dependency, available []string) (string, error) {
	if len(available) == 0 {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("no available versions for %s", dep.Name))
	}
	cache := newVersionCache()
	parsedConstraints, err := prepareConstraints(dep.Constraints, cache)
	if err != nil {
		return "", err
	}
	var candidates []string
	for _, version := range available {
		ok, err := satisfiesAll(version, parsedConstraints, cache)
		if err != nil {
			return "", err
		}
		if ok {
			candidates = append(candidates, version)
		}
	}
	if len(candidates) == 0 {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("no compatible version for %s", dep.Name))
	}
	sort.Slice(candidates, func(i, j int) bool {
		return cache.compare(candidates[i], candidates[j]) > 0
	})
	return candidates[0], nil
}

// prepareConstraints parses each constraint's version string upfront so
// it can be reused across multiple candidate comparisons.
func prepareConstraints(constraints []types.Constraint, cache *versionCache) ([]preparedConstraint, error) {
	var out []preparedConstraint
	for _, constraint := range constraints {
		if constraint.Op == types.ConstraintOpNone {
			continue
		}
		if _, err := cache.pepVersion(constraint.Version); err == nil {
			spec, err := cache.pepSpec(toPep440Spec(constraint))
			if err != nil {
				return nil, err
			}
			out = append(out, preparedConstraint{op: constraint.Op, pep: spec, usePep: true})
			continue
		}
		parsed, err := cache.debVersion(constraint.Version)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("unparseable constraint version: %s", constraint.Version)).
				WithCause(err)
		}
		out = append(out, preparedConstraint{op: constraint.Op, deb: parsed})
	}
	return out, nil
}

// satisfiesAll checks a candidate version against every prepared
// constraint.
func satisfiesAll(version string, constraints []preparedConstraint, cache *versionCache) (bool, error) {
	if len(constraints) == 0 {
		return true, nil
	}
	for _, constraint := range constraints {
		ok, err := satisfiesOne(version, constraint, cache)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func satisfiesOne(version string, constraint preparedConstraint, cache *versionCache) (bool, error) {
	if constraint.usePep {
		parsed, err := cache.pepVersion(version)
		if err != nil {
			// A candidate outside PEP 440 cannot satisfy a PEP 440
			// specifier.
			return false, nil
		}
		return constraint.pep.Check(parsed), nil
	}
	v, err := cache.debVersion(version)
	if err != nil {
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unparseable version: %s", version)).
			WithCause(err)
	}
	c := constraint.deb
	switch constraint.op {
	case types.ConstraintOpEq, types.ConstraintOpEq2:
		return v.Equal(c), nil
	case types.ConstraintOpNe:
		return !v.Equal(c), nil
	case types.ConstraintOpGte:
		return v.GreaterThan(c) || v.Equal(c), nil
	case types.ConstraintOpLte:
		return v.LessThan(c) || v.Equal(c), nil
	case types.ConstraintOpGt:
		return v.GreaterThan(c), nil
	case types.ConstraintOpLt:
		return v.LessThan(c), nil
	default:
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("unsupported constraint operator")
	}
}

// toPep440Spec converts an internal constraint to a PEP 440 specifier
// string (e.g. ">= 1.0", "~= 2.3").
func toPep440Spec(constraint types.Constraint) string {
	op := string(constraint.Op)
	switch constraint.Op {
	case types.ConstraintOpEq, types.ConstraintOpEq2:
		op = "=="
	case types.ConstraintOpNe:
		op = "!="
	case types.ConstraintOpCompat:
		op = "~="
	}
	return strings.TrimSpace(fmt.Sprintf("%s %s", op, constraint.Version))
}

// IsValidVersion reports whether value parses as a PEP 440 version.
func IsValidVersion(value string) bool {
	_, err := pep440.Parse(strings.TrimSpace(value))
	return err == nil
}
