package core

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"feedstock/internal/types"
)

// opTokens is the ordered list of constraint operators tried during
// parsing. Longer tokens must precede shorter ones to avoid false matches
// (e.g. ">=" before ">").
var opTokens = []types.ConstraintOp{
	types.ConstraintOpGte,
	types.ConstraintOpLte,
	types.ConstraintOpCompat,
	types.ConstraintOpNe,
	types.ConstraintOpEq2,
	types.ConstraintOpEq,
	types.ConstraintOpGt,
	types.ConstraintOpLt,
}

// ParseConstraint splits a raw "name>=version" string into a Constraint.
// When no operator is found the constraint is treated as a bare name
// reference with ConstraintOpNone.
func ParseConstraint(raw string, source string) (types.Constraint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return types.Constraint{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("empty constraint")
	}
	for _, op := range opTokens {
		if strings.Contains(raw, string(op)) {
			parts := strings.SplitN(raw, string(op), 2)
			name := strings.TrimSpace(parts[0])
			version := strings.TrimSpace(parts[1])
			if name == "" || version == "" {
				return types.Constraint{}, errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg(fmt.Sprintf("invalid constraint: %s", raw))
			}
			return types.Constraint{
				Name:    name,
				Op:      op,
				Version: version,
				Source:  source,
			}, nil
		}
	}
	return types.Constraint{
		Name:    raw,
		Op:      types.ConstraintOpNone,
		Version: "",
		Source:  source,
	}, nil
}

// ParseRequirement parses one recipe requirement entry into a typed
// dependency. Entries follow the match-spec form "name", "name >=1.2",
// or "name >=1.2,<2" where comma separates additional specifiers that
// all apply to the same name.
func ParseRequirement(raw string, depType types.DependencyType, section types.RequirementSection, source string) (types.Dependency, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return types.Dependency{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("empty requirement")
	}
	name, spec := splitRequirement(raw)
	if name == "" {
		return types.Dependency{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid requirement: %s", raw))
	}
	dep := types.Dependency{
		Name:    name,
		Type:    depType,
		Section: section,
	}
	if spec == "" {
		return dep, nil
	}
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		constraint, err := ParseConstraint(name+part, source)
		if err != nil {
			return types.Dependency{}, err
		}
		if constraint.Op == types.ConstraintOpNone {
			return types.Dependency{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("requirement specifier missing operator: %s", raw))
		}
		dep.Constraints = append(dep.Constraints, constraint)
	}
	return dep, nil
}

// splitRequirement separates the package name from its specifier list.
// The name is the leading run of name characters; everything after it
// (specifiers, with or without a separating space) is returned verbatim.
func splitRequirement(raw string) (string, string) {
	for i, r := range raw {
		if isNameRune(r) {
			continue
		}
		return strings.TrimSpace(raw[:i]), strings.TrimSpace(raw[i:])
	}
	return raw, ""
}

func isNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_' || r == '.':
		return true
	default:
		return false
	}
}
