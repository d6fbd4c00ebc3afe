package policies

import (
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"feedstock/internal/ports"
	"feedstock/internal/shared"
	"feedstock/internal/types"
)

// PinPolicy applies channel pins and variant pins to host and run
// requirements. Pins never touch the test section: test tooling floats.
type PinPolicy struct {
	exact  map[string][]types.Constraint
	prefix []prefixPin
}

type prefixPin struct {
	prefix      string
	constraints []types.Constraint
}

// NewPinPolicy compiles channel pin strings ("name>=1.2" or
// "name-prefix*>=1.2") and variant pins (name -> specifier) into a
// lookup table. Variant pins override channel pins per name.
func NewPinPolicy(channelPins []string, variantPins map[string]string) (PinPolicy, error) {
	policy := PinPolicy{exact: map[string][]types.Constraint{}}
	for _, pin := range channelPins {
		if err := policy.addPin(pin, "channel:pin"); err != nil {
			return PinPolicy{}, err
		}
	}
	for name, spec := range variantPins {
		raw := strings.TrimSpace(name) + strings.TrimSpace(spec)
		key := shared.NormalizePackageName(name)
		delete(policy.exact, key)
		if err := policy.addPin(raw, "variant:pin"); err != nil {
			return PinPolicy{}, err
		}
	}
	return policy, nil
}

func (p *PinPolicy) addPin(raw string, source string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if idx := strings.Index(raw, "*"); idx > 0 {
		prefix := shared.NormalizePackageName(raw[:idx])
		rest := strings.TrimSpace(raw[idx+1:])
		constraints, err := parsePinConstraints(prefix+rest, source)
		if err != nil {
			return err
		}
		p.prefix = append(p.prefix, prefixPin{prefix: prefix, constraints: constraints})
		return nil
	}
	constraints, err := parsePinConstraints(raw, source)
	if err != nil {
		return err
	}
	key := shared.NormalizePackageName(constraints[0].Name)
	p.exact[key] = append(p.exact[key], constraints...)
	return nil
}

// PinsFor returns the constraints pinned to a requirement name in the
// given section.
func (p PinPolicy) PinsFor(section types.RequirementSection, name string) ([]types.Constraint, error) {
	if section == types.RequirementSectionTest {
		return nil, nil
	}
	key := shared.NormalizePackageName(name)
	var out []types.Constraint
	if constraints, ok := p.exact[key]; ok {
		out = append(out, renameConstraints(constraints, name)...)
	}
	for _, pin := range p.prefix {
		if strings.HasPrefix(key, pin.prefix) {
			out = append(out, renameConstraints(pin.constraints, name)...)
		}
	}
	return out, nil
}

func renameConstraints(constraints []types.Constraint, name string) []types.Constraint {
	out := make([]types.Constraint, 0, len(constraints))
	for _, constraint := range constraints {
		constraint.Name = name
		out = append(out, constraint)
	}
	return out
}

// pinOpTokens mirrors the constraint operator ordering used by the
// resolver: longer tokens first so ">=" is not read as ">".
var pinOpTokens = []types.ConstraintOp{
	types.ConstraintOpGte,
	types.ConstraintOpLte,
	types.ConstraintOpCompat,
	types.ConstraintOpNe,
	types.ConstraintOpEq2,
	types.ConstraintOpEq,
	types.ConstraintOpGt,
	types.ConstraintOpLt,
}

// parsePinConstraints splits a pin like "python>=3.10,<3.11" into one
// constraint per comma-separated specifier, all sharing the pin's name.
func parsePinConstraints(raw string, source string) ([]types.Constraint, error) {
	name, spec := splitPinName(raw)
	var out []types.Constraint
	if name != "" && spec != "" {
		for _, part := range strings.Split(spec, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			constraint, ok := parsePinClause(name, part, source)
			if !ok {
				out = nil
				break
			}
			out = append(out, constraint)
		}
	}
	if len(out) == 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("pin must carry a version operator: " + raw)
	}
	return out, nil
}

func parsePinClause(name string, clause string, source string) (types.Constraint, bool) {
	for _, op := range pinOpTokens {
		if !strings.HasPrefix(clause, string(op)) {
			continue
		}
		version := strings.TrimSpace(clause[len(op):])
		if version == "" {
			return types.Constraint{}, false
		}
		return types.Constraint{
			Name:    name,
			Op:      op,
			Version: version,
			Source:  source,
		}, true
	}
	return types.Constraint{}, false
}

// splitPinName separates the leading package name from its specifier
// list. Names use the conda match-spec alphabet.
func splitPinName(raw string) (string, string) {
	for i, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return strings.TrimSpace(raw[:i]), strings.TrimSpace(raw[i:])
		}
	}
	return raw, ""
}

var _ ports.PinPolicyPort = PinPolicy{}
