package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"feedstock/internal/policies"
	"feedstock/internal/ports"
	"feedstock/internal/shared"
	"feedstock/internal/types"
)

type ResolverCore struct {
	Index     ports.ChannelIndexPort
	Policy    ports.PinPolicyPort
	UseSolver bool
}

type ResolveOutcome struct {
	Locks    []types.LockEntry
	Resolved []types.ResolvedRequirement
	Report   types.PinReport
}

func NewResolverCore(index ports.ChannelIndexPort, policy ports.PinPolicyPort) ResolverCore {
	return ResolverCore{
		Index:  index,
		Policy: policy,
	}
}

// Resolve locks every requirement to the best compatible version in the
// channel index. With UseSolver set, conda requirements go through the
// SAT solver, which also selects transitive dependencies from the
// records' depends lists.
func (r ResolverCore) Resolve(ctx context.Context, deps []types.Dependency, directives []types.PinDirective) (ResolveOutcome, error) {
	if r.Index == nil || r.Policy == nil {
		return ResolveOutcome{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("resolver requires channel index and pin policy ports")
	}

	merged := mergeDependencies(deps)
	directiveMap := mapDirectives(directives)

	outcome := ResolveOutcome{
		Report: types.PinReport{Records: []types.PinRecord{}},
	}

	solverDeps := map[string]types.Dependency{}
	solverSections := map[string]types.RequirementSection{}
	for _, dep := range merged {
		pinned, err := r.applyPins(dep)
		if err != nil {
			return ResolveOutcome{}, err
		}
		if r.UseSolver && dep.Type == types.DependencyTypeConda {
			updated, record, err := r.prepareDependency(pinned, directiveMap)
			if err != nil {
				return ResolveOutcome{}, err
			}
			if record.Action != "" {
				outcome.Report.Records = append(outcome.Report.Records, record)
			}
			key := normalizeDirectiveKey(fmt.Sprintf("%s:%s", updated.Type, updated.Name))
			solverDeps[key] = updated
			solverSections[shared.NormalizePackageName(updated.Name)] = updated.Section
			continue
		}

		version, record, err := r.resolveDependency(ctx, pinned, directiveMap)
		if err != nil {
			return ResolveOutcome{}, err
		}
		if record.Action != "" {
			outcome.Report.Records = append(outcome.Report.Records, record)
		}

		outcome.Locks = append(outcome.Locks, types.LockEntry{
			Section: dep.Section,
			Package: lockPackageName(dep),
			Version: version,
		})
		outcome.Resolved = append(outcome.Resolved, types.ResolvedRequirement{
			Type:    dep.Type,
			Section: dep.Section,
			Package: dep.Name,
			Version: version,
		})
	}

	if r.UseSolver && len(solverDeps) > 0 {
		solved, err := resolveWithSolver(ctx, r.Index, mapValues(solverDeps))
		if err != nil {
			return ResolveOutcome{}, err
		}
		for name, version := range solved {
			section, ok := solverSections[shared.NormalizePackageName(name)]
			if !ok {
				// Transitive selection: lands in the run section.
				section = types.RequirementSectionRun
			}
			outcome.Locks = append(outcome.Locks, types.LockEntry{
				Section: section,
				Package: name,
				Version: version,
			})
			outcome.Resolved = append(outcome.Resolved, types.ResolvedRequirement{
				Type:    types.DependencyTypeConda,
				Section: section,
				Package: name,
				Version: version,
			})
		}
	}

	sort.Slice(outcome.Locks, func(i, j int) bool {
		if outcome.Locks[i].Section != outcome.Locks[j].Section {
			return outcome.Locks[i].Section < outcome.Locks[j].Section
		}
		return outcome.Locks[i].Package < outcome.Locks[j].Package
	})

	log.Ctx(ctx).Debug().Int("resolved", len(outcome.Locks)).Msg("resolver completed")
	return outcome, nil
}

func (r ResolverCore) applyPins(dep types.Dependency) (types.Dependency, error) {
	pins, err := r.Policy.PinsFor(dep.Section, dep.Name)
	if err != nil {
		return dep, err
	}
	dep.Constraints = append(dep.Constraints, pins...)
	return dep, nil
}

func (r ResolverCore) prepareDependency(dep types.Dependency, directiveMap map[string]types.PinDirective) (types.Dependency, types.PinRecord, error) {
	directive, ok := directiveFor(dep, directiveMap)
	if !ok {
		return dep, types.PinRecord{}, nil
	}
	updated, record, err := policies.ApplyDirective(dep, directive)
	if err != nil {
		return types.Dependency{}, record, err
	}
	return updated, record, nil
}

func (r ResolverCore) resolveDependency(ctx context.Context, dep types.Dependency, directiveMap map[string]types.PinDirective) (string, types.PinRecord, error) {
	available, err := r.Index.AvailableVersions(dep.Type, dep.Name)
	if err != nil {
		return "", types.PinRecord{}, err
	}
	version, err := bestCompatibleVersion(dep, available)
	if err == nil {
		return version, types.PinRecord{}, nil
	}

	directive, ok := directiveFor(dep, directiveMap)
	if !ok {
		return "", types.PinRecord{}, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("conflict without resolution directive: %s", dep.Name)).
			WithCause(err)
	}

	updated, record, err := policies.ApplyDirective(dep, directive)
	if err != nil {
		return "", types.PinRecord{}, err
	}

	available, err = r.Index.AvailableVersions(updated.Type, updated.Name)
	if err != nil {
		return "", types.PinRecord{}, err
	}
	version, err = bestCompatibleVersion(updated, available)
	if err != nil {
		return "", types.PinRecord{}, err
	}
	log.Ctx(ctx).Debug().Str("dependency", dep.Name).Msg("pin directive applied")
	return version, record, nil
}

func mergeDependencies(deps []types.Dependency) []types.Dependency {
	type key struct {
		depType types.DependencyType
		section types.RequirementSection
		name    string
	}
	merged := map[key]types.Dependency{}
	var order []key
	for _, dep := range deps {
		k := key{depType: dep.Type, section: dep.Section, name: shared.NormalizePackageName(dep.Name)}
		existing, ok := merged[k]
		if !ok {
			merged[k] = dep
			order = append(order, k)
			continue
		}
		existing.Constraints = append(existing.Constraints, dep.Constraints...)
		merged[k] = existing
	}
	var out []types.Dependency
	for _, k := range order {
		dep := merged[k]
		dep.Constraints = filterConstraintsByPriority(dep.Constraints)
		out = append(out, dep)
	}
	return out
}

func mapDirectives(directives []types.PinDirective) map[string]types.PinDirective {
	mapped := map[string]types.PinDirective{}
	for _, directive := range directives {
		if directive.Dependency == "" {
			continue
		}
		mapped[normalizeDirectiveKey(directive.Dependency)] = directive
	}
	return mapped
}

func directiveFor(dep types.Dependency, directives map[string]types.PinDirective) (types.PinDirective, bool) {
	key := normalizeDirectiveKey(fmt.Sprintf("%s:%s", dep.Type, dep.Name))
	directive, ok := directives[key]
	return directive, ok
}

// filterConstraintsByPriority keeps only the constraints contributed by
// the highest-priority source: the recipe outranks its variants, which
// outrank a requirements file. Bare name references yield to any hard
// constraint at the winning level.
func filterConstraintsByPriority(constraints []types.Constraint) []types.Constraint {
	if len(constraints) == 0 {
		return constraints
	}
	maxPriority := -1
	for _, constraint := range constraints {
		priority := constraintPriority(constraint.Source)
		if priority > maxPriority {
			maxPriority = priority
		}
	}
	if maxPriority < 0 {
		return constraints
	}
	var top []types.Constraint
	for _, constraint := range constraints {
		if constraintPriority(constraint.Source) == maxPriority {
			top = append(top, constraint)
		}
	}
	hasHard := false
	for _, constraint := range top {
		if constraint.Op != types.ConstraintOpNone {
			hasHard = true
			break
		}
	}
	if hasHard {
		var hard []types.Constraint
		for _, constraint := range top {
			if constraint.Op != types.ConstraintOpNone {
				hard = append(hard, constraint)
			}
		}
		return hard
	}
	var fallback []types.Constraint
	for _, constraint := range constraints {
		if constraint.Op == types.ConstraintOpNone {
			continue
		}
		fallback = append(fallback, constraint)
	}
	return fallback
}

func normalizeDirectiveKey(value string) string {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return value
	}
	depType := strings.ToLower(strings.TrimSpace(parts[0]))
	name := shared.NormalizePackageName(parts[1])
	return fmt.Sprintf("%s:%s", depType, name)
}

func lockPackageName(dep types.Dependency) string {
	if dep.Type == types.DependencyTypePip {
		return shared.NormalizePackageName(dep.Name)
	}
	return dep.Name
}

func mapValues(values map[string]types.Dependency) []types.Dependency {
	out := make([]types.Dependency, 0, len(values))
	for _, dep := range values {
		out = append(out, dep)
	}
	return out
}

func constraintPriority(source string) int {
	normalized := strings.ToLower(strings.TrimSpace(source))
	switch {
	case strings.HasPrefix(normalized, "recipe:"):
		return 3
	case strings.HasPrefix(normalized, "variant:"):
		return 2
	case strings.HasPrefix(normalized, "requirements_file:"):
		return 1
	default:
		return 0
	}
}
