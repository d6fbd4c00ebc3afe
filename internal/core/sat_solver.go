package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/crillab/gophersat/solver"

	"feedstock/internal/ports"
	"feedstock/internal/shared"
	"feedstock/internal/types"
)

// varKey maps a SAT variable ID back to its package name and version.
type varKey struct {
	Name    string
	Version string
}

// solverState holds all bookkeeping for one SAT solver invocation.
type solverState struct {
	nameToVersionID map[string]map[string]int
	packageVars     map[string][]int
	varMeta         map[int]types.PackageRecord
	varName         map[int]string
	varKeys         map[int]varKey
	cache           *versionCache
	varID           int
	costLits        []solver.Lit
	costWeights     []int
}

// resolveWithSolver uses a SAT solver to select the best compatible set
// of channel packages for the given requirement list, including the
// transitive dependencies declared in each record's depends list.
func resolveWithSolver(ctx context.Context, index ports.ChannelIndexPort, deps []types.Dependency) (map[string]string, error) {
	if len(deps) == 0 {
		return map[string]string{}, nil
	}
	records, err := index.Records()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("solver requires a channel index with package records")
	}

	state := buildSolverState(records)
	if state.varID == 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("solver received no package versions to solve")
	}

	clauses, err := buildSolverClauses(state, deps)
	if err != nil {
		return nil, err
	}

	return solveSAT(ctx, state, clauses)
}

// buildSolverState enumerates every (package, version) pair as a SAT
// variable and builds lookup indexes for candidates. Newer versions get
// lower cost so the optimizer prefers them.
func buildSolverState(records map[string][]types.PackageRecord) solverState {
	s := solverState{
		nameToVersionID: map[string]map[string]int{},
		packageVars:     map[string][]int{},
		varMeta:         map[int]types.PackageRecord{},
		varName:         map[int]string{},
		varKeys:         map[int]varKey{},
		cache:           newVersionCache(),
	}

	names := make([]string, 0, len(records))
	for name := range records {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		normalized := shared.NormalizePackageName(name)
		ordered := sortRecords(records[name], s.cache)
		ids := make([]int, 0, len(ordered))
		for i, record := range ordered {
			if record.Version == "" {
				continue
			}
			s.varID++
			id := s.varID
			if s.nameToVersionID[normalized] == nil {
				s.nameToVersionID[normalized] = map[string]int{}
			}
			s.nameToVersionID[normalized][record.Version] = id
			ids = append(ids, id)
			s.varMeta[id] = record
			s.varName[id] = name
			s.varKeys[id] = varKey{Name: name, Version: record.Version}
			weight := len(ordered) - 1 - i
			s.costLits = append(s.costLits, solver.IntToLit(int32(id))) //nolint:gosec // id is bounded by the number of package versions, well within int32 range
			s.costWeights = append(s.costWeights, weight)
		}
		if len(ids) > 0 {
			s.packageVars[normalized] = ids
		}
	}
	return s
}

// buildSolverClauses generates three kinds of SAT clauses:
//  1. At-most-one: only one version of each package can be selected.
//  2. Root demands: each requested requirement must have at least one candidate.
//  3. Transitive: if a version is selected its depends must be satisfiable.
func buildSolverClauses(s solverState, deps []types.Dependency) ([][]int, error) {
	var clauses [][]int

	for _, ids := range s.packageVars {
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				clauses = append(clauses, []int{-ids[i], -ids[j]})
			}
		}
	}

	for _, dep := range deps {
		if strings.TrimSpace(dep.Name) == "" {
			continue
		}
		candidates, err := candidatesForSpec(s, dep.Name, dep.Constraints)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg(fmt.Sprintf("no channel candidates for %s", dep.Name))
		}
		clauses = append(clauses, candidates)
	}

	transitives, err := buildTransitiveClauses(s)
	if err != nil {
		return nil, err
	}
	clauses = append(clauses, transitives...)
	return clauses, nil
}

// buildTransitiveClauses emits implication clauses for every record's
// depends entries: if variable X is true, at least one candidate
// satisfying its dependency spec must also be true.
func buildTransitiveClauses(s solverState) ([][]int, error) {
	var clauses [][]int
	ids := make([]int, 0, len(s.varMeta))
	for id := range s.varMeta {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		record := s.varMeta[id]
		for _, raw := range record.Depends {
			dep, err := ParseRequirement(raw, types.DependencyTypeConda, types.RequirementSectionRun, "channel:depends")
			if err != nil {
				return nil, err
			}
			candidates, err := candidatesForSpec(s, dep.Name, dep.Constraints)
			if err != nil {
				return nil, err
			}
			if len(candidates) == 0 {
				clauses = append(clauses, []int{-id})
				continue
			}
			clause := append([]int{-id}, candidates...)
			clauses = append(clauses, uniqueInts(clause))
		}
	}
	return clauses, nil
}

// solveSAT feeds the clauses to gophersat's optimization solver, extracts
// the selected (name, version) pairs from the model, and returns them.
func solveSAT(ctx context.Context, s solverState, clauses [][]int) (map[string]string, error) {
	problem := solver.ParseSliceNb(clauses, s.varID)
	problem.SetCostFunc(s.costLits, s.costWeights)
	sat := solver.New(problem)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if cost := sat.Minimize(); cost < 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("solver found no satisfiable selection")
	}
	model := sat.Model()
	selected := map[string]string{}
	for id, key := range s.varKeys {
		if id-1 < 0 || id-1 >= len(model) {
			continue
		}
		if !model[id-1] {
			continue
		}
		selected[key.Name] = key.Version
	}
	if len(selected) == 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("solver produced empty selection")
	}
	return selected, nil
}

// candidatesForSpec returns the SAT variable IDs of all package versions
// that satisfy the given name and constraints.
func candidatesForSpec(s solverState, name string, constraints []types.Constraint) ([]int, error) {
	normalized := shared.NormalizePackageName(name)
	ids, ok := s.packageVars[normalized]
	if !ok {
		return nil, nil
	}
	prepared, err := prepareConstraints(constraints, s.cache)
	if err != nil {
		return nil, err
	}
	var out []int
	for _, id := range ids {
		record := s.varMeta[id]
		ok, err := satisfiesAll(record.Version, prepared, s.cache)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, id)
		}
	}
	return uniqueInts(out), nil
}

// sortRecords returns a new slice sorted by version ascending, build
// number breaking ties. Unparseable versions fall back to lexicographic
// ordering.
func sortRecords(records []types.PackageRecord, cache *versionCache) []types.PackageRecord {
	ordered := append([]types.PackageRecord(nil), records...)
	sort.Slice(ordered, func(i, j int) bool {
		cmp := cache.compare(ordered[i].Version, ordered[j].Version)
		if cmp != 0 {
			return cmp < 0
		}
		if ordered[i].Version != ordered[j].Version {
			return ordered[i].Version < ordered[j].Version
		}
		return ordered[i].BuildNumber < ordered[j].BuildNumber
	})
	return ordered
}

// uniqueInts deduplicates a slice of ints while preserving order.
func uniqueInts(values []int) []int {
	seen := map[int]struct{}{}
	out := make([]int, 0, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
