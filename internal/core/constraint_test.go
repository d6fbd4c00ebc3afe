package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"feedstock/internal/types"
)

func TestParseConstraint(t *testing.T) {
	tests := []struct {
		raw     string
		op      types.ConstraintOp
		name    string
		version string
	}{
		{"numpy=1.21.0", types.ConstraintOpEq, "numpy", "1.21.0"},
		{"numpy==1.21.0", types.ConstraintOpEq2, "numpy", "1.21.0"},
		{"numpy>=1.21.0", types.ConstraintOpGte, "numpy", "1.21.0"},
		{"numpy<=1.21.0", types.ConstraintOpLte, "numpy", "1.21.0"},
		{"numpy>1.21.0", types.ConstraintOpGt, "numpy", "1.21.0"},
		{"numpy<1.21.0", types.ConstraintOpLt, "numpy", "1.21.0"},
		{"numpy!=1.21.0", types.ConstraintOpNe, "numpy", "1.21.0"},
		{"numpy~=1.21.0", types.ConstraintOpCompat, "numpy", "1.21.0"},
		{"numpy", types.ConstraintOpNone, "numpy", ""},
	}

	for _, tt := range tests {
		constraint, err := ParseConstraint(tt.raw, "test")
		require.NoError(t, err)
		if diff := cmp.Diff(tt.op, constraint.Op); diff != "" {
			t.Fatalf("unexpected op (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(tt.name, constraint.Name); diff != "" {
			t.Fatalf("unexpected name (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(tt.version, constraint.Version); diff != "" {
			t.Fatalf("unexpected version (-want +got):\n%s", diff)
		}
	}
}

func TestParseConstraintRejectsEmpty(t *testing.T) {
	_, err := ParseConstraint("", "test")
	require.Error(t, err)

	_, err = ParseConstraint(">=1.0", "test")
	require.Error(t, err)
}

func TestParseRequirementBareName(t *testing.T) {
	dep, err := ParseRequirement("setuptools", types.DependencyTypeConda, types.RequirementSectionHost, "recipe:host")
	require.NoError(t, err)
	require.Equal(t, "setuptools", dep.Name)
	require.Empty(t, dep.Constraints)
}

func TestParseRequirementCommaSpecifiers(t *testing.T) {
	dep, err := ParseRequirement("python >=3.8,<3.12", types.DependencyTypeConda, types.RequirementSectionRun, "recipe:run")
	require.NoError(t, err)
	require.Equal(t, "python", dep.Name)
	require.Len(t, dep.Constraints, 2)
	if diff := cmp.Diff(types.ConstraintOpGte, dep.Constraints[0].Op); diff != "" {
		t.Fatalf("unexpected first op (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(types.ConstraintOpLt, dep.Constraints[1].Op); diff != "" {
		t.Fatalf("unexpected second op (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("3.12", dep.Constraints[1].Version); diff != "" {
		t.Fatalf("unexpected second version (-want +got):\n%s", diff)
	}
}

func TestParseRequirementWithoutSpaceSeparator(t *testing.T) {
	dep, err := ParseRequirement("six>=1.12.0", types.DependencyTypePip, types.RequirementSectionTest, "requirements_file:ci.txt")
	require.NoError(t, err)
	require.Equal(t, "six", dep.Name)
	require.Len(t, dep.Constraints, 1)
	require.Equal(t, "1.12.0", dep.Constraints[0].Version)
}

func TestParseRequirementRejectsSpecifierWithoutOperator(t *testing.T) {
	_, err := ParseRequirement("python @weird", types.DependencyTypeConda, types.RequirementSectionRun, "recipe:run")
	require.Error(t, err)
}
