package types

type DependencyType string

const (
	DependencyTypeConda DependencyType = "conda"
	DependencyTypePip   DependencyType = "pip"
)

type RequirementSection string

const (
	RequirementSectionHost RequirementSection = "host"
	RequirementSectionRun  RequirementSection = "run"
	RequirementSectionTest RequirementSection = "test"
)

type RecipeKind string

const (
	RecipeKindRecipe  RecipeKind = "recipe"
	RecipeKindVariant RecipeKind = "variant"
)

type NoarchType string

const (
	NoarchTypeNone    NoarchType = ""
	NoarchTypePython  NoarchType = "python"
	NoarchTypeGeneric NoarchType = "generic"
)

type ConstraintOp string

const (
	ConstraintOpNone   ConstraintOp = ""
	ConstraintOpEq     ConstraintOp = "="
	ConstraintOpEq2    ConstraintOp = "=="
	ConstraintOpNe     ConstraintOp = "!="
	ConstraintOpCompat ConstraintOp = "~="
	ConstraintOpGte    ConstraintOp = ">="
	ConstraintOpLte    ConstraintOp = "<="
	ConstraintOpGt     ConstraintOp = ">"
	ConstraintOpLt     ConstraintOp = "<"
)
