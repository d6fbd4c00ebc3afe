package ports

import "feedstock/internal/types"

// PinPolicyPort returns the extra constraints a pin policy applies to a
// named requirement in a given section.
type PinPolicyPort interface {
	PinsFor(section types.RequirementSection, name string) ([]types.Constraint, error)
}
