package ports

// RequirementsFilePort parses a pip-style requirements file into raw
// requirement strings (comments and blank lines stripped).
type RequirementsFilePort interface {
	ParseRequirements(path string) ([]string, error)
}
