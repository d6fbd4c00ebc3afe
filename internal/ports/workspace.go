package ports

// WorkspacePort discovers recipe files within workspace roots.
type WorkspacePort interface {
	FindRecipes(root string) ([]string, error)
}
