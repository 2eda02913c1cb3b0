package explorer

// FolderTree is the nested folder hierarchy below a root (nil = synthetic root).
type FolderTree struct {
	RootID  *string           `json:"root_id"`
	Folders []*FolderTreeNode `json:"folders"`
}

// FolderTreeNode represents a folder in the tree with nested children
type FolderTreeNode struct {
	Folder   Folder            `json:"folder"`
	Children []*FolderTreeNode `json:"children"` // Pointers for proper nesting
}

// Walk visits every node depth-first, parents before children.
func (t *FolderTree) Walk(fn func(node *FolderTreeNode, depth int)) {
	var visit func(nodes []*FolderTreeNode, depth int)
	visit = func(nodes []*FolderTreeNode, depth int) {
		for _, n := range nodes {
			fn(n, depth)
			visit(n.Children, depth+1)
		}
	}
	visit(t.Folders, 0)
}

// Count returns the number of folders in the tree.
func (t *FolderTree) Count() int {
	n := 0
	t.Walk(func(*FolderTreeNode, int) { n++ })
	return n
}
