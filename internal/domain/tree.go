package domain

// maxTreeDepth bounds the ancestor walk. The parent-pointer map should
// never contain a cycle, but corrupted data could introduce one; the bound
// turns that into a rejected move instead of an infinite loop.
const maxTreeDepth = 64

// WouldCycle reports whether reparenting bookID under newParentID would
// make the book its own ancestor. parents maps each book id to its parent
// id (empty string for top level). A book is always its own ancestor, so
// moving a book under itself is a cycle.
//
// Walks exceeding maxTreeDepth are treated as cycles: the data is already
// corrupt and the move must not make it worse.
func WouldCycle(parents map[string]string, bookID, newParentID string) bool {
	if newParentID == "" {
		return false
	}
	if newParentID == bookID {
		return true
	}

	current := newParentID
	for depth := 0; depth < maxTreeDepth; depth++ {
		parent, ok := parents[current]
		if !ok || parent == "" {
			return false
		}
		if parent == bookID {
			return true
		}
		current = parent
	}
	return true
}
