package blocks

// RemoveFirst removes exactly one image block referencing imageID and
// reports whether a block was removed.
//
// Each level is scanned for a direct match before any sibling is descended
// into. Only the path from the root to the removed block is copied; every
// other block is returned as is. A container emptied by the removal stays in
// place with no children. When nothing matches, t is returned unchanged.
func RemoveFirst(t Tree, imageID int64) (Tree, bool) {
	for i, b := range t {
		if id, ok := ImageID(b); ok && id == imageID {
			out := make(Tree, 0, len(t)-1)
			out = append(out, t[:i]...)
			return append(out, t[i+1:]...), true
		}
	}
	for i, b := range t {
		if len(b.Children) == 0 {
			continue
		}
		children, ok := RemoveFirst(b.Children, imageID)
		if !ok {
			continue
		}
		out := make(Tree, len(t))
		copy(out, t)
		out[i].Children = children
		return out, true
	}
	return t, false
}
