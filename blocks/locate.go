package blocks

// ImageID returns the attachment id referenced by b. It reports false when b
// is not an image block or carries no integer id attribute.
func ImageID(b Block) (int64, bool) {
	if b.Kind != ImageKind {
		return 0, false
	}
	v, ok := b.Attrs["id"]
	if !ok {
		return 0, false
	}
	return v.AsInt()
}

// Locate returns the first image block with a usable id, walking the tree
// depth-first in pre-order: a block is checked before its children and
// siblings are visited left to right.
func Locate(t Tree) (Block, bool) {
	for _, b := range t {
		if _, ok := ImageID(b); ok {
			return b, true
		}
		if found, ok := Locate(b.Children); ok {
			return found, true
		}
	}
	return Block{}, false
}

// CountImages returns the number of image blocks with a usable id.
func CountImages(t Tree) int {
	n := 0
	for _, b := range t {
		if _, ok := ImageID(b); ok {
			n++
		}
		n += CountImages(b.Children)
	}
	return n
}
