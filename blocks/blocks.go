// Package blocks models a document body as an ordered forest of typed content
// blocks and provides the image search and removal used by the featured image
// migration.
//
// All operations are pure: they never mutate their input and return new
// slices only along the path that changed.
package blocks

// ImageKind is the block kind that references a single image attachment.
const ImageKind = "image"

// Block is one typed node of a document body.
type Block struct {
	Kind     string `json:"kind"`
	Attrs    Attrs  `json:"attrs,omitempty"`
	Children Tree   `json:"children,omitempty"`
}

// Tree is a document body: a forest of blocks in document order.
type Tree []Block

// Attrs holds block-type specific attributes.
type Attrs map[string]Value

// NewBlock builds a block with the given kind, attributes and children.
func NewBlock(kind string, attrs Attrs, children ...Block) Block {
	b := Block{Kind: kind, Attrs: attrs}
	if len(children) > 0 {
		b.Children = Tree(children)
	}
	return b
}

// Image builds an image block referencing the attachment id.
func Image(id int64) Block {
	return Block{Kind: ImageKind, Attrs: Attrs{"id": Int(id)}}
}

// Len returns the total number of blocks in the tree, nested ones included.
func (t Tree) Len() int {
	n := 0
	for _, b := range t {
		n += 1 + b.Children.Len()
	}
	return n
}
