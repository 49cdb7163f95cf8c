package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/featuredfix/blocks"
)

func paragraph(text string) blocks.Block {
	return blocks.NewBlock("paragraph", blocks.Attrs{"content": blocks.String(text)})
}

func post(id, featured int64, body ...blocks.Block) Document {
	return Document{
		ID:              id,
		Title:           "Post",
		Status:          StatusPublished,
		Type:            "post",
		FeaturedImageID: featured,
		Structured:      true,
		Body:            blocks.Tree(body),
	}
}

func TestDecide(t *testing.T) {
	legacy := post(4, 5)
	legacy.Structured = false
	legacy.Raw = "<p><img src=\"a.jpg\"></p>"

	tests := []struct {
		name     string
		doc      *Document
		migrated bool
		reason   string
		body     blocks.Tree
	}{
		{"nil document", nil, false, ReasonNotFound, nil},
		{"no featured image", ptr(post(1, 0, blocks.Image(5))), false, ReasonNoFeaturedImage, nil},
		{"legacy body", &legacy, false, ReasonNoBlocks, nil},
		{"no image blocks", ptr(post(2, 5, paragraph("x"))), false, ReasonNoImageBlock, nil},
		{"mismatch", ptr(post(3, 7, blocks.Image(5), paragraph("x"))), false, ReasonImageMismatch, nil},
		{"top level match", ptr(post(5, 5, blocks.Image(5), paragraph("x"))), true, ReasonMigrated, blocks.Tree{paragraph("x")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.doc)
			assert.Equal(t, tt.migrated, d.Migrated)
			assert.Equal(t, tt.reason, d.Reason)
			if tt.body != nil {
				assert.Equal(t, tt.body, d.Body)
			} else {
				assert.Nil(t, d.Body)
			}
		})
	}
}

func TestDecideNestedMatchKeepsEmptyGroup(t *testing.T) {
	doc := post(1, 5, blocks.NewBlock("group", nil, blocks.Image(5)), blocks.Image(9))

	d := Decide(&doc)
	require.True(t, d.Migrated)
	require.Len(t, d.Body, 2)
	assert.Equal(t, "group", d.Body[0].Kind)
	assert.Empty(t, d.Body[0].Children)
	assert.Equal(t, blocks.Image(9), d.Body[1])

	// the input document is untouched
	assert.Len(t, doc.Body[0].Children, 1)
}

func TestDecideDuplicateFeaturedImage(t *testing.T) {
	nested := blocks.NewBlock(blocks.ImageKind, blocks.Attrs{"id": blocks.Int(5), "align": blocks.String("left")})
	group := blocks.NewBlock("group", nil, nested)
	doc := post(1, 5, group, blocks.Image(5))

	d := Decide(&doc)
	require.True(t, d.Migrated)
	assert.Equal(t, ReasonMigrated, d.Reason)
	assert.Equal(t, blocks.Tree{group}, d.Body)

	// a second pass removes the remaining copy and keeps the empty group
	doc.Body = d.Body
	again := Decide(&doc)
	require.True(t, again.Migrated)
	require.Len(t, again.Body, 1)
	assert.Equal(t, "group", again.Body[0].Kind)
	assert.Empty(t, again.Body[0].Children)
}

func TestDecideIsDeterministic(t *testing.T) {
	doc := post(1, 5, paragraph("a"), blocks.Image(5))
	first := Decide(&doc)
	for i := 0; i < 5; i++ {
		again := Decide(&doc)
		assert.Equal(t, first, again)
	}
}

func TestDecideAfterMigrationSkips(t *testing.T) {
	doc := post(1, 5, blocks.Image(5), paragraph("x"), blocks.Image(6))
	d := Decide(&doc)
	require.True(t, d.Migrated)

	doc.Body = d.Body
	again := Decide(&doc)
	assert.False(t, again.Migrated)
	assert.Equal(t, ReasonImageMismatch, again.Reason)
}

func ptr(d Document) *Document {
	return &d
}
