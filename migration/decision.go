package migration

import "github.com/eringen/featuredfix/blocks"

// Reasons attached to an Outcome. A failed write uses the write error text
// instead.
const (
	ReasonMigrated        = "successfully migrated"
	ReasonWouldMigrate    = "would migrate"
	ReasonNotFound        = "not found"
	ReasonNoFeaturedImage = "no featured image"
	ReasonNoBlocks        = "no structured blocks"
	ReasonNoImageBlock    = "no image blocks found"
	ReasonImageMismatch   = "first image does not match featured image"
)

// Outcome is the per-document result of a migration attempt.
type Outcome struct {
	Migrated bool   `json:"migrated"`
	Reason   string `json:"reason"`
}

// Decision is the result of Decide. Body holds the new document body when
// the outcome is a migration.
type Decision struct {
	Outcome
	Body blocks.Tree
}

// Decide applies the migration policy to doc. Checks run in a fixed order and
// the first failing one names the skip reason. A nil doc is not found.
func Decide(doc *Document) Decision {
	if doc == nil {
		return skip(ReasonNotFound)
	}
	if doc.FeaturedImageID == 0 {
		return skip(ReasonNoFeaturedImage)
	}
	if !doc.Structured {
		return skip(ReasonNoBlocks)
	}
	first, ok := blocks.Locate(doc.Body)
	if !ok {
		return skip(ReasonNoImageBlock)
	}
	if id, _ := blocks.ImageID(first); id != doc.FeaturedImageID {
		return skip(ReasonImageMismatch)
	}
	body, _ := blocks.RemoveFirst(doc.Body, doc.FeaturedImageID)
	return Decision{
		Outcome: Outcome{Migrated: true, Reason: ReasonMigrated},
		Body:    body,
	}
}

func skip(reason string) Decision {
	return Decision{Outcome: Outcome{Reason: reason}}
}
