package repository

import (
	"context"

	"itemdocs/internal/model"
)

// ItemRepository defines data access for items in the document store.
// No business logic here; reference validation happens before these calls.
type ItemRepository interface {
	// Insert indexes the item under item.ID, replacing any document with that id.
	// The repository stamps dateCreated and lastUpdated and returns the stored item.
	Insert(ctx context.Context, item *model.Item) (*model.Item, error)

	// FindByID returns ErrNotFound when no document has the given id.
	FindByID(ctx context.Context, id string) (*model.Item, error)

	// UpdateByID merges the submitted patch fields into the stored document and
	// returns the document as it reads after the merge. A missing id is
	// ErrNotFound; the update never creates a document.
	UpdateByID(ctx context.Context, id string, patch model.ItemPatch) (*model.Item, error)

	// DeleteByID removes a document by id. A missing id is not an error.
	DeleteByID(ctx context.Context, id string) error
}
