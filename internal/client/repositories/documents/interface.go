package documents

import (
	"context"

	"github.com/dmitrijs2005/zkvault/internal/client/models"
)

// Repository stores documents keyed by (collection, id).
//
// Get returns (nil, nil) when the document does not exist. Insert fails with
// common.ErrorAlreadyExists on a duplicate id; Update and Delete fail with
// common.ErrorNotFound when nothing matched.
type Repository interface {
	Collections(ctx context.Context) ([]string, error)
	Find(ctx context.Context, collection string) ([]models.Document, error)
	Get(ctx context.Context, collection, id string) (*models.Document, error)
	Insert(ctx context.Context, d models.Document) error
	Update(ctx context.Context, d models.Document) error
	Delete(ctx context.Context, collection, id string) error
}
