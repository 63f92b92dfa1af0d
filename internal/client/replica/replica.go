// Package replica copies whole documents to an external backend as
// EncryptedObject bundles. The backend only ever sees ciphertext.
package replica

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/zkvault/internal/client/models"
	"github.com/dmitrijs2005/zkvault/internal/cryptox"
	"github.com/dmitrijs2005/zkvault/internal/logging"
)

// Backend stores encrypted objects by id. Get returns common.ErrorNotFound
// for an unknown id.
type Backend interface {
	Put(ctx context.Context, id string, obj cryptox.EncryptedObject) error
	Get(ctx context.Context, id string) (cryptox.EncryptedObject, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// ErrInvalidCollection is returned for collection names that cannot be
// told apart in the backend id space.
var ErrInvalidCollection = errors.New("invalid collection name")

// ObjectID is the backend id of a document: "<collection>:<id>".
func ObjectID(collection, id string) string {
	return collection + ":" + id
}

// CheckCollection rejects names that are empty or contain ':', which
// would make listing one collection match objects of another.
func CheckCollection(name string) error {
	if name == "" || strings.Contains(name, ":") {
		return fmt.Errorf("%w: %q", ErrInvalidCollection, name)
	}
	return nil
}

type Replicator struct {
	backend Backend
	objects *cryptox.ObjectCipher
	log     logging.Logger
}

func New(backend Backend, objects *cryptox.ObjectCipher, log logging.Logger) *Replicator {
	return &Replicator{backend: backend, objects: objects, log: log}
}

// Push encrypts each opened document and uploads it.
func (r *Replicator) Push(ctx context.Context, docs []models.Document) (int, error) {
	for i, d := range docs {
		if err := CheckCollection(d.Collection); err != nil {
			return i, fmt.Errorf("push %s: %w", d.ID, err)
		}
		obj, err := r.objects.EncryptObject(d)
		if err != nil {
			return i, fmt.Errorf("push %s: %w", d.ID, err)
		}
		if err := r.backend.Put(ctx, ObjectID(d.Collection, d.ID), *obj); err != nil {
			return i, fmt.Errorf("push %s: %w", d.ID, err)
		}
	}
	r.log.Info(ctx, "replica push done", "count", len(docs))
	return len(docs), nil
}

// Pull downloads and decrypts every document of collection.
func (r *Replicator) Pull(ctx context.Context, collection string) ([]models.Document, error) {
	if err := CheckCollection(collection); err != nil {
		return nil, err
	}
	prefix := ObjectID(collection, "")
	ids, err := r.backend.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("pull %s: %w", collection, err)
	}

	docs := make([]models.Document, 0, len(ids))
	for _, id := range ids {
		obj, err := r.backend.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("pull %s: %w", id, err)
		}
		var d models.Document
		if err := r.objects.DecryptObject(obj, &d); err != nil {
			return nil, fmt.Errorf("pull %s: %w", id, err)
		}
		d.Collection = collection
		if d.ID == "" {
			d.ID = strings.TrimPrefix(id, prefix)
		}
		docs = append(docs, d)
	}
	r.log.Info(ctx, "replica pull done", "collection", collection, "count", len(docs))
	return docs, nil
}
