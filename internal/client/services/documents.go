package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/zkvault/internal/client/keyring"
	"github.com/dmitrijs2005/zkvault/internal/client/models"
	"github.com/dmitrijs2005/zkvault/internal/client/replica"
	"github.com/dmitrijs2005/zkvault/internal/client/store"
	"github.com/dmitrijs2005/zkvault/internal/common"
	"github.com/dmitrijs2005/zkvault/internal/cryptox"
	"github.com/dmitrijs2005/zkvault/internal/logging"
)

var ErrReplicaDisabled = errors.New("replica backend is not configured")

// StoreProvider hands out the store of the active session.
type StoreProvider interface {
	ActiveStore() (*store.Store, error)
}

// DocumentService is sealed document CRUD plus replica push/pull.
type DocumentService interface {
	Add(ctx context.Context, collection string, fields map[string]any) (models.Document, error)
	Get(ctx context.Context, collection, id string) (models.Document, error)
	List(ctx context.Context, collection string) ([]models.Document, error)
	Update(ctx context.Context, collection, id string, changes map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	Push(ctx context.Context, collection string) (int, error)
	Pull(ctx context.Context, collection string) (int, error)
}

type documentService struct {
	stores    StoreProvider
	holder    *keyring.Holder
	sensitive []string
	backend   replica.Backend
	log       logging.Logger
}

// NewDocumentService wires the service. backend may be nil.
func NewDocumentService(stores StoreProvider, holder *keyring.Holder, sensitive []string, backend replica.Backend, log logging.Logger) DocumentService {
	return &documentService{stores: stores, holder: holder, sensitive: sensitive, backend: backend, log: log}
}

func (s *documentService) collection(name string) (*store.Collection, error) {
	st, err := s.stores.ActiveStore()
	if err != nil {
		return nil, err
	}
	return st.Collection(name, s.sensitive, cryptox.NewFieldCipher(s.holder)), nil
}

func (s *documentService) Add(ctx context.Context, collection string, fields map[string]any) (models.Document, error) {
	c, err := s.collection(collection)
	if err != nil {
		return models.Document{}, err
	}
	stored, err := c.Insert(ctx, models.Document{Fields: fields})
	if err != nil {
		return models.Document{}, fmt.Errorf("add document: %w", err)
	}
	return c.Open(stored)
}

func (s *documentService) Get(ctx context.Context, collection, id string) (models.Document, error) {
	c, err := s.collection(collection)
	if err != nil {
		return models.Document{}, err
	}
	return c.Get(ctx, id)
}

func (s *documentService) List(ctx context.Context, collection string) ([]models.Document, error) {
	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	return c.All(ctx)
}

func (s *documentService) Update(ctx context.Context, collection, id string, changes map[string]any) error {
	c, err := s.collection(collection)
	if err != nil {
		return err
	}
	return c.Patch(ctx, id, changes)
}

func (s *documentService) Delete(ctx context.Context, collection, id string) error {
	c, err := s.collection(collection)
	if err != nil {
		return err
	}
	return c.Delete(ctx, id)
}

func (s *documentService) replicator() (*replica.Replicator, error) {
	if s.backend == nil {
		return nil, ErrReplicaDisabled
	}
	return replica.New(s.backend, cryptox.NewObjectCipher(s.holder), s.log), nil
}

// Push uploads every document of collection as an encrypted object.
func (s *documentService) Push(ctx context.Context, collection string) (int, error) {
	r, err := s.replicator()
	if err != nil {
		return 0, err
	}
	docs, err := s.List(ctx, collection)
	if err != nil {
		return 0, err
	}
	return r.Push(ctx, docs)
}

// Pull downloads collection and upserts it locally through the write hook.
func (s *documentService) Pull(ctx context.Context, collection string) (int, error) {
	r, err := s.replicator()
	if err != nil {
		return 0, err
	}
	c, err := s.collection(collection)
	if err != nil {
		return 0, err
	}
	docs, err := r.Pull(ctx, collection)
	if err != nil {
		return 0, err
	}

	for i, d := range docs {
		err := c.Patch(ctx, d.ID, d.Fields)
		if errors.Is(err, common.ErrorNotFound) {
			_, err = c.Insert(ctx, d)
		}
		if err != nil {
			return i, fmt.Errorf("pull %s: %w", d.ID, err)
		}
	}
	return len(docs), nil
}
