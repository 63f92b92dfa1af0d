package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/dmitrijs2005/zkvault/internal/client/models"
	"github.com/dmitrijs2005/zkvault/internal/client/repositories/documents"
	"github.com/dmitrijs2005/zkvault/internal/common"
	"github.com/dmitrijs2005/zkvault/internal/cryptox"
	"github.com/dmitrijs2005/zkvault/internal/dbx"
	"github.com/google/uuid"
)

// Collection is a named set of documents. Writes go through a hook that
// seals every cleartext sensitive field; Find returns documents as stored,
// Get and All return them opened.
type Collection struct {
	db        *sql.DB
	name      string
	sensitive []string
	fields    *cryptox.FieldCipher
	now       func() time.Time
}

func newCollection(db *sql.DB, name string, sensitive []string, fields *cryptox.FieldCipher) *Collection {
	s := append([]string(nil), sensitive...)
	sort.Strings(s)
	return &Collection{db: db, name: name, sensitive: s, fields: fields, now: time.Now}
}

func (c *Collection) Name() string { return c.name }

// Find lists documents exactly as stored: sensitive values are in wire
// format, or cleartext if they predate encryption.
func (c *Collection) Find(ctx context.Context) ([]models.Document, error) {
	return documents.NewSQLiteRepository(c.db).Find(ctx, c.name)
}

// All lists documents with sensitive values opened.
func (c *Collection) All(ctx context.Context) ([]models.Document, error) {
	stored, err := c.Find(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Document, 0, len(stored))
	for _, d := range stored {
		opened, err := c.Open(d)
		if err != nil {
			return nil, err
		}
		out = append(out, opened)
	}
	return out, nil
}

// Get returns one opened document or common.ErrorNotFound.
func (c *Collection) Get(ctx context.Context, id string) (models.Document, error) {
	d, err := documents.NewSQLiteRepository(c.db).Get(ctx, c.name, id)
	if err != nil {
		return models.Document{}, err
	}
	if d == nil {
		return models.Document{}, fmt.Errorf("document %s/%s: %w", c.name, id, common.ErrorNotFound)
	}
	return c.Open(*d)
}

// Insert stores a new document. An empty ID gets a random UUID. The stored
// form is returned.
func (c *Collection) Insert(ctx context.Context, d models.Document) (models.Document, error) {
	d = d.Clone()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.Collection = c.name
	d.UpdatedAt = c.now().UTC()

	if err := c.seal(d.Fields, d.Fields); err != nil {
		return models.Document{}, err
	}
	if err := documents.NewSQLiteRepository(c.db).Insert(ctx, d); err != nil {
		return models.Document{}, err
	}
	return d, nil
}

// Patch merges changes into the stored document and bumps its updated_at.
// A nil value removes the field. An empty patch is a touch: it only runs the
// write hook, which seals any sensitive field still in cleartext.
func (c *Collection) Patch(ctx context.Context, id string, changes map[string]any) error {
	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := documents.NewSQLiteRepository(tx)
		d, err := repo.Get(ctx, c.name, id)
		if err != nil {
			return err
		}
		if d == nil {
			return fmt.Errorf("document %s/%s: %w", c.name, id, common.ErrorNotFound)
		}

		next := d.Clone()
		for k, v := range changes {
			if v == nil {
				delete(next.Fields, k)
				continue
			}
			next.Fields[k] = v
		}
		next.UpdatedAt = c.now().UTC()

		if err := c.seal(next.Fields, changes); err != nil {
			return err
		}
		return repo.Update(ctx, next)
	})
}

func (c *Collection) Delete(ctx context.Context, id string) error {
	return documents.NewSQLiteRepository(c.db).Delete(ctx, c.name, id)
}

// HasCleartext reports whether any sensitive field of a stored document is
// not yet in wire format.
func (c *Collection) HasCleartext(d models.Document) bool {
	for _, f := range c.sensitive {
		v, ok := d.Fields[f]
		if ok && v != nil && !cryptox.IsEncrypted(v) {
			return true
		}
	}
	return false
}

// Open returns a copy of a stored document with sensitive values decrypted.
// Legacy cleartext values are returned as they are.
func (c *Collection) Open(d models.Document) (models.Document, error) {
	out := d.Clone()
	for _, f := range c.sensitive {
		v, ok := out.Fields[f]
		if !ok || !cryptox.IsEncrypted(v) {
			continue
		}
		plain, err := c.fields.Open(v.(string))
		if err != nil {
			return models.Document{}, fmt.Errorf("open %s.%s: %w", d.ID, f, err)
		}
		value, err := decodeScalar(plain)
		if err != nil {
			return models.Document{}, fmt.Errorf("open %s.%s: %w", d.ID, f, err)
		}
		out.Fields[f] = value
	}
	return out, nil
}

// seal is the write hook. It encrypts in place every sensitive value that is
// present and non-null. Values named in fresh came from the caller and are
// always sealed, even when they look like wire format; other values were
// read back from the store and are skipped once sealed.
func (c *Collection) seal(fields, fresh map[string]any) error {
	for _, f := range c.sensitive {
		v, ok := fields[f]
		if !ok || v == nil {
			continue
		}
		if _, given := fresh[f]; !given && cryptox.IsEncrypted(v) {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("seal %s: %w", f, err)
		}
		wire, err := c.fields.Seal(string(raw))
		if err != nil {
			return fmt.Errorf("seal %s: %w", f, err)
		}
		fields[f] = wire
	}
	return nil
}

// decodeScalar restores a sealed value. seal JSON-encodes every value before
// encrypting it, strings included, so plaintext that is not JSON did not
// come from this store.
func decodeScalar(plain string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(plain), &v); err != nil {
		return nil, common.ErrDecryptionFailed
	}
	return v, nil
}
