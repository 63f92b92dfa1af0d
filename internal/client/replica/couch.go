package replica

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	"github.com/dmitrijs2005/zkvault/internal/common"
	"github.com/dmitrijs2005/zkvault/internal/cryptox"
	"github.com/go-kivik/kivik/v4"

	_ "github.com/go-kivik/kivik/v4/couchdb"
)

const couchDocType = "zkvault_object"

type couchDoc struct {
	ID         string `json:"_id"`
	Rev        string `json:"_rev,omitempty"`
	DocType    string `json:"doc_type"`
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	Tag        string `json:"tag"`
}

func toCouchDoc(id, rev string, obj cryptox.EncryptedObject) couchDoc {
	return couchDoc{ID: id, Rev: rev, DocType: couchDocType, Ciphertext: obj.Ciphertext, IV: obj.IV, Tag: obj.Tag}
}

func (d couchDoc) object() cryptox.EncryptedObject {
	return cryptox.EncryptedObject{Ciphertext: d.Ciphertext, IV: d.IV, Tag: d.Tag}
}

// CouchBackend keeps one CouchDB document per object.
type CouchBackend struct {
	db *kivik.DB
}

// NewCouchBackend connects to url and creates dbName if it is missing.
func NewCouchBackend(ctx context.Context, url, dbName string) (*CouchBackend, error) {
	client, err := kivik.New("couch", url)
	if err != nil {
		return nil, fmt.Errorf("connect couchdb: %w", err)
	}
	exists, err := client.DBExists(ctx, dbName)
	if err != nil {
		return nil, fmt.Errorf("check couchdb database: %w", err)
	}
	if !exists {
		if err := client.CreateDB(ctx, dbName); err != nil {
			return nil, fmt.Errorf("create couchdb database: %w", err)
		}
	}
	return &CouchBackend{db: client.DB(dbName)}, nil
}

func (b *CouchBackend) Put(ctx context.Context, id string, obj cryptox.EncryptedObject) error {
	var existing couchDoc
	rev := ""
	err := b.db.Get(ctx, id).ScanDoc(&existing)
	switch {
	case err == nil:
		rev = existing.Rev
	case kivik.HTTPStatus(err) == http.StatusNotFound:
	default:
		return fmt.Errorf("failed to read object: %w", err)
	}

	if _, err := b.db.Put(ctx, id, toCouchDoc(id, rev, obj)); err != nil {
		if kivik.HTTPStatus(err) == http.StatusConflict {
			return fmt.Errorf("object %s: %w", id, common.ErrorConflict)
		}
		return fmt.Errorf("failed to put object: %w", err)
	}
	return nil
}

func (b *CouchBackend) Get(ctx context.Context, id string) (cryptox.EncryptedObject, error) {
	var doc couchDoc
	if err := b.db.Get(ctx, id).ScanDoc(&doc); err != nil {
		if kivik.HTTPStatus(err) == http.StatusNotFound {
			return cryptox.EncryptedObject{}, fmt.Errorf("object %s: %w", id, common.ErrorNotFound)
		}
		return cryptox.EncryptedObject{}, fmt.Errorf("failed to get object: %w", err)
	}
	return doc.object(), nil
}

func (b *CouchBackend) List(ctx context.Context, prefix string) ([]string, error) {
	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"doc_type": couchDocType,
			"_id":      map[string]interface{}{"$regex": "^" + regexp.QuoteMeta(prefix)},
		},
		"fields": []string{"_id"},
	}

	rows := b.db.Find(ctx, query)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query objects: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var doc couchDoc
		if err := rows.ScanDoc(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan object: %w", err)
		}
		ids = append(ids, doc.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query objects: %w", err)
	}
	return ids, nil
}
