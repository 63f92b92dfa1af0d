package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/zkvault/internal/client/models"
	"github.com/dmitrijs2005/zkvault/internal/common"
	"github.com/dmitrijs2005/zkvault/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Collections lists the distinct collection names in use.
func (r *SQLiteRepository) Collections(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT collection FROM documents ORDER BY collection`)
	if err != nil {
		return nil, fmt.Errorf("failed to select collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate collections: %w", err)
	}
	return names, nil
}

// Find lists every document of a collection ordered by id.
func (r *SQLiteRepository) Find(ctx context.Context, collection string) ([]models.Document, error) {
	query := `SELECT id, fields, updated_at FROM documents WHERE collection = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to select documents: %w", err)
	}
	defer rows.Close()

	var result []models.Document
	for rows.Next() {
		d, err := scanDocument(rows, collection)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, collection, id string) (*models.Document, error) {
	query := `SELECT id, fields, updated_at FROM documents WHERE collection = ? AND id = ?`
	d, err := scanDocument(r.db.QueryRowContext(ctx, query, collection, id), collection)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, d models.Document) error {
	fields, err := encodeFields(d.Fields)
	if err != nil {
		return err
	}
	query := `INSERT INTO documents (collection, id, fields, updated_at) VALUES (?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query, d.Collection, d.ID, fields, formatTime(d.UpdatedAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("document %s/%s: %w", d.Collection, d.ID, common.ErrorAlreadyExists)
		}
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, d models.Document) error {
	fields, err := encodeFields(d.Fields)
	if err != nil {
		return err
	}
	query := `UPDATE documents SET fields = ?, updated_at = ? WHERE collection = ? AND id = ?`
	res, err := r.db.ExecContext(ctx, query, fields, formatTime(d.UpdatedAt), d.Collection, d.ID)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	return expectOneRow(res, d.Collection, d.ID)
}

func (r *SQLiteRepository) Delete(ctx context.Context, collection, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return expectOneRow(res, collection, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner, collection string) (models.Document, error) {
	var (
		d         models.Document
		fields    string
		updatedAt string
	)
	if err := row.Scan(&d.ID, &fields, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return d, err
		}
		return d, fmt.Errorf("failed to scan document: %w", err)
	}
	d.Collection = collection
	if err := json.Unmarshal([]byte(fields), &d.Fields); err != nil {
		return d, fmt.Errorf("failed to decode fields of %s: %w", d.ID, err)
	}
	if d.Fields == nil {
		d.Fields = map[string]any{}
	}
	t, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return d, fmt.Errorf("failed to parse updated_at of %s: %w", d.ID, err)
	}
	d.UpdatedAt = t
	return d, nil
}

func encodeFields(fields map[string]any) (string, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode fields: %w", err)
	}
	return string(b), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func expectOneRow(res sql.Result, collection, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("document %s/%s: %w", collection, id, common.ErrorNotFound)
	}
	return nil
}
