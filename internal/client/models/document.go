package models

import "time"

// Document is a schemaless record in a named collection. Field values are
// JSON scalars; configured sensitive fields are stored in wire format.
type Document struct {
	ID         string         `json:"id"`
	Collection string         `json:"collection"`
	Fields     map[string]any `json:"fields"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Clone returns a copy whose Fields map can be modified independently.
func (d Document) Clone() Document {
	out := d
	out.Fields = make(map[string]any, len(d.Fields))
	for k, v := range d.Fields {
		out.Fields[k] = v
	}
	return out
}
