package model

import (
	"bytes"
	"encoding/json"
)

// Canonical is the merged mapping of identity to record. Order holds the
// identities in first-seen order across sources and drives every iteration,
// so builds over the same inputs are reproducible.
type Canonical struct {
	Order   []string
	Records map[string]*CanonicalRecord
}

// NewCanonical creates an empty canonical mapping.
func NewCanonical() *Canonical {
	return &Canonical{
		Order:   make([]string, 0),
		Records: make(map[string]*CanonicalRecord),
	}
}

// Get returns the record for id, or nil.
func (c *Canonical) Get(id string) *CanonicalRecord {
	return c.Records[id]
}

// Has reports whether id has a record.
func (c *Canonical) Has(id string) bool {
	_, ok := c.Records[id]
	return ok
}

// Len returns the number of identities.
func (c *Canonical) Len() int {
	return len(c.Order)
}

// Put inserts or replaces the record for id.
func (c *Canonical) Put(id string, rec *CanonicalRecord) {
	if _, exists := c.Records[id]; !exists {
		c.Order = append(c.Order, id)
	}
	c.Records[id] = rec
}

// MarshalJSON writes the export format: an object keyed by identity with
// {name, avatarUrl, mutual} values, in Order. The output can be loaded again
// as an input file.
func (c *Canonical) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range c.Order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		rec := c.Records[id]
		if rec == nil {
			rec = &CanonicalRecord{}
		}
		out := *rec
		if out.Mutual == nil {
			out.Mutual = []string{}
		}
		val, err := json.Marshal(out)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
