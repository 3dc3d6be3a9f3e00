package kdvec

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/viant/sqlite-kd/kdtree"
	"github.com/viant/sqlite-kd/vector"
	"modernc.org/sqlite/vtab"
)

type row struct {
	rowid    int64
	id       string
	distance float64
	matched  bool
}

// Cursor scans results from a kd table.
type Cursor struct {
	table *Table
	rows  []row
	pos   int
}

// Filter computes the result set based on idxNum/vals.
func (c *Cursor) Filter(idxNum int, idxStr string, vals []vtab.Value) error {
	_ = idxStr
	c.rows = nil
	c.pos = 0
	if c.table == nil || c.table.db == nil {
		return nil
	}
	ctx := context.Background()

	switch idxNum {
	case idxScan:
		rows, err := c.table.db.QueryContext(ctx, fmt.Sprintf("SELECT rowid, id FROM %s ORDER BY rowid", c.table.shadow))
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r row
			if err := rows.Scan(&r.rowid, &r.id); err != nil {
				return err
			}
			c.rows = append(c.rows, r)
		}
		return rows.Err()
	case idxMatch:
		if len(vals) == 0 || vals[0] == nil {
			return fmt.Errorf("kdvec: MATCH argument is required")
		}
		query, err := decodeMatchArg(vals[0], c.table.opts.dims)
		if err != nil {
			return err
		}
		idx, err := c.table.ensureIndex(ctx)
		if err != nil {
			return err
		}
		id, dist, err := idx.Nearest(query)
		if errors.Is(err, kdtree.ErrNoNeighbor) {
			return nil
		}
		if err != nil {
			return err
		}
		rid, err := c.table.lookupRow(ctx, id)
		if err != nil {
			return err
		}
		c.rows = []row{{rowid: rid, id: id, distance: dist, matched: true}}
		return nil
	default:
		return fmt.Errorf("kdvec: unsupported query plan")
	}
}

func decodeMatchArg(v interface{}, dims int) ([]float32, error) {
	switch val := v.(type) {
	case []byte:
		return vector.DecodePoint(val, dims)
	case string:
		vec, err := decodeMatchString(val)
		if err != nil {
			return nil, err
		}
		if dims > 0 && len(vec) != dims {
			return nil, fmt.Errorf("kdvec: %w: MATCH has %d coordinates, want %d", kdtree.ErrDimensionMismatch, len(vec), dims)
		}
		return vec, nil
	default:
		return nil, fmt.Errorf("kdvec: expected MATCH arg as BLOB or string, got %T", v)
	}
}

func decodeMatchString(raw string) ([]float32, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("kdvec: MATCH string is empty")
	}
	if strings.HasPrefix(s, "[") {
		var floats []float64
		if err := json.Unmarshal([]byte(s), &floats); err == nil && len(floats) > 0 {
			vec := make([]float32, len(floats))
			for i, f := range floats {
				vec[i] = float32(f)
			}
			return vec, nil
		}
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		if vec, err := vector.DecodeEmbedding(b); err == nil && len(vec) > 0 {
			return vec, nil
		}
	}
	parts := strings.Split(s, ",")
	vec := make([]float32, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		f, err := strconv.ParseFloat(p, 32)
		if err != nil {
			return nil, fmt.Errorf("kdvec: MATCH string must be base64-encoded embedding or JSON/CSV float list: %w", err)
		}
		vec = append(vec, float32(f))
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("kdvec: MATCH string has no coordinates")
	}
	return vec, nil
}

// Next advances the cursor.
func (c *Cursor) Next() error {
	if c.pos < len(c.rows) {
		c.pos++
	}
	return nil
}

// Eof reports end-of-rows.
func (c *Cursor) Eof() bool { return c.pos >= len(c.rows) }

// Column returns the value of a column in the current row.
func (c *Cursor) Column(col int) (vtab.Value, error) {
	if c.pos < 0 || c.pos >= len(c.rows) {
		return nil, fmt.Errorf("kdvec: Column out of range (pos=%d,len=%d)", c.pos, len(c.rows))
	}
	r := c.rows[c.pos]
	switch col {
	case 0:
		return r.id, nil
	case 1:
		if !r.matched {
			return nil, nil
		}
		return r.distance, nil
	}
	return nil, fmt.Errorf("kdvec: unsupported column %d", col)
}

// Rowid returns the current rowid.
func (c *Cursor) Rowid() (int64, error) {
	if c.pos < 0 || c.pos >= len(c.rows) {
		return 0, fmt.Errorf("kdvec: Rowid out of range (pos=%d,len=%d)", c.pos, len(c.rows))
	}
	return c.rows[c.pos].rowid, nil
}

// Close releases resources.
func (c *Cursor) Close() error { c.rows = nil; c.pos = 0; return nil }
