package kdadmin

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	idxapi "github.com/viant/sqlite-kd/index"
	"github.com/viant/sqlite-kd/index/kd"
	"github.com/viant/sqlite-kd/kdvec"
	"modernc.org/sqlite/vtab"
)

// ModuleName is the name used in CREATE VIRTUAL TABLE ... USING kd_admin(op).
const ModuleName = "kd_admin"

// Module provides administrative operations via a virtual table.
// Usage:
//
//	CREATE VIRTUAL TABLE kd_admin USING kd_admin(op);
//	SELECT op FROM kd_admin WHERE op MATCH 'main._kd_docs'; -- rebuild tree
//
// Returns a single row with op='reindexed:<count>' on success.
type Module struct{ db *sql.DB }

// Table is a kd_admin virtual table instance.
type Table struct{ db *sql.DB }

// Cursor iterates the single result row of an admin operation.
type Cursor struct {
	table *Table
	rows  []string
	pos   int
}

// Register registers the kd_admin module with the provided *sql.DB.
func Register(db *sql.DB) error {
	if err := vtab.RegisterModule(db, ModuleName, &Module{db: db}); err != nil {
		if !strings.Contains(err.Error(), "already registered") {
			return err
		}
	}
	return nil
}

// Create declares the single TEXT column op reporting results.
func (m *Module) Create(ctx vtab.Context, args []string) (vtab.Table, error) {
	return m.Connect(ctx, args)
}

// Connect attaches to an existing kd_admin table.
func (m *Module) Connect(ctx vtab.Context, args []string) (vtab.Table, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("kdadmin: need at least 3 args")
	}
	if err := ctx.Declare(fmt.Sprintf("CREATE TABLE %s(op)", args[2])); err != nil {
		return nil, err
	}
	return &Table{db: m.db}, nil
}

// BestIndex pushes down MATCH on op.
func (t *Table) BestIndex(info *vtab.IndexInfo) error {
	for i := range info.Constraints {
		c := &info.Constraints[i]
		if !c.Usable {
			continue
		}
		if c.Column == 0 && c.Op == vtab.OpMATCH {
			c.ArgIndex = 0
			c.Omit = true
			info.IdxNum = 1
			break
		}
	}
	return nil
}

func (t *Table) Open() (vtab.Cursor, error) { return &Cursor{table: t}, nil }
func (t *Table) Disconnect() error          { return nil }
func (t *Table) Destroy() error             { return nil }

// Filter runs the reindex when a shadow table name is MATCHed.
func (c *Cursor) Filter(idxNum int, idxStr string, vals []vtab.Value) error {
	c.rows = nil
	c.pos = 0
	if idxNum != 1 || len(vals) == 0 || vals[0] == nil {
		return nil
	}
	shadow, ok := vals[0].(string)
	if !ok {
		return fmt.Errorf("kdadmin: MATCH expects shadow table name as TEXT")
	}
	n, err := Reindex(context.Background(), c.table.db, shadow)
	if err != nil {
		return err
	}
	c.rows = []string{fmt.Sprintf("reindexed:%d", n)}
	return nil
}

func (c *Cursor) Next() error {
	if c.pos < len(c.rows) {
		c.pos++
	}
	return nil
}

func (c *Cursor) Eof() bool { return c.pos >= len(c.rows) }

func (c *Cursor) Column(col int) (vtab.Value, error) {
	if c.pos < 0 || c.pos >= len(c.rows) {
		return nil, fmt.Errorf("kdadmin: Column out of range")
	}
	if col == 0 {
		return c.rows[c.pos], nil
	}
	return nil, nil
}

func (c *Cursor) Rowid() (int64, error) { return int64(c.pos + 1), nil }
func (c *Cursor) Close() error          { c.rows = nil; c.pos = 0; return nil }

// Reindex rebuilds a k-d tree for the given shadow table, persists it in
// kd_storage and returns the number of indexed points. It always writes a kd
// tree blob, whatever index= option the table was declared with; opts tune
// the build (the kd_admin table uses the defaults). In-process caches for the
// table are dropped so the next MATCH loads the fresh tree.
func Reindex(ctx context.Context, db *sql.DB, shadow string, opts ...kd.Option) (int, error) {
	if db == nil {
		return 0, fmt.Errorf("kdadmin: db is nil")
	}
	if err := kdvec.CreateShadow(ctx, db, shadow); err != nil {
		return 0, err
	}
	unlock, err := kdvec.AcquireBuildLock(ctx, db, shadow)
	if err != nil {
		return 0, err
	}
	defer unlock()
	build := func(ids []string, vecs [][]float32) (idxapi.Index, error) {
		idx := kd.New(opts...)
		if err := idx.Build(ids, vecs); err != nil {
			return nil, err
		}
		return idx, nil
	}
	res, err := kdvec.RebuildIndex(ctx, db, shadow, build, nil)
	if err != nil {
		return 0, err
	}
	if res.PersistErr != nil {
		return 0, res.PersistErr
	}
	kdvec.InvalidateCache(shadow)
	return res.Count, nil
}
