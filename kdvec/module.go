package kdvec

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"sync"

	sqlite "modernc.org/sqlite"
	"modernc.org/sqlite/vtab"
)

// ModuleName is the name used in CREATE VIRTUAL TABLE ... USING kd(...).
const ModuleName = "kd"

// Module implements vtab.Module for the kd virtual table.
type Module struct {
	db *sql.DB
}

// Table represents a single kd virtual table instance.
type Table struct {
	db        *sql.DB
	dbName    string
	tableName string
	shadow    string // qualified shadow table name (e.g. "main._kd_docs")
	opts      tableOptions

	dbPathOnce sync.Once
	dbPath     string
}

const (
	idxScan = iota
	idxMatch
)

var registerInvalidateOnce sync.Once

// Register registers the kd virtual table module with the provided *sql.DB.
func Register(db *sql.DB) error {
	if err := vtab.RegisterModule(db, ModuleName, &Module{db: db}); err != nil {
		if !strings.Contains(err.Error(), "already registered") {
			return err
		}
	}
	// kd_invalidate is called from shadow triggers on every connection.
	registerInvalidateOnce.Do(func() { _ = sqlite.RegisterScalarFunction("kd_invalidate", 1, invalidateFunc) })
	return nil
}

// Create initializes a kd table instance.
func (m *Module) Create(ctx vtab.Context, args []string) (vtab.Table, error) {
	return m.connect(ctx, "CREATE", args)
}

// Connect attaches to an existing kd table instance.
func (m *Module) Connect(ctx vtab.Context, args []string) (vtab.Table, error) {
	return m.connect(ctx, "CONNECT", args)
}

func (m *Module) connect(ctx vtab.Context, op string, args []string) (vtab.Table, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("kdvec: %s expects at least 3 args, got %d", op, len(args))
	}
	if err := ctx.EnableConstraintSupport(); err != nil {
		return nil, fmt.Errorf("kdvec: EnableConstraintSupport failed: %w", err)
	}
	col, optArgs := parseColumns(args)
	// Visible id column plus a hidden distance reported for MATCH rows.
	if err := ctx.Declare(fmt.Sprintf("CREATE TABLE %s(%s TEXT, distance REAL HIDDEN)", args[2], col)); err != nil {
		return nil, err
	}
	t := &Table{db: m.db, dbName: args[1], tableName: args[2], opts: parseOptions(optArgs)}
	// Shadow DDL is deferred until first use to avoid cross-connection DDL during xCreate.
	t.shadow = QualifiedShadow(t.dbName, t.tableName)
	return t, nil
}

// BestIndex pushes down MATCH on the id column.
func (t *Table) BestIndex(info *vtab.IndexInfo) error {
	info.IdxNum = idxScan
	for i := range info.Constraints {
		c := &info.Constraints[i]
		if !c.Usable {
			continue
		}
		if c.Column == 0 && c.Op == vtab.OpMATCH {
			c.ArgIndex = 0
			c.Omit = true
			info.IdxNum = idxMatch
			break
		}
	}
	return nil
}

// Open allocates a new cursor.
func (t *Table) Open() (vtab.Cursor, error) { return &Cursor{table: t}, nil }

// Disconnect cleans up per-connection resources.
func (t *Table) Disconnect() error { return nil }

// Destroy drops the cached tree; the shadow table persists.
func (t *Table) Destroy() error {
	InvalidateCache(t.shadow)
	return nil
}

// invalidateFunc implements SQL scalar kd_invalidate(shadow TEXT) → INT.
func invalidateFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 1 {
		return int64(0), nil
	}
	var s string
	switch v := args[0].(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return int64(0), nil
	}
	return int64(InvalidateCache(s)), nil
}
