package kdvec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	idxapi "github.com/viant/sqlite-kd/index"
	"github.com/viant/sqlite-kd/index/bruteforce"
	"github.com/viant/sqlite-kd/index/kd"
	"github.com/viant/sqlite-kd/vector"
)

// StorageTable holds persisted indexes keyed by qualified shadow table name.
const StorageTable = "kd_storage"

const shadowPrefix = "_kd_"

// Global shared cache of indices keyed by db path and table for cross-connection reuse.
var sharedCache = struct {
	mu    sync.RWMutex
	byKey map[string]*cacheEntry
}{byKey: make(map[string]*cacheEntry)}

// cacheEntry holds one table's tree. gen advances on every invalidation so a
// build that started before a write never installs its result.
type cacheEntry struct {
	mu       sync.Mutex
	idx      idxapi.Index
	gen      uint64
	building bool
	cond     *sync.Cond
}

func newCacheEntry() *cacheEntry {
	e := &cacheEntry{}
	e.cond = sync.NewCond(&e.mu)
	return e
}

func (e *cacheEntry) get() idxapi.Index {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.idx
}

func (e *cacheEntry) invalidate() {
	e.mu.Lock()
	e.idx = nil
	e.gen++
	e.mu.Unlock()
}

// current reports whether no invalidation happened since gen was observed.
func (e *cacheEntry) current(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gen == gen
}

// acquire returns a cached index, or reports that the caller now owns the
// build together with the generation it builds for. Concurrent callers wait
// for the owner to finish.
func (e *cacheEntry) acquire() (idxapi.Index, uint64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for e.building {
		e.cond.Wait()
	}
	if e.idx != nil {
		return e.idx, e.gen, false
	}
	e.building = true
	return nil, e.gen, true
}

// finishBuild ends a build and caches idx unless the entry was invalidated
// after gen. It reports whether idx was cached.
func (e *cacheEntry) finishBuild(idx idxapi.Index, gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	cached := false
	if idx != nil && e.gen == gen {
		e.idx = idx
		cached = true
	}
	e.building = false
	e.cond.Broadcast()
	return cached
}

func cacheKey(dbPath, tableName string) string {
	return dbPath + "|" + tableName
}

func getCacheEntry(key string) *cacheEntry {
	sharedCache.mu.RLock()
	entry := sharedCache.byKey[key]
	sharedCache.mu.RUnlock()
	if entry != nil {
		return entry
	}
	sharedCache.mu.Lock()
	defer sharedCache.mu.Unlock()
	if entry = sharedCache.byKey[key]; entry == nil {
		entry = newCacheEntry()
		sharedCache.byKey[key] = entry
	}
	return entry
}

// InvalidateCache drops cached trees for a shadow table across active
// connections and returns how many entries were cleared.
func InvalidateCache(shadow string) int {
	tableName := tableNameFromShadow(shadow)
	if tableName == "" {
		tableName = shadow
	}
	suffix := "|" + tableName
	sharedCache.mu.RLock()
	defer sharedCache.mu.RUnlock()
	count := 0
	for k, entry := range sharedCache.byKey {
		if strings.HasSuffix(k, suffix) {
			entry.invalidate()
			count++
		}
	}
	return count
}

// QualifiedShadow returns the shadow table name for a kd virtual table.
func QualifiedShadow(dbName, tableName string) string {
	base := shadowPrefix + tableName
	if strings.TrimSpace(dbName) == "" {
		return base
	}
	return dbName + "." + base
}

func tableNameFromShadow(shadow string) string {
	if i := strings.Index(shadow, "."+shadowPrefix); i >= 0 {
		return shadow[i+len("."+shadowPrefix):]
	}
	if strings.HasPrefix(shadow, shadowPrefix) {
		return strings.TrimPrefix(shadow, shadowPrefix)
	}
	return ""
}

// CreateShadow creates the storage table, the shadow table of a kd virtual
// table and the triggers that invalidate its persisted tree on every write.
func CreateShadow(ctx context.Context, db *sql.DB, shadow string) error {
	if db == nil {
		return fmt.Errorf("kdvec: db is nil")
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + StorageTable + ` (
    shadow_table_name TEXT PRIMARY KEY,
    "index"           BLOB
)`,
		lockTableDDL,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id TEXT PRIMARY KEY,
    content TEXT,
    meta TEXT,
    embedding BLOB
)`, shadow),
	}
	trigBase := sanitizeName("trg_kd_" + shadow)
	shadowLit := quoteLiteral(shadow)
	body := `DELETE FROM ` + StorageTable + ` WHERE shadow_table_name = ` + shadowLit + `; SELECT kd_invalidate(` + shadowLit + `);`
	for _, event := range []string{"INSERT", "UPDATE", "DELETE"} {
		stmts = append(stmts, fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %s_%s AFTER %s ON %s BEGIN %s END;`,
			trigBase, strings.ToLower(event[:3]), event, shadow, body))
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func resolveDbPath(ctx context.Context, db *sql.DB, dbName string) (string, error) {
	if db == nil {
		return "", fmt.Errorf("kdvec: db is nil")
	}
	if dbName == "" {
		dbName = "main"
	}
	rows, err := db.QueryContext(ctx, `SELECT name, file FROM pragma_database_list`)
	if err != nil {
		return "", err
	}
	defer rows.Close()
	for rows.Next() {
		var name, file string
		if err := rows.Scan(&name, &file); err != nil {
			return "", err
		}
		if name == dbName {
			if file == "" {
				return name, nil
			}
			return file, nil
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return dbName, nil
}

func (t *Table) cachedDbPath(ctx context.Context) string {
	t.dbPathOnce.Do(func() {
		path, err := resolveDbPath(ctx, t.db, t.dbName)
		if err != nil {
			path = t.dbName
		}
		t.dbPath = path
	})
	return t.dbPath
}

// LoadIndex decodes a persisted index blob, choosing the implementation from
// its header.
func LoadIndex(blob []byte, opts ...kd.Option) (idxapi.Index, error) {
	if kd.IsBlob(blob) {
		idx := kd.New(opts...)
		if err := idx.UnmarshalBinary(blob); err != nil {
			return nil, err
		}
		return idx, nil
	}
	idx := &bruteforce.Index{}
	if err := idx.UnmarshalBinary(blob); err != nil {
		return nil, err
	}
	return idx, nil
}

func (t *Table) loadPersistedIndex(ctx context.Context) (idxapi.Index, bool, error) {
	var blob []byte
	err := t.db.QueryRowContext(ctx, `SELECT "index" FROM `+StorageTable+` WHERE shadow_table_name = ?`, t.shadow).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if len(blob) == 0 {
		return nil, false, nil
	}
	idx, err := LoadIndex(blob, kd.WithBuildParallelism(t.opts.buildParallelism()))
	if err != nil {
		// A corrupt blob is rebuilt from the shadow table.
		return nil, false, nil
	}
	return idx, true, nil
}

// Queryer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// LoadShadow reads every non-empty embedding from a shadow table in rowid order.
func LoadShadow(ctx context.Context, db Queryer, shadow string) ([]string, [][]float32, error) {
	q := fmt.Sprintf("SELECT id, embedding FROM %s WHERE length(embedding) > 0 ORDER BY rowid", shadow)
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var ids []string
	var vecs [][]float32
	for rows.Next() {
		var id string
		var emb []byte
		if err := rows.Scan(&id, &emb); err != nil {
			return nil, nil, err
		}
		v, err := vector.DecodeEmbedding(emb)
		if err != nil {
			return nil, nil, err
		}
		ids = append(ids, id)
		vecs = append(vecs, v)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return ids, vecs, nil
}

// BuildFunc builds an index over ids and vectors read from a shadow table.
type BuildFunc func(ids []string, vecs [][]float32) (idxapi.Index, error)

// Rebuild is the outcome of RebuildIndex.
type Rebuild struct {
	Index idxapi.Index
	Count int
	// Persisted is false when keep rejected the result or the write failed.
	Persisted bool
	// PersistErr holds the error of a failed kd_storage write.
	PersistErr error
}

// RebuildIndex reads the shadow table, builds an index and stores it in
// kd_storage inside one IMMEDIATE transaction, so no shadow write can commit
// between the read and the stored blob. When keep is not nil and returns
// false just before commit, the transaction is rolled back and the index is
// returned unpersisted.
func RebuildIndex(ctx context.Context, db *sql.DB, shadow string, build BuildFunc, keep func() bool) (*Rebuild, error) {
	if db == nil {
		return nil, fmt.Errorf("kdvec: db is nil")
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	if _, err := conn.ExecContext(ctx, `BEGIN IMMEDIATE`); err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), `ROLLBACK`)
		}
	}()

	ids, vecs, err := LoadShadow(ctx, conn, shadow)
	if err != nil {
		return nil, err
	}
	idx, err := build(ids, vecs)
	if err != nil {
		return nil, err
	}
	ret := &Rebuild{Index: idx, Count: len(ids)}
	if keep != nil && !keep() {
		return ret, nil
	}
	data, err := idx.MarshalBinary()
	if err != nil {
		ret.PersistErr = err
		return ret, nil
	}
	if _, err := conn.ExecContext(ctx, `INSERT OR REPLACE INTO `+StorageTable+`(shadow_table_name, "index") VALUES(?, ?)`, shadow, data); err != nil {
		ret.PersistErr = err
		return ret, nil
	}
	if _, err := conn.ExecContext(ctx, `COMMIT`); err != nil {
		ret.PersistErr = err
		return ret, nil
	}
	committed = true
	ret.Persisted = true
	return ret, nil
}

// buildIndex builds the index kind selected by the table options.
func (t *Table) buildIndex(ids []string, vecs [][]float32) (idxapi.Index, error) {
	var built idxapi.Index
	switch t.opts.resolveKind(len(ids)) {
	case kindBrute:
		built = &bruteforce.Index{}
	default:
		built = kd.New(kd.WithBuildParallelism(t.opts.buildParallelism()))
	}
	if err := built.Build(ids, vecs); err != nil {
		return nil, err
	}
	return built, nil
}

// ensureIndex loads or builds an in-memory index and persists it in kd_storage.
// A tree whose build overlapped a shadow write is served to the current query
// only; it is neither cached nor persisted.
func (t *Table) ensureIndex(ctx context.Context) (idxapi.Index, error) {
	entry := getCacheEntry(cacheKey(t.cachedDbPath(ctx), t.tableName))
	idx, gen, owner := entry.acquire()
	if !owner {
		return idx, nil
	}
	var built idxapi.Index
	defer func() { entry.finishBuild(built, gen) }()

	if err := CreateShadow(ctx, t.db, t.shadow); err != nil {
		return nil, err
	}
	if idx, ok, err := t.loadPersistedIndex(ctx); err != nil {
		return nil, err
	} else if ok {
		built = idx
		return idx, nil
	}

	unlock, err := AcquireBuildLock(ctx, t.db, t.shadow)
	if err != nil {
		return nil, err
	}
	defer unlock()
	// Another process may have persisted a tree while we waited.
	if idx, ok, err := t.loadPersistedIndex(ctx); err != nil {
		return nil, err
	} else if ok {
		built = idx
		return idx, nil
	}

	res, err := RebuildIndex(ctx, t.db, t.shadow, t.buildIndex, func() bool { return entry.current(gen) })
	if err != nil {
		return nil, err
	}
	built = res.Index
	return res.Index, nil
}

// lookupRow resolves the shadow rowid for a given id.
func (t *Table) lookupRow(ctx context.Context, id string) (int64, error) {
	q := fmt.Sprintf("SELECT rowid FROM %s WHERE id = ?", t.shadow)
	var rid int64
	if err := t.db.QueryRowContext(ctx, q, id).Scan(&rid); err != nil {
		return 0, err
	}
	return rid, nil
}

// sanitizeName converts a qualified name into a safe identifier for triggers.
func sanitizeName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_", " ", "_").Replace(name)
}

// quoteLiteral returns SQL string literal with single quotes escaped for safe embedding.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
