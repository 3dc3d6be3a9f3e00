package kdvec

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"
)

// LockTable serialises tree builds for one shadow table across processes.
const LockTable = "kd_storage_locks"

const (
	lockRetryDelay = 50 * time.Millisecond
	lockStaleAfter = 2 * time.Minute
)

var lockOwnerID = fmt.Sprintf("pid:%d-%d", os.Getpid(), time.Now().UnixNano())

const lockTableDDL = `CREATE TABLE IF NOT EXISTS ` + LockTable + ` (
    shadow_table_name TEXT PRIMARY KEY,
    owner             TEXT NOT NULL,
    locked_at         INTEGER NOT NULL
)`

// AcquireBuildLock blocks until this process owns the build lock of shadow
// or ctx is done. Locks older than two minutes are taken over. The returned
// func releases the lock.
func AcquireBuildLock(ctx context.Context, db *sql.DB, shadow string) (func(), error) {
	if db == nil {
		return nil, fmt.Errorf("kdvec: db is nil")
	}
	if _, err := db.ExecContext(ctx, lockTableDDL); err != nil {
		return nil, err
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		owner, err := tryLock(ctx, db, shadow)
		if err != nil {
			return nil, err
		}
		if owner == lockOwnerID {
			return func() {
				_, _ = db.ExecContext(context.Background(), `DELETE FROM `+LockTable+` WHERE shadow_table_name = ? AND owner = ?`, shadow, lockOwnerID)
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
}

// tryLock claims a free or stale lock row and returns its current owner.
func tryLock(ctx context.Context, db *sql.DB, shadow string) (string, error) {
	now := time.Now().Unix()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO `+LockTable+`(shadow_table_name, owner, locked_at) VALUES(?, ?, ?)`, shadow, lockOwnerID, now); err != nil {
		return "", err
	}
	var owner string
	var lockedAt int64
	if err := tx.QueryRowContext(ctx, `SELECT owner, locked_at FROM `+LockTable+` WHERE shadow_table_name = ?`, shadow).Scan(&owner, &lockedAt); err != nil {
		return "", err
	}
	if owner != lockOwnerID && lockedAt <= time.Now().Add(-lockStaleAfter).Unix() {
		res, err := tx.ExecContext(ctx, `UPDATE `+LockTable+` SET owner = ?, locked_at = ? WHERE shadow_table_name = ? AND locked_at = ?`, lockOwnerID, now, shadow, lockedAt)
		if err != nil {
			return "", err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			owner = lockOwnerID
		}
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return owner, nil
}
