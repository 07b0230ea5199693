package models

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// The advisory lock is connection-scoped, so RELEASE_LOCK must reach the
// server while the transaction is still live. Statements issued after
// Commit/Rollback are silently refused by database/sql, which would leave the
// pooled connection holding the lock and block every later mutation for the
// same shop. These tests replay the lock bracket against a recording driver
// and check the wire order.

type sqlRecorder struct {
	mu         sync.Mutex
	statements []string
}

func (r *sqlRecorder) add(q string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statements = append(r.statements, q)
}

func (r *sqlRecorder) indexOf(substr string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, q := range r.statements {
		if strings.Contains(q, substr) {
			return i
		}
	}
	return -1
}

type fakeConnector struct{ rec *sqlRecorder }

func (c fakeConnector) Connect(context.Context) (driver.Conn, error) {
	return &fakeConn{rec: c.rec}, nil
}

func (c fakeConnector) Driver() driver.Driver { return fakeDriver{} }

type fakeDriver struct{}

func (fakeDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("open through the connector")
}

type fakeConn struct{ rec *sqlRecorder }

func (c *fakeConn) Prepare(q string) (driver.Stmt, error) {
	return &fakeStmt{conn: c, query: q}, nil
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) Begin() (driver.Tx, error) {
	c.rec.add("BEGIN")
	return fakeTx{rec: c.rec}, nil
}

func (c *fakeConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return c.Begin()
}

func (c *fakeConn) QueryContext(_ context.Context, q string, _ []driver.NamedValue) (driver.Rows, error) {
	c.rec.add(q)
	if strings.Contains(q, "GET_LOCK") || strings.Contains(q, "RELEASE_LOCK") {
		return &fakeRows{cols: []string{"v"}, vals: []driver.Value{int64(1)}}, nil
	}
	return &fakeRows{}, nil
}

func (c *fakeConn) ExecContext(_ context.Context, q string, _ []driver.NamedValue) (driver.Result, error) {
	c.rec.add(q)
	return driver.RowsAffected(1), nil
}

type fakeStmt struct {
	conn  *fakeConn
	query string
}

func (s *fakeStmt) Close() error  { return nil }
func (s *fakeStmt) NumInput() int { return -1 }

func (s *fakeStmt) Exec([]driver.Value) (driver.Result, error) {
	return s.conn.ExecContext(context.Background(), s.query, nil)
}

func (s *fakeStmt) Query([]driver.Value) (driver.Rows, error) {
	return s.conn.QueryContext(context.Background(), s.query, nil)
}

type fakeTx struct{ rec *sqlRecorder }

func (t fakeTx) Commit() error {
	t.rec.add("COMMIT")
	return nil
}

func (t fakeTx) Rollback() error {
	t.rec.add("ROLLBACK")
	return nil
}

type fakeRows struct {
	cols []string
	vals []driver.Value
	done bool
}

func (r *fakeRows) Columns() []string { return r.cols }
func (r *fakeRows) Close() error      { return nil }

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.done || len(r.cols) == 0 {
		return io.EOF
	}
	copy(dest, r.vals)
	r.done = true
	return nil
}

func openRecordingDB(t *testing.T) (*gorm.DB, *sqlRecorder) {
	t.Helper()
	rec := &sqlRecorder{}
	sqlDB := sql.OpenDB(fakeConnector{rec: rec})
	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open gorm: %v", err)
	}
	return db, rec
}

func TestRunShopMutation_ReleasesLockBeforeCommit(t *testing.T) {
	db, rec := openRecordingDB(t)

	err := runShopMutation(db, "shop-1", func(tx *gorm.DB) error {
		return tx.Exec("UPDATE shops SET name = name WHERE id = ?", "shop-1").Error
	})
	if err != nil {
		t.Fatalf("runShopMutation: %v", err)
	}

	acquire := rec.indexOf("GET_LOCK")
	release := rec.indexOf("RELEASE_LOCK")
	commit := rec.indexOf("COMMIT")

	if acquire == -1 {
		t.Fatal("GET_LOCK was never sent")
	}
	if release == -1 {
		t.Fatal("RELEASE_LOCK was never sent")
	}
	if commit == -1 {
		t.Fatal("COMMIT was never sent")
	}
	if !(acquire < release && release < commit) {
		t.Fatalf("wrong statement order: %v", rec.statements)
	}
	if rec.indexOf("ROLLBACK") != -1 {
		t.Fatalf("unexpected rollback: %v", rec.statements)
	}
}

func TestRunShopMutation_ReleasesLockBeforeRollback(t *testing.T) {
	db, rec := openRecordingDB(t)

	wantErr := errors.New("mutation rejected")
	err := runShopMutation(db, "shop-1", func(tx *gorm.DB) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected mutation error, got %v", err)
	}

	release := rec.indexOf("RELEASE_LOCK")
	rollback := rec.indexOf("ROLLBACK")

	if release == -1 {
		t.Fatal("RELEASE_LOCK was never sent")
	}
	if rollback == -1 {
		t.Fatal("ROLLBACK was never sent")
	}
	if release > rollback {
		t.Fatalf("lock released after rollback: %v", rec.statements)
	}
	if rec.indexOf("COMMIT") != -1 {
		t.Fatalf("unexpected commit: %v", rec.statements)
	}
}
