// Package verdicts provides an SQLite based store of judge results.
package verdicts

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ardanlabs/bitsum/judge"
)

const (
	insertSQL = `
INSERT INTO verdicts (
	run, test, status, input, output, expected,
	elapsed_ns, compile_ns, memory_bytes, error, time
) VALUES (
	?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
)
`

	schemaSQL = `
CREATE TABLE IF NOT EXISTS verdicts (
    run VARCHAR(64),
    test INTEGER,
    status VARCHAR(32),
    input TEXT,
    output TEXT,
    expected TEXT,
    elapsed_ns INTEGER,
    compile_ns INTEGER,
    memory_bytes INTEGER,
    error TEXT,
    time TIMESTAMP
);

CREATE INDEX IF NOT EXISTS verdicts_run ON verdicts(run);
`

	summarySQL = `
SELECT status, COUNT(*) FROM verdicts WHERE run = ? GROUP BY status
`
)

// Summary is the number of results per status in a run.
type Summary map[judge.Status]int

// Total returns the number of results in the summary.
func (s Summary) Total() int {
	n := 0
	for _, c := range s {
		n += c
	}
	return n
}

const (
	// flushSize is the number of pending results that triggers a flush.
	flushSize = 256
	// maxPending caps results kept in memory while flushes keep failing.
	maxPending = 4 * flushSize
)

type record struct {
	run    string
	result judge.Result
	time   time.Time
}

// DB is a database of judge verdicts.
type DB struct {
	sql      *sql.DB
	stmt     *sql.Stmt
	pending  []record
	flushAt  int
	flushErr error // last failed flush, nil once a flush succeeds
}

// NewDB opens (or creates) the verdicts database in dbFile.
// This API is not thread safe.
func NewDB(dbFile string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", dbFile)
	if err != nil {
		return nil, err
	}

	if _, err = sqlDB.Exec(schemaSQL); err != nil {
		sqlDB.Close()
		return nil, err
	}

	stmt, err := sqlDB.Prepare(insertSQL)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	db := DB{
		sql:     sqlDB,
		stmt:    stmt,
		pending: make([]record, 0, flushSize),
		flushAt: flushSize,
	}
	return &db, nil
}

// Add queues a result of run. Every flushAt results are written in one
// transaction. Results of a failed write stay queued and are retried on the
// next Add, Flush or Close. Once too many are queued, Add refuses new results
// and returns the write error.
func (db *DB) Add(run string, r judge.Result) error {
	if len(db.pending) >= maxPending && db.flushErr != nil {
		return fmt.Errorf("%d verdicts not stored: %w", len(db.pending), db.flushErr)
	}

	db.pending = append(db.pending, record{run: run, result: r, time: time.Now()})
	if len(db.pending) < db.flushAt {
		return nil
	}

	if err := db.Flush(); err != nil {
		return fmt.Errorf("unable to store verdicts: %w", err)
	}
	return nil
}

// AddRun stores all results of run.
func (db *DB) AddRun(run string, results []judge.Result) error {
	for _, r := range results {
		if err := db.Add(run, r); err != nil {
			return err
		}
	}
	return db.Flush()
}

// Flush writes queued results to the database.
func (db *DB) Flush() error {
	if len(db.pending) == 0 {
		return nil
	}

	if err := db.insert(db.pending); err != nil {
		db.flushErr = err
		return err
	}

	db.pending = db.pending[:0]
	db.flushErr = nil
	return nil
}

func (db *DB) insert(recs []record) error {
	tx, err := db.sql.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt := tx.Stmt(db.stmt)
	for _, rec := range recs {
		r := rec.result
		_, err := stmt.Exec(
			rec.run, r.Test, string(r.Status), r.Input, r.Output, r.Expected,
			r.Elapsed.Nanoseconds(), r.CompileTime.Nanoseconds(), r.Memory,
			r.Error, rec.time,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Summary writes queued results and returns the status counts for run.
func (db *DB) Summary(run string) (Summary, error) {
	if err := db.Flush(); err != nil {
		return nil, err
	}

	rows, err := db.sql.Query(summarySQL, run)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	s := make(Summary)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		s[judge.Status(status)] = count
	}

	return s, rows.Err()
}

// Close writes queued results and closes the database. Results that could
// not be written are reported in the error.
func (db *DB) Close() error {
	var ferr error
	if err := db.Flush(); err != nil {
		ferr = fmt.Errorf("%d verdicts not stored: %w", len(db.pending), err)
	}

	return errors.Join(ferr, db.stmt.Close(), db.sql.Close())
}
