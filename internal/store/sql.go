package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/limaJavier/seating/pkg/model"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver
)

type dialect int

const (
	sqliteDialect dialect = iota
	postgresDialect
)

const schema = `CREATE TABLE IF NOT EXISTS seat_assignments (
	exam_id TEXT NOT NULL,
	seat_id TEXT NOT NULL,
	student_id TEXT NOT NULL,
	room_id TEXT NOT NULL,
	manual_override BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (exam_id, seat_id),
	UNIQUE (exam_id, student_id)
)`

const columns = `exam_id, student_id, room_id, seat_id, manual_override`

// SQLStore keeps the assignments in the seat_assignments table. Queries are written with "?" placeholders
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if path == "" {
		path = "seating.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serializes writers instead of failing them with SQLITE_BUSY
	db.SetMaxOpenConns(1)
	return newSQLStore(ctx, db, sqliteDialect)
}

func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return newSQLStore(ctx, db, postgresDialect)
}

func newSQLStore(ctx context.Context, db *sql.DB, dialect dialect) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create seat_assignments table: %w", err)
	}
	return &SQLStore{db: db, dialect: dialect}, nil
}

// Rewrites "?" placeholders as "$n" for postgres
func (store *SQLStore) rebind(query string) string {
	if store.dialect != postgresDialect {
		return query
	}
	var builder strings.Builder
	argument := 0
	for _, char := range query {
		if char == '?' {
			argument++
			builder.WriteString("$" + strconv.Itoa(argument))
			continue
		}
		builder.WriteRune(char)
	}
	return builder.String()
}

// Runs fn in a transaction, committed when fn succeeds
func (store *SQLStore) inTransaction(ctx context.Context, fn func(tx *sql.Tx) error) (retErr error) {
	tx, err := store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (store *SQLStore) DeleteAutomatic(ctx context.Context, exam string) error {
	query := store.rebind(`DELETE FROM seat_assignments WHERE exam_id = ? AND manual_override = ?`)
	if _, err := store.db.ExecContext(ctx, query, exam, false); err != nil {
		return fmt.Errorf("delete automatic assignments: %w", err)
	}
	return nil
}

func (store *SQLStore) ManualAssignments(ctx context.Context, exam string) ([]model.SeatAssignment, error) {
	query := store.rebind(`SELECT ` + columns + ` FROM seat_assignments WHERE exam_id = ? AND manual_override = ? ORDER BY room_id, seat_id`)
	return store.query(ctx, query, exam, true)
}

func (store *SQLStore) Assignments(ctx context.Context, exam, room string) ([]model.SeatAssignment, error) {
	if room == "" {
		query := store.rebind(`SELECT ` + columns + ` FROM seat_assignments WHERE exam_id = ? ORDER BY room_id, seat_id`)
		return store.query(ctx, query, exam)
	}
	query := store.rebind(`SELECT ` + columns + ` FROM seat_assignments WHERE exam_id = ? AND room_id = ? ORDER BY seat_id`)
	return store.query(ctx, query, exam, room)
}

func (store *SQLStore) query(ctx context.Context, query string, args ...any) ([]model.SeatAssignment, error) {
	rows, err := store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select assignments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	assignments := []model.SeatAssignment{}
	for rows.Next() {
		var assignment model.SeatAssignment
		if err := rows.Scan(&assignment.Exam, &assignment.Student, &assignment.Room, &assignment.Seat, &assignment.ManualOverride); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		assignments = append(assignments, assignment)
	}
	return assignments, rows.Err()
}

func (store *SQLStore) SaveAssignments(ctx context.Context, exam string, assignments []model.SeatAssignment) error {
	query := store.rebind(`INSERT INTO seat_assignments (` + columns + `) VALUES (?, ?, ?, ?, ?)`)
	return store.inTransaction(ctx, func(tx *sql.Tx) error {
		for _, assignment := range assignments {
			if _, err := tx.ExecContext(ctx, query, exam, assignment.Student, assignment.Room, assignment.Seat, assignment.ManualOverride); err != nil {
				return fmt.Errorf("insert assignment of student %v: %w", assignment.Student, err)
			}
		}
		return nil
	})
}

func (store *SQLStore) UpsertManual(ctx context.Context, assignment model.SeatAssignment) (model.SeatAssignment, error) {
	if err := validateManual(assignment); err != nil {
		return assignment, err
	}
	assignment.ManualOverride = true

	err := store.inTransaction(ctx, func(tx *sql.Tx) error {
		var occupant string
		err := tx.QueryRowContext(ctx, store.rebind(`SELECT student_id FROM seat_assignments WHERE exam_id = ? AND seat_id = ?`), assignment.Exam, assignment.Seat).Scan(&occupant)
		switch {
		case err == nil:
			// The student gives up any other seat before taking over the row
			if _, err := tx.ExecContext(ctx, store.rebind(`DELETE FROM seat_assignments WHERE exam_id = ? AND student_id = ? AND seat_id <> ?`),
				assignment.Exam, assignment.Student, assignment.Seat); err != nil {
				return fmt.Errorf("release previous seat: %w", err)
			}
			_, err = tx.ExecContext(ctx, store.rebind(`UPDATE seat_assignments SET student_id = ?, room_id = ?, manual_override = ? WHERE exam_id = ? AND seat_id = ?`),
				assignment.Student, assignment.Room, true, assignment.Exam, assignment.Seat)
			return err
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("select seat: %w", err)
		}

		result, err := tx.ExecContext(ctx, store.rebind(`UPDATE seat_assignments SET seat_id = ?, room_id = ?, manual_override = ? WHERE exam_id = ? AND student_id = ?`),
			assignment.Seat, assignment.Room, true, assignment.Exam, assignment.Student)
		if err != nil {
			return fmt.Errorf("move student: %w", err)
		}
		if moved, err := result.RowsAffected(); err != nil {
			return err
		} else if moved > 0 {
			return nil
		}

		_, err = tx.ExecContext(ctx, store.rebind(`INSERT INTO seat_assignments (`+columns+`) VALUES (?, ?, ?, ?, ?)`),
			assignment.Exam, assignment.Student, assignment.Room, assignment.Seat, true)
		return err
	})
	if err != nil {
		return assignment, fmt.Errorf("upsert manual assignment: %w", err)
	}
	return assignment, nil
}

func (store *SQLStore) Close() error {
	return store.db.Close()
}
