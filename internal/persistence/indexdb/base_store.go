package indexdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"baseplan.ai/internal/sim/base"
	"baseplan.ai/internal/sim/geom"
)

// BaseStore persists base state in SQLite. Unlike SQLiteIndex every call is
// synchronous and each Save is one transaction, so a crash never leaves a
// base row without its delay queue.
type BaseStore struct {
	db *sql.DB
}

var _ base.Store = (*BaseStore)(nil)

func OpenBaseStore(path string) (*BaseStore, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bases (
			id TEXT PRIMARY KEY,
			center_x INTEGER,
			center_y INTEGER,
			no_layout INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS delay_queue (
			base_id TEXT NOT NULL REFERENCES bases(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			entry TEXT NOT NULL,
			PRIMARY KEY (base_id, seq)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &BaseStore{db: db}, nil
}

func (s *BaseStore) Close() error { return s.db.Close() }

func (s *BaseStore) Load(id string) (base.State, error) {
	st := base.State{ID: id}
	var (
		cx, cy   sql.NullInt64
		noLayout int
	)
	err := s.db.QueryRow(`SELECT center_x, center_y, no_layout FROM bases WHERE id = ?`, id).Scan(&cx, &cy, &noLayout)
	if errors.Is(err, sql.ErrNoRows) {
		return base.State{}, fmt.Errorf("base %q: %w", id, base.ErrNotFound)
	}
	if err != nil {
		return base.State{}, fmt.Errorf("base %q: %w", id, err)
	}
	if cx.Valid && cy.Valid {
		c := geom.C(int(cx.Int64), int(cy.Int64))
		st.Center = &c
	}
	st.NoLayout = noLayout != 0

	rows, err := s.db.Query(`SELECT entry FROM delay_queue WHERE base_id = ? ORDER BY seq`, id)
	if err != nil {
		return base.State{}, fmt.Errorf("base %q delay queue: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return base.State{}, err
		}
		e, err := base.ParseDelayEntry(raw)
		if err != nil {
			return base.State{}, fmt.Errorf("base %q delay queue: %w", id, err)
		}
		st.DelayQueue = append(st.DelayQueue, e)
	}
	return st, rows.Err()
}

func (s *BaseStore) Save(st base.State) error {
	if st.ID == "" {
		return fmt.Errorf("base id: %w", base.ErrInvalidArgument)
	}
	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var cx, cy sql.NullInt64
	if st.Center != nil {
		cx = sql.NullInt64{Int64: int64(st.Center.X), Valid: true}
		cy = sql.NullInt64{Int64: int64(st.Center.Y), Valid: true}
	}
	if _, err := tx.Exec(`INSERT INTO bases(id, center_x, center_y, no_layout) VALUES(?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET center_x = excluded.center_x, center_y = excluded.center_y, no_layout = excluded.no_layout`,
		st.ID, cx, cy, boolInt(st.NoLayout)); err != nil {
		return fmt.Errorf("base %q: %w", st.ID, err)
	}
	if _, err := tx.Exec(`DELETE FROM delay_queue WHERE base_id = ?`, st.ID); err != nil {
		return fmt.Errorf("base %q delay queue: %w", st.ID, err)
	}
	if len(st.DelayQueue) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO delay_queue(base_id, seq, entry) VALUES(?,?,?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, e := range st.DelayQueue {
			if _, err := stmt.Exec(st.ID, i, e.String()); err != nil {
				return fmt.Errorf("base %q delay queue: %w", st.ID, err)
			}
		}
	}
	return tx.Commit()
}

func (s *BaseStore) List() ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM bases ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
