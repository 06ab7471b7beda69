package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// dbQuery returns the SQL for a named read of the report index.
func dbQuery(name, baseID string, limit int) (string, []any, error) {
	if limit <= 0 {
		limit = 20
	}
	switch name {
	case "snapshots":
		return `SELECT tick,path,seed,rooms,bases,workforce FROM snapshots ORDER BY tick DESC LIMIT ?`, []any{limit}, nil
	case "reports":
		if baseID != "" {
			return `SELECT run_id,base_id,tick,tier,placed,satisfied,deferred,skipped,blocked,destroyed,builder_requested FROM reports WHERE base_id=? ORDER BY tick DESC LIMIT ?`, []any{baseID, limit}, nil
		}
		return `SELECT run_id,base_id,tick,tier,placed,satisfied,deferred,skipped,blocked,destroyed,builder_requested FROM reports ORDER BY tick DESC LIMIT ?`, []any{limit}, nil
	case "failures":
		if baseID != "" {
			return `SELECT f.run_id,r.tick,f.x,f.y,f.type,f.code FROM failures f JOIN reports r ON r.run_id=f.run_id WHERE r.base_id=? ORDER BY r.tick DESC, f.seq LIMIT ?`, []any{baseID, limit}, nil
		}
		return `SELECT f.run_id,r.tick,f.x,f.y,f.type,f.code FROM failures f JOIN reports r ON r.run_id=f.run_id ORDER BY r.tick DESC, f.seq LIMIT ?`, []any{limit}, nil
	case "audits":
		if baseID != "" {
			return `SELECT tick,base_id,action,COALESCE(actor,''),COALESCE(detail,'') FROM audits WHERE base_id=? ORDER BY tick DESC, seq DESC LIMIT ?`, []any{baseID, limit}, nil
		}
		return `SELECT tick,base_id,action,COALESCE(actor,''),COALESCE(detail,'') FROM audits ORDER BY tick DESC, seq DESC LIMIT ?`, []any{limit}, nil
	}
	return "", nil, fmt.Errorf("unknown query %q", name)
}

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	baseID := fs.String("base", "", "base id filter (reports/failures/audits)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	name := "snapshots"
	if fs.NArg() > 0 {
		name = strings.TrimSpace(fs.Arg(0))
	}
	q, qargs, err := dbQuery(name, strings.TrimSpace(*baseID), *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data|-db PATH] [-base ID] [-limit N] snapshots|reports|failures|audits")
		os.Exit(2)
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "reports.sqlite")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	out, err := queryRows(db, name, q, qargs...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	for _, v := range out {
		printJSON(v)
	}
}

func queryRows(db *sql.DB, name, q string, args ...any) ([]any, error) {
	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []any
	for rows.Next() {
		v, err := scanRow(rows, name)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanRow(rows *sql.Rows, name string) (any, error) {
	switch name {
	case "snapshots":
		var r struct {
			Tick      int64  `json:"tick"`
			Path      string `json:"path"`
			Seed      int64  `json:"seed"`
			Rooms     int    `json:"rooms"`
			Bases     int    `json:"bases"`
			Workforce int    `json:"workforce"`
		}
		err := rows.Scan(&r.Tick, &r.Path, &r.Seed, &r.Rooms, &r.Bases, &r.Workforce)
		return r, err
	case "reports":
		var r struct {
			RunID            string `json:"run_id"`
			BaseID           string `json:"base_id"`
			Tick             int64  `json:"tick"`
			Tier             int    `json:"tier"`
			Placed           int    `json:"placed"`
			Satisfied        int    `json:"satisfied"`
			Deferred         int    `json:"deferred"`
			Skipped          int    `json:"skipped"`
			Blocked          int    `json:"blocked"`
			Destroyed        int    `json:"destroyed"`
			BuilderRequested bool   `json:"builder_requested"`
		}
		err := rows.Scan(&r.RunID, &r.BaseID, &r.Tick, &r.Tier, &r.Placed, &r.Satisfied, &r.Deferred, &r.Skipped, &r.Blocked, &r.Destroyed, &r.BuilderRequested)
		return r, err
	case "failures":
		var r struct {
			RunID string `json:"run_id"`
			Tick  int64  `json:"tick"`
			X     int    `json:"x"`
			Y     int    `json:"y"`
			Type  string `json:"type"`
			Code  int    `json:"code"`
		}
		err := rows.Scan(&r.RunID, &r.Tick, &r.X, &r.Y, &r.Type, &r.Code)
		return r, err
	default:
		var r struct {
			Tick   int64  `json:"tick"`
			BaseID string `json:"base_id"`
			Action string `json:"action"`
			Actor  string `json:"actor,omitempty"`
			Detail string `json:"detail,omitempty"`
		}
		err := rows.Scan(&r.Tick, &r.BaseID, &r.Action, &r.Actor, &r.Detail)
		return r, err
	}
}
