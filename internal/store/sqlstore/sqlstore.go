// Package sqlstore is the durable store backend over a workspace SQLite
// database. Nodes are persisted as JSON documents in a single table; version
// checks use compare-and-swap updates so concurrent writers observe
// store.ErrConflict instead of clobbering each other.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"orgline/internal/store"
)

type Store struct {
	DB *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) Get(ctx context.Context, id string) (store.Node, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id,scope,kind,version,index_json,payload,created_at,updated_at,created_by,updated_by FROM nodes WHERE id=?`, id)
	return scanNode(row)
}

func (s *Store) Put(ctx context.Context, n store.Node) (store.Node, error) {
	indexJSON, err := marshalIndex(n.Index)
	if err != nil {
		return store.Node{}, err
	}
	if n.Version == 0 {
		_, err := s.DB.ExecContext(ctx,
			`INSERT INTO nodes(id,scope,kind,version,index_json,payload,created_at,updated_at,created_by,updated_by) VALUES (?,?,?,?,?,?,?,?,?,?)`,
			n.ID, n.Scope, n.Kind, 1, indexJSON, string(n.Payload), n.CreatedAt, n.UpdatedAt, n.CreatedBy, n.UpdatedBy)
		if err != nil {
			// Unique constraint on id: the node already exists.
			if exists, checkErr := s.exists(ctx, n.ID); checkErr == nil && exists {
				return store.Node{}, store.ErrConflict
			}
			return store.Node{}, err
		}
		n.Version = 1
		return n, nil
	}
	res, err := s.DB.ExecContext(ctx,
		`UPDATE nodes SET version=?, index_json=?, payload=?, updated_at=?, updated_by=? WHERE id=? AND version=?`,
		n.Version+1, indexJSON, string(n.Payload), n.UpdatedAt, n.UpdatedBy, n.ID, n.Version)
	if err != nil {
		return store.Node{}, err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		if exists, checkErr := s.exists(ctx, n.ID); checkErr == nil && !exists {
			return store.Node{}, store.ErrNotFound
		}
		return store.Node{}, store.ErrConflict
	}
	n.Version++
	return n, nil
}

func (s *Store) Remove(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM nodes WHERE id=?`, id)
	return err
}

func (s *Store) FindByKind(ctx context.Context, scope, kind string, filter store.Filter) ([]store.Node, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id,scope,kind,version,index_json,payload,created_at,updated_at,created_by,updated_by FROM nodes WHERE scope=? AND kind=?`,
		scope, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []store.Node
	for rows.Next() {
		n, err := scanNodeRows(rows)
		if err != nil {
			return nil, err
		}
		if !filter.Matches(n) {
			continue
		}
		res = append(res, n)
	}
	return res, rows.Err()
}

func (s *Store) exists(ctx context.Context, id string) (bool, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT 1 FROM nodes WHERE id=? LIMIT 1`, id)
	var one int
	err := row.Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func marshalIndex(idx map[string]string) (any, error) {
	if len(idx) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(idx)
	if err != nil {
		return nil, fmt.Errorf("marshal node index: %w", err)
	}
	return string(b), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row *sql.Row) (store.Node, error) {
	n, err := scanFrom(row)
	if err == sql.ErrNoRows {
		return store.Node{}, store.ErrNotFound
	}
	return n, err
}

func scanNodeRows(rows *sql.Rows) (store.Node, error) {
	return scanFrom(rows)
}

func scanFrom(sc rowScanner) (store.Node, error) {
	var n store.Node
	var indexJSON sql.NullString
	var payload string
	err := sc.Scan(&n.ID, &n.Scope, &n.Kind, &n.Version, &indexJSON, &payload, &n.CreatedAt, &n.UpdatedAt, &n.CreatedBy, &n.UpdatedBy)
	if err != nil {
		return n, err
	}
	n.Payload = []byte(payload)
	if indexJSON.Valid && indexJSON.String != "" {
		if err := json.Unmarshal([]byte(indexJSON.String), &n.Index); err != nil {
			return n, fmt.Errorf("unmarshal node index: %w", err)
		}
	}
	return n, nil
}
