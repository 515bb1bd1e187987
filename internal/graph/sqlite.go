package graph

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cognee-ai/cognee-go/internal/types"
)

// SQLiteStore is a file-backed graph store. One file per dataset; the
// path is derived deterministically by the storage router.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// NewSQLiteStore opens (or creates) the graph store file at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, types.NewError(types.ErrCodeValidation, "graph store path cannot be empty")
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph store: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping graph store: %w", err)
	}

	store := &SQLiteStore{db: db, path: path}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS nodes (
			id         TEXT PRIMARY KEY,
			type       TEXT NOT NULL,
			name       TEXT NOT NULL,
			properties TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_nodes_type ON nodes(type);

		CREATE TABLE IF NOT EXISTS edges (
			source_id  TEXT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
			target_id  TEXT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
			type       TEXT NOT NULL,
			properties TEXT,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (source_id, target_id, type)
		);

		CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id);
	`)
	if err != nil {
		return fmt.Errorf("failed to create graph schema: %w", err)
	}
	return nil
}

// Path returns the store's file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// UpsertNodes inserts or updates nodes by ID in one transaction.
func (s *SQLiteStore) UpsertNodes(ctx context.Context, nodes []Node) error {
	for i := range nodes {
		if err := nodes[i].Validate(); err != nil {
			return types.WrapError(types.ErrCodeValidation,
				fmt.Sprintf("invalid node at index %d", i), err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("graph store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, node := range nodes {
		props, err := marshalProps(node.Properties)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO nodes (id, type, name, properties, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				type = excluded.type,
				name = excluded.name,
				properties = excluded.properties,
				updated_at = excluded.updated_at
		`, node.ID.String(), string(node.Type), node.Name, props, node.CreatedAt, node.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert node %s: %w", node.ID.Short(), err)
		}
	}

	return tx.Commit()
}

// UpsertEdges inserts or updates edges by (source, target, type).
func (s *SQLiteStore) UpsertEdges(ctx context.Context, edges []Edge) error {
	for i := range edges {
		if err := edges[i].Validate(); err != nil {
			return types.WrapError(types.ErrCodeValidation,
				fmt.Sprintf("invalid edge at index %d", i), err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("graph store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, edge := range edges {
		props, err := marshalProps(edge.Properties)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO edges (source_id, target_id, type, properties, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (source_id, target_id, type) DO UPDATE SET
				properties = excluded.properties
		`, edge.SourceID.String(), edge.TargetID.String(), string(edge.Type), props, edge.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert edge %s->%s: %w",
				edge.SourceID.Short(), edge.TargetID.Short(), err)
		}
	}

	return tx.Commit()
}

// GetNode retrieves a node by ID.
func (s *SQLiteStore) GetNode(ctx context.Context, id types.ID) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, type, name, properties, created_at, updated_at FROM nodes WHERE id = ?",
		id.String())

	node, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, types.NewNotFoundError("node", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get node: %w", err)
	}
	return node, nil
}

// Neighbors returns nodes directly connected to the given node in
// either direction, plus the connecting edges.
func (s *SQLiteStore) Neighbors(ctx context.Context, id types.ID) ([]Node, []Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT n.id, n.type, n.name, n.properties, n.created_at, n.updated_at
		FROM nodes n
		WHERE n.id IN (
			SELECT target_id FROM edges WHERE source_id = ?
			UNION
			SELECT source_id FROM edges WHERE target_id = ?
		)
	`, id.String(), id.String())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query neighbors: %w", err)
	}
	defer rows.Close()

	nodes := make([]Node, 0)
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan neighbor: %w", err)
		}
		nodes = append(nodes, *node)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	edgeRows, err := s.db.QueryContext(ctx, `
		SELECT source_id, target_id, type, properties, created_at
		FROM edges WHERE source_id = ? OR target_id = ?
	`, id.String(), id.String())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer edgeRows.Close()

	edges, err := scanEdges(edgeRows)
	if err != nil {
		return nil, nil, err
	}
	return nodes, edges, nil
}

// ListNodes returns all nodes, optionally filtered by type.
func (s *SQLiteStore) ListNodes(ctx context.Context, nodeType NodeType) ([]Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, type, name, properties, created_at, updated_at FROM nodes"
	args := []interface{}{}
	if nodeType != "" {
		query += " WHERE type = ?"
		args = append(args, string(nodeType))
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	defer rows.Close()

	nodes := make([]Node, 0)
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		nodes = append(nodes, *node)
	}
	return nodes, rows.Err()
}

// ListEdges returns all edges.
func (s *SQLiteStore) ListEdges(ctx context.Context) ([]Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT source_id, target_id, type, properties, created_at FROM edges")
	if err != nil {
		return nil, fmt.Errorf("failed to list edges: %w", err)
	}
	defer rows.Close()

	return scanEdges(rows)
}

// DeleteAll removes every node and edge.
func (s *SQLiteStore) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM edges"); err != nil {
		return fmt.Errorf("failed to delete edges: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM nodes"); err != nil {
		return fmt.Errorf("failed to delete nodes: %w", err)
	}
	return nil
}

// Close closes the underlying database file.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func scanNode(scanner interface {
	Scan(dest ...interface{}) error
}) (*Node, error) {
	var n Node
	var idStr, typeStr string
	var props sql.NullString

	if err := scanner.Scan(&idStr, &typeStr, &n.Name, &props, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}

	n.ID = types.ID(idStr)
	n.Type = NodeType(typeStr)
	if props.Valid && props.String != "" {
		if err := json.Unmarshal([]byte(props.String), &n.Properties); err != nil {
			return nil, fmt.Errorf("failed to unmarshal node properties: %w", err)
		}
	}
	return &n, nil
}

func scanEdges(rows *sql.Rows) ([]Edge, error) {
	edges := make([]Edge, 0)
	for rows.Next() {
		var e Edge
		var srcStr, tgtStr, typeStr string
		var props sql.NullString

		if err := rows.Scan(&srcStr, &tgtStr, &typeStr, &props, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		e.SourceID = types.ID(srcStr)
		e.TargetID = types.ID(tgtStr)
		e.Type = EdgeType(typeStr)
		if props.Valid && props.String != "" {
			if err := json.Unmarshal([]byte(props.String), &e.Properties); err != nil {
				return nil, fmt.Errorf("failed to unmarshal edge properties: %w", err)
			}
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func marshalProps(props map[string]any) (interface{}, error) {
	if props == nil {
		return nil, nil
	}
	data, err := json.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal properties: %w", err)
	}
	return string(data), nil
}

var _ Store = (*SQLiteStore)(nil)
