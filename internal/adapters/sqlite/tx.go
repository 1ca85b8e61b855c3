package sqlite

import (
	"database/sql"

	"graphvault/internal/domain"
)

// catalogTx groups the writes of one sync
type catalogTx struct {
	tx *sql.Tx
}

// clear removes every node and edge row
func (t *catalogTx) clear() error {
	if _, err := t.tx.Exec(`DELETE FROM nodes`); err != nil {
		return err
	}
	_, err := t.tx.Exec(`DELETE FROM edges`)
	return err
}

// upsertNode inserts or updates a node with its registry counters
func (t *catalogTx) upsertNode(node *domain.Node, entry domain.RegistryEntry) error {
	_, err := t.tx.Exec(`
		INSERT OR REPLACE INTO nodes (id, type, content, file_path, edge_count, in_edge_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`, node.ID, node.Type.String(), node.Content, entry.FilePath, entry.EdgeCount, entry.InEdgeCount)
	return err
}

// insertEdge adds an edge
func (t *catalogTx) insertEdge(edge *domain.Edge) error {
	_, err := t.tx.Exec(`
		INSERT OR REPLACE INTO edges (from_id, to_id, weight, content)
		VALUES (?, ?, ?, ?)
	`, edge.From, edge.To, edge.Weight, edge.Content)
	return err
}

// setMeta records a metadata value
func (t *catalogTx) setMeta(key, value string) error {
	_, err := t.tx.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, key, value)
	return err
}

// commit commits the transaction
func (t *catalogTx) commit() error {
	return t.tx.Commit()
}

// rollback aborts the transaction
func (t *catalogTx) rollback() error {
	return t.tx.Rollback()
}
