package sqlite

import (
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"

	"graphvault/internal/domain"
	"graphvault/internal/ports"
)

// SyncFull performs a complete rebuild of the catalog from store. Records
// the store cannot read are skipped and counted; the rebuild is committed
// as one transaction.
func (c *Catalog) SyncFull(store ports.GraphStore) (*domain.SyncStats, error) {
	start := time.Now()
	stats := &domain.SyncStats{}
	// read before the walk so writes racing the sync leave the catalog stale
	revision := store.Revision()

	tx, err := c.beginTx()
	if err != nil {
		return nil, err
	}
	defer tx.rollback()

	if err := tx.clear(); err != nil {
		return nil, err
	}

	for _, entry := range store.Registry() {
		node, err := store.LoadNode(entry.NodeID)
		if err != nil || node == nil {
			stats.RecordErrors++
			c.log.WithField("action", "sync_catalog").
				WithField("node", entry.NodeID).
				WithError(err).
				Warn("skipping unreadable node")
			continue
		}
		if err := tx.upsertNode(node, entry); err != nil {
			return nil, err
		}
		stats.NodesAdded++

		edges, err := store.LoadEdges(entry.NodeID, domain.Outgoing)
		if err != nil {
			stats.RecordErrors += countErrors(err)
			c.log.WithField("action", "sync_catalog").
				WithField("node", entry.NodeID).
				WithError(err).
				Warn("skipping unreadable edges")
		}
		for i := range edges {
			if err := tx.insertEdge(&edges[i]); err != nil {
				return nil, err
			}
			stats.EdgesAdded++
		}
	}

	if err := tx.setMeta("schema_version", schemaVersion); err != nil {
		return nil, err
	}
	if err := tx.setMeta("data_path_hash", hashDataPath(c.dataPath)); err != nil {
		return nil, err
	}
	if err := tx.setMeta("store_revision", strconv.FormatUint(revision, 10)); err != nil {
		return nil, err
	}
	if err := tx.setMeta("last_sync_time", strconv.FormatInt(time.Now().Unix(), 10)); err != nil {
		return nil, err
	}
	if err := tx.commit(); err != nil {
		return nil, err
	}

	stats.Duration = time.Since(start)
	c.log.WithField("action", "sync_catalog").
		WithField("nodes", stats.NodesAdded).
		WithField("edges", stats.EdgesAdded).
		WithField("duration", stats.Duration).
		Info("catalog rebuilt")
	return stats, nil
}

// countErrors returns how many record failures err aggregates
func countErrors(err error) int {
	if merr, ok := err.(*multierror.Error); ok {
		return len(merr.Errors)
	}
	return 1
}
