package sqlite

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"graphvault/internal/domain"
	"graphvault/internal/ports"
)

const schemaVersion = "1"

// Catalog implements ports.Catalog using SQLite
type Catalog struct {
	db       *sql.DB
	dataPath string
	dbPath   string
	log      logrus.FieldLogger
}

// Ensure Catalog implements ports.Catalog
var _ ports.Catalog = (*Catalog)(nil)

// NewCatalog creates a new SQLite catalog
func NewCatalog(log logrus.FieldLogger) *Catalog {
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	return &Catalog{log: log}
}

// Open initializes the catalog of the store at dataPath
func (c *Catalog) Open(dataPath string) error {
	if strings.HasPrefix(dataPath, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		dataPath = filepath.Join(home, dataPath[1:])
	}
	abs, err := filepath.Abs(dataPath)
	if err != nil {
		return fmt.Errorf("failed to resolve data path: %w", err)
	}

	c.dataPath = abs
	c.dbPath = DatabasePath(abs)

	if err := os.MkdirAll(filepath.Dir(c.dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+c.dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	c.db = db

	_, err = db.Exec(`
		PRAGMA synchronous = NORMAL;
		PRAGMA cache_size = -64000;
		PRAGMA temp_store = MEMORY;

		CREATE TABLE IF NOT EXISTS nodes (
			id INTEGER PRIMARY KEY,
			type TEXT NOT NULL,
			content TEXT NOT NULL,
			file_path TEXT NOT NULL,
			edge_count INTEGER NOT NULL,
			in_edge_count INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS edges (
			from_id INTEGER NOT NULL,
			to_id INTEGER NOT NULL,
			weight REAL NOT NULL,
			content TEXT NOT NULL,
			PRIMARY KEY (from_id, to_id)
		);
		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_id);
	`)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to setup database: %w", err)
	}

	c.log.WithField("action", "open_catalog").WithField("path", c.dbPath).Debug("catalog opened")
	return nil
}

// Close closes the database connection
func (c *Catalog) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Path returns the database file of the catalog
func (c *Catalog) Path() string {
	return c.dbPath
}

// NeedsFullRebuild returns true if the catalog was never built, was built by
// another schema version or for another store, or reflects a store revision
// other than revision
func (c *Catalog) NeedsFullRebuild(revision uint64) bool {
	var version, dataHash, lastSync, storeRevision string

	c.db.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'").Scan(&version)
	c.db.QueryRow("SELECT value FROM meta WHERE key = 'data_path_hash'").Scan(&dataHash)
	c.db.QueryRow("SELECT value FROM meta WHERE key = 'last_sync_time'").Scan(&lastSync)
	c.db.QueryRow("SELECT value FROM meta WHERE key = 'store_revision'").Scan(&storeRevision)

	if version != schemaVersion || dataHash != hashDataPath(c.dataPath) || lastSync == "" {
		return true
	}
	return storeRevision != strconv.FormatUint(revision, 10)
}

// DatabasePath returns the catalog database for the store at dataPath
func DatabasePath(dataPath string) string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "graphvault", hashDataPath(dataPath)+".db")
}

// hashDataPath returns a short hash of the data path
func hashDataPath(dataPath string) string {
	h := sha256.Sum256([]byte(dataPath))
	return hex.EncodeToString(h[:8])
}

const nodeColumns = `id, type, content, file_path, edge_count, in_edge_count`

func scanNode(row interface{ Scan(...any) error }) (domain.CatalogNode, error) {
	var (
		n        domain.CatalogNode
		nodeType string
	)
	if err := row.Scan(&n.ID, &nodeType, &n.Content, &n.FilePath, &n.EdgeCount, &n.InEdgeCount); err != nil {
		return n, err
	}
	t, err := domain.ParseNodeType(nodeType)
	if err != nil {
		return n, err
	}
	n.Type = t
	return n, nil
}

// GetNode retrieves a node by ID
func (c *Catalog) GetNode(id int64) (*domain.CatalogNode, error) {
	n, err := scanNode(c.db.QueryRow(`SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// SearchNodes returns the nodes whose content contains query, ignoring
// ASCII case
func (c *Catalog) SearchNodes(query string) ([]domain.CatalogNode, error) {
	pattern := "%" + escapeLike(query) + "%"
	return c.queryNodes(`SELECT `+nodeColumns+` FROM nodes WHERE content LIKE ? ESCAPE '\' ORDER BY id`, pattern)
}

// TopNodes returns the limit nodes with the most edges in either direction
func (c *Catalog) TopNodes(limit int) ([]domain.CatalogNode, error) {
	return c.queryNodes(`
		SELECT `+nodeColumns+` FROM nodes
		ORDER BY edge_count + in_edge_count DESC, id ASC
		LIMIT ?
	`, limit)
}

func (c *Catalog) queryNodes(query string, args ...any) ([]domain.CatalogNode, error) {
	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []domain.CatalogNode
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// EdgesTo returns all edges pointing to id
func (c *Catalog) EdgesTo(id int64) ([]domain.Edge, error) {
	rows, err := c.db.Query(`
		SELECT from_id, to_id, weight, content
		FROM edges WHERE to_id = ? ORDER BY from_id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []domain.Edge
	for rows.Next() {
		e := domain.Edge{Version: domain.LatestEdgeVersion}
		if err := rows.Scan(&e.From, &e.To, &e.Weight, &e.Content); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// beginTx starts a new transaction
func (c *Catalog) beginTx() (*catalogTx, error) {
	tx, err := c.db.Begin()
	if err != nil {
		return nil, err
	}
	return &catalogTx{tx: tx}, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
