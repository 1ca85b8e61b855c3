package filesystem

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"graphvault/internal/domain"
)

// recordCache holds decoded records keyed by file path. A nil cache is
// disabled and every method is a no-op. Callers invalidate a path on every
// write or delete of that path.
type recordCache struct {
	nodes *lru.Cache[string, domain.Node]
	edges *lru.Cache[string, domain.Edge]
}

func newRecordCache(size int) (*recordCache, error) {
	if size <= 0 {
		return nil, nil
	}
	nodes, err := lru.New[string, domain.Node](size)
	if err != nil {
		return nil, err
	}
	edges, err := lru.New[string, domain.Edge](size)
	if err != nil {
		return nil, err
	}
	return &recordCache{nodes: nodes, edges: edges}, nil
}

func (c *recordCache) node(path string) (domain.Node, bool) {
	if c == nil {
		return domain.Node{}, false
	}
	n, ok := c.nodes.Get(path)
	if ok {
		n.Properties = n.Properties.Clone()
	}
	return n, ok
}

func (c *recordCache) putNode(path string, n domain.Node) {
	if c == nil {
		return
	}
	n.Properties = n.Properties.Clone()
	c.nodes.Add(path, n)
}

func (c *recordCache) edge(path string) (domain.Edge, bool) {
	if c == nil {
		return domain.Edge{}, false
	}
	e, ok := c.edges.Get(path)
	if ok {
		e.Properties = e.Properties.Clone()
	}
	return e, ok
}

func (c *recordCache) putEdge(path string, e domain.Edge) {
	if c == nil {
		return
	}
	e.Properties = e.Properties.Clone()
	c.edges.Add(path, e)
}

func (c *recordCache) invalidate(paths ...string) {
	if c == nil {
		return
	}
	for _, p := range paths {
		c.nodes.Remove(p)
		c.edges.Remove(p)
	}
}

func (c *recordCache) purge() {
	if c == nil {
		return
	}
	c.nodes.Purge()
	c.edges.Purge()
}
