package api

import (
	"fmt"
	"sync"

	"github.com/papercomputeco/tablechat/pkg/assistant"
	"github.com/papercomputeco/tablechat/pkg/table"
	"github.com/papercomputeco/tablechat/pkg/transcript"
)

// tableCache keeps parsed tables per session so a question does not re-read
// the upload from disk.
type tableCache struct {
	mu     sync.RWMutex
	tables map[string]*table.Table
}

func newTableCache() *tableCache {
	return &tableCache{tables: make(map[string]*table.Table)}
}

func (c *tableCache) put(id string, t *table.Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[id] = t
}

func (c *tableCache) drop(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tables, id)
}

// load returns the session's table, reading it from disk on a cache miss.
func (c *tableCache) load(sess transcript.Session) (*table.Table, error) {
	c.mu.RLock()
	t, ok := c.tables[sess.ID]
	c.mu.RUnlock()
	if ok {
		return t, nil
	}

	if sess.File == nil || sess.File.Filepath == "" {
		return nil, assistant.ErrNoTable
	}

	t, err := table.Load(sess.File.Filepath)
	if err != nil {
		return nil, fmt.Errorf("loading table for session %s: %w", sess.ID, err)
	}

	c.put(sess.ID, t)
	return t, nil
}
