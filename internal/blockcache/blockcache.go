// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package blockcache provides an LRU cache of decompressed BGZF blocks for
// reuse by saf.Reader, so that an intersection cursor repeatedly seeking
// nearby contigs across several readers does not re-inflate the same block
// on every seek.
package blockcache

import (
	"sync"

	"github.com/biogo/hts/bgzf"
)

// Cache is an extension of bgzf.Cache that allows inspection of the number
// of blocks currently held.
type Cache interface {
	bgzf.Cache

	// Len returns the number of blocks held by the cache.
	Len() int

	// Cap returns the maximum number of blocks the cache will hold.
	Cap() int
}

// New returns an LRU block cache with room for n blocks. If n is less than
// 1, New returns nil, which bgzf.Reader treats as "no cache".
func New(n int) Cache {
	if n < 1 {
		return nil
	}
	c := &lru{
		table: make(map[int64]*node, n),
		cap:   n,
	}
	c.root.next = &c.root
	c.root.prev = &c.root
	return c
}

// lru satisfies Cache with least-recently-used eviction, preferring to
// evict unused blocks first, mirroring the eviction policy biogo/hts uses
// for BAM alignment blocks.
type lru struct {
	mu    sync.RWMutex
	root  node
	table map[int64]*node
	cap   int
}

type node struct {
	b          bgzf.Block
	next, prev *node
}

func insertAfter(pos, n *node) {
	n.prev = pos
	pos.next, n.next, pos.next.prev = n, pos.next, n
}

func remove(n *node, table map[int64]*node) {
	delete(table, n.b.Base())
	n.prev.next = n.next
	n.next.prev = n.prev
	n.next = nil
	n.prev = nil
}

// Len returns the number of blocks held by the cache.
func (c *lru) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.table)
}

// Cap returns the maximum number of blocks the cache will hold.
func (c *lru) Cap() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cap
}

// Get returns the Block in the cache with the given base, removing it from
// the cache, or nil if no such Block is held.
func (c *lru) Get(base int64) bgzf.Block {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.table[base]
	if !ok {
		return nil
	}
	remove(n, c.table)
	return n.b
}

// Put inserts b into the cache, returning the Block evicted to make room,
// if any, and whether b was retained. Unused blocks are not retained once
// the cache is full.
func (c *lru) Put(b bgzf.Block) (evicted bgzf.Block, retained bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.table[b.Base()]; ok {
		return b, false
	}

	var d bgzf.Block
	used := b.Used()
	if len(c.table) == c.cap {
		if !used {
			return b, false
		}
		d = c.root.prev.b
		remove(c.root.prev, c.table)
	}

	n := &node{b: b}
	c.table[b.Base()] = n
	if used {
		insertAfter(&c.root, n)
	} else {
		insertAfter(c.root.prev, n)
	}
	return d, true
}
