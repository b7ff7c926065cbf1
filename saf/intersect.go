// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package saf

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/biogo/angsd"
)

// sharedContigs is an insertion-ordered table of contig names common to
// every index an Intersect has been built from, together with each such
// contig's id in each of those indexes. It mirrors the ordered name/id
// table an Index keeps for a single file, generalised to several.
type sharedContigs struct {
	names []string
	ids   [][]int // ids[i][r] is the contig id in reader r's index for names[i]
	index map[string]int
}

// newSharedContigs seeds the table from the first index: every one of its
// contigs is initially shared, since there is nothing yet to disagree with
// it.
func newSharedContigs(idx *Index) *sharedContigs {
	sc := &sharedContigs{index: make(map[string]int, len(idx.Records))}
	for i, rec := range idx.Records {
		sc.index[rec.Name] = len(sc.names)
		sc.names = append(sc.names, rec.Name)
		sc.ids = append(sc.ids, []int{i})
	}
	return sc
}

// addIndex narrows the table to the contigs also present in idx, appending
// idx's id for each survivor and dropping every contig idx does not have.
func (sc *sharedContigs) addIndex(idx *Index) {
	byName := make(map[string]int, len(idx.Records))
	for i, rec := range idx.Records {
		byName[rec.Name] = i
	}

	names := sc.names[:0]
	ids := sc.ids[:0]
	for i, name := range sc.names {
		newID, ok := byName[name]
		if !ok {
			continue
		}
		names = append(names, name)
		ids = append(ids, append(sc.ids[i], newID))
	}

	sc.names = names
	sc.ids = ids
	sc.index = make(map[string]int, len(names))
	for i, name := range names {
		sc.index[name] = i
	}
}

// nextShared returns the position in sc of the first shared contig whose
// id in idx is equal to or greater than id, scanning idx's own contig
// order forward from id. It reports false if idx has no further contig
// that is also shared.
func (sc *sharedContigs) nextShared(idx *Index, id int) (int, bool) {
	name := idx.Records[id].Name
	if pos, ok := sc.index[name]; ok {
		return pos, true
	}

	rest := idx.Records[id+1:]
	i := slices.IndexFunc(rest, func(rec IndexRecord) bool {
		_, ok := sc.index[rec.Name]
		return ok
	})
	if i < 0 {
		return 0, false
	}
	return sc.index[rest[i].Name], true
}

// Intersect is an N-way merge over several SAF readers of the same
// version, yielding only the (contig, position) sites present in every one
// of them. Readers need not share every contig, and a shared contig's id
// may differ between readers, but contigs and positions within a contig
// must each be sorted the same way in every reader, matching the
// requirement Reader itself places on a single file.
type Intersect[V Version] struct {
	readers []*Reader[V]
	shared  *sharedContigs
	ids     []int // current reader-local contig id, one per reader
}

// NewIntersect builds an Intersect over readers. It panics if readers is
// empty.
func NewIntersect[V Version](readers []*Reader[V]) *Intersect[V] {
	if len(readers) == 0 {
		panic("saf: cannot construct empty intersection")
	}

	shared := newSharedContigs(readers[0].index)
	for _, r := range readers[1:] {
		shared.addIndex(r.index)
	}

	return &Intersect[V]{
		readers: readers,
		shared:  shared,
		ids:     make([]int, len(readers)),
	}
}

// Add folds another reader into ix, narrowing its shared-contig table to
// also require the new reader's contigs.
func (ix *Intersect[V]) Add(r *Reader[V]) *Intersect[V] {
	ix.shared.addIndex(r.index)
	ix.readers = append(ix.readers, r)
	ix.ids = append(ix.ids, 0)
	return ix
}

// Readers returns the readers ix was built from.
func (ix *Intersect[V]) Readers() []*Reader[V] { return ix.readers }

// CreateRecordBufs returns one record buffer per reader, suitable for
// repeated reuse with ReadRecords.
func (ix *Intersect[V]) CreateRecordBufs() []Record[Id] {
	bufs := make([]Record[Id], len(ix.readers))
	for i, r := range ix.readers {
		bufs[i] = r.CreateRecordBuf()
	}
	return bufs
}

// ReadRecords reads one intersecting site into each of bufs, one buffer
// per reader in the order passed to NewIntersect/Add. On success, every
// buf holds the same contig and position. It returns Done once any reader
// is exhausted or no shared contig remains.
func (ix *Intersect[V]) ReadRecords(bufs []Record[Id]) (angsd.ReadStatus, error) {
	if len(bufs) != len(ix.readers) {
		panic(fmt.Sprintf("saf: ReadRecords: %d buffers for %d readers", len(bufs), len(ix.readers)))
	}

	for i, r := range ix.readers {
		status, err := r.ReadRecord(&bufs[i])
		if err != nil {
			return angsd.NotDone, err
		}
		if status.IsDone() {
			return angsd.Done, nil
		}
		ix.ids[i] = bufs[i].ContigID
	}

	for {
		status, err := ix.readUntilSharedContig(bufs)
		if err != nil {
			return angsd.NotDone, err
		}
		if status.IsDone() {
			return angsd.Done, nil
		}

		status, restart, err := ix.readUntilSharedPositionOnContig(bufs)
		if err != nil {
			return angsd.NotDone, err
		}
		if restart {
			continue
		}
		return status, nil
	}
}

// readUntilSharedContig seeks every reader forward, if needed, to the
// first shared contig at or after the contig each of bufs currently holds,
// choosing the most distant such candidate across all readers so that no
// reader is left behind. It reports Done if any reader has no further
// shared contig.
func (ix *Intersect[V]) readUntilSharedContig(bufs []Record[Id]) (angsd.ReadStatus, error) {
	nextIdx := 0
	for i, r := range ix.readers {
		pos, ok := ix.shared.nextShared(r.index, bufs[i].ContigID)
		if !ok {
			return angsd.Done, nil
		}
		if pos > nextIdx {
			nextIdx = pos
		}
	}

	nextIDs := ix.shared.ids[nextIdx]
	for i, r := range ix.readers {
		if bufs[i].ContigID == nextIDs[i] {
			continue
		}
		if err := r.Seek(nextIDs[i]); err != nil {
			return angsd.NotDone, err
		}
		status, err := r.ReadRecord(&bufs[i])
		if err != nil {
			return angsd.NotDone, err
		}
		if status.IsDone() {
			return angsd.Done, nil
		}
		ix.ids[i] = nextIDs[i]
	}
	return angsd.NotDone, nil
}

// readUntilSharedPositionOnContig advances every reader on its current
// contig until all of bufs agree on a position. It reports (status, false,
// nil) once that happens, (Done, false, nil) if a reader runs out of data,
// or (_, true, nil) if a reader crossed into a new contig before a shared
// position was found, meaning the caller must restart from
// readUntilSharedContig.
func (ix *Intersect[V]) readUntilSharedPositionOnContig(bufs []Record[Id]) (angsd.ReadStatus, bool, error) {
	maxPos := bufs[0].Position
	for _, b := range bufs[1:] {
		if b.Position > maxPos {
			maxPos = b.Position
		}
	}

outer:
	for {
		for i, r := range ix.readers {
			pos := bufs[i].Position

			switch {
			case pos < maxPos:
				for pos < maxPos {
					status, err := r.ReadRecord(&bufs[i])
					if err != nil {
						return angsd.NotDone, false, err
					}
					if status.IsDone() {
						return angsd.Done, false, nil
					}
					if bufs[i].ContigID != ix.ids[i] {
						ix.ids[i] = bufs[i].ContigID
						return angsd.NotDone, true, nil
					}
					pos = bufs[i].Position
				}
				if pos == maxPos {
					continue
				}
				continue outer

			case pos > maxPos:
				maxPos = pos
				continue outer
			}
		}

		return angsd.NotDone, false, nil
	}
}

// Close closes every underlying reader, returning the first error
// encountered, if any, after attempting to close them all.
func (ix *Intersect[V]) Close() error {
	var first error
	for _, r := range ix.readers {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
