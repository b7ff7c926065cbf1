// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package saf

import (
	"bufio"
	"fmt"
	"io"

	"github.com/biogo/hts/bgzf"

	"github.com/biogo/angsd"
	"github.com/biogo/angsd/internal/blockcache"
)

// Reader is a cursor over a single SAF dataset of version V, walking the
// positions and items BGZF streams in lockstep under the direction of an
// Index. A Reader is not safe for concurrent use.
type Reader[V Version] struct {
	index   *Index
	version V

	posBGZF  *bgzf.Reader
	posR     *bufio.Reader
	itemBGZF *bgzf.Reader
	itemR    *bufio.Reader

	contigID  int
	sitesLeft uint64

	// closers additionally holds the underlying files when a Reader was
	// opened from paths rather than from caller-supplied streams, so
	// that Close releases them too.
	closers []io.Closer

	log angsd.Logger
}

// ReaderOption configures a Reader constructor.
type ReaderOption func(*readerConfig)

type readerConfig struct {
	workers int
	cache   bgzf.Cache
	logger  angsd.Logger
}

// WithWorkers sets the number of decompression worker goroutines the
// underlying BGZF readers may use. The default, like the BGZF collaborator
// itself, is GOMAXPROCS when n is 0.
func WithWorkers(n int) ReaderOption {
	return func(c *readerConfig) { c.workers = n }
}

// WithCache attaches an LRU block cache, sized for n decompressed blocks,
// shared by both of a Reader's BGZF streams. It is most useful when many
// Readers are combined in an Intersect that repeatedly seeks nearby
// contigs. A non-positive n disables caching.
func WithCache(n int) ReaderOption {
	return func(c *readerConfig) { c.cache = blockcache.New(n) }
}

// WithLogger attaches a Logger that receives lifecycle diagnostics (open,
// seek, close). The default is angsd.NopLogger.
func WithLogger(l angsd.Logger) ReaderOption {
	return func(c *readerConfig) { c.logger = l }
}

func newReaderConfig(opts []ReaderOption) readerConfig {
	var c readerConfig
	for _, opt := range opts {
		opt(&c)
	}
	c.logger = angsd.OrNop(c.logger)
	return c
}

// OpenReader constructs a Reader over an already-parsed Index and the raw
// (not yet BGZF-wrapped) position and item streams. It wraps both streams
// in bgzf.Reader, validates their magic bytes, and positions the cursor at
// the first contig.
//
// OpenReader returns (nil, nil) if index holds no records, matching the
// distilled source's "no reader for an empty index" construction rule
// rather than returning a reader that can never yield a record.
func OpenReader[V Version](index *Index, positionStream, itemStream io.Reader, version V, opts ...ReaderOption) (*Reader[V], error) {
	cfg := newReaderConfig(opts)

	if len(index.Records) == 0 {
		return nil, nil
	}

	posBGZF, err := bgzf.NewReader(positionStream, cfg.workers)
	if err != nil {
		return nil, fmt.Errorf("saf: failed to open position stream: %v", err)
	}
	itemBGZF, err := bgzf.NewReader(itemStream, cfg.workers)
	if err != nil {
		return nil, fmt.Errorf("saf: failed to open item stream: %v", err)
	}
	if cfg.cache != nil {
		posBGZF.SetCache(cfg.cache)
		itemBGZF.SetCache(cfg.cache)
	}

	posR := bufio.NewReader(posBGZF)
	itemR := bufio.NewReader(itemBGZF)

	if err := readMagic(posR, version.Magic()); err != nil {
		return nil, err
	}
	if err := readMagic(itemR, version.Magic()); err != nil {
		return nil, err
	}

	cfg.logger.Printf("saf: opened %s reader, %d contigs", version, len(index.Records))

	return &Reader[V]{
		index:     index,
		version:   version,
		posBGZF:   posBGZF,
		posR:      posR,
		itemBGZF:  itemBGZF,
		itemR:     itemR,
		contigID:  0,
		sitesLeft: index.Records[0].Sites,
		log:       cfg.logger,
	}, nil
}

// Index returns the Index driving r. Callers must not mutate it.
func (r *Reader[V]) Index() *Index { return r.index }

// CreateRecordBuf returns a Record suitable for repeated reuse with
// ReadRecord.
func (r *Reader[V]) CreateRecordBuf() Record[Id] {
	return NewRecord[Id](0, 0, r.version.NewItem(r.index.Alleles))
}

// ReadRecord reads the next site into buf, advancing the cursor. It
// returns Done once every contig's sites have been consumed and both
// streams confirm end of data; any other form of stream exhaustion is
// reported as an UnexpectedEOF error, and leftover bytes after the index's
// last site is an InvalidData error.
func (r *Reader[V]) ReadRecord(buf *Record[Id]) (angsd.ReadStatus, error) {
	for r.sitesLeft == 0 {
		if r.contigID+1 >= len(r.index.Records) {
			return r.checkExhausted()
		}
		r.contigID++
		r.sitesLeft = r.index.Records[r.contigID].Sites
	}

	posStatus, posErr := angsd.CheckStatus(r.posR)
	if posErr != nil {
		return angsd.NotDone, posErr
	}
	itemStatus, itemErr := angsd.CheckStatus(r.itemR)
	if itemErr != nil {
		return angsd.NotDone, itemErr
	}

	switch {
	case posStatus.IsNotDone():
		pos, err := readUint32(r.posR)
		if err != nil {
			return angsd.NotDone, angsd.NewError(angsd.UnexpectedEOF, "saf: failed to read position", err)
		}
		item, itemReadStatus, err := r.version.ReadItem(r.itemR, buf.Item)
		if err != nil {
			return angsd.NotDone, err
		}
		if itemReadStatus.IsDone() {
			return angsd.NotDone, angsd.NewError(angsd.UnexpectedEOF,
				"saf: item stream exhausted before position stream", nil)
		}
		buf.ContigID = r.contigID
		buf.Position = pos
		buf.Item = item
		r.sitesLeft--
		return angsd.NotDone, nil

	case itemStatus.IsNotDone():
		return angsd.NotDone, angsd.NewError(angsd.UnexpectedEOF,
			"saf: position stream exhausted before item stream", nil)

	default:
		return angsd.NotDone, angsd.NewError(angsd.UnexpectedEOF,
			"saf: both streams exhausted before index was satisfied", nil)
	}
}

// checkExhausted is reached once every contig's site count has been
// consumed. It confirms both streams are themselves at EOF and reports
// Done, or InvalidData if either stream holds residual bytes.
func (r *Reader[V]) checkExhausted() (angsd.ReadStatus, error) {
	posStatus, err := angsd.CheckStatus(r.posR)
	if err != nil {
		return angsd.NotDone, err
	}
	itemStatus, err := angsd.CheckStatus(r.itemR)
	if err != nil {
		return angsd.NotDone, err
	}
	if posStatus.IsNotDone() || itemStatus.IsNotDone() {
		return angsd.NotDone, angsd.NewError(angsd.InvalidData,
			"saf: data beyond end of index", nil)
	}
	return angsd.Done, nil
}

// Seek repositions the cursor at the start of the contig with the given
// id, seeking both BGZF streams to the offsets recorded in the index. It
// panics if id is out of range for r's index, a programmer error.
func (r *Reader[V]) Seek(id int) error {
	if id < 0 || id >= len(r.index.Records) {
		panic(fmt.Sprintf("saf: seek: contig id %d out of range [0,%d)", id, len(r.index.Records)))
	}
	rec := r.index.Records[id]

	if err := r.posBGZF.Seek(rec.PositionOffset); err != nil {
		return fmt.Errorf("saf: failed to seek position stream: %v", err)
	}
	r.posR.Reset(r.posBGZF)

	if err := r.itemBGZF.Seek(rec.ItemOffset); err != nil {
		return fmt.Errorf("saf: failed to seek item stream: %v", err)
	}
	r.itemR.Reset(r.itemBGZF)

	r.contigID = id
	r.sitesLeft = rec.Sites
	r.log.Printf("saf: seek to contig %q (id %d)", rec.Name, id)
	return nil
}

// SeekByName seeks to the contig with the given name. It panics if no such
// contig exists in r's index.
func (r *Reader[V]) SeekByName(name string) error {
	id, ok := r.index.IndexOf(name)
	if !ok {
		panic(fmt.Sprintf("saf: seek: contig %q not in index", name))
	}
	return r.Seek(id)
}

// Intersect returns an Intersect cursor combining r with other, consuming
// both readers.
func (r *Reader[V]) Intersect(other *Reader[V]) *Intersect[V] {
	return NewIntersect([]*Reader[V]{r, other})
}

// Close closes the position and item BGZF streams, along with the
// underlying files if r was opened by OpenFromPrefix, OpenFromMemberPath,
// or OpenFromPaths. It does not close io.Readers a caller passed to
// OpenReader directly.
func (r *Reader[V]) Close() error {
	err1 := r.posBGZF.Close()
	err2 := r.itemBGZF.Close()
	for _, c := range r.closers {
		if err := c.Close(); err != nil && err1 == nil {
			err1 = err
		}
	}
	if err1 != nil {
		return fmt.Errorf("saf: failed to close position stream: %v", err1)
	}
	if err2 != nil {
		return fmt.Errorf("saf: failed to close item stream: %v", err2)
	}
	r.log.Printf("saf: closed %s reader", r.version)
	return nil
}
