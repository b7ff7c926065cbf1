// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package saf

import (
	"compress/gzip"
	"fmt"
	"io"

	"github.com/biogo/hts/bgzf"

	"github.com/biogo/angsd"
)

// countingWriter tracks the number of bytes written to its destination.
// Wrapping each BGZF writer's output in one of these, and only ever
// snapshotting a virtual position immediately after a Flush (which the
// BGZF writer guarantees ends the current block), gives a block-aligned
// bgzf.Offset{File: n, Block: 0} without needing the BGZF writer itself to
// expose a VOffset accessor.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func (c *countingWriter) offset() bgzf.Offset {
	return bgzf.Offset{File: c.n, Block: 0}
}

// Writer writes a SAF dataset of version V: an index stream plus the two
// BGZF-framed position and item streams. A Writer is not safe for
// concurrent use, and Finish must be called to flush the trailing pending
// index record and terminate both BGZF streams.
type Writer[V Version] struct {
	version V

	indexW io.Writer
	posCW  *countingWriter
	itemCW *countingWriter
	posW   *bgzf.Writer
	itemW  *bgzf.Writer

	alleles int
	pending *IndexRecord
	records []IndexRecord

	log angsd.Logger
}

// WriterOption configures a Writer constructor.
type WriterOption func(*writerConfig)

type writerConfig struct {
	level   int
	workers int
	logger  angsd.Logger
}

// WithCompressionLevel sets the BGZF compression level for both the
// position and item streams; valid values are those accepted by
// compress/gzip. The default is gzip.DefaultCompression.
func WithCompressionLevel(level int) WriterOption {
	return func(c *writerConfig) { c.level = level }
}

// WithWriteWorkers sets the number of compression worker goroutines the
// underlying BGZF writers may use.
func WithWriteWorkers(n int) WriterOption {
	return func(c *writerConfig) { c.workers = n }
}

// WithWriterLogger attaches a Logger that receives lifecycle diagnostics.
func WithWriterLogger(l angsd.Logger) WriterOption {
	return func(c *writerConfig) { c.logger = l }
}

func newWriterConfig(opts []WriterOption) writerConfig {
	c := writerConfig{level: gzip.DefaultCompression}
	for _, opt := range opts {
		opt(&c)
	}
	c.logger = angsd.OrNop(c.logger)
	return c
}

// CreateWriter opens a Writer over the given index, position, and item
// destinations. alleles is written into the index header immediately, for
// both v3 and v4; WriteRecord neither infers the allele count from the
// length of a v3 item nor checks items against it.
func CreateWriter[V Version](indexDst, positionDst, itemDst io.Writer, version V, alleles int, opts ...WriterOption) (*Writer[V], error) {
	cfg := newWriterConfig(opts)

	if _, err := indexDst.Write(version.Magic()[:]); err != nil {
		return nil, fmt.Errorf("saf: failed to write index magic: %v", err)
	}
	if err := writeUint64(indexDst, uint64(alleles)); err != nil {
		return nil, fmt.Errorf("saf: failed to write alleles: %v", err)
	}

	posCW := &countingWriter{w: positionDst}
	itemCW := &countingWriter{w: itemDst}

	posW, err := bgzf.NewWriterLevel(posCW, cfg.level, cfg.workers)
	if err != nil {
		return nil, fmt.Errorf("saf: failed to open position stream: %v", err)
	}
	if _, err := posW.Write(version.Magic()[:]); err != nil {
		return nil, fmt.Errorf("saf: failed to write position stream magic: %v", err)
	}

	itemW, err := bgzf.NewWriterLevel(itemCW, cfg.level, cfg.workers)
	if err != nil {
		return nil, fmt.Errorf("saf: failed to open item stream: %v", err)
	}
	if _, err := itemW.Write(version.Magic()[:]); err != nil {
		return nil, fmt.Errorf("saf: failed to write item stream magic: %v", err)
	}

	if err := posW.Flush(); err != nil {
		return nil, fmt.Errorf("saf: failed to flush position stream magic: %v", err)
	}
	if err := itemW.Flush(); err != nil {
		return nil, fmt.Errorf("saf: failed to flush item stream magic: %v", err)
	}

	cfg.logger.Printf("saf: opened %s writer, alleles=%d", version, alleles)

	return &Writer[V]{
		version: version,
		indexW:  indexDst,
		posCW:   posCW,
		itemCW:  itemCW,
		posW:    posW,
		itemW:   itemW,
		alleles: alleles,
		log:     cfg.logger,
	}, nil
}

// WriteRecord writes one record, maintaining the pending index record:
// incrementing its site count while r's contig matches, or flushing it and
// starting a fresh one when the contig changes. Callers must present
// records grouped by contig; WriteRecord does not reorder or detect a
// contig recurring after an intervening contig.
func (w *Writer[V]) WriteRecord(r Record[string]) error {
	switch {
	case w.pending == nil:
		w.pending = &IndexRecord{
			Name:           r.ContigID,
			PositionOffset: w.posCW.offset(),
			ItemOffset:     w.itemCW.offset(),
		}

	case r.ContigID == w.pending.Name:
		w.pending.Sites++
		w.pending.SumBand += uint64(w.version.bandLen(r.Item))
		return w.writeSite(r)

	default:
		if err := w.flushPending(); err != nil {
			return err
		}
		w.pending = &IndexRecord{
			Name:           r.ContigID,
			Sites:          0,
			PositionOffset: w.posCW.offset(),
			ItemOffset:     w.itemCW.offset(),
		}
	}

	w.pending.Sites++
	w.pending.SumBand += uint64(w.version.bandLen(r.Item))
	return w.writeSite(r)
}

func (w *Writer[V]) writeSite(r Record[string]) error {
	if err := writeUint32(w.posW, r.Position); err != nil {
		return fmt.Errorf("saf: failed to write position: %v", err)
	}
	if err := w.version.WriteItem(w.itemW, r.Item); err != nil {
		return err
	}
	return nil
}

// flushPending flushes both data streams, ending their current BGZF
// blocks, and writes the current pending record to the index stream. It
// does not touch the offsets already stored on the pending record being
// flushed, which were captured when it was created; WriteRecord snapshots
// the post-flush offsets for the *next* pending record once it returns.
func (w *Writer[V]) flushPending() error {
	if w.pending == nil {
		return nil
	}
	if err := w.posW.Flush(); err != nil {
		return fmt.Errorf("saf: failed to flush position stream: %v", err)
	}
	if err := w.itemW.Flush(); err != nil {
		return fmt.Errorf("saf: failed to flush item stream: %v", err)
	}

	if err := w.version.WriteIndexRecord(w.indexW, *w.pending); err != nil {
		return err
	}
	w.records = append(w.records, *w.pending)
	return nil
}

// Finish flushes the trailing pending index record, terminates both BGZF
// streams with their end-of-stream block, and returns the raw destination
// writers so callers may inspect or tee off their final contents.
func (w *Writer[V]) Finish() (indexDst, positionDst, itemDst io.Writer, err error) {
	if err := w.flushPending(); err != nil {
		return nil, nil, nil, err
	}
	if err := w.posW.Close(); err != nil {
		return nil, nil, nil, fmt.Errorf("saf: failed to close position stream: %v", err)
	}
	if err := w.itemW.Close(); err != nil {
		return nil, nil, nil, fmt.Errorf("saf: failed to close item stream: %v", err)
	}
	w.log.Printf("saf: finished %s writer, %d contigs", w.version, len(w.records))
	return w.indexW, w.posCW.w, w.itemCW.w, nil
}
