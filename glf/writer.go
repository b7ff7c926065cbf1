// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package glf

import (
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/biogo/hts/bgzf"

	"github.com/biogo/angsd"
)

// Writer writes GLF records to an underlying byte stream. A Writer is not
// safe for concurrent use.
type Writer struct {
	w       io.Writer
	bgzf    *bgzf.Writer
	closers []io.Closer
	log     angsd.Logger
}

// WriterOption configures a Writer constructed with NewBgzfWriter.
type WriterOption func(*writerConfig)

type writerConfig struct {
	level   int
	workers int
	logger  angsd.Logger
}

// WithCompressionLevel sets the BGZF compression level; valid values are
// those accepted by compress/gzip. The default is gzip.DefaultCompression.
func WithCompressionLevel(level int) WriterOption {
	return func(c *writerConfig) { c.level = level }
}

// WithWriteWorkers sets the number of compression worker goroutines the
// underlying BGZF writer may use.
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

// NewWriter returns a Writer writing raw, not BGZF-compressed, GLF records
// to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, log: angsd.NopLogger}
}

// NewBgzfWriter returns a Writer writing BGZF-block-compressed GLF records
// to w. Close must be called to emit the BGZF end-of-file marker.
func NewBgzfWriter(w io.Writer, opts ...WriterOption) (*Writer, error) {
	cfg := newWriterConfig(opts)

	bz, err := bgzf.NewWriterLevel(w, cfg.level, cfg.workers)
	if err != nil {
		return nil, fmt.Errorf("glf: failed to open BGZF stream: %v", err)
	}
	cfg.logger.Printf("glf: opened BGZF writer")
	return &Writer{w: bz, bgzf: bz, log: cfg.logger}, nil
}

// CreatePath creates path and returns a Writer writing raw, not
// BGZF-compressed, GLF records to it, truncating any existing content.
func CreatePath(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("glf: failed to create %q: %v", path, err)
	}
	w := NewWriter(f)
	w.closers = []io.Closer{f}
	return w, nil
}

// CreateBgzfPath creates path and returns a Writer writing
// BGZF-block-compressed GLF records to it, truncating any existing
// content.
func CreateBgzfPath(path string, opts ...WriterOption) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("glf: failed to create %q: %v", path, err)
	}
	w, err := NewBgzfWriter(f, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.closers = []io.Closer{f}
	return w, nil
}

// WriteRecord writes a single record.
func (w *Writer) WriteRecord(rec Record) error {
	var buf [ByteSize]byte
	for i, v := range rec {
		binary.LittleEndian.PutUint64(buf[i*8:i*8+8], math.Float64bits(v))
	}
	if _, err := w.w.Write(buf[:]); err != nil {
		return fmt.Errorf("glf: failed to write record: %v", err)
	}
	return nil
}

// WriteRecords writes multiple records in order.
func (w *Writer) WriteRecords(recs []Record) error {
	for _, rec := range recs {
		if err := w.WriteRecord(rec); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes and closes the underlying BGZF stream, if any, and any
// files the Writer was created from.
func (w *Writer) Close() error {
	var err error
	if w.bgzf != nil {
		err = w.bgzf.Close()
	}
	for _, c := range w.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	w.log.Printf("glf: closed writer")
	return err
}
