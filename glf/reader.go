// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package glf

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/biogo/hts/bgzf"

	"github.com/biogo/angsd"
)

// Reader reads GLF records from an underlying byte stream. A Reader is
// not safe for concurrent use.
type Reader struct {
	r       *bufio.Reader
	bgzf    *bgzf.Reader
	closers []io.Closer
	log     angsd.Logger
}

// ReaderOption configures a Reader constructed with NewBgzfReader.
type ReaderOption func(*readerConfig)

type readerConfig struct {
	workers int
	logger  angsd.Logger
}

// WithWorkers sets the number of decompression worker goroutines the
// underlying BGZF reader may use.
func WithWorkers(n int) ReaderOption {
	return func(c *readerConfig) { c.workers = n }
}

// WithLogger attaches a Logger that receives lifecycle diagnostics.
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

// NewReader returns a Reader reading raw, not BGZF-compressed, GLF records
// from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r), log: angsd.NopLogger}
}

// NewBgzfReader returns a Reader reading BGZF-block-compressed GLF records
// from r.
func NewBgzfReader(r io.Reader, opts ...ReaderOption) (*Reader, error) {
	cfg := newReaderConfig(opts)

	bz, err := bgzf.NewReader(r, cfg.workers)
	if err != nil {
		return nil, fmt.Errorf("glf: failed to open BGZF stream: %v", err)
	}
	cfg.logger.Printf("glf: opened BGZF reader")
	return &Reader{r: bufio.NewReader(bz), bgzf: bz, log: cfg.logger}, nil
}

// OpenPath opens path as a raw, not BGZF-compressed, GLF file.
func OpenPath(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("glf: failed to open %q: %v", path, err)
	}
	r := NewReader(f)
	r.closers = []io.Closer{f}
	return r, nil
}

// OpenBgzfPath opens path as a BGZF-block-compressed GLF file.
func OpenBgzfPath(path string, opts ...ReaderOption) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("glf: failed to open %q: %v", path, err)
	}
	r, err := NewBgzfReader(f, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closers = []io.Closer{f}
	return r, nil
}

// ReadRecord reads a single record into rec, reporting Done if the stream
// was at its end before any bytes of the record were read, and an error
// from a fixed-size record that is truncated mid-way through.
func (r *Reader) ReadRecord(rec *Record) (angsd.ReadStatus, error) {
	status, err := angsd.CheckStatus(r.r)
	if err != nil {
		return angsd.NotDone, err
	}
	if status.IsDone() {
		return angsd.Done, nil
	}
	if err := readRecordUnchecked(r.r, rec); err != nil {
		return angsd.NotDone, err
	}
	return angsd.NotDone, nil
}

// ReadRecords reads len(recs) records into recs, reporting Done only if
// the stream was at its end before the first of them; a truncation partway
// through the requested batch is reported as an error.
func (r *Reader) ReadRecords(recs []Record) (angsd.ReadStatus, error) {
	status, err := angsd.CheckStatus(r.r)
	if err != nil {
		return angsd.NotDone, err
	}
	if status.IsDone() {
		return angsd.Done, nil
	}
	for i := range recs {
		if err := readRecordUnchecked(r.r, &recs[i]); err != nil {
			return angsd.NotDone, err
		}
	}
	return angsd.NotDone, nil
}

// SkipRecord skips a single record without decoding it.
func (r *Reader) SkipRecord() (angsd.ReadStatus, error) {
	return r.SkipRecords(1)
}

// SkipRecords skips n records without decoding them.
func (r *Reader) SkipRecords(n int) (angsd.ReadStatus, error) {
	status, err := angsd.CheckStatus(r.r)
	if err != nil {
		return angsd.NotDone, err
	}
	if status.IsDone() {
		return angsd.Done, nil
	}
	if _, err := io.CopyN(io.Discard, r.r, int64(n)*ByteSize); err != nil {
		return angsd.NotDone, fmt.Errorf("glf: failed to skip records: %v", err)
	}
	return angsd.NotDone, nil
}

// ReadSomeRecords reads or skips one record per entry of recs: a non-nil
// entry is decoded into, a nil entry is skipped. It reports Done only if
// the stream was at its end before the first entry.
func (r *Reader) ReadSomeRecords(recs []*Record) (angsd.ReadStatus, error) {
	status, err := angsd.CheckStatus(r.r)
	if err != nil {
		return angsd.NotDone, err
	}
	if status.IsDone() {
		return angsd.Done, nil
	}
	for _, rec := range recs {
		if rec != nil {
			if err := readRecordUnchecked(r.r, rec); err != nil {
				return angsd.NotDone, err
			}
			continue
		}
		if _, err := io.CopyN(io.Discard, r.r, ByteSize); err != nil {
			return angsd.NotDone, fmt.Errorf("glf: failed to skip record: %v", err)
		}
	}
	return angsd.NotDone, nil
}

func readRecordUnchecked(r io.Reader, rec *Record) error {
	var buf [ByteSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return angsd.NewError(angsd.UnexpectedEOF, "glf: failed to read record", err)
	}
	for i := range rec {
		rec[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8 : i*8+8]))
	}
	return nil
}

// Close closes the underlying BGZF stream, if any, and any files the
// Reader was opened from.
func (r *Reader) Close() error {
	var err error
	if r.bgzf != nil {
		err = r.bgzf.Close()
	}
	for _, c := range r.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	r.log.Printf("glf: closed reader")
	return err
}
