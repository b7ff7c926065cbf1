// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package saf

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"unicode/utf8"

	"github.com/biogo/hts/bgzf"

	"github.com/biogo/angsd"
	"github.com/biogo/angsd/internal/pool"
)

// IndexRecord is one contig's entry in a SAF index: its name, the number of
// sites recorded for it, and the BGZF virtual positions at which its data
// begins in the positions and items streams. SumBand is populated only for
// v4 indexes; it is always zero, and never written to disk, for v3.
type IndexRecord struct {
	Name           string
	Sites          uint64
	SumBand        uint64
	PositionOffset bgzf.Offset
	ItemOffset     bgzf.Offset
}

// Index is the in-memory contig table shared by a SAF reader and writer: the
// dataset-wide allele count and one IndexRecord per contig, in the order
// contigs appear in the data streams.
type Index struct {
	Alleles int
	Records []IndexRecord

	nameIndex map[string]int
}

// NewIndex returns an empty index for the given allele count.
func NewIndex(alleles int) *Index {
	return &Index{Alleles: alleles, nameIndex: make(map[string]int)}
}

// add appends rec to the index, maintaining the name lookup table. It is
// used by both the binary reader and the writer's flush path.
func (idx *Index) add(rec IndexRecord) {
	if idx.nameIndex == nil {
		idx.nameIndex = make(map[string]int, len(idx.Records)+1)
	}
	idx.nameIndex[rec.Name] = len(idx.Records)
	idx.Records = append(idx.Records, rec)
}

// IndexOf returns the contig id for name and true, or (0, false) if name is
// not present in the index.
func (idx *Index) IndexOf(name string) (int, bool) {
	i, ok := idx.nameIndex[name]
	return i, ok
}

// Name returns the name of the contig with the given id. It panics if id is
// out of range, matching the read-side Record.ContigID contract.
func (idx *Index) Name(id int) string {
	return idx.Records[id].Name
}

// ReadIndex reads a complete SAF index from r for the given version. The
// version's magic bytes are checked first.
func ReadIndex[V Version](r io.Reader, v V) (*Index, error) {
	if err := readMagic(r, v.Magic()); err != nil {
		return nil, err
	}

	alleles, err := readIntAsUint64(r)
	if err != nil {
		return nil, angsd.NewError(angsd.UnexpectedEOF, "saf: failed to read alleles", err)
	}
	idx := NewIndex(alleles)

	for {
		rec, err := v.ReadIndexRecord(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		idx.add(rec)
	}
	return idx, nil
}

// WriteIndex writes idx to w in the wire format of version v, including its
// magic bytes.
func WriteIndex[V Version](w io.Writer, idx *Index, v V) error {
	if _, err := w.Write(v.Magic()[:]); err != nil {
		return fmt.Errorf("saf: failed to write magic: %v", err)
	}
	if err := writeUint64(w, uint64(idx.Alleles)); err != nil {
		return fmt.Errorf("saf: failed to write alleles: %v", err)
	}
	for _, rec := range idx.Records {
		if err := v.WriteIndexRecord(w, rec); err != nil {
			return err
		}
	}
	return nil
}

func readMagic(r io.Reader, want [8]byte) error {
	var got [8]byte
	if _, err := io.ReadFull(r, got[:]); err != nil {
		return angsd.NewError(angsd.UnexpectedEOF, "saf: failed to read magic", err)
	}
	if got != want {
		return angsd.NewError(angsd.InvalidData,
			fmt.Sprintf("magic mismatch: got %q, want %q", got, want), nil)
	}
	return nil
}

// readUint64 reads a little-endian 8-byte unsigned integer, the on-wire
// representation of the original format's host-width usize.
func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

// readIntAsUint64 reads a wire usize and converts it to an int, failing if
// it overflows the host int (only reachable on 32-bit hosts for very large
// files).
func readIntAsUint64(r io.Reader) (int, error) {
	v, err := readUint64(r)
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt {
		return 0, fmt.Errorf("saf: value %d overflows host int", v)
	}
	return int(v), nil
}

// readName reads a length-prefixed, UTF-8-validated contig name.
func readName(r io.Reader) (string, error) {
	n, err := readUint64(r)
	if err != nil {
		if err == io.EOF {
			return "", io.EOF
		}
		return "", angsd.NewError(angsd.UnexpectedEOF, "saf: failed to read contig name length", err)
	}
	buf := pool.GetBuffer(int(n))
	defer pool.PutBuffer(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", angsd.NewError(angsd.UnexpectedEOF, "saf: failed to read contig name", err)
	}
	if !utf8.Valid(buf) {
		return "", angsd.NewError(angsd.InvalidData, "saf: contig name is not valid UTF-8", nil)
	}
	return string(buf), nil
}

func writeName(w io.Writer, name string) error {
	if err := writeUint64(w, uint64(len(name))); err != nil {
		return err
	}
	_, err := io.WriteString(w, name)
	return err
}

// readOffset reads a bgzf.Offset encoded as a single little-endian virtual
// offset (file<<16 | block), the wire representation of VPos.
func readOffset(r io.Reader) (bgzf.Offset, error) {
	v, err := readUint64(r)
	if err != nil {
		return bgzf.Offset{}, err
	}
	return bgzf.Offset{File: int64(v >> 16), Block: uint16(v)}, nil
}

func writeOffset(w io.Writer, off bgzf.Offset) error {
	v := uint64(off.File)<<16 | uint64(off.Block)
	return writeUint64(w, v)
}
