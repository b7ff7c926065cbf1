// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package saf

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/biogo/angsd"
)

// Version is a closed capability set describing one on-disk SAF dialect: its
// magic bytes, its index-record shape, and how it reads and writes items.
// It is implemented only by the zero-sized marker types V3 and V4; the
// version of a file is a static property fixed at open time, never switched
// on a live stream, and the type parameter a Reader/Writer/Intersect carries
// enforces that two files of different versions can never be mixed.
type Version interface {
	// Magic returns the version's 8-byte file magic.
	Magic() [8]byte

	// String names the version, e.g. "v3".
	String() string

	// NewItem allocates an Item of this version's shape, sized for the
	// given dataset allele count, ready to be passed to ReadItem.
	NewItem(alleles int) Item

	// ReadItem reads one item from r, reusing buf's storage where
	// possible, and returns the item read. It reports Done if r was at
	// EOF before any bytes of the item were read.
	ReadItem(r io.Reader, buf Item) (Item, angsd.ReadStatus, error)

	// WriteItem writes item to w.
	WriteItem(w io.Writer, item Item) error

	// ReadIndexRecord reads one IndexRecord from r, or returns io.EOF if
	// r held no further bytes at all (the index's only framing is "no
	// more records").
	ReadIndexRecord(r io.Reader) (IndexRecord, error)

	// WriteIndexRecord writes rec to w in this version's layout.
	WriteIndexRecord(w io.Writer, rec IndexRecord) error

	// bandLen returns the number of likelihoods item contributes to a
	// contig's running SumBand total. It is 0 for v3, which has no
	// SumBand field.
	bandLen(item Item) int
}

// V3 is the dense-likelihood-vector SAF version.
type V3 struct{}

var v3Magic = [8]byte{'s', 'a', 'f', 'v', '3', 0, 0, 0}

// Magic returns the v3 file magic, "safv3\0\0\0".
func (V3) Magic() [8]byte { return v3Magic }

func (V3) String() string { return "v3" }

// NewItem returns a zero-initialised likelihood vector of length
// alleles+1.
func (V3) NewItem(alleles int) Item {
	return make(Likelihoods, alleles+1)
}

// ReadItem reads len(buf.(Likelihoods)) little-endian float32 values into
// buf's backing array, reusing it.
func (V3) ReadItem(r io.Reader, buf Item) (Item, angsd.ReadStatus, error) {
	l, ok := buf.(Likelihoods)
	if !ok {
		panic("saf: v3 ReadItem called with non-Likelihoods buffer")
	}
	if len(l) == 0 {
		return l, angsd.NotDone, nil
	}

	first, err := readFloat32(r)
	if err == io.EOF {
		return l, angsd.Done, nil
	}
	if err != nil {
		return l, angsd.NotDone, angsd.NewError(angsd.UnexpectedEOF, "saf: failed to read v3 item", err)
	}
	l[0] = first

	for i := 1; i < len(l); i++ {
		v, err := readFloat32(r)
		if err != nil {
			return l, angsd.NotDone, angsd.NewError(angsd.UnexpectedEOF, "saf: failed to read v3 item", err)
		}
		l[i] = v
	}
	return l, angsd.NotDone, nil
}

// WriteItem writes item.(Likelihoods) as consecutive little-endian
// float32 values.
func (V3) WriteItem(w io.Writer, item Item) error {
	l, ok := item.(Likelihoods)
	if !ok {
		panic("saf: v3 WriteItem called with non-Likelihoods item")
	}
	for _, v := range l {
		if err := writeFloat32(w, v); err != nil {
			return fmt.Errorf("saf: failed to write v3 item: %v", err)
		}
	}
	return nil
}

// ReadIndexRecord reads a v3 IndexRecord: name, sites, position offset,
// item offset.
func (V3) ReadIndexRecord(r io.Reader) (IndexRecord, error) {
	name, err := readName(r)
	if err == io.EOF {
		return IndexRecord{}, io.EOF
	}
	if err != nil {
		return IndexRecord{}, err
	}
	sites, err := readUint64(r)
	if err != nil {
		return IndexRecord{}, angsd.NewError(angsd.UnexpectedEOF, "saf: failed to read sites", err)
	}
	posOff, err := readOffset(r)
	if err != nil {
		return IndexRecord{}, angsd.NewError(angsd.UnexpectedEOF, "saf: failed to read position offset", err)
	}
	itemOff, err := readOffset(r)
	if err != nil {
		return IndexRecord{}, angsd.NewError(angsd.UnexpectedEOF, "saf: failed to read item offset", err)
	}
	return IndexRecord{Name: name, Sites: sites, PositionOffset: posOff, ItemOffset: itemOff}, nil
}

// WriteIndexRecord writes a v3 IndexRecord.
func (V3) WriteIndexRecord(w io.Writer, rec IndexRecord) error {
	if err := writeName(w, rec.Name); err != nil {
		return fmt.Errorf("saf: failed to write contig name: %v", err)
	}
	if err := writeUint64(w, rec.Sites); err != nil {
		return fmt.Errorf("saf: failed to write sites: %v", err)
	}
	if err := writeOffset(w, rec.PositionOffset); err != nil {
		return fmt.Errorf("saf: failed to write position offset: %v", err)
	}
	if err := writeOffset(w, rec.ItemOffset); err != nil {
		return fmt.Errorf("saf: failed to write item offset: %v", err)
	}
	return nil
}

func (V3) bandLen(Item) int { return 0 }

// V4 is the sparse-band SAF version.
type V4 struct{}

var v4Magic = [8]byte{'s', 'a', 'f', 'v', '4', 0, 0, 0}

// Magic returns the v4 file magic, "safv4\0\0\0".
//
// An earlier variant of the source this format derives from reused the v3
// magic for v4 files; that was a bug. This implementation only ever emits
// and accepts the distinct v4 magic.
func (V4) Magic() [8]byte { return v4Magic }

func (V4) String() string { return "v4" }

// NewItem returns an empty Band; ReadItem replaces it wholesale on every
// call since a band's length varies per site.
func (V4) NewItem(int) Item {
	return Band{}
}

// ReadItem reads a band header (start, length) followed by length
// float32 values, returning a freshly sized Band.
func (V4) ReadItem(r io.Reader, buf Item) (Item, angsd.ReadStatus, error) {
	if _, ok := buf.(Band); !ok {
		panic("saf: v4 ReadItem called with non-Band buffer")
	}

	start, err := readUint32(r)
	if err == io.EOF {
		return Band{}, angsd.Done, nil
	}
	if err != nil {
		return Band{}, angsd.NotDone, angsd.NewError(angsd.UnexpectedEOF, "saf: failed to read band header", err)
	}
	length, err := readUint32(r)
	if err != nil {
		return Band{}, angsd.NotDone, angsd.NewError(angsd.UnexpectedEOF, "saf: failed to read band header", err)
	}

	values := make([]float32, length)
	for i := range values {
		v, err := readFloat32(r)
		if err != nil {
			return Band{}, angsd.NotDone, angsd.NewError(angsd.UnexpectedEOF, "saf: failed to read band values", err)
		}
		values[i] = v
	}
	return Band{Start: int(start), Values: values}, angsd.NotDone, nil
}

// WriteItem writes item.(Band) as a (start, length) header followed by its
// values.
func (V4) WriteItem(w io.Writer, item Item) error {
	b, ok := item.(Band)
	if !ok {
		panic("saf: v4 WriteItem called with non-Band item")
	}
	if err := writeUint32(w, uint32(b.Start)); err != nil {
		return fmt.Errorf("saf: failed to write band start: %v", err)
	}
	if err := writeUint32(w, uint32(len(b.Values))); err != nil {
		return fmt.Errorf("saf: failed to write band length: %v", err)
	}
	for _, v := range b.Values {
		if err := writeFloat32(w, v); err != nil {
			return fmt.Errorf("saf: failed to write band values: %v", err)
		}
	}
	return nil
}

// ReadIndexRecord reads a v4 IndexRecord: name, sites, sum_band, position
// offset, item offset.
func (V4) ReadIndexRecord(r io.Reader) (IndexRecord, error) {
	name, err := readName(r)
	if err == io.EOF {
		return IndexRecord{}, io.EOF
	}
	if err != nil {
		return IndexRecord{}, err
	}
	sites, err := readUint64(r)
	if err != nil {
		return IndexRecord{}, angsd.NewError(angsd.UnexpectedEOF, "saf: failed to read sites", err)
	}
	sumBand, err := readUint64(r)
	if err != nil {
		return IndexRecord{}, angsd.NewError(angsd.UnexpectedEOF, "saf: failed to read sum_band", err)
	}
	posOff, err := readOffset(r)
	if err != nil {
		return IndexRecord{}, angsd.NewError(angsd.UnexpectedEOF, "saf: failed to read position offset", err)
	}
	itemOff, err := readOffset(r)
	if err != nil {
		return IndexRecord{}, angsd.NewError(angsd.UnexpectedEOF, "saf: failed to read item offset", err)
	}
	return IndexRecord{Name: name, Sites: sites, SumBand: sumBand, PositionOffset: posOff, ItemOffset: itemOff}, nil
}

// WriteIndexRecord writes a v4 IndexRecord.
func (V4) WriteIndexRecord(w io.Writer, rec IndexRecord) error {
	if err := writeName(w, rec.Name); err != nil {
		return fmt.Errorf("saf: failed to write contig name: %v", err)
	}
	if err := writeUint64(w, rec.Sites); err != nil {
		return fmt.Errorf("saf: failed to write sites: %v", err)
	}
	if err := writeUint64(w, rec.SumBand); err != nil {
		return fmt.Errorf("saf: failed to write sum_band: %v", err)
	}
	if err := writeOffset(w, rec.PositionOffset); err != nil {
		return fmt.Errorf("saf: failed to write position offset: %v", err)
	}
	if err := writeOffset(w, rec.ItemOffset); err != nil {
		return fmt.Errorf("saf: failed to write item offset: %v", err)
	}
	return nil
}

func (V4) bandLen(item Item) int {
	b, ok := item.(Band)
	if !ok {
		panic("saf: v4 bandLen called with non-Band item")
	}
	return b.Len()
}

func readFloat32(r io.Reader) (float32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[:])), nil
}

func writeFloat32(w io.Writer, v float32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
	_, err := w.Write(buf[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}
