// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package saf

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/biogo/hts/bgzf"
	"github.com/kortschak/utter"

	"gopkg.in/check.v1"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

// stubLogger records every message it is given, for tests that assert on
// lifecycle logging.
type stubLogger struct {
	messages []string
}

func (l *stubLogger) Printf(format string, v ...interface{}) {
	l.messages = append(l.messages, fmt.Sprintf(format, v...))
}

// roundTripV3 writes records through a v3 Writer and reads them back
// through a v3 Reader, returning what was read.
func (s *S) roundTripV3(c *check.C, alleles int, byContig map[string][]Record[string]) (*Index, []Record[Id]) {
	var indexBuf, posBuf, itemBuf bytes.Buffer

	w, err := CreateWriter(&indexBuf, &posBuf, &itemBuf, V3{}, alleles)
	c.Assert(err, check.IsNil)

	// Contigs must be presented to WriteRecord in file order.
	names := []string{"chr1", "chr2"}
	for _, name := range names {
		recs, ok := byContig[name]
		if !ok {
			continue
		}
		for _, r := range recs {
			c.Assert(w.WriteRecord(r), check.IsNil)
		}
	}
	_, _, _, err = w.Finish()
	c.Assert(err, check.IsNil)

	index, err := ReadIndex(bytes.NewReader(indexBuf.Bytes()), V3{})
	c.Assert(err, check.IsNil)

	r, err := OpenReader(index, bytes.NewReader(posBuf.Bytes()), bytes.NewReader(itemBuf.Bytes()), V3{})
	c.Assert(err, check.IsNil)
	c.Assert(r, check.NotNil)

	var got []Record[Id]
	buf := r.CreateRecordBuf()
	for {
		status, err := r.ReadRecord(&buf)
		c.Assert(err, check.IsNil)
		if status.IsDone() {
			break
		}
		l := buf.Item.(Likelihoods)
		got = append(got, NewRecord(buf.ContigID, buf.Position, append(Likelihoods(nil), l...)))
	}
	c.Assert(r.Close(), check.IsNil)

	return index, got
}

func (s *S) TestWriterReaderRoundTripV3(c *check.C) {
	byContig := map[string][]Record[string]{
		"chr1": {
			NewRecord[string]("chr1", 1, Likelihoods{0, 1, 2}),
			NewRecord[string]("chr1", 5, Likelihoods{3, 4, 5}),
		},
		"chr2": {
			NewRecord[string]("chr2", 2, Likelihoods{6, 7, 8}),
		},
	}

	index, got := s.roundTripV3(c, 2, byContig)

	c.Assert(index.Records, check.HasLen, 2)
	c.Assert(index.Records[0].Name, check.Equals, "chr1")
	c.Assert(index.Records[0].Sites, check.Equals, uint64(2))
	c.Assert(index.Records[1].Name, check.Equals, "chr2")
	c.Assert(index.Records[1].Sites, check.Equals, uint64(1))

	c.Assert(got, check.HasLen, 3, check.Commentf("got:\n%s", utter.Sdump(got)))
	c.Assert(got[0].ContigID, check.Equals, 0)
	c.Assert(got[0].Position, check.Equals, uint32(1))
	c.Assert(got[0].Item.(Likelihoods), check.DeepEquals, Likelihoods{0, 1, 2}, check.Commentf("record:\n%s", utter.Sdump(got[0])))
	c.Assert(got[2].ContigID, check.Equals, 1)
	c.Assert(got[2].Item.(Likelihoods), check.DeepEquals, Likelihoods{6, 7, 8}, check.Commentf("record:\n%s", utter.Sdump(got[2])))

	named := ToNamed(got[0], index)
	c.Assert(named.ContigID, check.Equals, "chr1")
}

func (s *S) TestWriterReaderRoundTripV4(c *check.C) {
	var indexBuf, posBuf, itemBuf bytes.Buffer

	w, err := CreateWriter(&indexBuf, &posBuf, &itemBuf, V4{}, 4)
	c.Assert(err, check.IsNil)

	c.Assert(w.WriteRecord(NewRecord[string]("chr1", 10, Band{Start: 1, Values: []float32{-1, -2}})), check.IsNil)
	c.Assert(w.WriteRecord(NewRecord[string]("chr1", 20, Band{Start: 0, Values: []float32{-3}})), check.IsNil)
	_, _, _, err = w.Finish()
	c.Assert(err, check.IsNil)

	index, err := ReadIndex(bytes.NewReader(indexBuf.Bytes()), V4{})
	c.Assert(err, check.IsNil)
	c.Assert(index.Records, check.HasLen, 1)
	c.Assert(index.Records[0].Sites, check.Equals, uint64(2))
	c.Assert(index.Records[0].SumBand, check.Equals, uint64(3))

	r, err := OpenReader(index, bytes.NewReader(posBuf.Bytes()), bytes.NewReader(itemBuf.Bytes()), V4{})
	c.Assert(err, check.IsNil)

	buf := r.CreateRecordBuf()
	status, err := r.ReadRecord(&buf)
	c.Assert(err, check.IsNil)
	c.Assert(status.IsNotDone(), check.Equals, true)
	b := buf.Item.(Band)
	c.Assert(b.Start, check.Equals, 1, check.Commentf("band:\n%s", utter.Sdump(b)))
	c.Assert(b.Values, check.DeepEquals, []float32{-1, -2})

	full := buf.IntoFull(4, -1000)
	c.Assert(full.Item.(Likelihoods), check.DeepEquals, Likelihoods{-1000, -1, -2, -1000, -1000}, check.Commentf("full:\n%s", utter.Sdump(full)))
}

func (s *S) TestBandIntoFull(c *check.C) {
	b := Band{Start: 2, Values: []float32{10, 20}}
	full := b.IntoFull(5, 0)
	c.Assert(full, check.DeepEquals, Likelihoods{0, 0, 10, 20, 0, 0})
}

func (s *S) TestIntersect(c *check.C) {
	var i1, p1, t1 bytes.Buffer
	w1, err := CreateWriter(&i1, &p1, &t1, V3{}, 1)
	c.Assert(err, check.IsNil)
	c.Assert(w1.WriteRecord(NewRecord[string]("chr1", 1, Likelihoods{0, 1})), check.IsNil)
	c.Assert(w1.WriteRecord(NewRecord[string]("chr1", 2, Likelihoods{2, 3})), check.IsNil)
	c.Assert(w1.WriteRecord(NewRecord[string]("chr2", 1, Likelihoods{4, 5})), check.IsNil)
	_, _, _, err = w1.Finish()
	c.Assert(err, check.IsNil)

	var i2, p2, t2 bytes.Buffer
	w2, err := CreateWriter(&i2, &p2, &t2, V3{}, 1)
	c.Assert(err, check.IsNil)
	c.Assert(w2.WriteRecord(NewRecord[string]("chr1", 2, Likelihoods{6, 7})), check.IsNil)
	c.Assert(w2.WriteRecord(NewRecord[string]("chr1", 3, Likelihoods{8, 9})), check.IsNil)
	c.Assert(w2.WriteRecord(NewRecord[string]("chr2", 1, Likelihoods{10, 11})), check.IsNil)
	_, _, _, err = w2.Finish()
	c.Assert(err, check.IsNil)

	idx1, err := ReadIndex(bytes.NewReader(i1.Bytes()), V3{})
	c.Assert(err, check.IsNil)
	idx2, err := ReadIndex(bytes.NewReader(i2.Bytes()), V3{})
	c.Assert(err, check.IsNil)

	r1, err := OpenReader(idx1, bytes.NewReader(p1.Bytes()), bytes.NewReader(t1.Bytes()), V3{})
	c.Assert(err, check.IsNil)
	r2, err := OpenReader(idx2, bytes.NewReader(p2.Bytes()), bytes.NewReader(t2.Bytes()), V3{})
	c.Assert(err, check.IsNil)

	ix := r1.Intersect(r2)
	bufs := ix.CreateRecordBufs()

	var positions []uint32
	for {
		status, err := ix.ReadRecords(bufs)
		c.Assert(err, check.IsNil)
		if status.IsDone() {
			break
		}
		c.Assert(bufs[0].Position, check.Equals, bufs[1].Position)
		positions = append(positions, bufs[0].Position)
	}

	// Position 2 on chr1 and position 1 on chr2 are the only sites
	// present in both files.
	c.Assert(positions, check.DeepEquals, []uint32{2, 1}, check.Commentf("positions:\n%s", utter.Sdump(positions)))
}

func (s *S) TestParseAndStringRecord(c *check.C) {
	r, err := ParseRecord("chr1 5 0.5 1.5 2.5")
	c.Assert(err, check.IsNil)
	c.Assert(r.ContigID, check.Equals, "chr1")
	c.Assert(r.Position, check.Equals, uint32(5))
	c.Assert(r.Item.(Likelihoods), check.DeepEquals, Likelihoods{0.5, 1.5, 2.5})

	c.Assert(r.String(), check.Equals, "chr1\t5\t0.5\t1.5\t2.5")
}

func (s *S) TestParseRecordErrors(c *check.C) {
	_, err := ParseRecord("")
	c.Assert(err, check.ErrorMatches, "missing record contig ID")

	_, err = ParseRecord("chr1")
	c.Assert(err, check.ErrorMatches, "missing record position")

	_, err = ParseRecord("chr1 notanumber 1.0")
	c.Assert(err, check.ErrorMatches, "invalid record position.*")

	_, err = ParseRecord("chr1 5")
	c.Assert(err, check.ErrorMatches, "missing record likelihoods")
}

func (s *S) TestPrefixFromMemberPath(c *check.C) {
	prefix, ok := PrefixFromMemberPath("foo.saf.idx")
	c.Assert(ok, check.Equals, true)
	c.Assert(prefix, check.Equals, "foo")

	prefix, ok = PrefixFromMemberPath("foo.bar.saf.idx")
	c.Assert(ok, check.Equals, true)
	c.Assert(prefix, check.Equals, "foo.bar")

	prefix, ok = PrefixFromMemberPath("dir/bar.saf.pos.gz")
	c.Assert(ok, check.Equals, true)
	c.Assert(prefix, check.Equals, "dir/bar")

	prefix, ok = PrefixFromMemberPath("/home/dir/baz.saf.gz")
	c.Assert(ok, check.Equals, true)
	c.Assert(prefix, check.Equals, "/home/dir/baz")

	_, ok = PrefixFromMemberPath("foo.saf.gz.idx")
	c.Assert(ok, check.Equals, false)
}

func (s *S) TestMemberPaths(c *check.C) {
	paths := MemberPaths("foo")
	c.Assert(paths, check.Equals, [3]string{"foo.saf.idx", "foo.saf.pos.gz", "foo.saf.gz"})

	paths = MemberPaths("foo.bar")
	c.Assert(paths, check.Equals, [3]string{"foo.bar.saf.idx", "foo.bar.saf.pos.gz", "foo.bar.saf.gz"})
}

func (s *S) TestLoggerLifecycleEvents(c *check.C) {
	var indexBuf, posBuf, itemBuf bytes.Buffer

	wLog := &stubLogger{}
	w, err := CreateWriter(&indexBuf, &posBuf, &itemBuf, V3{}, 1, WithWriterLogger(wLog))
	c.Assert(err, check.IsNil)
	c.Assert(w.WriteRecord(NewRecord[string]("chr1", 1, Likelihoods{0, 1})), check.IsNil)
	_, _, _, err = w.Finish()
	c.Assert(err, check.IsNil)

	c.Assert(wLog.messages, check.HasLen, 2)
	c.Assert(wLog.messages[0], check.Matches, "saf: opened.*")
	c.Assert(wLog.messages[1], check.Matches, "saf: finished.*")

	index, err := ReadIndex(bytes.NewReader(indexBuf.Bytes()), V3{})
	c.Assert(err, check.IsNil)

	rLog := &stubLogger{}
	r, err := OpenReader(index, bytes.NewReader(posBuf.Bytes()), bytes.NewReader(itemBuf.Bytes()), V3{}, WithLogger(rLog))
	c.Assert(err, check.IsNil)
	c.Assert(r.Close(), check.IsNil)

	c.Assert(rLog.messages, check.HasLen, 2)
	c.Assert(rLog.messages[0], check.Matches, "saf: opened.*")
	c.Assert(rLog.messages[1], check.Matches, "saf: closed.*")
}

func (s *S) TestIndexOffsetRoundTrip(c *check.C) {
	var buf bytes.Buffer
	off := bgzf.Offset{File: 12345, Block: 42}
	c.Assert(writeOffset(&buf, off), check.IsNil)
	got, err := readOffset(&buf)
	c.Assert(err, check.IsNil)
	c.Assert(got, check.Equals, off)
}
