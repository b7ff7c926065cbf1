// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package glf

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

// stubLogger records every message it is given, for tests that assert on
// lifecycle logging.
type stubLogger struct {
	messages []string
}

func (l *stubLogger) Printf(format string, v ...interface{}) {
	l.messages = append(l.messages, fmt.Sprintf(format, v...))
}

func TestRecordDisplay(t *testing.T) {
	r := Record{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	got := r.String()
	want := "0:1:2:3:4:5:6:7:8:9"
	if got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestParseRecord(t *testing.T) {
	r, err := ParseRecord("0.:1.:2.:3.:4.:5.:6.:7.:8.:9.")
	if err != nil {
		t.Fatalf("ParseRecord failed: %v", err)
	}
	want := Record{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	if r != want {
		t.Fatalf("ParseRecord() = %v, want %v", r, want)
	}
}

func TestParseRecordMissingValues(t *testing.T) {
	_, err := ParseRecord("0:1:2")
	if err == nil {
		t.Fatal("ParseRecord of a short record should fail")
	}
	var perr *ParseRecordError
	if !errors.As(err, &perr) {
		t.Fatalf("error %v is not a *ParseRecordError", err)
	}
	if perr.Kind != MissingValues {
		t.Fatalf("Kind = %v, want MissingValues", perr.Kind)
	}
}

func TestGenotypeIndexing(t *testing.T) {
	var r Record
	r.SetGenotype(AC, -3.5)
	if got := r.Genotype(AC); got != -3.5 {
		t.Fatalf("Genotype(AC) = %v, want -3.5", got)
	}
	if r[AC] != -3.5 {
		t.Fatalf("r[AC] = %v, want -3.5", r[AC])
	}
}

func TestWriterReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	recs := []Record{
		{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
		{9, 8, 7, 6, 5, 4, 3, 2, 1, 0},
	}
	if err := w.WriteRecords(recs); err != nil {
		t.Fatalf("WriteRecords failed: %v", err)
	}

	r := NewReader(&buf)
	var got []Record
	for {
		var rec Record
		status, err := r.ReadRecord(&rec)
		if err != nil {
			t.Fatalf("ReadRecord failed: %v", err)
		}
		if status.IsDone() {
			break
		}
		got = append(got, rec)
	}

	if !reflect.DeepEqual(got, recs) {
		t.Fatalf("round trip = %v, want %v", got, recs)
	}
}

func TestSkipRecord(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	recs := []Record{
		{0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		{1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
	}
	if err := w.WriteRecords(recs); err != nil {
		t.Fatalf("WriteRecords failed: %v", err)
	}

	r := NewReader(&buf)
	status, err := r.SkipRecord()
	if err != nil {
		t.Fatalf("SkipRecord failed: %v", err)
	}
	if status.IsDone() {
		t.Fatal("SkipRecord reported Done too early")
	}

	var rec Record
	status, err = r.ReadRecord(&rec)
	if err != nil {
		t.Fatalf("ReadRecord failed: %v", err)
	}
	if status.IsDone() {
		t.Fatal("ReadRecord reported Done unexpectedly")
	}
	if rec != recs[1] {
		t.Fatalf("ReadRecord() = %v, want %v", rec, recs[1])
	}
}

func TestReadSomeRecords(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	recs := []Record{
		{1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
		{2, 2, 2, 2, 2, 2, 2, 2, 2, 2},
		{3, 3, 3, 3, 3, 3, 3, 3, 3, 3},
	}
	if err := w.WriteRecords(recs); err != nil {
		t.Fatalf("WriteRecords failed: %v", err)
	}

	r := NewReader(&buf)
	var first, third Record
	slots := []*Record{&first, nil, &third}
	status, err := r.ReadSomeRecords(slots)
	if err != nil {
		t.Fatalf("ReadSomeRecords failed: %v", err)
	}
	if status.IsDone() {
		t.Fatal("ReadSomeRecords reported Done unexpectedly")
	}
	if first != recs[0] {
		t.Fatalf("first = %v, want %v", first, recs[0])
	}
	if third != recs[2] {
		t.Fatalf("third = %v, want %v", third, recs[2])
	}
}

func TestReadRecordDoneAtEOF(t *testing.T) {
	r := NewReader(&bytes.Buffer{})
	var rec Record
	status, err := r.ReadRecord(&rec)
	if err != nil {
		t.Fatalf("ReadRecord failed: %v", err)
	}
	if !status.IsDone() {
		t.Fatal("ReadRecord on an empty stream should report Done")
	}
}

func TestLoggerLifecycleEvents(t *testing.T) {
	var buf bytes.Buffer

	wLog := &stubLogger{}
	w, err := NewBgzfWriter(&buf, WithWriterLogger(wLog))
	if err != nil {
		t.Fatalf("NewBgzfWriter failed: %v", err)
	}
	if err := w.WriteRecord(Record{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}); err != nil {
		t.Fatalf("WriteRecord failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if len(wLog.messages) != 2 {
		t.Fatalf("writer logged %d messages, want 2: %v", len(wLog.messages), wLog.messages)
	}
	if !strings.Contains(wLog.messages[0], "opened") {
		t.Fatalf("first writer message = %q, want an opened event", wLog.messages[0])
	}
	if !strings.Contains(wLog.messages[1], "closed") {
		t.Fatalf("second writer message = %q, want a closed event", wLog.messages[1])
	}

	rLog := &stubLogger{}
	r, err := NewBgzfReader(bytes.NewReader(buf.Bytes()), WithLogger(rLog))
	if err != nil {
		t.Fatalf("NewBgzfReader failed: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if len(rLog.messages) != 2 {
		t.Fatalf("reader logged %d messages, want 2: %v", len(rLog.messages), rLog.messages)
	}
	if !strings.Contains(rLog.messages[0], "opened") {
		t.Fatalf("first reader message = %q, want an opened event", rLog.messages[0])
	}
	if !strings.Contains(rLog.messages[1], "closed") {
		t.Fatalf("second reader message = %q, want a closed event", rLog.messages[1])
	}
}

func TestReadRecordTruncated(t *testing.T) {
	buf := bytes.NewBuffer(make([]byte, 4))
	r := NewReader(buf)
	var rec Record
	if _, err := r.ReadRecord(&rec); err == nil {
		t.Fatal("ReadRecord on a truncated record should fail")
	}
}
