// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package angsd

import (
	"bufio"
	"strings"
	"testing"
)

func TestCheckStatusNotDone(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("x"))
	got, err := CheckStatus(r)
	if err != nil {
		t.Fatalf("CheckStatus: %v", err)
	}
	if got != NotDone {
		t.Errorf("CheckStatus on non-empty stream = %v, want NotDone", got)
	}
}

func TestCheckStatusDone(t *testing.T) {
	r := bufio.NewReader(strings.NewReader(""))
	got, err := CheckStatus(r)
	if err != nil {
		t.Fatalf("CheckStatus: %v", err)
	}
	if got != Done {
		t.Errorf("CheckStatus on empty stream = %v, want Done", got)
	}
}

func TestCheckStatusAfterConsuming(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("x"))
	if _, err := r.ReadByte(); err != nil {
		t.Fatalf("ReadByte: %v", err)
	}
	got, err := CheckStatus(r)
	if err != nil {
		t.Fatalf("CheckStatus: %v", err)
	}
	if got != Done {
		t.Errorf("CheckStatus after consuming last byte = %v, want Done", got)
	}
}

func TestReadStatusString(t *testing.T) {
	if Done.String() != "Done" {
		t.Errorf("Done.String() = %q, want Done", Done.String())
	}
	if NotDone.String() != "NotDone" {
		t.Errorf("NotDone.String() = %q, want NotDone", NotDone.String())
	}
}
