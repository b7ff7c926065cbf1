// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package saf

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/biogo/angsd"
)

// Conventional SAF member file extensions.
const (
	IndexExt    = "saf.idx"
	PositionExt = "saf.pos.gz"
	ItemExt     = "saf.gz"
)

var memberExts = [3]string{IndexExt, PositionExt, ItemExt}

// PrefixFromMemberPath returns the shared prefix of a SAF dataset given
// any one of its three conventionally-named member paths, and true. It
// returns false if path does not end in one of IndexExt, PositionExt, or
// ItemExt.
func PrefixFromMemberPath(path string) (string, bool) {
	for _, ext := range memberExts {
		if !strings.HasSuffix(path, ext) {
			continue
		}
		stem := strings.TrimSuffix(path, ext)
		stem = strings.TrimSuffix(stem, ".")
		return stem, true
	}
	return "", false
}

// MemberPaths returns the three conventional member paths for a SAF
// dataset sharing prefix: the index, position, and item paths, in that
// order.
func MemberPaths(prefix string) [3]string {
	return [3]string{
		prefix + "." + IndexExt,
		prefix + "." + PositionExt,
		prefix + "." + ItemExt,
	}
}

// OpenFromPrefix opens a v3 or v4 SAF dataset given its shared file
// prefix, reading and validating all three member files' magic bytes. It
// returns (nil, nil) if the index holds no records, as OpenReader does.
func OpenFromPrefix[V Version](prefix string, version V, opts ...ReaderOption) (*Reader[V], error) {
	paths := MemberPaths(prefix)
	return OpenFromPaths(paths[0], paths[1], paths[2], version, opts...)
}

// OpenFromMemberPath opens a SAF dataset given any one of its three
// conventionally-named member paths, by first recovering their shared
// prefix.
func OpenFromMemberPath[V Version](memberPath string, version V, opts ...ReaderOption) (*Reader[V], error) {
	prefix, ok := PrefixFromMemberPath(memberPath)
	if !ok {
		return nil, angsd.NewError(angsd.InvalidInput,
			fmt.Sprintf("saf: %q does not end in a recognised SAF extension (.%s, .%s, .%s)",
				memberPath, IndexExt, PositionExt, ItemExt), nil)
	}
	return OpenFromPrefix(prefix, version, opts...)
}

// OpenFromPaths opens a SAF dataset given the explicit paths of its three
// member files.
func OpenFromPaths[V Version](indexPath, positionPath, itemPath string, version V, opts ...ReaderOption) (*Reader[V], error) {
	indexFile, err := os.Open(indexPath)
	if err != nil {
		return nil, fmt.Errorf("saf: failed to open index file: %v", err)
	}
	defer indexFile.Close()

	index, err := ReadIndex(indexFile, version)
	if err != nil {
		return nil, fmt.Errorf("saf: failed to read index %q: %v", indexPath, err)
	}

	positionFile, err := os.Open(positionPath)
	if err != nil {
		return nil, fmt.Errorf("saf: failed to open position file: %v", err)
	}
	itemFile, err := os.Open(itemPath)
	if err != nil {
		positionFile.Close()
		return nil, fmt.Errorf("saf: failed to open item file: %v", err)
	}

	r, err := OpenReader(index, positionFile, itemFile, version, opts...)
	if err != nil {
		positionFile.Close()
		itemFile.Close()
		return nil, err
	}
	if r == nil {
		positionFile.Close()
		itemFile.Close()
		return nil, nil
	}
	r.closers = []io.Closer{positionFile, itemFile}
	return r, nil
}

// CreateFromPrefix creates the three member files for a SAF dataset
// sharing prefix and returns a Writer over them. Existing files at those
// paths are truncated.
func CreateFromPrefix[V Version](prefix string, version V, alleles int, opts ...WriterOption) (*Writer[V], error) {
	paths := MemberPaths(prefix)

	indexFile, err := os.Create(paths[0])
	if err != nil {
		return nil, fmt.Errorf("saf: failed to create index file: %v", err)
	}
	positionFile, err := os.Create(paths[1])
	if err != nil {
		indexFile.Close()
		return nil, fmt.Errorf("saf: failed to create position file: %v", err)
	}
	itemFile, err := os.Create(paths[2])
	if err != nil {
		indexFile.Close()
		positionFile.Close()
		return nil, fmt.Errorf("saf: failed to create item file: %v", err)
	}

	return CreateWriter(indexFile, positionFile, itemFile, version, alleles, opts...)
}
