// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command safview prints the records of one SAF dataset, or the
// intersection of several, as tab-separated text on stdout.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/biogo/angsd/saf"
)

func main() {
	v4 := flag.Bool("v4", false, "read v4 (banded) SAF datasets instead of v3")
	full := flag.Bool("full", false, "expand v4 bands into full likelihood vectors before printing")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] prefix [prefix...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	prefixes := flag.Args()
	if len(prefixes) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if *v4 {
		if err := run(prefixes, saf.V4{}, *full); err != nil {
			log.Fatal(err)
		}
		return
	}
	if err := run(prefixes, saf.V3{}, *full); err != nil {
		log.Fatal(err)
	}
}

func run[V saf.Version](prefixes []string, version V, full bool) error {
	readers := make([]*saf.Reader[V], 0, len(prefixes))
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()

	for _, prefix := range prefixes {
		r, err := saf.OpenFromPrefix(prefix, version)
		if err != nil {
			return fmt.Errorf("safview: %v", err)
		}
		if r == nil {
			return fmt.Errorf("safview: %q has an empty index", prefix)
		}
		readers = append(readers, r)
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	if len(readers) == 1 {
		return printSingle(out, readers[0], full)
	}
	return printIntersection(out, readers, full)
}

func printSingle[V saf.Version](out *bufio.Writer, r *saf.Reader[V], full bool) error {
	buf := r.CreateRecordBuf()
	alleles := r.Index().Alleles
	for {
		status, err := r.ReadRecord(&buf)
		if err != nil {
			return fmt.Errorf("safview: %v", err)
		}
		if status.IsDone() {
			return nil
		}
		named := saf.ToNamed(buf, r.Index())
		if full {
			named = named.IntoFull(alleles, 0)
		}
		fmt.Fprintln(out, named.String())
	}
}

func printIntersection[V saf.Version](out *bufio.Writer, readers []*saf.Reader[V], full bool) error {
	ix := saf.NewIntersect(readers)
	bufs := ix.CreateRecordBufs()
	alleles := readers[0].Index().Alleles

	for {
		status, err := ix.ReadRecords(bufs)
		if err != nil {
			return fmt.Errorf("safview: %v", err)
		}
		if status.IsDone() {
			return nil
		}
		for i, buf := range bufs {
			named := saf.ToNamed(buf, readers[i].Index())
			if full {
				named = named.IntoFull(alleles, 0)
			}
			if i > 0 {
				fmt.Fprint(out, "\t")
			}
			fmt.Fprint(out, named.String())
		}
		fmt.Fprintln(out)
	}
}
