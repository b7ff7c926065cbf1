// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command glfview prints the records of a GLF file as colon-separated
// text on stdout, one record per line.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/biogo/angsd/glf"
)

func main() {
	bgzfCompressed := flag.Bool("bgzf", true, "the input file is BGZF-block compressed")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] path\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(args[0], *bgzfCompressed); err != nil {
		log.Fatal(err)
	}
}

func run(path string, bgzfCompressed bool) error {
	var r *glf.Reader
	var err error
	if bgzfCompressed {
		r, err = glf.OpenBgzfPath(path)
	} else {
		r, err = glf.OpenPath(path)
	}
	if err != nil {
		return fmt.Errorf("glfview: %v", err)
	}
	defer r.Close()

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	var rec glf.Record
	for {
		status, err := r.ReadRecord(&rec)
		if err != nil {
			return fmt.Errorf("glfview: %v", err)
		}
		if status.IsDone() {
			return nil
		}
		fmt.Fprintln(out, rec.String())
	}
}
