// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package glf provides readers and writers for the GLF genotype
// likelihood format: fixed-size records of ten little-endian float64
// likelihoods, one per diploid, diallelic genotype, optionally BGZF-block
// compressed.
package glf

import (
	"fmt"
	"strconv"
	"strings"
)

// Genotype indexes a Record by the diploid, diallelic genotype its
// likelihood belongs to.
type Genotype int

// The ten diploid, diallelic genotypes, in the order a Record stores
// their likelihoods.
const (
	AA Genotype = iota
	AC
	AG
	AT
	CC
	CG
	CT
	GG
	GT
	TT
)

var genotypeNames = [...]string{"AA", "AC", "AG", "AT", "CC", "CG", "CT", "GG", "GT", "TT"}

func (g Genotype) String() string {
	if g < 0 || int(g) >= len(genotypeNames) {
		return fmt.Sprintf("Genotype(%d)", int(g))
	}
	return genotypeNames[g]
}

// size is the number of likelihoods in a Record.
const size = 10

// ByteSize is the number of bytes one Record occupies in a GLF stream.
const ByteSize = size * 8

const sep = ":"

// Record holds the log-scaled likelihoods of the ten possible diploid,
// diallelic genotypes at one site, conventionally scaled so the most
// likely genotype has likelihood 0. Index a Record with a Genotype to
// read or write a single value.
type Record [size]float64

// Genotype returns the likelihood of g.
func (r Record) Genotype(g Genotype) float64 { return r[g] }

// SetGenotype sets the likelihood of g to v.
func (r *Record) SetGenotype(g Genotype, v float64) { r[g] = v }

func (r Record) String() string {
	var sb strings.Builder
	for i, v := range r {
		if i > 0 {
			sb.WriteString(sep)
		}
		fmt.Fprintf(&sb, "%v", v)
	}
	return sb.String()
}

// ParseRecordErrorKind distinguishes the ways a text record can fail to
// parse.
type ParseRecordErrorKind int

const (
	MissingValues ParseRecordErrorKind = iota + 1
	InvalidValue
)

func (k ParseRecordErrorKind) String() string {
	switch k {
	case MissingValues:
		return "missing values in record"
	case InvalidValue:
		return "invalid value in record"
	default:
		return "unknown parse error"
	}
}

// ParseRecordError is returned by ParseRecord when a text record is
// malformed.
type ParseRecordError struct {
	Kind ParseRecordErrorKind
	Err  error
}

func (e *ParseRecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *ParseRecordError) Unwrap() error { return e.Err }

// ParseRecord parses the colon-separated text form of a Record, the
// inverse of Record.String.
func ParseRecord(s string) (Record, error) {
	fields := strings.Split(s, sep)
	if len(fields) != size {
		return Record{}, &ParseRecordError{Kind: MissingValues}
	}

	var r Record
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Record{}, &ParseRecordError{Kind: InvalidValue, Err: err}
		}
		r[i] = v
	}
	return r, nil
}
