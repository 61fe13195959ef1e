// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gene parses transcript identifiers out of FASTA headers.
//
// The identifier pattern is configuration, not code: callers supply a
// compiled regular expression with up to three named groups, coverage,
// gene and isoform. Unnamed groups fall back to positional order.
package gene

import (
	"fmt"
	"regexp"
	"strconv"
)

// DefaultPattern matches headers of the form ..._cov_12.3_g4_i1, the
// naming convention used by rnaSPAdes and Trinity-style assemblers.
var DefaultPattern = regexp.MustCompile(`cov_([0-9]+(?:\.[0-9]+)?)_g([0-9]+)_i([0-9]+)`)

// fields lists the three identity components of an ID in the
// order positional (unnamed) groups are assigned to them.
var fields = [3]string{"coverage", "gene", "isoform"}

// ID is the parsed identity of a single transcript sequence record.
type ID struct {
	Coverage float64
	Gene     int
	Isoform  int
}

// Parse extracts an ID from a transcript header using pattern. Named
// groups coverage, gene and isoform are used if present; any field not
// assigned by name is taken from the remaining unnamed groups in
// declaration order. A field left unassigned, or a field that fails to
// parse as the expected type, is a fatal parse error for the record.
func Parse(pattern *regexp.Regexp, header string) (ID, error) {
	m := pattern.FindStringSubmatch(header)
	if m == nil {
		return ID{}, fmt.Errorf("gene: header %q does not match pattern %q", header, pattern)
	}

	named := make(map[string]int)
	for i, name := range pattern.SubexpNames() {
		if name != "" {
			named[name] = i
		}
	}

	used := make(map[int]bool, len(named))
	for _, i := range named {
		used[i] = true
	}

	vals := make(map[string]string, len(fields))
	for _, f := range fields {
		if i, ok := named[f]; ok {
			vals[f] = m[i]
		}
	}
	pos := 1 // group 0 is the whole match, never a field.
	for _, f := range fields {
		if _, ok := vals[f]; ok {
			continue
		}
		for pos < len(m) && used[pos] {
			pos++
		}
		if pos >= len(m) {
			return ID{}, fmt.Errorf("gene: header %q: pattern %q has no group for field %q", header, pattern, f)
		}
		vals[f] = m[pos]
		used[pos] = true
		pos++
	}

	cov, err := strconv.ParseFloat(vals["coverage"], 64)
	if err != nil {
		return ID{}, fmt.Errorf("gene: header %q: bad coverage %q: %w", header, vals["coverage"], err)
	}
	g, err := strconv.Atoi(vals["gene"])
	if err != nil {
		return ID{}, fmt.Errorf("gene: header %q: bad gene id %q: %w", header, vals["gene"], err)
	}
	iso, err := strconv.Atoi(vals["isoform"])
	if err != nil {
		return ID{}, fmt.Errorf("gene: header %q: bad isoform id %q: %w", header, vals["isoform"], err)
	}
	return ID{Coverage: cov, Gene: g, Isoform: iso}, nil
}
