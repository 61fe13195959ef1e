// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package blast

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// Strand is the orientation of a subject match.
type Strand int8

const (
	Plus  Strand = 1
	Minus Strand = -1
)

func (s Strand) String() string {
	switch s {
	case Plus:
		return "plus"
	case Minus:
		return "minus"
	default:
		return "unknown"
	}
}

// Columns is the explicit, stable tabular column list requested of blastn
// for every search the driver runs (§6).
var Columns = []string{
	"qseqid", "sseqid", "pident", "length", "mismatch", "gapopen",
	"qstart", "qend", "sstart", "send", "evalue", "bitscore",
	"gaps", "nident", "sstrand",
}

// Row is one row of a BLAST tabular alignment result (§3 Hit, restricted
// to the columns the driver itself is responsible for; qgene/qiso/sgene/siso
// are added downstream once sequence identifiers are parsed).
type Row struct {
	QSeqID, SSeqID string

	PctIdentity float64
	Length      int
	Mismatch    int
	GapOpen     int

	// QStart and SStart are BLAST's one-based start positions minus one;
	// QEnd and SEnd are BLAST's end positions unchanged. For plus-strand
	// matches these are zero-based, half-open coordinates; for
	// minus-strand matches SStart is greater than SEnd.
	QStart, QEnd int
	SStart, SEnd int

	EValue   float64
	BitScore float64

	Gaps   int
	Nident int

	Strand Strand
}

// ParseTabular parses whitespace-separated BLAST tabular rows produced by
// "-outfmt" with the given column list (§6). Comment lines beginning with
// '#' (format 7) are skipped.
func ParseTabular(r io.Reader, columns []string) ([]Row, error) {
	var rows []Row
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if line[0] == '#' {
			continue
		}
		fields := bytes.Fields(line)
		if len(fields) != len(columns) {
			return rows, fmt.Errorf("blast: expected %d fields, got %d: %q", len(columns), len(fields), line)
		}
		var row Row
		for i, col := range columns {
			if err := setField(&row, col, string(fields[i])); err != nil {
				return rows, fmt.Errorf("blast: %w in line: %s", err, line)
			}
		}
		if row.Strand == 0 {
			row.Strand = Plus
			if row.SEnd < row.SStart {
				row.Strand = Minus
			}
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return rows, err
	}
	return rows, nil
}

func setField(row *Row, col, val string) error {
	var err error
	switch col {
	case "qseqid":
		row.QSeqID = val
	case "sseqid":
		row.SSeqID = val
	case "pident":
		row.PctIdentity, err = strconv.ParseFloat(val, 64)
	case "length":
		row.Length, err = strconv.Atoi(val)
	case "mismatch":
		row.Mismatch, err = strconv.Atoi(val)
	case "gapopen":
		row.GapOpen, err = strconv.Atoi(val)
	case "qstart":
		row.QStart, err = strconv.Atoi(val)
		row.QStart--
	case "qend":
		row.QEnd, err = strconv.Atoi(val)
	case "sstart":
		row.SStart, err = strconv.Atoi(val)
		row.SStart--
	case "send":
		row.SEnd, err = strconv.Atoi(val)
	case "evalue":
		row.EValue, err = strconv.ParseFloat(val, 64)
	case "bitscore":
		row.BitScore, err = strconv.ParseFloat(val, 64)
	case "gaps":
		row.Gaps, err = strconv.Atoi(val)
	case "nident":
		row.Nident, err = strconv.Atoi(val)
	case "sstrand":
		switch val {
		case "plus":
			row.Strand = Plus
		case "minus":
			row.Strand = Minus
		default:
			return fmt.Errorf("unrecognised strand %q", val)
		}
	default:
		// Unknown requested column: ignore it, the driver only needs
		// the columns named above.
	}
	return err
}
