// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package blast provides types and functions for invoking NCBI+ BLAST
// (blastn/makeblastdb) and interpreting the returned tabular results.
package blast

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"text/template"

	"github.com/biogo/external"
)

// MakeDB builds a command line for makeblastdb.
//
// Usage: makeblastdb -dbtype <type> -out <file>
//
// For details relating to options and parameters, see the BLAST manual.
type MakeDB struct {
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}makeblastdb{{end}}"` // makeblastdb

	In          string `buildarg:"{{with .}}-in{{split}}{{.}}{{end}}"`            // -in <s>
	Out         string `buildarg:"{{with .}}-out{{split}}{{.}}{{end}}"`           // -out <s>
	InputType   string `buildarg:"{{with .}}-input_type{{split}}{{.}}{{end}}"`    // -input_type <s>
	DBType      string `buildarg:"{{with .}}-dbtype{{split}}{{.}}{{end}}"`        // -dbtype <s>
	Title       string `buildarg:"{{with .}}-title{{split}}{{.}}{{end}}"`         // -title <s>
	ParseSeqids bool   `buildarg:"{{if .}}-parse_seqids{{end}}"`                  // -parse_seqids
	HashIndex   bool   `buildarg:"{{if .}}-hash_index{{end}}"`                    // -hash_index
	MaxFileSize string `buildarg:"{{with .}}-max_file_size{{split}}{{.}}{{end}}"` // -max_file_size <s>
	LogFile     string `buildarg:"{{with .}}-logfile{{split}}{{.}}{{end}}"`       // -logfile <s>

	// ExtraFlags will be passed through to makeblastdb as flags.
	ExtraFlags string
}

func (m MakeDB) BuildCommand() (*exec.Cmd, error) {
	if m.DBType == "" {
		return nil, errors.New("makeblastdb: missing dbtype")
	}
	if m.Out == "" {
		return nil, errors.New("makeblastdb: missing out filename")
	}
	var extra []string
	if m.ExtraFlags != "" {
		extra = strings.Split(m.ExtraFlags, " ")
	}
	cl := external.Must(external.Build(m))
	return exec.Command(cl[0], append(cl[1:], extra...)...), nil
}

// TabularFormat describes a BLAST tabular output format request: the
// numeric format code (6 for tab-separated, 7 for commented tab-separated)
// and the explicit, stable column list to request (§6).
type TabularFormat struct {
	Code    int
	Columns []string
}

func tabularFormat(t TabularFormat) string {
	if len(t.Columns) == 0 {
		return fmt.Sprint(t.Code)
	}
	return fmt.Sprintf("%d %s", t.Code, strings.Join(t.Columns, " "))
}

// Nucleic builds a command line for blastn.
//
// Usage: blastn -db <file> -query <file>
//
// For details relating to options and parameters, see the BLAST manual.
type Nucleic struct {
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}blastn{{end}}"` // blastn

	// Parameter:
	EValue   float64 `buildarg:"{{if .}}-evalue{{split}}{{.}}{{end}}"`    // -evalue <f.>
	WordSize int     `buildarg:"{{if .}}-word_size{{split}}{{.}}{{end}}"` // -word_size <n>

	// Input:
	Query    string `buildarg:"-query{{split}}{{.}}"`                  // -query <s>
	Subject  string `buildarg:"{{if .}}-subject{{split}}{{.}}{{end}}"` // -subject <s>
	Database string `buildarg:"{{if .}}-db{{split}}{{.}}{{end}}"`      // -db <s>

	// Output: an explicit, stable tabular column list (§6).
	OutFormat TabularFormat `buildarg:"{{if .}}-outfmt{{split}}{{tabfmt .}}{{end}}"` // -outfmt <n cols...>

	// Performance:
	Threads int `buildarg:"{{if .}}-num_threads{{split}}{{.}}{{end}}"` // -num_threads <n>

	// ExtraFlags will be passed through to blastn as flags.
	ExtraFlags string
}

func (n Nucleic) BuildCommand() (*exec.Cmd, error) {
	if n.EValue <= 0 {
		return nil, errors.New("blastn: evalue threshold must be > 0")
	}
	if n.Query == "" {
		return nil, errors.New("blastn: missing query")
	}
	if n.Subject == "" && n.Database == "" {
		return nil, errors.New("blastn: missing subject or database")
	}
	cl := external.Must(external.Build(n, template.FuncMap{"tabfmt": tabularFormat}))
	var extra []string
	if n.ExtraFlags != "" {
		extra = strings.Split(n.ExtraFlags, " ")
	}
	return exec.Command(cl[0], append(cl[1:], extra...)...), nil
}
