// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package blast_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kortschak/rnaclique/blast"
)

func TestSearchSubjectRejectsMissingQuery(t *testing.T) {
	d := &blast.Driver{EValue: 1e-10}
	dir := t.TempDir()
	subject := filepath.Join(dir, "subject.fasta")
	require.NoError(t, os.WriteFile(subject, []byte(">s1\nACGT\n"), 0o644))

	_, err := d.SearchSubject(context.Background(), filepath.Join(dir, "missing.fasta"), subject)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query file does not exist")
}

func TestSearchSubjectRejectsMissingSubject(t *testing.T) {
	d := &blast.Driver{EValue: 1e-10}
	dir := t.TempDir()
	query := filepath.Join(dir, "query.fasta")
	require.NoError(t, os.WriteFile(query, []byte(">q1\nACGT\n"), 0o644))

	_, err := d.SearchSubject(context.Background(), query, filepath.Join(dir, "missing.fasta"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subject file does not exist")
}

func TestSearchRequiresPositiveEValue(t *testing.T) {
	d := &blast.Driver{EValue: 0}
	dir := t.TempDir()
	query := filepath.Join(dir, "query.fasta")
	require.NoError(t, os.WriteFile(query, []byte(">q1\nACGT\n"), 0o644))

	_, err := d.SearchSubject(context.Background(), query, query)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "evalue threshold must be > 0")
}
