// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Rnadist computes the filtered similarity and dissimilarity matrices
// for a set of persisted gene-matches tables, restricted to a
// previously extracted set of ideal components.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/kortschak/rnaclique/genegraph"
	"github.com/kortschak/rnaclique/internal/store"
	"github.com/kortschak/rnaclique/recip"
	"github.com/kortschak/rnaclique/similarity"
)

func main() {
	tablesDir := flag.String("tables-dir", "", "directory of persisted per-pair tables (required)")
	graphPath := flag.String("graph", "", "path to a gob-serialized graph from gmgraph -graph-out (required)")
	k := flag.Int("k", 0, "expected sample count (default: inferred from the graph)")
	simOut := flag.String("similarity-out", "similarity.csv", "path to write the similarity matrix")
	dissimOut := flag.String("dissimilarity-out", "dissimilarity.csv", "path to write the dissimilarity matrix")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), `Usage of %[1]s:
  $ %[1]s -tables-dir <dir> -graph <graph.gob>

Options:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *tablesDir == "" || *graphPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	g, err := store.LoadGraph(*graphPath)
	if err != nil {
		log.Fatal(err)
	}
	components := genegraph.IdealComponents(g, *k)
	if len(components) == 0 {
		log.Print("WARNING: no ideal components found; every off-diagonal entry will be undefined")
	}

	tables, samples, err := loadTables(*tablesDir)
	if err != nil {
		log.Fatal(err)
	}

	eng := similarity.NewEngine(components)
	simM, dissimM := eng.BuildMatrices(samples, tables)

	if err := writeMatrix(*simOut, simM); err != nil {
		log.Fatal(err)
	}
	if err := writeMatrix(*dissimOut, dissimM); err != nil {
		log.Fatal(err)
	}
}

func loadTables(dir string) ([]recip.GeneMatchTable, []string, error) {
	entries, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}

	sampleSet := make(map[string]bool)
	var tables []recip.GeneMatchTable
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".meta") || strings.HasSuffix(e.Name(), ".tmp") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		t, err := store.LoadTable(path)
		if err != nil {
			log.Printf("skipping %s: %v", path, err)
			continue
		}
		sampleSet[t.QuerySample] = true
		sampleSet[t.SubjectSample] = true
		tables = append(tables, t)
	}

	samples := make([]string, 0, len(sampleSet))
	for s := range sampleSet {
		samples = append(samples, s)
	}
	sort.Strings(samples)
	return tables, samples, nil
}

func writeMatrix(path string, m *similarity.Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(append([]string{""}, m.Samples...)); err != nil {
		return err
	}
	values := m.Float64()
	for i, sample := range m.Samples {
		row := append([]string{sample}, formatRow(values[i])...)
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatRow(values []float64) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return out
}
