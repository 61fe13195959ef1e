// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Gmgraph unions a directory of persisted gene-matches tables into a
// single graph and reports its ideal components. With -dot it also
// writes a DOT-format rendering of the full graph for visual
// inspection.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/kortschak/rnaclique/genegraph"
	"github.com/kortschak/rnaclique/internal/store"
)

func main() {
	tablesDir := flag.String("tables-dir", "", "directory of persisted per-pair tables (required)")
	k := flag.Int("k", 0, "expected sample count (default: inferred from the tables)")
	dotOut := flag.String("dot", "", "write a DOT-format rendering of the graph to this path")
	graphOut := flag.String("graph-out", "", "write the graph's gob-serialized edge list to this path")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), `Usage of %[1]s:
  $ %[1]s -tables-dir <dir> [-dot out.dot] [-graph-out graph.gob]

Options:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *tablesDir == "" {
		flag.Usage()
		os.Exit(2)
	}

	entries, err := ioutil.ReadDir(*tablesDir)
	if err != nil {
		log.Fatal(err)
	}

	g := genegraph.New()
	var loaded int
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".meta") || strings.HasSuffix(e.Name(), ".tmp") {
			continue
		}
		path := filepath.Join(*tablesDir, e.Name())
		table, err := store.LoadTable(path)
		if err != nil {
			log.Printf("skipping %s: %v", path, err)
			continue
		}
		g.Add(table)
		loaded++
	}
	log.Printf("loaded %d tables, %d vertices", loaded, g.NumVertices())

	components := genegraph.IdealComponents(g, *k)
	log.Printf("found %d ideal components", len(components))

	enc := json.NewEncoder(os.Stdout)
	for _, c := range components {
		if err := enc.Encode(c.Vertices); err != nil {
			log.Fatal(err)
		}
	}

	if *dotOut != "" {
		b, err := g.DOT()
		if err != nil {
			log.Fatal(err)
		}
		if err := ioutil.WriteFile(*dotOut, b, 0o664); err != nil {
			log.Fatal(err)
		}
	}
	if *graphOut != "" {
		if err := store.SaveGraph(*graphOut, g); err != nil {
			log.Fatal(err)
		}
	}
}
