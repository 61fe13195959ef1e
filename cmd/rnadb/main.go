// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Rnadb allows a persisted gene-matches table, as written by rnaclique
// or the pairs orchestrator, to be inspected directly. Output is a
// JSON stream of the table's hits on stdout, one object per line,
// preceded by a summary line on stderr.
package main

import (
	"encoding/json"
	"flag"
	"io/ioutil"
	"log"
	"os"

	"github.com/kortschak/rnaclique/internal/store"
	"github.com/kortschak/rnaclique/topgene"
)

func main() {
	path := flag.String("db", "", "specify a persisted per-pair table to audit")
	fastaPath := flag.String("fasta", "", "specify a reduced FASTA to extract a sequence range from")
	seqID := flag.String("seqid", "", "sequence id to extract (requires -fasta)")
	start := flag.Int("start", 0, "0-based start offset for -seqid")
	end := flag.Int("end", 0, "0-based end offset, exclusive, for -seqid")
	flag.Usage = func() {
		os.Stderr.WriteString("Usage: rnadb -db <per-pair table path (.kv or .csv)>\n" +
			"       rnadb -fasta <reduced.fasta> -seqid <id> -start <n> -end <n>\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if *path == "" && *fastaPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	if *path != "" {
		auditTable(*path)
	}
	if *fastaPath != "" {
		if *seqID == "" {
			log.Fatal("rnadb: -seqid is required with -fasta")
		}
		extractRange(*fastaPath, *seqID, *start, *end)
	}
}

func auditTable(path string) {
	table, err := store.LoadTable(path)
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("%s x %s: %d hits", table.QuerySample, table.SubjectSample, len(table.Hits))

	enc := json.NewEncoder(os.Stdout)
	for _, h := range table.Hits {
		if err := enc.Encode(h); err != nil {
			log.Fatal(err)
		}
	}
}

// extractRange prints the bases of seqID in [start, end) from the FASTA
// at path, chosen by random access through its fai index rather than a
// linear scan.
func extractRange(path, seqID string, start, end int) {
	fa, closeFA, err := topgene.IndexedFASTA(path)
	if err != nil {
		log.Fatal(err)
	}
	defer closeFA()

	r, err := fa.SeqRange(seqID, start, end)
	if err != nil {
		log.Fatalf("rnadb: %s[%d:%d]: %v", seqID, start, end, err)
	}
	b, err := ioutil.ReadAll(r)
	if err != nil {
		log.Fatal(err)
	}
	os.Stdout.Write(b)
	os.Stdout.Write([]byte("\n"))
}
