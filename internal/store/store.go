// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package store persists gene-match tables and the gene-matches graph
// so that both are content-addressable on their inputs and
// recomputation is idempotent (§3 "Lifecycles"). Per-pair tables are
// kept in ordered, transactional key-value databases; the graph is
// serialized as a flat edge list; and tables can be exchanged as CSV,
// the language-neutral serialized-dataframe form, which LoadTable
// accepts alongside the kv form.
package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/csv"
	"encoding/gob"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"modernc.org/kv"

	"github.com/kortschak/rnaclique/blast"
	"github.com/kortschak/rnaclique/genegraph"
	"github.com/kortschak/rnaclique/recip"
)

var order = binary.BigEndian

// HitKey orders stored rows by query gene, subject gene, bitscore and
// finally sequence identifiers, giving a stable, collision-free key for
// each row of a GeneMatchTable.
type HitKey struct {
	QGene, SGene   int64
	BitScore       float64
	QSeqID, SSeqID string
}

// ByGenePair is a kv compare function ordering rows by query gene,
// subject gene and bitscore, matching the grouping the similarity
// engine and graph builder consume (§4.E, §4.G).
func ByGenePair(x, y []byte) int {
	if bytes.Equal(x, y) {
		return 0
	}
	kx := unmarshalHitKey(x)
	ky := unmarshalHitKey(y)

	switch {
	case kx.QGene < ky.QGene:
		return -1
	case kx.QGene > ky.QGene:
		return 1
	}
	switch {
	case kx.SGene < ky.SGene:
		return -1
	case kx.SGene > ky.SGene:
		return 1
	}
	switch {
	case kx.BitScore > ky.BitScore:
		return -1
	case kx.BitScore < ky.BitScore:
		return 1
	}
	switch {
	case kx.QSeqID < ky.QSeqID:
		return -1
	case kx.QSeqID > ky.QSeqID:
		return 1
	}
	switch {
	case kx.SSeqID < ky.SSeqID:
		return -1
	case kx.SSeqID > ky.SSeqID:
		return 1
	}
	return 0
}

func marshalHitKey(h recip.Hit) []byte {
	var buf bytes.Buffer
	var b [8]byte
	order.PutUint64(b[:], uint64(h.QGene))
	buf.Write(b[:])
	order.PutUint64(b[:], uint64(h.SGene))
	buf.Write(b[:])
	order.PutUint64(b[:], math.Float64bits(h.BitScore))
	buf.Write(b[:])
	writeString(&buf, h.QSeqID)
	writeString(&buf, h.SSeqID)
	return buf.Bytes()
}

func writeString(buf *bytes.Buffer, s string) {
	var b [8]byte
	order.PutUint64(b[:], uint64(len(s)))
	buf.Write(b[:])
	buf.WriteString(s)
}

func unmarshalHitKey(data []byte) HitKey {
	var k HitKey
	n64 := 8
	k.QGene = int64(order.Uint64(data[:n64]))
	data = data[n64:]
	k.SGene = int64(order.Uint64(data[:n64]))
	data = data[n64:]
	k.BitScore = math.Float64frombits(order.Uint64(data[:n64]))
	data = data[n64:]
	k.QSeqID, data = readString(data)
	k.SSeqID, _ = readString(data)
	return k
}

func readString(data []byte) (string, []byte) {
	n := order.Uint64(data[:8])
	data = data[8:]
	s := string(data[:n])
	return s, data[n:]
}

// PairPath returns a content-addressed file path under dir for the
// unordered pair of samples (a, b).
func PairPath(dir, a, b string) string {
	if a > b {
		a, b = b, a
	}
	sum := sha256.Sum256([]byte(a + "\x00" + b))
	return filepath.Join(dir, fmt.Sprintf("%x-%s-%s.kv", sum[:8], a, b))
}

// TableStore is an ordered, transactional on-disk store for one
// GeneMatchTable (§5 "per-pair tables are produced once per unordered
// pair and cached").
type TableStore struct {
	db                         *kv.DB
	querySample, subjectSample string
}

// tableMeta is the sidecar record naming the sample pair a kv table
// belongs to, since the pair is not otherwise recoverable from the kv
// file's ordered hit keys alone.
type tableMeta struct {
	QuerySample, SubjectSample string
}

func metaPath(path string) string { return path + ".meta" }

// CreateTable creates a new table store at path, which must not already
// exist, along with a sidecar file recording the sample pair.
func CreateTable(path, querySample, subjectSample string) (*TableStore, error) {
	db, err := kv.Create(path, &kv.Options{Compare: ByGenePair})
	if err != nil {
		return nil, fmt.Errorf("store: creating table %s: %w", path, err)
	}
	f, err := os.Create(metaPath(path))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: creating table metadata %s: %w", path, err)
	}
	err = gob.NewEncoder(f).Encode(tableMeta{QuerySample: querySample, SubjectSample: subjectSample})
	f.Close()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: writing table metadata %s: %w", path, err)
	}
	return &TableStore{db: db, querySample: querySample, subjectSample: subjectSample}, nil
}

// OpenTable opens a table store previously written by CreateTable,
// recovering the sample pair from its sidecar metadata file.
func OpenTable(path string) (*TableStore, error) {
	f, err := os.Open(metaPath(path))
	if err != nil {
		return nil, fmt.Errorf("store: opening table metadata %s: %w", path, err)
	}
	var meta tableMeta
	err = gob.NewDecoder(f).Decode(&meta)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("store: decoding table metadata %s: %w", path, err)
	}

	db, err := kv.Open(path, &kv.Options{Compare: ByGenePair})
	if err != nil {
		return nil, fmt.Errorf("store: opening table %s: %w", path, err)
	}
	return &TableStore{db: db, querySample: meta.QuerySample, subjectSample: meta.SubjectSample}, nil
}

// Put writes every hit in hits to the store, in transactions of 100 rows
// at a time.
func (s *TableStore) Put(hits []recip.Hit) error {
	const batch = 100
	for i, h := range hits {
		if i%batch == 0 {
			if err := s.db.BeginTransaction(); err != nil {
				return err
			}
		}
		key := marshalHitKey(h)
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(h); err != nil {
			return err
		}
		if err := s.db.Set(key, buf.Bytes()); err != nil {
			return err
		}
		if i%batch == batch-1 || i == len(hits)-1 {
			if err := s.db.Commit(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Table reads every row back out in key order and reassembles the
// GeneMatchTable.
func (s *TableStore) Table() (recip.GeneMatchTable, error) {
	t := recip.GeneMatchTable{QuerySample: s.querySample, SubjectSample: s.subjectSample}
	enum, err := s.db.SeekFirst()
	if err == io.EOF {
		return t, nil
	}
	if err != nil {
		return t, err
	}
	for {
		_, v, err := enum.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return t, err
		}
		var h recip.Hit
		if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&h); err != nil {
			return t, err
		}
		t.Hits = append(t.Hits, h)
	}
	return t, nil
}

// Close releases the store's underlying file handles.
func (s *TableStore) Close() error { return s.db.Close() }

// LoadTable reads a persisted per-pair table from path, accepting either
// of the two interchangeable formats distinguished by filename extension
// (§6 "readers must accept either"): a ".csv" path is parsed as a CSV
// dataframe, anything else is opened as a kv table.
func LoadTable(path string) (recip.GeneMatchTable, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		f, err := os.Open(path)
		if err != nil {
			return recip.GeneMatchTable{}, err
		}
		defer f.Close()
		t, err := ReadCSV(f)
		if err != nil {
			return recip.GeneMatchTable{}, fmt.Errorf("store: reading csv table %s: %w", path, err)
		}
		return t, nil
	}

	ts, err := OpenTable(path)
	if err != nil {
		return recip.GeneMatchTable{}, err
	}
	defer ts.Close()
	return ts.Table()
}

// csvHeader is the column order used by WriteCSV/ReadCSV.
var csvHeader = []string{
	"qsample", "ssample", "qseqid", "sseqid",
	"qgene", "qiso", "sgene", "siso",
	"length", "gaps", "nident", "bitscore", "strand", "origin",
}

// WriteCSV serializes t as a flat CSV dataframe, one row per hit, with
// the sample pair repeated on every row (§6 "language-neutral
// serialized dataframe").
func WriteCSV(w io.Writer, t recip.GeneMatchTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, h := range t.Hits {
		row := []string{
			t.QuerySample, t.SubjectSample, h.QSeqID, h.SSeqID,
			strconv.Itoa(h.QGene), strconv.Itoa(h.QIso),
			strconv.Itoa(h.SGene), strconv.Itoa(h.SIso),
			strconv.Itoa(h.Length), strconv.Itoa(h.Gaps), strconv.Itoa(h.Nident),
			strconv.FormatFloat(h.BitScore, 'g', -1, 64),
			h.Strand.String(), h.Origin.String(),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a GeneMatchTable previously written by WriteCSV. An
// empty table (header only, or no rows) yields a GeneMatchTable with no
// sample names set.
func ReadCSV(r io.Reader) (recip.GeneMatchTable, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return recip.GeneMatchTable{}, err
	}
	if len(records) == 0 {
		return recip.GeneMatchTable{}, nil
	}
	t := recip.GeneMatchTable{}
	for i, rec := range records {
		if i == 0 {
			continue // header
		}
		if len(rec) != len(csvHeader) {
			return t, fmt.Errorf("store: csv row %d: expected %d fields, got %d", i, len(csvHeader), len(rec))
		}
		if t.QuerySample == "" {
			t.QuerySample, t.SubjectSample = rec[0], rec[1]
		}
		h, err := parseCSVHit(rec)
		if err != nil {
			return t, fmt.Errorf("store: csv row %d: %w", i, err)
		}
		t.Hits = append(t.Hits, h)
	}
	return t, nil
}

func parseCSVHit(rec []string) (recip.Hit, error) {
	var h recip.Hit
	var err error
	h.QSeqID, h.SSeqID = rec[2], rec[3]
	if h.QGene, err = strconv.Atoi(rec[4]); err != nil {
		return h, err
	}
	if h.QIso, err = strconv.Atoi(rec[5]); err != nil {
		return h, err
	}
	if h.SGene, err = strconv.Atoi(rec[6]); err != nil {
		return h, err
	}
	if h.SIso, err = strconv.Atoi(rec[7]); err != nil {
		return h, err
	}
	if h.Length, err = strconv.Atoi(rec[8]); err != nil {
		return h, err
	}
	if h.Gaps, err = strconv.Atoi(rec[9]); err != nil {
		return h, err
	}
	if h.Nident, err = strconv.Atoi(rec[10]); err != nil {
		return h, err
	}
	if h.BitScore, err = strconv.ParseFloat(rec[11], 64); err != nil {
		return h, err
	}
	switch rec[12] {
	case "plus":
		h.Strand = blast.Plus
	case "minus":
		h.Strand = blast.Minus
	}
	switch rec[13] {
	case "reverse":
		h.Origin = recip.Reverse
	default:
		h.Origin = recip.Forward
	}
	return h, nil
}

// graphBlob is the gob-serializable form of a genegraph.Graph: a flat
// edge list, sufficient to reconstruct the graph exactly (§3 "All
// artifacts are content-addressable on their inputs").
type graphBlob struct {
	Edges [][2]genegraph.Vertex
}

// SaveGraph serializes g's edge list to path.
func SaveGraph(path string, g *genegraph.Graph) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(graphBlob{Edges: g.Edges()})
}

// LoadGraph reconstructs a Graph from a file written by SaveGraph.
func LoadGraph(path string) (*genegraph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var blob graphBlob
	if err := gob.NewDecoder(f).Decode(&blob); err != nil {
		return nil, fmt.Errorf("store: decoding graph %s: %w", path, err)
	}
	g := genegraph.New()
	for _, e := range blob.Edges {
		g.AddEdge(e[0], e[1])
	}
	return g, nil
}
