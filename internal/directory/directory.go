// Package directory holds the in-memory snapshot of the NIFTY 500 reference
// table and resolves free-form user text to a single record. The snapshot is
// built once per process and is immutable after construction.
package directory

import (
	"bytes"
	_ "embed"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/stockunlock/stockunlock/pkg/models"
)

//go:embed nifty500.csv
var embeddedTable []byte

// Directory is the queryable snapshot: records in source order plus lookup
// keys by normalized symbol and lowercase company name.
type Directory struct {
	records  []models.EquityRecord
	bySymbol map[string]int
	byName   map[string]int
}

// New builds a directory from already-parsed records. Rows whose symbol was
// already seen are skipped entirely — first occurrence wins.
func New(records []models.EquityRecord) *Directory {
	d := &Directory{
		bySymbol: make(map[string]int, len(records)),
		byName:   make(map[string]int, len(records)),
	}
	for _, rec := range records {
		sym := normalize(rec.Symbol)
		if _, dup := d.bySymbol[sym]; dup {
			continue
		}
		i := len(d.records)
		d.records = append(d.records, rec)
		d.bySymbol[sym] = i
		name := normalize(rec.CompanyName)
		if _, dup := d.byName[name]; !dup {
			d.byName[name] = i
		}
	}
	return d
}

// Load parses the reference table from r and builds the snapshot.
func Load(r io.Reader) (*Directory, error) {
	records, err := parseRows(r)
	if err != nil {
		return nil, err
	}
	return New(records), nil
}

// Len reports the number of records in the snapshot.
func (d *Directory) Len() int { return len(d.records) }

// Resolve maps a free-text query to at most one record. Matching tiers, first
// success wins:
//
//  1. exact match on normalized symbol
//  2. exact match on lowercase company name
//  3. first record, in source order, whose company name contains the query
//
// Tier 3 is deliberately first-qualifying rather than best-ranked; see the
// note in DESIGN.md. A miss returns nil.
func (d *Directory) Resolve(query string) *models.EquityRecord {
	q := normalize(query)
	if q == "" {
		return nil
	}

	if i, ok := d.bySymbol[q]; ok {
		return d.record(i)
	}
	if i, ok := d.byName[q]; ok {
		return d.record(i)
	}
	for i := range d.records {
		if strings.Contains(normalize(d.records[i].CompanyName), q) {
			return d.record(i)
		}
	}
	return nil
}

// record returns a copy so callers cannot mutate the snapshot.
func (d *Directory) record(i int) *models.EquityRecord {
	rec := d.records[i]
	return &rec
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

var (
	sharedOnce sync.Once
	shared     *Directory
)

// Shared returns the process-wide directory, loading it on the first call.
// A non-empty csvPath reads the table from disk; otherwise the embedded
// NIFTY 500 snapshot is used. The path passed on the first call wins; later
// calls return the same snapshot regardless of arguments.
//
// A table that cannot be read or parsed degrades to an empty, queryable
// directory rather than failing the turn pipeline.
func Shared(csvPath string) *Directory {
	sharedOnce.Do(func() {
		data := embeddedTable
		if csvPath != "" {
			b, err := os.ReadFile(csvPath)
			if err != nil {
				log.Printf("directory: read %s: %v — starting with empty directory", csvPath, err)
				shared = New(nil)
				return
			}
			data = b
		}

		d, err := Load(bytes.NewReader(data))
		if err != nil {
			log.Printf("directory: parse reference table: %v — starting with empty directory", err)
			shared = New(nil)
			return
		}
		shared = d
	})
	return shared
}
