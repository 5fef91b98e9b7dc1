// Package mockhost emulates an IBM i green-screen application: it renders
// catalog screens onto the 5250 wire, parses operator input back into named
// fields and walks a configured navigation graph, one session per TCP
// connection. The client stack is exercised against it bit for bit.
package mockhost

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DataStore holds the test records the screens serve. Keys inside each
// record are the canonical field names the screens use. Read-only after
// load.
type DataStore struct {
	loans map[string]map[string]string
}

// dataStoreFile is the on-disk shape: {"loans": [{...}]}. Values may be
// JSON numbers or booleans; everything is normalized to the canonical
// string form.
type dataStoreFile struct {
	Loans []map[string]interface{} `json:"loans" yaml:"loans"`
}

// LoadDataStore reads a test data store from a JSON or YAML file.
func LoadDataStore(path string) (*DataStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("data store: %w", err)
	}
	unmarshal := json.Unmarshal
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
		unmarshal = yaml.Unmarshal
	}
	var file dataStoreFile
	if err := unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse data store %s: %w", path, err)
	}
	return NewDataStore(file.Loans)
}

// NewDataStore builds a store from raw records.
func NewDataStore(loans []map[string]interface{}) (*DataStore, error) {
	ds := &DataStore{loans: map[string]map[string]string{}}
	for i, raw := range loans {
		rec := make(map[string]string, len(raw))
		for k, v := range raw {
			rec[k] = stringify(v)
		}
		num := rec["loan_number"]
		if num == "" {
			return nil, fmt.Errorf("data store: loan record %d has no loan_number", i)
		}
		if _, dup := ds.loans[num]; dup {
			return nil, fmt.Errorf("data store: duplicate loan_number %s", num)
		}
		ds.loans[num] = rec
	}
	return ds, nil
}

// Loan returns a copy of the record for loanNumber.
func (ds *DataStore) Loan(loanNumber string) (map[string]string, bool) {
	rec, ok := ds.loans[strings.TrimSpace(loanNumber)]
	if !ok {
		return nil, false
	}
	out := make(map[string]string, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out, true
}

// HasLoan reports whether loanNumber exists.
func (ds *DataStore) HasLoan(loanNumber string) bool {
	_, ok := ds.loans[strings.TrimSpace(loanNumber)]
	return ok
}

// Len returns the record count.
func (ds *DataStore) Len() int { return len(ds.loans) }

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
