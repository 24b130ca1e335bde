package saver

import (
	"encoding/json"
	"os"

	"github.com/samber/lo"
)

// JSONSaver writes one entity's rows as a single document with per-file counts.
type JSONSaver struct{}

type jsonDocument struct {
	EID          string `json:"eid"`
	Transactions int    `json:"transactions"`
	Priced       int    `json:"priced"`
	Rows         []Row  `json:"rows"`
}

func (JSONSaver) Extension() string { return "json" }

// Save writes to a temporary file and renames it over path, so readers never
// see a partial document.
func (JSONSaver) Save(rows []Row, path string) error {
	doc := jsonDocument{
		Transactions: len(rows),
		Priced:       lo.CountBy(rows, func(r Row) bool { return r.Close != nil }),
		Rows:         rows,
	}
	if doc.Rows == nil {
		doc.Rows = []Row{}
	}
	if len(rows) > 0 {
		doc.EID = rows[0].ParentEID
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
