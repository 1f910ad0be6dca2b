package seed

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/rotisserie/eris"
)

// LoadCSV reads prior leads from a CSV export with a header row.
func LoadCSV(path string) (Prior, error) {
	f, err := os.Open(path)
	if err != nil {
		return Prior{}, eris.Wrap(err, "seed: open csv")
	}
	defer f.Close()
	return ReadCSV(path, f)
}

// ReadCSV parses CSV from r. name labels log lines.
func ReadCSV(name string, r io.Reader) (Prior, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return Prior{}, eris.Wrap(err, "seed: read csv")
	}
	if len(records) == 0 {
		return Prior{}, nil
	}
	return fromTable(name, records[0], records[1:]), nil
}
