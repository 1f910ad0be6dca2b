package seed

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// LoadFile dispatches on the file extension: .xlsx or .csv.
func LoadFile(path string) (Prior, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return LoadXLSX(path)
	case ".csv", ".txt":
		return LoadCSV(path)
	default:
		return Prior{}, eris.Errorf("seed: unsupported prior file %q", path)
	}
}
