package seed

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// LoadXLSX reads prior leads from the first sheet of a workbook. The first
// row is the header.
func LoadXLSX(path string) (Prior, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return Prior{}, eris.Wrap(err, "seed: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return Prior{}, eris.New("seed: xlsx has no sheets")
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		if row == nil {
			continue
		}
		rows = append(rows, rowToStrings(row))
	}
	if len(rows) == 0 {
		return Prior{}, nil
	}
	return fromTable(path, rows[0], rows[1:]), nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
