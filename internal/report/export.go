package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/churn-cli/internal/workflow"
)

// maxSheetName is the Excel limit on sheet name length.
const maxSheetName = 31

// ExportXLSX writes each non-empty table to its own sheet at path.
func ExportXLSX(path string, tables ...Table) error {
	f := xlsx.NewFile()
	written := 0
	for i, t := range tables {
		if len(t.Headers) == 0 {
			continue
		}
		name := sheetName(t.Title, i)
		sheet, err := f.AddSheet(name)
		if err != nil {
			return eris.Wrapf(err, "xlsx: add sheet %q", name)
		}

		header := sheet.AddRow()
		for _, h := range t.Headers {
			header.AddCell().SetString(h)
		}
		for _, r := range t.Rows {
			row := sheet.AddRow()
			for _, v := range r {
				setCell(row.AddCell(), v)
			}
		}
		written++
	}
	if written == 0 {
		return eris.New("xlsx: nothing to export")
	}
	return eris.Wrapf(f.Save(path), "xlsx: save %s", path)
}

var sheetNameReplacer = strings.NewReplacer(":", "-", "\\", "-", "/", "-", "?", "", "*", "", "[", "(", "]", ")")

// sheetName strips the characters Excel rejects in sheet names.
func sheetName(title string, idx int) string {
	name := strings.TrimSpace(sheetNameReplacer.Replace(title))
	if name == "" {
		name = fmt.Sprintf("Sheet%d", idx+1)
	}
	if len(name) > maxSheetName {
		name = strings.TrimSpace(name[:maxSheetName])
	}
	return name
}

func setCell(cell *xlsx.Cell, v any) {
	switch t := v.(type) {
	case nil:
	case float64:
		cell.SetFloat(t)
	case int:
		cell.SetInt(t)
	case int64:
		cell.SetInt64(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			cell.SetInt64(i)
		} else if f, err := t.Float64(); err == nil {
			cell.SetFloat(f)
		} else {
			cell.SetString(t.String())
		}
	case bool:
		cell.SetBool(t)
	default:
		cell.SetString(Cell(t))
	}
}

// SnapshotTables lists the exportable tables of a snapshot.
func SnapshotTables(snap workflow.Snapshot) []Table {
	var out []Table
	if snap.Risk != nil {
		out = append(out, RiskTable(*snap.Risk))
	}
	if snap.Prediction != nil {
		out = append(out, PredictionTable(*snap.Prediction))
	}
	if snap.Trend != nil {
		out = append(out, TrendTable(*snap.Trend))
	}
	if snap.Analysis != nil {
		out = append(out, AnalysisTable(*snap.Analysis))
	}
	return out
}
