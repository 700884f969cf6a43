// Package export renders a calculation result as an XLSX workbook for the
// production office.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/rollmill/slitplan/internal/cutplan"
)

const sheetName = "Cut Patterns"

// Workbook builds a spreadsheet with the summary block on top and one row
// per ranked pattern below it. Length, weight and cost columns stay blank
// when the material has no recorded roll weight.
func Workbook(res *cutplan.Result, currency string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	summary := [][2]any{
		{"Material", res.MaterialName},
		{"Master width (mm)", res.MasterWidthMm},
		{"Permutations found", res.TotalPatterns},
		{"Best yield (%)", res.BestYieldPct},
		{"Lowest waste (mm)", res.LowestWasteMm},
	}
	if !res.RollWeightMissing {
		summary = append(summary, [2]any{"Total linear meters", res.TotalLinearMeters})
	}

	row := 1
	for _, kv := range summary {
		if err := setRow(f, row, kv[0], kv[1]); err != nil {
			return nil, err
		}
		row++
	}
	row++ // blank spacer row

	header := []any{
		"Pattern", "Used (mm)", "Waste (mm)", "Yield (%)", "Slits/roll", "Finished rolls",
		"Meters/slit", "Weight (kg)", fmt.Sprintf("Cost (%s)", currency), "Recommended",
	}
	if err := setRow(f, row, header...); err != nil {
		return nil, err
	}
	row++

	for _, p := range res.Patterns {
		cells := []any{
			p.Description(), p.UsedWidthMm, p.WasteMm, p.YieldPct, p.SlitsPerRoll, p.TotalFinishedRolls,
		}
		if res.RollWeightMissing {
			cells = append(cells, nil, nil, nil)
		} else {
			cells = append(cells, p.LinearMetersPerSlit, p.TotalWeightKg, p.TotalCost)
		}
		if p.Recommended {
			cells = append(cells, "yes")
		} else {
			cells = append(cells, "")
		}

		if err := setRow(f, row, cells...); err != nil {
			return nil, err
		}
		row++
	}

	return f, nil
}

func setRow(f *excelize.File, row int, values ...any) error {
	for i, v := range values {
		if v == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return fmt.Errorf("cell name for column %d: %w", i+1, err)
		}
		if err := f.SetCellValue(sheetName, cell, v); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	return nil
}
