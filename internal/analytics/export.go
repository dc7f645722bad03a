package analytics

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"bizu/backend/internal/domain"
)

func summaryRows(r domain.AnalyticsReport) [][]string {
	return [][]string{
		{"metric", "value"},
		{"period", r.Period},
		{"reference_date", r.ReferenceDate},
		{"gross_revenue", r.GrossRevenue.StringFixed(2)},
		{"outstanding_credit", r.OutstandingCredit.StringFixed(2)},
		{"write_off_loss", r.WriteOffLoss.StringFixed(2)},
		{"net_profit", r.NetProfit.StringFixed(2)},
		{"inventory_value", r.InventoryValue.StringFixed(2)},
		{"potential_profit", r.PotentialProfit.StringFixed(2)},
	}
}

// WriteCSV writes the summary, the best-seller ranking and the daily series
// as three blocks separated by blank lines.
func WriteCSV(w io.Writer, r domain.AnalyticsReport) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(summaryRows(r)); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	_ = cw.Write(nil)
	_ = cw.Write([]string{"product", "quantity"})
	for _, p := range r.BestSellers {
		_ = cw.Write([]string{p.Name, strconv.Itoa(p.Quantity)})
	}

	_ = cw.Write(nil)
	_ = cw.Write([]string{"day", "revenue"})
	for _, d := range r.DailyRevenue {
		_ = cw.Write([]string{d.Day, d.Total.StringFixed(2)})
	}

	cw.Flush()
	return cw.Error()
}

const (
	sheetSummary     = "Resumo"
	sheetBestSellers = "Mais vendidos"
	sheetDaily       = "Por dia"
)

// WriteXLSX writes the report as a workbook with one sheet per block.
func WriteXLSX(w io.Writer, r domain.AnalyticsReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := fillSheet(f, sheetSummary, summaryRows(r)); err != nil {
		return err
	}

	best := [][]string{{"product", "quantity"}}
	for _, p := range r.BestSellers {
		best = append(best, []string{p.Name, strconv.Itoa(p.Quantity)})
	}
	if _, err := f.NewSheet(sheetBestSellers); err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}
	if err := fillSheet(f, sheetBestSellers, best); err != nil {
		return err
	}

	daily := [][]string{{"day", "revenue"}}
	for _, d := range r.DailyRevenue {
		daily = append(daily, []string{d.Day, d.Total.StringFixed(2)})
	}
	if _, err := f.NewSheet(sheetDaily); err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}
	if err := fillSheet(f, sheetDaily, daily); err != nil {
		return err
	}

	return f.Write(w)
}

func fillSheet(f *excelize.File, sheet string, rows [][]string) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("fill %s: %w", sheet, err)
		}
	}
	return nil
}
