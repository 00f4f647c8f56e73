// Package xlsx exports the extracted statistics as an Excel workbook.
package xlsx

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/mgw2168/2019-nCoV/internal/domain"
)

// FileName is the workbook name inside the output directory.
const FileName = "2019-nCoV.xlsx"

// Sheet names.
const (
	SheetDaily   = "全国每日"
	SheetRegions = "省份确诊"
)

var (
	dailyHeaders  = []string{"日期", "确诊", "疑似", "死亡", "治愈"}
	regionHeaders = []string{"地区", "确诊", "等级"}
)

// Exporter writes workbooks. It implements pipeline.Exporter.
type Exporter struct {
	outputDir string
	logger    *slog.Logger
}

// NewExporter creates an exporter that writes into outputDir.
func NewExporter(outputDir string, logger *slog.Logger) *Exporter {
	return &Exporter{outputDir: outputDir, logger: logger}
}

// Export writes the national series and the per-region counts to
// <outputDir>/2019-nCoV.xlsx and returns the path.
func (e *Exporter) Export(ts domain.TimeSeries, counts domain.RegionCounts) (string, error) {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck // in-memory workbook

	if err := f.SetSheetName("Sheet1", SheetDaily); err != nil {
		return "", fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeHeader(f, SheetDaily, dailyHeaders); err != nil {
		return "", err
	}
	for i, rec := range ts.Records() {
		row := []any{rec.Date.Format("2006-01-02"), rec.Confirmed, rec.Suspected, rec.Deaths, rec.Cured}
		if err := writeRow(f, SheetDaily, i+2, row); err != nil {
			return "", err
		}
	}

	if _, err := f.NewSheet(SheetRegions); err != nil {
		return "", fmt.Errorf("create sheet %s: %w", SheetRegions, err)
	}
	if err := writeHeader(f, SheetRegions, regionHeaders); err != nil {
		return "", err
	}
	for i, name := range rankRegions(counts) {
		n := counts[name]
		if err := writeRow(f, SheetRegions, i+2, []any{name, n, domain.Bucket(n).Label()}); err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(e.outputDir, FileName)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}

	e.logger.Debug("workbook saved", "path", path, "days", ts.Len(), "regions", len(counts))
	return path, nil
}

// rankRegions orders region names by count descending, then by name.
func rankRegions(counts domain.RegionCounts) []string {
	names := counts.Names()
	sort.SliceStable(names, func(i, j int) bool {
		return counts[names[i]] > counts[names[j]]
	})
	return names
}

func writeHeader(f *excelize.File, sheet string, headers []string) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("write %s header: %w", sheet, err)
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, 14); err != nil {
			return fmt.Errorf("size %s column: %w", sheet, err)
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
