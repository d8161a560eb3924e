// Package voucher renders a reconciled expense report as an Excel payment
// voucher for the accounting hand-off.
package voucher

import (
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/jwkim/expenseflow/internal/domain/report"
)

// Filler builds payment voucher workbooks
type Filler struct {
	companyName string
	outputDir   string
	logger      *zap.Logger
}

// NewFiller creates a new voucher filler
func NewFiller(companyName, outputDir string, logger *zap.Logger) *Filler {
	return &Filler{
		companyName: companyName,
		outputDir:   outputDir,
		logger:      logger,
	}
}

const sheetName = "Payment Voucher"

// Fill writes the voucher workbook for a reconciled report and returns the
// output path. The report must carry its details; lines without a recorded
// actual amount are shown as paid at the approved amount.
func (v *Filler) Fill(rep *report.ExpenseReport) (string, error) {
	if rep.PaidAt == nil {
		return "", fmt.Errorf("report %d has no recorded payment", rep.ID)
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		v.logger.Warn("Failed to remove default sheet", zap.Error(err))
	}

	v.setCell(f, "A1", v.companyName)
	v.setCell(f, "A2", "Payment Voucher")
	v.setCell(f, "A3", "Report No.")
	v.setCell(f, "B3", fmt.Sprintf("%d", rep.ID))
	v.setCell(f, "A4", "Drafter")
	v.setCell(f, "B4", rep.DrafterName)
	v.setCell(f, "A5", "Report Date")
	v.setCell(f, "B5", rep.ReportDate.Format("2006-01-02"))
	v.setCell(f, "A6", "Paid At")
	v.setCell(f, "B6", rep.PaidAt.Format("2006-01-02"))

	header := 8
	v.setCell(f, cell("A", header), "No.")
	v.setCell(f, cell("B", header), "Category")
	v.setCell(f, cell("C", header), "Merchant")
	v.setCell(f, cell("D", header), "Description")
	v.setCell(f, cell("E", header), "Approved")
	v.setCell(f, cell("F", header), "Paid")
	v.setCell(f, cell("G", header), "Difference")

	row := header + 1
	for i, d := range rep.Details {
		paid := d.PaidAmount()
		v.setCell(f, cell("A", row), fmt.Sprintf("%d", i+1))
		v.setCell(f, cell("B", row), d.Category)
		v.setCell(f, cell("C", row), d.Merchant)
		v.setCell(f, cell("D", row), d.Description)
		v.setCell(f, cell("E", row), d.Amount.StringFixed(2))
		v.setCell(f, cell("F", row), paid.StringFixed(2))
		v.setCell(f, cell("G", row), paid.Sub(d.Amount).StringFixed(2))
		row++
	}

	actual := rep.TotalAmount
	if rep.ActualPaidAmount != nil {
		actual = *rep.ActualPaidAmount
	}
	row++
	v.setCell(f, cell("D", row), "Total")
	v.setCell(f, cell("E", row), rep.TotalAmount.StringFixed(2))
	v.setCell(f, cell("F", row), actual.StringFixed(2))
	v.setCell(f, cell("G", row), actual.Sub(rep.TotalAmount).StringFixed(2))

	if rep.AmountDifferenceNote != "" {
		row += 2
		v.setCell(f, cell("A", row), "Difference Reason")
		v.setCell(f, cell("B", row), rep.AmountDifferenceNote)
	}

	outputPath := filepath.Join(v.outputDir, fmt.Sprintf("voucher-%d.xlsx", rep.ID))
	if err := f.SaveAs(outputPath); err != nil {
		return "", fmt.Errorf("failed to save voucher: %w", err)
	}

	v.logger.Info("Voucher written",
		zap.Int64("report_id", rep.ID),
		zap.String("output_path", outputPath))
	return outputPath, nil
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// setCell sets a cell value, logging rather than failing on error
func (v *Filler) setCell(f *excelize.File, cellRef, value string) {
	if err := f.SetCellValue(sheetName, cellRef, value); err != nil {
		v.logger.Warn("Failed to set cell value",
			zap.String("cell", cellRef),
			zap.Error(err))
	}
}
