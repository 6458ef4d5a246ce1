package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"restokasa/backend/internal/domain"
)

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func summaryRows(stats domain.ShiftStatistics) [][2]string {
	status := "open"
	if stats.Closed {
		status = "closed"
	}
	return [][2]string{
		{"Shift", stats.ShiftID},
		{"Opened", stats.StartTime.Format(time.RFC3339)},
		{"Status", status},
		{"Starting cash", formatCents(stats.StartCashCents)},
		{"Sales (cash)", formatCents(stats.SalesCashCents)},
		{"Sales (card)", formatCents(stats.SalesCardCents)},
		{"Sales total", formatCents(stats.TotalSalesCents)},
		{"Cash collected", formatCents(stats.CollectedCashCents)},
		{"Service in", formatCents(stats.ServiceInCents)},
		{"Service out", formatCents(stats.ServiceOutCents)},
		{"Handovers received", formatCents(stats.HandoverInCents)},
		{"Theoretical drawer", formatCents(stats.TheoreticalCashCents)},
	}
}

// BuildShiftXLSX renders a shift report workbook: a summary sheet with the
// drawer figures and a transactions sheet with the full log.
func BuildShiftXLSX(stats domain.ShiftStatistics, transactions []domain.CashTransaction) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	txSheet := "transactions"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(txSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Shift Report")
	for i, row := range summaryRows(stats) {
		r := i + 3
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", r), row[0])
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", r), row[1])
	}

	_ = f.SetCellValue(txSheet, "A1", "Time")
	_ = f.SetCellValue(txSheet, "B1", "Kind")
	_ = f.SetCellValue(txSheet, "C1", "Amount")
	_ = f.SetCellValue(txSheet, "D1", "Comment")
	for i, txn := range transactions {
		row := i + 2
		_ = f.SetCellValue(txSheet, fmt.Sprintf("A%d", row), txn.CreatedAt.Format(time.RFC3339))
		_ = f.SetCellValue(txSheet, fmt.Sprintf("B%d", row), string(txn.Kind))
		_ = f.SetCellValue(txSheet, fmt.Sprintf("C%d", row), formatCents(txn.AmountCents))
		_ = f.SetCellValue(txSheet, fmt.Sprintf("D%d", row), txn.Comment)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildShiftPDF renders a one-page PDF of the shift figures and its
// transaction log.
func BuildShiftPDF(stats domain.ShiftStatistics, transactions []domain.CashTransaction) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Shift Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	for _, row := range summaryRows(stats) {
		pdf.Cell(0, 6, fmt.Sprintf("%s: %s", row[0], row[1]))
		pdf.Ln(5)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(45, 6, "Time", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Kind", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Amount", "1", 0, "C", false, 0, "")
	pdf.CellFormat(75, 6, "Comment", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, txn := range transactions {
		pdf.CellFormat(45, 6, txn.CreatedAt.Format("2006-01-02 15:04:05"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, string(txn.Kind), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, formatCents(txn.AmountCents), "1", 0, "R", false, 0, "")
		pdf.CellFormat(75, 6, txn.Comment, "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
