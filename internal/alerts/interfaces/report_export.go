package interfaces

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	alerts "vitalwatch/internal/alerts/domain"
)

// ReportSummary heads an alert report.
type ReportSummary struct {
	GeneratedAt   time.Time
	TotalAlerts   int
	ActiveAlerts  int
	CriticalCount int64
}

// BuildAlertReportPDF renders a minimal PDF for an alert report.
func BuildAlertReportPDF(summary ReportSummary, list []alerts.Alert) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Medical Alert Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", summary.GeneratedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Total Alerts: %d", summary.TotalAlerts))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Active: %d", summary.ActiveAlerts))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Active Critical: %d", summary.CriticalCount))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(34, 6, "Triggered", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Patient", "1", 0, "C", false, 0, "")
	pdf.CellFormat(22, 6, "Severity", "1", 0, "C", false, 0, "")
	pdf.CellFormat(38, 6, "Type", "1", 0, "C", false, 0, "")
	pdf.CellFormat(28, 6, "Status", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Acked By", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, alert := range list {
		pdf.CellFormat(34, 6, alert.TriggeredAt.Format("2006-01-02 15:04"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, alert.PatientID, "1", 0, "C", false, 0, "")
		pdf.CellFormat(22, 6, alert.Severity, "1", 0, "C", false, 0, "")
		pdf.CellFormat(38, 6, alert.AlertType, "1", 0, "C", false, 0, "")
		pdf.CellFormat(28, 6, alert.Status, "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, alert.AcknowledgedBy, "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildAlertReportXLSX renders a minimal XLSX for an alert report.
func BuildAlertReportXLSX(summary ReportSummary, list []alerts.Alert) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	alertsSheet := "alerts"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(alertsSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Medical Alert Report")
	_ = f.SetCellValue(summarySheet, "A3", "Generated")
	_ = f.SetCellValue(summarySheet, "B3", summary.GeneratedAt.Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A4", "Total Alerts")
	_ = f.SetCellValue(summarySheet, "B4", summary.TotalAlerts)
	_ = f.SetCellValue(summarySheet, "A5", "Active")
	_ = f.SetCellValue(summarySheet, "B5", summary.ActiveAlerts)
	_ = f.SetCellValue(summarySheet, "A6", "Active Critical")
	_ = f.SetCellValue(summarySheet, "B6", summary.CriticalCount)

	_ = f.SetCellValue(alertsSheet, "A1", "Triggered")
	_ = f.SetCellValue(alertsSheet, "B1", "Patient")
	_ = f.SetCellValue(alertsSheet, "C1", "Severity")
	_ = f.SetCellValue(alertsSheet, "D1", "Type")
	_ = f.SetCellValue(alertsSheet, "E1", "Message Key")
	_ = f.SetCellValue(alertsSheet, "F1", "Status")
	_ = f.SetCellValue(alertsSheet, "G1", "Acked By")
	_ = f.SetCellValue(alertsSheet, "H1", "Acked At")
	for i, alert := range list {
		row := i + 2
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("A%d", row), alert.TriggeredAt.Format(time.RFC3339))
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("B%d", row), alert.PatientID)
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("C%d", row), alert.Severity)
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("D%d", row), alert.AlertType)
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("E%d", row), alert.MessageKey)
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("F%d", row), alert.Status)
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("G%d", row), alert.AcknowledgedBy)
		if !alert.AcknowledgedAt.IsZero() {
			_ = f.SetCellValue(alertsSheet, fmt.Sprintf("H%d", row), alert.AcknowledgedAt.Format(time.RFC3339))
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
