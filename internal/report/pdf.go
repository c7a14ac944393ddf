package report

import (
	"fmt"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"github.com/genonullfree/dtrunc/internal/common"
)

// SavePDF renders the given repair report into a PDF document.
func SavePDF(rep Report, out string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Detruncation Report", false)
	pdf.SetAuthor("dtrunc", false)
	pdf.SetCreator("dtrunc", false)
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	addPDFTitle(pdf, "Detruncation Report")
	addSummarySection(pdf, rep)
	addFindingsSection(pdf, rep.Findings)

	if pdf.Err() {
		return pdf.Error()
	}
	return pdf.OutputFileAndClose(out)
}

func addPDFTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)
}

func addSummarySection(pdf *gofpdf.Fpdf, rep Report) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Summary")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	items := []struct {
		label string
		value string
	}{
		{label: "Input", value: emptyFallback(rep.Input, "-")},
		{label: "Output", value: emptyFallback(rep.Output, "-")},
		{label: "Records", value: strconv.Itoa(rep.Summary.Records)},
		{label: "Repaired", value: strconv.Itoa(rep.Summary.Repaired)},
		{label: "Input Size", value: common.FormatBytes(rep.Summary.InputBytes)},
		{label: "Output Size", value: common.FormatBytes(rep.Summary.OutputBytes)},
	}
	for _, item := range items {
		pdf.CellFormat(50, 6, item.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, item.value, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func addFindingsSection(pdf *gofpdf.Fpdf, findings []Finding) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Repaired Records")
	pdf.Ln(9)

	if len(findings) == 0 {
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, "No records required repair.", "", "L", false)
		return
	}

	headers := []string{"Record", "Offset", "CapLen", "OrigLen", "Padded"}
	widths := []float64{28, 40, 30, 30, 30}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, f := range findings {
		values := []string{
			strconv.Itoa(f.RecordIndex + 1),
			fmt.Sprintf("0x%08X", f.Offset),
			strconv.FormatUint(uint64(f.CapLen), 10),
			strconv.FormatUint(uint64(f.OrigLen), 10),
			strconv.FormatUint(uint64(f.PaddedBytes), 10),
		}
		for i, v := range values {
			pdf.CellFormat(widths[i], 6, v, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
}

func emptyFallback(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
