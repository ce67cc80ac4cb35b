package receipt

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"
)

// Line is one item row on the printed receipt
type Line struct {
	Description string
	UnitPrice   float64
	Quantity    int
	Total       float64
}

// Receipt is everything the printed document shows
type Receipt struct {
	InvoiceNo  int64
	IssuedAt   time.Time
	Lines      []Line
	Subtotal   float64
	VATRate    float64
	VAT        float64
	GrandTotal float64
	Tendered   float64
	Change     float64
}

// Emitter renders a receipt and returns where it was written
type Emitter interface {
	Emit(r *Receipt) (string, error)
}

// NopEmitter discards receipts. Used when printing is disabled.
type NopEmitter struct{}

func (NopEmitter) Emit(r *Receipt) (string, error) {
	return "", nil
}

// PDFEmitter renders receipts as narrow thermal-style PDF documents
type PDFEmitter struct {
	dir    string
	header string
	logger *zap.Logger
}

// NewPDFEmitter creates an emitter writing into dir, creating it if needed
func NewPDFEmitter(dir, header string, logger *zap.Logger) (*PDFEmitter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create receipt directory: %w", err)
	}
	return &PDFEmitter{dir: dir, header: header, logger: logger}, nil
}

// Emit writes Receipt_<invoice>_<timestamp>.pdf and returns its path
func (e *PDFEmitter) Emit(r *Receipt) (string, error) {
	// 250pt wide page, receipt-roll proportions
	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "pt",
		Size:    fpdf.SizeType{Wd: 250, Ht: 600},
	})
	pdf.SetMargins(10, 12, 10)
	pdf.AddPage()

	pdf.SetFont("Courier", "B", 11)
	pdf.CellFormat(230, 14, e.header, "", 1, "C", false, 0, "")

	pdf.SetFont("Courier", "", 8)
	pdf.CellFormat(230, 10, r.IssuedAt.Format("2006-01-02 15:04:05"), "", 1, "C", false, 0, "")
	pdf.CellFormat(230, 10, fmt.Sprintf("Invoice #%d", r.InvoiceNo), "", 1, "C", false, 0, "")
	e.divider(pdf)

	// Item table
	pdf.SetFont("Courier", "B", 8)
	pdf.CellFormat(30, 10, "QTY", "", 0, "L", false, 0, "")
	pdf.CellFormat(100, 10, "ITEM", "", 0, "L", false, 0, "")
	pdf.CellFormat(50, 10, "PRICE", "", 0, "R", false, 0, "")
	pdf.CellFormat(50, 10, "TOTAL", "", 1, "R", false, 0, "")

	pdf.SetFont("Courier", "", 8)
	for _, line := range r.Lines {
		pdf.CellFormat(30, 10, fmt.Sprintf("%d", line.Quantity), "", 0, "L", false, 0, "")
		pdf.CellFormat(100, 10, truncate(line.Description, 18), "", 0, "L", false, 0, "")
		pdf.CellFormat(50, 10, fmt.Sprintf("%.2f", line.UnitPrice), "", 0, "R", false, 0, "")
		pdf.CellFormat(50, 10, fmt.Sprintf("%.2f", line.Total), "", 1, "R", false, 0, "")
	}
	e.divider(pdf)

	e.totalRow(pdf, "Subtotal", r.Subtotal, false)
	e.totalRow(pdf, fmt.Sprintf("VAT (%.0f%%)", r.VATRate*100), r.VAT, false)
	e.totalRow(pdf, "TOTAL", r.GrandTotal, true)
	e.divider(pdf)

	e.totalRow(pdf, "Amount Paid", r.Tendered, false)
	e.totalRow(pdf, "Change", r.Change, false)

	pdf.Ln(8)
	pdf.SetFont("Courier", "", 8)
	pdf.CellFormat(230, 10, "Thank you for your purchase!", "", 1, "C", false, 0, "")

	name := fmt.Sprintf("Receipt_%d_%s.pdf", r.InvoiceNo, r.IssuedAt.Format("20060102150405"))
	path := filepath.Join(e.dir, name)
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("failed to write receipt: %w", err)
	}

	e.logger.Info("Receipt written",
		zap.Int64("invoice_no", r.InvoiceNo),
		zap.String("path", path),
	)
	return path, nil
}

func (e *PDFEmitter) divider(pdf *fpdf.Fpdf) {
	pdf.SetFont("Courier", "", 8)
	pdf.CellFormat(230, 8, "--------------------------------------", "", 1, "C", false, 0, "")
}

func (e *PDFEmitter) totalRow(pdf *fpdf.Fpdf, label string, amount float64, bold bool) {
	style := ""
	if bold {
		style = "B"
	}
	pdf.SetFont("Courier", style, 8)
	pdf.CellFormat(130, 10, label, "", 0, "L", false, 0, "")
	pdf.CellFormat(100, 10, fmt.Sprintf("%.2f", amount), "", 1, "R", false, 0, "")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "."
}
