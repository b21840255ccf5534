package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Field is one labelled line on a receipt.
type Field struct {
	Label string
	Value string
}

// Receipt is the content of a submission receipt document.
type Receipt struct {
	Title    string
	Subtitle string
	IssuedAt time.Time
	Fields   []Field
	Footer   string
}

// ReceiptRenderer renders receipts into single page PDFs.
type ReceiptRenderer struct{}

// NewReceiptRenderer constructs a receipt renderer.
func NewReceiptRenderer() *ReceiptRenderer {
	return &ReceiptRenderer{}
}

// Render lays out the receipt as a two column label/value table.
func (r *ReceiptRenderer) Render(receipt Receipt) ([]byte, error) {
	if len(receipt.Fields) == 0 {
		return nil, fmt.Errorf("receipt requires at least one field")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(15, 20, 15)
	pdf.SetTitle(receipt.Title, true)
	pdf.AddPage()

	if receipt.Title != "" {
		pdf.SetFont("Arial", "B", 16)
		pdf.CellFormat(0, 10, tr(receipt.Title), "", 1, "C", false, 0, "")
	}
	if receipt.Subtitle != "" {
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 7, tr(receipt.Subtitle), "", 1, "C", false, 0, "")
	}
	if !receipt.IssuedAt.IsZero() {
		pdf.SetFont("Arial", "I", 9)
		pdf.CellFormat(0, 6, "Issued "+receipt.IssuedAt.UTC().Format(time.RFC1123), "", 1, "C", false, 0, "")
	}
	pdf.Ln(6)

	const labelWidth, valueWidth = 50.0, 130.0
	for _, field := range receipt.Fields {
		pdf.SetFont("Arial", "B", 10)
		x, y := pdf.GetX(), pdf.GetY()
		pdf.MultiCell(labelWidth, 7, tr(field.Label), "1", "L", false)
		labelBottom := pdf.GetY()

		pdf.SetXY(x+labelWidth, y)
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(valueWidth, 7, tr(field.Value), "1", "L", false)
		if labelBottom > pdf.GetY() {
			pdf.SetY(labelBottom)
		}
	}

	if receipt.Footer != "" {
		pdf.Ln(8)
		pdf.SetFont("Arial", "I", 9)
		pdf.MultiCell(0, 5, tr(receipt.Footer), "", "L", false)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
