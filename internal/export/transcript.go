// Package export renders the conversation history as a PDF transcript.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"docchat/internal/domain"
)

// EmptyHistory is printed when there is nothing to export.
const EmptyHistory = "No chat history yet."

// Transcript renders exchanges, oldest first. documents names the indexed
// files in the header.
func Transcript(exchanges []domain.Exchange, documents []string, at time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetTitle("Chat transcript", true)
	pdf.SetCreationDate(at)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, "Chat transcript", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(110, 110, 110)
	pdf.CellFormat(0, 5, at.Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
	for _, d := range documents {
		pdf.CellFormat(0, 5, tr(d), "", 1, "L", false, 0, "")
	}
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	if len(exchanges) == 0 {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.MultiCell(0, 6, EmptyHistory, "", "L", false)
	}
	for i, ex := range exchanges {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.MultiCell(0, 6, tr(fmt.Sprintf("%d. %s", i+1, ex.Question)), "", "L", false)
		pdf.SetFont("Helvetica", "", 11)
		pdf.SetFillColor(245, 245, 245)
		pdf.MultiCell(0, 6, tr(ex.Answer), "", "L", true)
		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render transcript: %w", err)
	}
	return buf.Bytes(), nil
}
