package reports

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/signintech/gopdf"
)

var ErrPDFUnavailable = errors.New("pdf export requires a report font")

func WritePriorityCSV(w io.Writer, counts []PriorityCount) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"priority", "count"}); err != nil {
		return err
	}
	for _, c := range counts {
		if err := cw.Write([]string{c.Priority, strconv.Itoa(c.Count)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

const (
	pdfFont     = "report"
	pdfMarginX  = 50.0
	pdfBarMaxW  = 300.0
	pdfRowH     = 28.0
	pdfBarX     = 170.0
	pdfTableTop = 140.0
)

// PDFRenderer draws the calls-by-priority report with a TrueType font loaded from FontPath.
type PDFRenderer struct {
	FontPath string
}

func (r PDFRenderer) Enabled() bool {
	return r.FontPath != ""
}

func (r PDFRenderer) WritePriorityPDF(w io.Writer, counts []PriorityCount, generatedAt time.Time) error {
	if !r.Enabled() {
		return ErrPDFUnavailable
	}
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()
	if err := pdf.AddTTFFont(pdfFont, r.FontPath); err != nil {
		return fmt.Errorf("load font %s: %w", r.FontPath, err)
	}

	if err := pdf.SetFont(pdfFont, "", 18); err != nil {
		return err
	}
	pdf.SetXY(pdfMarginX, 60)
	if err := pdf.Cell(nil, "Calls by priority"); err != nil {
		return err
	}
	if err := pdf.SetFont(pdfFont, "", 10); err != nil {
		return err
	}
	pdf.SetXY(pdfMarginX, 90)
	if err := pdf.Cell(nil, "Generated "+generatedAt.Format("2006-01-02 15:04 MST")); err != nil {
		return err
	}

	max := 0
	for _, c := range counts {
		if c.Count > max {
			max = c.Count
		}
	}
	if err := pdf.SetFont(pdfFont, "", 12); err != nil {
		return err
	}
	for i, c := range counts {
		y := pdfTableTop + float64(i)*pdfRowH
		pdf.SetXY(pdfMarginX, y)
		if err := pdf.Cell(nil, c.Priority); err != nil {
			return err
		}
		if max > 0 && c.Count > 0 {
			red, green, blue := barColor(c.Priority)
			pdf.SetFillColor(red, green, blue)
			width := pdfBarMaxW * float64(c.Count) / float64(max)
			pdf.RectFromUpperLeftWithStyle(pdfBarX, y-2, width, pdfRowH-10, "F")
		}
		pdf.SetXY(pdfBarX+pdfBarMaxW+15, y)
		if err := pdf.Cell(nil, strconv.Itoa(c.Count)); err != nil {
			return err
		}
	}

	if _, err := pdf.WriteTo(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func barColor(priority string) (uint8, uint8, uint8) {
	switch priority {
	case "high":
		return 200, 40, 40
	case "medium":
		return 230, 160, 30
	case "low":
		return 60, 150, 80
	}
	return 120, 120, 120
}
