package debt

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"bizu/backend/internal/domain"
	"bizu/backend/internal/money"
)

// WritePDF renders a closing statement as a one-page A5 slip that can be
// printed or attached to the reminder.
func WritePDF(w io.Writer, st domain.ClosingStatement, businessName, pixKey string, issuedAt time.Time) error {
	pdf := fpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()
	// Core fonts are cp1252; names carry accents.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 20

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, tr(businessName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, tr("Fechamento mensal"), "", 1, "C", false, 0, "")
	pdf.Ln(3)

	d := st.Debtor
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW, 6, tr(fmt.Sprintf("%s %s", d.Rank, d.Name)), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 4, tr(d.Unit), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 4, issuedAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	col1 := contentW * 0.60
	col2 := contentW * 0.12
	col3 := contentW * 0.28

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(col1, 5, "Produto", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "Qtd", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 5, "Valor", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	for _, line := range st.Lines {
		pdf.CellFormat(col1, 5, tr(line.ProductName), "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, fmt.Sprintf("%d", line.Quantity), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 5, money.Format(line.Amount), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(col1+col2, 6, "TOTAL", "T", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 6, money.Format(d.Total), "T", 1, "R", false, 0, "")

	if pixKey != "" {
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(contentW, 4, tr("PIX: "+pixKey), "", 1, "L", false, 0, "")
	}

	return pdf.Output(w)
}
