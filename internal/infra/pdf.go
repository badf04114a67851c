package infra

// pdf.go: till closing report rendered with go-pdf/fpdf on 80mm receipt paper,
// so it can go to the same thermal printer as the tabs:
//   - business name header
//   - session, operators and timestamps
//   - expected / counted / difference block with its classification
//   - sales per payment method, supplies, withdrawals, discounts
//
// The output file is saved to storagePath/closing_{session_id}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/isaqueitalo/restaurante-1.0/internal/model"
	"github.com/isaqueitalo/restaurante-1.0/internal/service"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

var methodLabels = map[model.PaymentMethod]string{
	model.MethodCash:   "Cash",
	model.MethodDebit:  "Debit",
	model.MethodCredit: "Credit",
	model.MethodPix:    "Pix",
}

// GenerateClosingReportPDF renders sum and returns the path of the written file.
// Times are printed in loc.
func GenerateClosingReportPDF(sum *service.Summary, businessName, storagePath string, loc *time.Location) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}

	filePath := filepath.Join(storagePath, fmt.Sprintf("closing_%d.pdf", sum.SessionID))

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 80, Ht: 160},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(true, 4)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8
	labelW := contentW * 0.6
	valueW := contentW - labelW

	row := func(label string, value string) {
		pdf.CellFormat(labelW, 4.5, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(valueW, 4.5, value, "", 1, "R", false, 0, "")
	}
	separator := func() {
		pdf.Ln(1.5)
		pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
		pdf.Ln(1.5)
	}

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentW, 6, businessName, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, "Till closing report", "", 1, "C", false, 0, "")
	separator()

	// ── Session ──────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 7)
	row("Session", fmt.Sprintf("#%d (%s)", sum.SessionID, sum.State))
	row("Opened", sum.OpenedAt.In(loc).Format("02/01/2006 15:04"))
	row("Opened by", sum.OpenedBy)
	if sum.ClosedAt != nil {
		row("Closed", sum.ClosedAt.In(loc).Format("02/01/2006 15:04"))
	}
	if sum.ClosedBy != nil {
		row("Closed by", *sum.ClosedBy)
	}
	separator()

	// ── Cash ─────────────────────────────────────────────────────────────────
	row("Opening float", money(sum.OpeningFloat))
	row("Cash in", money(sum.PositiveImpact))
	row("Cash out", money(sum.NegativeImpact))
	pdf.SetFont("Helvetica", "B", 8)
	row("Expected cash", money(sum.Expected))
	row("Counted cash", optionalMoney(sum.Counted))
	row("Difference", optionalMoney(sum.Difference))
	pdf.SetFont("Helvetica", "", 7)
	if sum.DifferencePct != nil {
		row("Difference %", sum.DifferencePct.StringFixed(2)+"%")
	}
	if sum.Classification != nil {
		row("Classification", string(*sum.Classification))
	}
	separator()

	// ── Sales ────────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(contentW, 5, "Sales by payment method", "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	total := decimal.Zero
	for _, pm := range model.PaymentMethods {
		v := sum.Payments[pm]
		total = total.Add(v)
		row(methodLabels[pm], money(v))
	}
	pdf.SetFont("Helvetica", "B", 8)
	row("TOTAL SALES", money(total))
	pdf.SetFont("Helvetica", "", 7)
	separator()

	row("Supplies", money(sum.Supplies))
	row("Withdrawals", money(sum.Withdrawals))
	row("Discounts granted", money(sum.Discounts))

	if sum.Notes != nil {
		separator()
		pdf.MultiCell(contentW, 4, "Notes: "+*sum.Notes, "", "L", false)
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(model.MoneyPlaces)
}

func optionalMoney(d *decimal.Decimal) string {
	if d == nil {
		return "unknown"
	}
	return money(*d)
}
