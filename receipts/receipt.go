// Package receipts renders printable order receipts and verifies the
// signed references encoded in their QR codes.
package receipts

import (
	"bytes"
	"fmt"

	"trendaryo/models"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
	"github.com/shopspring/decimal"
)

const qrSize = 256

func money(currency string, d decimal.Decimal) string {
	return currency + " " + d.StringFixed(2)
}

// Render lays out an A4 receipt for o with a QR code of ref.
func Render(o *models.Order, ref string) ([]byte, error) {
	qrPNG, err := qrcode.Encode(ref, qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("generate QR code: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 12, "Trendaryo Receipt", "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 11)
	pdf.MultiCell(110, 6, tr(fmt.Sprintf(
		"Order: %s\nDate: %s\nStatus: %s\nPayment: %s",
		o.OrderNumber,
		o.CreatedAt.Format("02 Jan 2006 15:04"),
		o.Status.Text(),
		o.PaymentStatus,
	)), "", "L", false)

	imgOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imgOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 20, 40, 40, false, imgOpts, 0, "")

	a := o.ShippingAddress
	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 6, "Ship to", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.MultiCell(110, 6, tr(fmt.Sprintf("%s\n%s, %s %s\n%s", a.Street, a.City, a.State, a.ZipCode, a.Country)), "", "L", false)

	pdf.SetY(72)
	pdf.SetFillColor(240, 240, 245)
	pdf.SetFont("Arial", "B", 11)
	widths := []float64{90, 20, 30, 30}
	for i, h := range []string{"Item", "Qty", "Price", "Amount"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 8, h, "B", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, it := range o.Items {
		name := it.Name
		if it.Variant != "" {
			name += " (" + it.Variant + ")"
		}
		pdf.CellFormat(widths[0], 7, tr(name), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, fmt.Sprint(it.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 7, it.Price.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))).StringFixed(2), "", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(3)
	rows := [][2]string{
		{"Subtotal", money(o.Currency, o.Subtotal)},
		{"Shipping", money(o.Currency, o.ShippingCost)},
		{"Tax", money(o.Currency, o.Tax)},
	}
	if o.Discount.IsPositive() {
		label := "Discount"
		if o.DiscountCode != "" {
			label += " (" + o.DiscountCode + ")"
		}
		rows = append(rows, [2]string{label, "-" + money(o.Currency, o.Discount)})
	}
	for _, row := range rows {
		pdf.CellFormat(140, 6, tr(row[0]), "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, row[1], "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(140, 8, "Total", "T", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, money(o.Currency, o.Total), "T", 1, "R", false, 0, "")

	pdf.SetY(-30)
	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(0, 10, "Scan the code to verify this receipt.", "T", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
