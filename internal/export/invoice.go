package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/carwash-console/internal/model"
)

// InvoiceFilename возвращает имя файла счёта для заказа.
func InvoiceFilename(o model.ServiceOrder) string {
	vehicle := strings.ReplaceAll(model.VehicleKey(o.VehicleNumber), " ", "")
	return fmt.Sprintf("Invoice_%s_%s.pdf", vehicle, o.ID)
}

// Invoice печатает счёт по заказу: шапку мойки, данные клиента, услуги,
// итог, историю визитов автомобиля и состояние баллов.
func Invoice(shopName string, o model.ServiceOrder, acc model.LoyaltyAccount) (Document, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(fmt.Sprintf("Invoice %s", o.ID), true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(shopName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, "Service Invoice", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 10)
	info := [][2]string{
		{"Invoice No", o.ID},
		{"Date", o.Date.String()},
		{"Customer", o.CustomerName},
		{"Phone", o.Phone},
		{"Car", strings.TrimSpace(o.CarName + " " + o.VehicleNumber)},
		{"Status", string(o.Status)},
	}
	if o.PaymentMode != "" {
		info = append(info, [2]string{"Payment", o.PaymentMode})
	}
	for _, kv := range info {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(35, 6, kv[0]+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, tr(kv[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(217, 225, 242)
	pdf.CellFormat(130, 7, "Service", "1", 0, "L", true, 0, "")
	pdf.CellFormat(50, 7, "Amount", "1", 1, "R", true, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, item := range o.LineItems {
		pdf.CellFormat(130, 7, tr(model.ServiceName(item.Type)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 7, rupees(item.Amount), "1", 1, "R", false, 0, "")
	}
	if !o.OtherCharges.IsZero() {
		pdf.CellFormat(130, 7, "Other charges", "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 7, rupees(o.OtherCharges), "1", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(130, 8, "Total", "1", 0, "L", false, 0, "")
	pdf.CellFormat(50, 8, rupees(o.EffectiveTotal()), "1", 1, "R", false, 0, "")
	pdf.Ln(6)

	if len(acc.Orders) > 0 {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 7, "Visit history", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		for _, visit := range acc.Orders {
			pdf.CellFormat(30, 6, visit.Date.String(), "B", 0, "L", false, 0, "")
			pdf.CellFormat(100, 6, tr(serviceNames(visit)), "B", 0, "L", false, 0, "")
			pdf.CellFormat(50, 6, rupees(visit.EffectiveTotal()), "B", 1, "R", false, 0, "")
		}
		pdf.Ln(4)
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, "Loyalty", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Visits: %d   Tier: %s   Points: %d", acc.VisitCount, acc.Tier, acc.DisplayPoints()), "", 1, "L", false, 0, "")
	if !acc.PointsExpiry.IsZero() {
		pdf.CellFormat(0, 6, "Points valid until "+acc.PointsExpiry.Format("2006-01-02"), "", 1, "L", false, 0, "")
	}
	if acc.EligibleForFreeService {
		pdf.CellFormat(0, 6, "Eligible for a free service!", "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return Document{}, fmt.Errorf("render invoice: %w", err)
	}
	return Document{Filename: InvoiceFilename(o), ContentType: ContentTypePDF, Body: buf.Bytes()}, nil
}

// rupees форматирует сумму для pdf: базовые шрифты не содержат знака ₹.
func rupees(v decimal.Decimal) string {
	return "Rs. " + v.StringFixed(2)
}

func serviceNames(o model.ServiceOrder) string {
	names := make([]string, 0, len(o.LineItems))
	for _, item := range o.LineItems {
		names = append(names, model.ServiceName(item.Type))
	}
	return strings.Join(names, ", ")
}
