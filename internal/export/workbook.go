// Package export формирует файлы выгрузок: отчёты в xlsx и счёт в pdf.
package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mmeshcher/carwash-console/internal/model"
	"github.com/mmeshcher/carwash-console/internal/report"
)

// Типы содержимого выгрузок.
const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePDF  = "application/pdf"
)

const (
	// OrdersFilename - имя файла выгрузки всех заказов.
	OrdersFilename = "car_services.xlsx"
	// DefaultReportName - префикс имени файла отчёта.
	DefaultReportName = "FourWin_Report"

	reportSheet  = "Business Report"
	loyaltySheet = "Loyalty"
	ordersSheet  = "Services"
)

// Document - готовый к отдаче файл.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

var reportHeaders = []string{
	"Date", "Customer Name", "Car Number", "Phone", "Service Type",
	"Amount", "Other Charges", "Total Amount", "Status", "Notes",
}

var loyaltyHeaders = []string{
	"Car Number", "Name", "Visits", "Points", "Tier", "Redemptions", "Last Redeemed", "Points Expiry",
}

var ordersHeaders = []string{
	"Customer Name", "Phone", "Car Name", "Car Number", "Services", "Amount", "Date", "Status", "Notes",
}

// ReportFilename возвращает имя файла отчёта за период.
func ReportFilename(name string, r report.Range) string {
	if name == "" {
		name = DefaultReportName
	}
	return fmt.Sprintf("%s_%s_to_%s.xlsx", name, r.Start, r.End)
}

// ReportWorkbook строит отчёт: заказы за период на листе "Business Report"
// и клиентов программы лояльности на листе "Loyalty".
func ReportWorkbook(name string, r report.Range, orders []model.ServiceOrder, accounts []model.LoyaltyAccount) (Document, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return Document{}, fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeHeader(f, reportSheet, reportHeaders); err != nil {
		return Document{}, err
	}
	for i, o := range report.Filter(orders, r) {
		row := []any{
			o.Date.String(), o.CustomerName, o.VehicleNumber, o.Phone, serviceTypes(o),
			o.LineItemsTotal().Sub(o.OtherCharges).InexactFloat64(), o.OtherCharges.InexactFloat64(),
			o.EffectiveTotal().InexactFloat64(), string(o.Status), o.Notes,
		}
		if err := writeRow(f, reportSheet, i+2, row); err != nil {
			return Document{}, err
		}
	}
	setColWidths(f, reportSheet, []float64{12, 20, 14, 14, 24, 10, 12, 12, 12, 30})

	if _, err := f.NewSheet(loyaltySheet); err != nil {
		return Document{}, fmt.Errorf("create loyalty sheet: %w", err)
	}
	if err := writeHeader(f, loyaltySheet, loyaltyHeaders); err != nil {
		return Document{}, err
	}
	for i, acc := range accounts {
		lastRedeemed := "Never"
		if len(acc.Redemptions) > 0 {
			lastRedeemed = acc.Redemptions[0].Date.Format("2006-01-02")
		}
		row := []any{
			acc.VehicleNumber, acc.Name, acc.VisitCount, acc.DisplayPoints(), string(acc.Tier),
			acc.RedemptionCount, lastRedeemed, acc.PointsExpiry.Format("2006-01-02"),
		}
		if err := writeRow(f, loyaltySheet, i+2, row); err != nil {
			return Document{}, err
		}
	}
	setColWidths(f, loyaltySheet, []float64{14, 20, 8, 8, 10, 12, 14, 14})

	return finish(f, ReportFilename(name, r))
}

// OrdersWorkbook выгружает все заказы на лист "Services".
func OrdersWorkbook(orders []model.ServiceOrder) (Document, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ordersSheet); err != nil {
		return Document{}, fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeHeader(f, ordersSheet, ordersHeaders); err != nil {
		return Document{}, err
	}
	for i, o := range orders {
		names := make([]string, 0, len(o.LineItems))
		for _, item := range o.LineItems {
			names = append(names, model.ServiceName(item.Type))
		}
		row := []any{
			o.CustomerName, o.Phone, o.CarName, o.VehicleNumber, strings.Join(names, ", "),
			o.EffectiveTotal().InexactFloat64(), o.Date.String(), string(o.Status), o.Notes,
		}
		if err := writeRow(f, ordersSheet, i+2, row); err != nil {
			return Document{}, err
		}
	}
	setColWidths(f, ordersSheet, []float64{20, 14, 16, 14, 36, 10, 12, 12, 30})

	return finish(f, OrdersFilename)
}

func serviceTypes(o model.ServiceOrder) string {
	types := make([]string, 0, len(o.LineItems))
	for _, item := range o.LineItems {
		types = append(types, item.Type)
	}
	return strings.Join(types, ", ")
}

func writeHeader(f *excelize.File, sheet string, headers []string) error {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("write header %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("style header %s: %w", cell, err)
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func setColWidths(f *excelize.File, sheet string, widths []float64) {
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheet, col, col, w)
	}
}

func finish(f *excelize.File, filename string) (Document, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return Document{}, fmt.Errorf("write workbook: %w", err)
	}
	return Document{Filename: filename, ContentType: ContentTypeXLSX, Body: buf.Bytes()}, nil
}
