package services

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"backend_realty/models"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// Листы выгрузки объектов
const (
	propertiesSheet = "Объекты"
	summarySheet    = "Сводка"
)

var propertyHeaders = []string{
	"ID", "Название", "Тип", "Сделка", "Цена", "Валюта", "Площадь", "Комнат",
	"Этаж", "Город", "Адрес", "Активен", "Статус", "Просмотров", "Агент", "Создан",
}

// CurrencyTotal суммарная стоимость объектов в одной валюте
type CurrencyTotal struct {
	Currency string          `json:"currency"`
	Count    int             `json:"count"`
	Total    decimal.Decimal `json:"total"`
}

// PortfolioSummary сводка по набору объектов
type PortfolioSummary struct {
	Count    int             `json:"count"`
	Active   int             `json:"active"`
	Featured int             `json:"featured"`
	Totals   []CurrencyTotal `json:"totals"`
}

// SummarizePortfolio считает количество и стоимость объектов по валютам.
// Суммы считаются в decimal, валюты не конвертируются.
func SummarizePortfolio(items []models.Property) PortfolioSummary {
	summary := PortfolioSummary{Count: len(items)}
	byCurrency := map[string]*CurrencyTotal{}

	for _, p := range items {
		if p.IsActive {
			summary.Active++
		}
		if p.IsFeatured {
			summary.Featured++
		}

		currency := strings.ToUpper(strings.TrimSpace(p.Price.Currency))
		total, ok := byCurrency[currency]
		if !ok {
			total = &CurrencyTotal{Currency: currency, Total: decimal.Zero}
			byCurrency[currency] = total
		}
		total.Count++
		total.Total = total.Total.Add(decimal.NewFromFloat(p.Price.Amount))
	}

	summary.Totals = make([]CurrencyTotal, 0, len(byCurrency))
	for _, total := range byCurrency {
		summary.Totals = append(summary.Totals, *total)
	}
	sort.Slice(summary.Totals, func(i, j int) bool {
		return summary.Totals[i].Currency < summary.Totals[j].Currency
	})
	return summary
}

// ReportService выгрузки объектов в XLSX и PDF
type ReportService struct {
	properties *PropertyService
	logger     *logrus.Logger
	now        func() time.Time
}

// NewReportService создает новый экземпляр ReportService
func NewReportService(properties *PropertyService, logger *logrus.Logger) *ReportService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ReportService{properties: properties, logger: logger, now: time.Now}
}

// ExportPropertiesXLSX выгружает административную выдачу вызывающего без пагинации
func (rs *ReportService) ExportPropertiesXLSX(ctx context.Context, scope Scope, opts ScopeOptions, filter PropertyFilter) ([]byte, error) {
	page, err := rs.properties.List(ctx, scope, opts, filter, ListOptions{})
	if err != nil {
		return nil, err
	}

	data, err := BuildPropertiesWorkbook(page.Items, rs.now())
	if err != nil {
		return nil, err
	}

	rs.logger.WithFields(logrus.Fields{
		"rows":     len(page.Items),
		"admin_id": scope.AdminID,
	}).Info("properties exported")
	return data, nil
}

// PropertySheetPDF формирует карточку объекта
func (rs *ReportService) PropertySheetPDF(ctx context.Context, scope Scope, id string) ([]byte, error) {
	oid, err := ParseObjectID(id)
	if err != nil {
		return nil, err
	}
	property, err := rs.properties.Get(ctx, scope, oid, true)
	if err != nil {
		return nil, err
	}
	return BuildPropertySheetPDF(property, uuid.NewString(), rs.now())
}

// BuildPropertiesWorkbook формирует XLSX с листом объектов и листом сводки
func BuildPropertiesWorkbook(items []models.Property, generatedAt time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", propertiesSheet); err != nil {
		return nil, err
	}

	for i, header := range propertyHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(propertiesSheet, cell, header); err != nil {
			return nil, err
		}
	}

	for rowIdx, p := range items {
		row := []interface{}{
			p.ID.Hex(), p.Title, p.PropertyType, p.TransactionType,
			p.Price.Amount, p.Price.Currency, p.Area, p.Rooms,
			p.Floor, p.Location.City, p.Location.Address, p.IsActive,
			p.Status, p.ViewsCount, agentName(p.CreatedBy), p.CreatedAt.Format("2006-01-02"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, rowIdx+2)
		if err := f.SetSheetRow(propertiesSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(propertyHeaders))
	if err := f.AutoFilter(propertiesSheet, fmt.Sprintf("A1:%s%d", lastCol, len(items)+1), []excelize.AutoFilterOptions{}); err != nil {
		return nil, err
	}

	if err := writeSummarySheet(f, SummarizePortfolio(items), generatedAt); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("ошибка записи XLSX: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummarySheet(f *excelize.File, summary PortfolioSummary, generatedAt time.Time) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}

	rows := [][]interface{}{
		{"Сформирован", generatedAt.UTC().Format(time.RFC3339)},
		{"Всего объектов", summary.Count},
		{"Активных", summary.Active},
		{"Выделенных", summary.Featured},
		{},
		{"Валюта", "Объектов", "Сумма"},
	}
	for _, total := range summary.Totals {
		rows = append(rows, []interface{}{total.Currency, total.Count, total.Total.StringFixed(2)})
	}

	for i := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &rows[i]); err != nil {
			return err
		}
	}
	return nil
}

// BuildPropertySheetPDF формирует одностраничную карточку объекта
func BuildPropertySheetPDF(p *models.Property, documentID string, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.MultiCell(0, 8, tr(p.Title), "", "L", false)
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 11)
	lines := [][2]string{
		{"Type", p.PropertyType},
		{"Transaction", p.TransactionType},
		{"Price", fmt.Sprintf("%s %s", decimal.NewFromFloat(p.Price.Amount).StringFixed(2), p.Price.Currency)},
		{"Area", fmt.Sprintf("%g m2", p.Area)},
		{"Rooms", fmt.Sprintf("%d", p.Rooms)},
		{"Floor", fmt.Sprintf("%d / %d", p.Floor, p.TotalFloors)},
		{"City", p.Location.City},
		{"Address", p.Location.Address},
		{"Status", p.Status},
		{"Views", fmt.Sprintf("%d", p.ViewsCount)},
	}
	if coords := ExtractCoordinates(p.Location.Coordinates); coords != nil {
		lines = append(lines, [2]string{"Coordinates", fmt.Sprintf("%.6f, %.6f", coords.Lat, coords.Lng)})
	}
	if len(p.Features) > 0 {
		lines = append(lines, [2]string{"Features", strings.Join(p.Features, ", ")})
	}

	for _, line := range lines {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(40, 7, line[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.MultiCell(0, 7, tr(line[1]), "", "L", false)
	}

	if p.Description != "" {
		pdf.Ln(4)
		pdf.MultiCell(0, 6, tr(p.Description), "", "L", false)
	}

	pdf.SetY(-20)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 5, fmt.Sprintf("Document %s, generated %s", documentID, generatedAt.UTC().Format(time.RFC3339)), "", 0, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("ошибка формирования PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func agentName(c *models.CreatedBy) string {
	if c == nil {
		return ""
	}
	if c.Name != "" {
		return c.Name
	}
	return c.AdminID
}
