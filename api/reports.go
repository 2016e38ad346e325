package api

import (
	"fmt"
	"net/http"
	"time"

	"backend_realty/middleware"
	"backend_realty/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	pdfContentType  = "application/pdf"
)

// ReportHandler выгрузки XLSX и PDF
type ReportHandler struct {
	reports *services.ReportService
	logger  *logrus.Logger
}

// NewReportHandler создает новый экземпляр ReportHandler
func NewReportHandler(reports *services.ReportService, logger *logrus.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, logger: logger}
}

func attachment(c *gin.Context, filename, contentType string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}

// ExportProperties GET /api/admin/reports/properties.xlsx
func (h *ReportHandler) ExportProperties(c *gin.Context) {
	scope, opts := parseAdminListing(c)
	filter, err := parsePropertyFilter(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	data, err := h.reports.ExportPropertiesXLSX(c.Request.Context(), scope, opts, filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	filename := fmt.Sprintf("properties_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	attachment(c, filename, xlsxContentType, data)
}

// PropertySheet GET /api/admin/reports/properties/:id/sheet.pdf
func (h *ReportHandler) PropertySheet(c *gin.Context) {
	id := c.Param("id")
	data, err := h.reports.PropertySheetPDF(c.Request.Context(), middleware.ResolveScope(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	attachment(c, fmt.Sprintf("property_%s.pdf", id), pdfContentType, data)
}
