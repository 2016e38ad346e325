package api

import (
	"bytes"
	"net/http"
	"strings"
	"testing"
	"time"

	"backend_realty/services"
	"backend_realty/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

var fixedTestTime = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func TestReports(t *testing.T) {
	mt := testutils.NewMockT(t)

	mt.Run("xlsx export", func(mt *mtest.T) {
		env := setupTestRouter(mt)
		property := testutils.CreateTestProperty("Пентхаус", nil)
		mt.AddMockResponses(testutils.CursorResponse(testutils.ToDoc(mt.T, property)))

		w := env.do(http.MethodGet, "/api/admin/reports/properties.xlsx?role=owner", nil)
		require.Equal(mt, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(mt, xlsxContentType, w.Header().Get("Content-Type"))
		assert.True(mt, strings.HasPrefix(w.Header().Get("Content-Disposition"), `attachment; filename="properties_`))

		f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
		require.NoError(mt, err)
		defer f.Close()

		title, err := f.GetCellValue("Объекты", "B2")
		require.NoError(mt, err)
		assert.Equal(mt, "Пентхаус", title)
	})

	mt.Run("pdf sheet", func(mt *mtest.T) {
		env := setupTestRouter(mt)
		property := testutils.CreateTestProperty("Cottage", nil)
		mt.AddMockResponses(testutils.CursorResponse(testutils.ToDoc(mt.T, property)))

		w := env.do(http.MethodGet, "/api/admin/reports/properties/"+property.ID.Hex()+"/sheet.pdf", nil)
		require.Equal(mt, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(mt, pdfContentType, w.Header().Get("Content-Type"))
		assert.True(mt, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))
	})

	mt.Run("pdf of missing property", func(mt *mtest.T) {
		env := setupTestRouter(mt)
		mt.AddMockResponses(testutils.CursorResponse())

		w := env.do(http.MethodGet, "/api/admin/reports/properties/"+primitive.NewObjectID().Hex()+"/sheet.pdf", nil)
		assert.Equal(mt, http.StatusNotFound, w.Code)
	})
}

func TestMigrations(t *testing.T) {
	mt := testutils.NewMockT(t)

	mt.Run("manual run reports counts", func(mt *mtest.T) {
		env := setupTestRouter(mt)
		mt.AddMockResponses(
			testutils.CursorResponse(
				bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "start_date", Value: "2026-03-02 10:00:00"}},
				bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "start_date", Value: primitive.NewDateTimeFromTime(fixedTestTime)}},
			),
			testutils.UpdateResponse(1, 1),
		)

		w := env.do(http.MethodPost, "/api/admin/migrations/calendar-dates?role=owner", nil)
		require.Equal(mt, http.StatusOK, w.Code, w.Body.String())

		var result services.MigrationResult
		decodeData(mt.T, w, &result)
		assert.Equal(mt, services.MigrationResult{Collection: "calendar_events", Migrated: 1, Skipped: 1, Total: 2}, result)

		w = env.do(http.MethodGet, "/api/admin/migrations/calendar-dates?role=admin", nil)
		require.Equal(mt, http.StatusOK, w.Code)
		assert.Contains(mt, w.Body.String(), `"migrated":1`)
		assert.Contains(mt, w.Body.String(), `"next_run":null`)
	})

	mt.Run("agents cannot run migrations", func(mt *mtest.T) {
		env := setupTestRouter(mt)

		w := env.do(http.MethodPost, "/api/admin/migrations/calendar-dates?role=agent&admin_id=a1", nil)
		assert.Equal(mt, http.StatusForbidden, w.Code)
	})
}
