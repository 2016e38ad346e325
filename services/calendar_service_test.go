package services

import (
	"context"
	"testing"
	"time"

	"backend_realty/models"
	"backend_realty/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func newTestCalendarService(mt *mtest.T) *CalendarService {
	svc := NewCalendarService(testutils.StaticProvider{DB: mt.DB}, testutils.NewTestLogger())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestBuildCalendarQuery(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	query := buildCalendarQuery(Scope{Role: models.RoleAgent, AdminID: "a1"}, CalendarRange{From: &from, To: &to})

	assert.Equal(t, bson.M{
		"created_by.admin_id": "a1",
		"start_date":          bson.M{"$gte": from, "$lt": to},
	}, query)

	assert.Equal(t, bson.M{}, buildCalendarQuery(Scope{}, CalendarRange{}))
}

func TestCalendarService_Create(t *testing.T) {
	mt := testutils.NewMockT(t)
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	mt.Run("stores event with attribution", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		event := &models.CalendarEvent{Title: "Показ квартиры", StartDate: start}
		require.NoError(t, newTestCalendarService(mt).Create(context.Background(), event, &models.CreatedBy{AdminID: "a1"}))
		assert.False(t, event.ID.IsZero())

		insert := mt.GetStartedEvent()
		require.NotNil(t, insert)
		assert.Equal(t, "insert", insert.CommandName)
		assert.Equal(t, fixedNow, event.CreatedAt)
		assert.Equal(t, "a1", event.CreatedBy.AdminID)
	})

	mt.Run("validation", func(mt *mtest.T) {
		svc := newTestCalendarService(mt)
		before := start.Add(-time.Hour)

		assert.True(t, IsValidation(svc.Create(context.Background(), &models.CalendarEvent{StartDate: start}, nil)))
		assert.True(t, IsValidation(svc.Create(context.Background(), &models.CalendarEvent{Title: "x"}, nil)))
		assert.True(t, IsValidation(svc.Create(context.Background(), &models.CalendarEvent{Title: "x", StartDate: start, EndDate: &before}, nil)))
	})
}

func TestCalendarService_List(t *testing.T) {
	mt := testutils.NewMockT(t)

	mt.Run("returns events", func(mt *mtest.T) {
		event := models.CalendarEvent{
			ID:        primitive.NewObjectID(),
			Title:     "Звонок",
			StartDate: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		}
		mt.AddMockResponses(testutils.CursorResponse(testutils.ToDoc(t, event)))

		events, err := newTestCalendarService(mt).List(context.Background(), Scope{}, CalendarRange{})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.True(t, event.StartDate.Equal(events[0].StartDate))
	})
}
