package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"backend_realty/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

var calendarDateFields = []string{"start_date", "end_date"}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2026-03-01T10:00:00Z", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), true},
		{"2026-03-01T10:00:00.250+06:00", time.Date(2026, 3, 1, 4, 0, 0, 250000000, time.UTC), true},
		{"2026-03-01T10:00", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), true},
		{"2026-03-01 10:30:15", time.Date(2026, 3, 1, 10, 30, 15, 0, time.UTC), true},
		{" 2026-03-01 ", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"завтра", time.Time{}, false},
		{"", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}

func TestConvertDateFields(t *testing.T) {
	native := primitive.NewDateTimeFromTime(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	set, unparsed := ConvertDateFields(bson.M{
		"start_date": "2026-03-01",
		"end_date":   native,
		"title":      "2026-03-01",
	}, calendarDateFields)
	assert.Equal(t, bson.M{"start_date": primitive.NewDateTimeFromTime(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))}, set)
	assert.Empty(t, unparsed)

	set, unparsed = ConvertDateFields(bson.M{"start_date": native, "end_date": "??"}, calendarDateFields)
	assert.Empty(t, set)
	assert.Equal(t, []string{"end_date"}, unparsed)

	set, _ = ConvertDateFields(bson.M{}, calendarDateFields)
	assert.Empty(t, set)
}

func TestMigrationService_NormalizeDateFields(t *testing.T) {
	mt := testutils.NewMockT(t)
	native := primitive.NewDateTimeFromTime(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	mt.Run("second run migrates nothing", func(mt *mtest.T) {
		textual := bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "start_date", Value: "2026-03-01T10:00:00Z"}}
		migrated := bson.D{{Key: "_id", Value: textual[0].Value}, {Key: "start_date", Value: native}}
		nativeDoc := bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "start_date", Value: native}}
		broken := bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "end_date", Value: "не дата"}}

		mt.AddMockResponses(
			testutils.CursorResponse(textual, nativeDoc, broken),
			testutils.UpdateResponse(1, 1),
			testutils.CursorResponse(migrated, nativeDoc, broken),
		)

		svc := NewMigrationService(testutils.StaticProvider{DB: mt.DB}, testutils.NewTestLogger())

		first, err := svc.NormalizeDateFields(context.Background(), "calendar_events", calendarDateFields)
		require.NoError(t, err)
		assert.Equal(t, &MigrationResult{Collection: "calendar_events", Migrated: 1, Skipped: 2, Total: 3}, first)

		second, err := svc.NormalizeDateFields(context.Background(), "calendar_events", calendarDateFields)
		require.NoError(t, err)
		assert.Equal(t, 0, second.Migrated)
		assert.Equal(t, second.Total, second.Skipped)

		mt.GetStartedEvent() // find
		update := mt.GetStartedEvent()
		require.NotNil(t, update)
		assert.Equal(t, "update", update.CommandName)
	})

	mt.Run("requires fields", func(mt *mtest.T) {
		svc := NewMigrationService(testutils.StaticProvider{DB: mt.DB}, testutils.NewTestLogger())

		_, err := svc.NormalizeDateFields(context.Background(), "calendar_events", nil)
		assert.True(t, IsValidation(err))

		_, err = svc.NormalizeDateFields(context.Background(), "", calendarDateFields)
		assert.True(t, IsValidation(err))
	})
}

type blockingNormalizer struct {
	release chan struct{}
	calls   int
	mu      sync.Mutex
	err     error
}

func (b *blockingNormalizer) NormalizeDateFields(ctx context.Context, collection string, fields []string) (*MigrationResult, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()

	if b.release != nil {
		<-b.release
	}
	if b.err != nil {
		return nil, b.err
	}
	return &MigrationResult{Collection: collection, Total: len(fields)}, nil
}

func TestMigrationSchedulerService(t *testing.T) {
	t.Run("rejects invalid schedule", func(t *testing.T) {
		s := NewMigrationSchedulerService(&blockingNormalizer{}, "calendar_events", calendarDateFields, testutils.NewTestLogger())

		assert.Error(t, s.Start(""))
		assert.Error(t, s.Start("not a cron"))
		assert.Nil(t, s.NextRun())
	})

	t.Run("start and stop", func(t *testing.T) {
		s := NewMigrationSchedulerService(&blockingNormalizer{}, "calendar_events", calendarDateFields, testutils.NewTestLogger())

		require.NoError(t, s.Start("0 0 3 * * *"))
		next := s.NextRun()
		require.NotNil(t, next)
		assert.Equal(t, 3, next.Hour())
		s.Stop()
	})

	t.Run("run once records last result", func(t *testing.T) {
		s := NewMigrationSchedulerService(&blockingNormalizer{}, "calendar_events", calendarDateFields, testutils.NewTestLogger())

		result, err := s.RunOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, result, s.LastResult())
	})

	t.Run("failed run keeps previous result", func(t *testing.T) {
		normalizer := &blockingNormalizer{err: errors.New("boom")}
		s := NewMigrationSchedulerService(normalizer, "calendar_events", calendarDateFields, testutils.NewTestLogger())

		_, err := s.RunOnce(context.Background())
		assert.Error(t, err)
		assert.Nil(t, s.LastResult())
	})

	t.Run("concurrent run is rejected", func(t *testing.T) {
		normalizer := &blockingNormalizer{release: make(chan struct{})}
		s := NewMigrationSchedulerService(normalizer, "calendar_events", calendarDateFields, testutils.NewTestLogger())

		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = s.RunOnce(context.Background())
		}()

		require.Eventually(t, func() bool {
			normalizer.mu.Lock()
			defer normalizer.mu.Unlock()
			return normalizer.calls == 1
		}, time.Second, 5*time.Millisecond)

		_, err := s.RunOnce(context.Background())
		assert.ErrorIs(t, err, ErrMigrationRunning)

		close(normalizer.release)
		<-done
	})
}
