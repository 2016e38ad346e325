package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"backend_realty/database"
	"backend_realty/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CalendarRange интервал выборки событий календаря
type CalendarRange struct {
	From *time.Time
	To   *time.Time
}

// CalendarService репозиторий событий календаря агентов
type CalendarService struct {
	db     DatabaseProvider
	logger *logrus.Logger
	now    func() time.Time
}

// NewCalendarService создает новый экземпляр CalendarService
func NewCalendarService(db DatabaseProvider, logger *logrus.Logger) *CalendarService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CalendarService{db: db, logger: logger, now: time.Now}
}

func (s *CalendarService) collection(ctx context.Context) (*mongo.Collection, error) {
	db, err := s.db.Database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(database.CollectionCalendarEvents), nil
}

// Create сохраняет событие. Даты хранятся в нативном формате БД.
func (s *CalendarService) Create(ctx context.Context, event *models.CalendarEvent, author *models.CreatedBy) error {
	event.Title = strings.TrimSpace(event.Title)
	if event.Title == "" {
		return NewValidationError("title", "обязательное поле")
	}
	if event.StartDate.IsZero() {
		return NewValidationError("start_date", "обязательное поле")
	}
	if event.EndDate != nil && event.EndDate.Before(event.StartDate) {
		return NewValidationError("end_date", "раньше даты начала")
	}

	now := s.now().UTC()
	event.ID = primitive.NewObjectID()
	event.CreatedAt = now
	event.UpdatedAt = now
	if author != nil && author.AdminID != "" {
		event.CreatedBy = author
	}

	coll, err := s.collection(ctx)
	if err != nil {
		return err
	}
	if _, err := coll.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("ошибка создания события: %w", err)
	}

	s.logger.WithField("event_id", event.ID.Hex()).Debug("calendar event created")
	return nil
}

// buildCalendarQuery добавляет интервал к области видимости
func buildCalendarQuery(scope Scope, rng CalendarRange) bson.M {
	query := BuildScopeFilter(scope, KindCalendarEvent, ScopeOptions{})
	if rng.From != nil || rng.To != nil {
		start := bson.M{}
		if rng.From != nil {
			start["$gte"] = *rng.From
		}
		if rng.To != nil {
			start["$lt"] = *rng.To
		}
		query["start_date"] = start
	}
	return query
}

// List возвращает события, видимые вызывающему, в порядке начала
func (s *CalendarService) List(ctx context.Context, scope Scope, rng CalendarRange) ([]models.CalendarEvent, error) {
	coll, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "start_date", Value: 1}})
	cursor, err := coll.Find(ctx, buildCalendarQuery(scope, rng), opts)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения событий: %w", err)
	}
	defer cursor.Close(ctx)

	events := []models.CalendarEvent{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("ошибка чтения событий: %w", err)
	}
	return events, nil
}
