package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Форматы текстовых дат, встречающиеся в старых документах
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// MigrationResult итог нормализации дат
type MigrationResult struct {
	Collection string `json:"collection"`
	Migrated   int    `json:"migrated"`
	Skipped    int    `json:"skipped"`
	Total      int    `json:"total"`
}

// MigrationService служебные пакетные операции над коллекциями
type MigrationService struct {
	db     DatabaseProvider
	logger *logrus.Logger
}

// NewMigrationService создает новый экземпляр MigrationService
func NewMigrationService(db DatabaseProvider, logger *logrus.Logger) *MigrationService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &MigrationService{db: db, logger: logger}
}

// ParseDate разбирает текстовую дату. Даты без зоны считаются UTC.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ConvertDateFields возвращает $set для текстовых дат документа
// и список полей, которые не удалось разобрать.
func ConvertDateFields(doc bson.M, fields []string) (bson.M, []string) {
	set := bson.M{}
	var unparsed []string

	for _, field := range fields {
		raw, ok := doc[field].(string)
		if !ok {
			continue
		}
		parsed, ok := ParseDate(raw)
		if !ok {
			unparsed = append(unparsed, field)
			continue
		}
		set[field] = primitive.NewDateTimeFromTime(parsed)
	}
	return set, unparsed
}

// NormalizeDateFields переводит текстовые даты коллекции в нативный формат.
// Документы с нативными датами не перезаписываются и считаются пропущенными.
func (s *MigrationService) NormalizeDateFields(ctx context.Context, collection string, fields []string) (*MigrationResult, error) {
	if collection == "" {
		return nil, NewValidationError("collection", "обязательное поле")
	}
	if len(fields) == 0 {
		return nil, NewValidationError("fields", "список пуст")
	}

	db, err := s.db.Database(ctx)
	if err != nil {
		return nil, err
	}
	coll := db.Collection(collection)

	projection := bson.M{"_id": 1}
	for _, field := range fields {
		projection[field] = 1
	}

	cursor, err := coll.Find(ctx, bson.M{}, options.Find().SetProjection(projection))
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения коллекции %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	result := &MigrationResult{Collection: collection}
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return result, fmt.Errorf("ошибка декодирования документа: %w", err)
		}
		result.Total++

		set, unparsed := ConvertDateFields(doc, fields)
		if len(unparsed) > 0 {
			s.logger.WithFields(logrus.Fields{
				"collection": collection,
				"id":         doc["_id"],
				"fields":     unparsed,
			}).Warn("unparseable date fields left as is")
		}
		if len(set) == 0 {
			result.Skipped++
			continue
		}

		if _, err := coll.UpdateOne(ctx, bson.M{"_id": doc["_id"]}, bson.M{"$set": set}); err != nil {
			return result, fmt.Errorf("ошибка обновления документа %v: %w", doc["_id"], err)
		}
		result.Migrated++
	}
	if err := cursor.Err(); err != nil {
		return result, fmt.Errorf("ошибка обхода коллекции: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"collection": collection,
		"migrated":   result.Migrated,
		"skipped":    result.Skipped,
		"total":      result.Total,
	}).Info("date normalization finished")
	return result, nil
}
