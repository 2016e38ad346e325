package database

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionIndex представляет индекс коллекции
type CollectionIndex struct {
	Name       string
	Collection string
	Keys       bson.D
	Unique     bool
	// Sparse пропускает документы без индексируемого поля
	Sparse bool
}

// PerformanceIndexes индексы для оптимизации выборок
var PerformanceIndexes = []CollectionIndex{
	// Публичная выдача: активные, избранные, новые первыми
	{
		Name:       "idx_properties_active_featured_created",
		Collection: CollectionProperties,
		Keys:       bson.D{{Key: "is_active", Value: 1}, {Key: "is_featured", Value: -1}, {Key: "created_at", Value: -1}},
	},
	{
		Name:       "idx_properties_transaction_type",
		Collection: CollectionProperties,
		Keys:       bson.D{{Key: "transaction_type", Value: 1}, {Key: "is_active", Value: 1}},
	},
	{
		Name:       "idx_properties_created_by",
		Collection: CollectionProperties,
		Keys:       bson.D{{Key: "created_by.admin_id", Value: 1}, {Key: "created_at", Value: -1}},
	},
	{
		Name:       "idx_clients_created_by",
		Collection: CollectionClients,
		Keys:       bson.D{{Key: "created_by.admin_id", Value: 1}, {Key: "created_at", Value: -1}},
	},
	{
		Name:       "idx_clients_type",
		Collection: CollectionClients,
		Keys:       bson.D{{Key: "type", Value: 1}},
	},
	{
		Name:       "idx_deals_created_by",
		Collection: CollectionDeals,
		Keys:       bson.D{{Key: "created_by.admin_id", Value: 1}, {Key: "updated_at", Value: -1}},
	},
	{
		Name:       "idx_admins_email",
		Collection: CollectionAdmins,
		Keys:       bson.D{{Key: "email", Value: 1}},
		Unique:     true,
	},
	{
		Name:       "idx_admins_login",
		Collection: CollectionAdmins,
		Keys:       bson.D{{Key: "login", Value: 1}},
		Unique:     true,
		Sparse:     true,
	},
	{
		Name:       "idx_calendar_events_start",
		Collection: CollectionCalendarEvents,
		Keys:       bson.D{{Key: "created_by.admin_id", Value: 1}, {Key: "start_date", Value: 1}},
	},
}

// EnsureIndexes создает индексы, которых еще нет. Повторный запуск безопасен.
func EnsureIndexes(ctx context.Context, db *mongo.Database, logger *logrus.Logger) error {
	byCollection := make(map[string][]mongo.IndexModel)
	var order []string

	for _, idx := range PerformanceIndexes {
		opts := options.Index().SetName(idx.Name)
		if idx.Unique {
			opts.SetUnique(true)
		}
		if idx.Sparse {
			opts.SetSparse(true)
		}
		if _, seen := byCollection[idx.Collection]; !seen {
			order = append(order, idx.Collection)
		}
		byCollection[idx.Collection] = append(byCollection[idx.Collection], mongo.IndexModel{
			Keys:    idx.Keys,
			Options: opts,
		})
	}

	for _, collection := range order {
		names, err := db.Collection(collection).Indexes().CreateMany(ctx, byCollection[collection])
		if err != nil {
			return fmt.Errorf("ошибка создания индексов коллекции %s: %w", collection, err)
		}
		logger.WithFields(logrus.Fields{
			"collection": collection,
			"indexes":    names,
		}).Debug("indexes ensured")
	}

	logger.Info("✅ Индексы коллекций созданы")
	return nil
}
