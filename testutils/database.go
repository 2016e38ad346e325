package testutils

import (
	"context"
	"testing"
	"time"

	"backend_realty/models"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

// Пространство имен курсоров в ответах мок-сервера
const mockNamespace = "realty.test"

// StaticProvider отдает заранее заданную базу данных вместо пула соединений
type StaticProvider struct {
	DB  *mongo.Database
	Err error
}

// Database реализует services.DatabaseProvider
func (p StaticProvider) Database(ctx context.Context) (*mongo.Database, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return p.DB, nil
}

// NewMockT создает мок-развертывание MongoDB для тестов репозиториев
func NewMockT(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

// CursorResponse ответ на find/aggregate с одним пакетом документов
func CursorResponse(docs ...bson.D) bson.D {
	return mtest.CreateCursorResponse(0, mockNamespace, mtest.FirstBatch, docs...)
}

// CountResponse ответ на CountDocuments
func CountResponse(n int64) bson.D {
	return CursorResponse(bson.D{{Key: "n", Value: n}})
}

// UpdateResponse ответ на update с числом найденных и измененных документов
func UpdateResponse(matched, modified int) bson.D {
	return mtest.CreateSuccessResponse(
		bson.E{Key: "n", Value: matched},
		bson.E{Key: "nModified", Value: modified},
	)
}

// DeleteResponse ответ на delete
func DeleteResponse(deleted int) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "n", Value: deleted})
}

// FindAndModifyResponse ответ на findAndModify. nil означает отсутствие документа.
func FindAndModifyResponse(doc bson.D) bson.D {
	if doc == nil {
		return mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil})
	}
	return mtest.CreateSuccessResponse(bson.E{Key: "value", Value: doc})
}

// ToDoc сериализует модель в документ ответа мок-сервера
func ToDoc(t *testing.T, v interface{}) bson.D {
	t.Helper()

	raw, err := bson.Marshal(v)
	require.NoError(t, err)

	var doc bson.D
	require.NoError(t, bson.Unmarshal(raw, &doc))
	return doc
}

// CreateTestProperty создает тестовый объект недвижимости
func CreateTestProperty(title string, author *models.CreatedBy) models.Property {
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	return models.Property{
		ID:              primitive.NewObjectID(),
		Title:           title,
		PropertyType:    models.PropertyTypeApartment,
		TransactionType: models.TransactionSale,
		Price:           models.Price{Amount: 85000, Currency: "USD"},
		Area:            54,
		Rooms:           2,
		Location:        models.Location{City: "Almaty", Address: "Dostyk 5"},
		Features:        []string{"balcony"},
		Images:          []string{"https://cdn.example.com/1.jpg"},
		IsActive:        true,
		Status:          models.PropertyStatusPendingReview,
		CreatedBy:       author,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// CreateTestAdmin создает тестового сотрудника
func CreateTestAdmin(role string) models.Admin {
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	return models.Admin{
		ID:         primitive.NewObjectID(),
		FirstName:  "Aigerim",
		LastName:   "Sadykova",
		Email:      role + "@realty.test",
		Login:      role,
		TelegramID: "100200300",
		Role:       role,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// CreateTestClient создает тестового клиента
func CreateTestClient(clientType string, author *models.CreatedBy) models.Client {
	now := time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC)
	return models.Client{
		ID:        primitive.NewObjectID(),
		Type:      clientType,
		FirstName: "Daniyar",
		LastName:  "Ospanov",
		Phone:     "+77010000000",
		CreatedBy: author,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CreateTestDeal создает тестовую сделку
func CreateTestDeal(author *models.CreatedBy, events ...models.DealEvent) models.Deal {
	now := time.Date(2026, 1, 20, 9, 0, 0, 0, time.UTC)
	if events == nil {
		events = []models.DealEvent{}
	}
	return models.Deal{
		ID:        primitive.NewObjectID(),
		BuyerID:   primitive.NewObjectID().Hex(),
		SellerID:  primitive.NewObjectID().Hex(),
		Status:    models.DealStatusNew,
		Events:    events,
		CreatedBy: author,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
