package services

import (
	"context"
	"fmt"
	"regexp"
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

// ClientFilter фильтры списка клиентов
type ClientFilter struct {
	Type   string
	Search string
}

// Поля клиента, изменяемые обновлением
var editableClientFields = map[string]struct{}{
	"type":       {},
	"first_name": {},
	"last_name":  {},
	"phone":      {},
	"email":      {},
	"notes":      {},
}

// ClientService репозиторий клиентов CRM
type ClientService struct {
	db     DatabaseProvider
	logger *logrus.Logger
	now    func() time.Time
}

// NewClientService создает новый экземпляр ClientService
func NewClientService(db DatabaseProvider, logger *logrus.Logger) *ClientService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ClientService{db: db, logger: logger, now: time.Now}
}

func (s *ClientService) collection(ctx context.Context) (*mongo.Collection, error) {
	db, err := s.db.Database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(database.CollectionClients), nil
}

func validateClientType(clientType string) error {
	switch clientType {
	case models.ClientTypeBuyer, models.ClientTypeSeller:
		return nil
	}
	return NewValidationError("type", "допустимые значения: buyer, seller")
}

// Create сохраняет нового клиента
func (s *ClientService) Create(ctx context.Context, client *models.Client, author *models.CreatedBy) error {
	if err := validateClientType(client.Type); err != nil {
		return err
	}
	if strings.TrimSpace(client.FirstName) == "" && strings.TrimSpace(client.Phone) == "" {
		return NewValidationError("first_name", "укажите имя или телефон")
	}

	now := s.now().UTC()
	client.ID = primitive.NewObjectID()
	client.CreatedAt = now
	client.UpdatedAt = now
	if author != nil && author.AdminID != "" {
		client.CreatedBy = author
	}

	coll, err := s.collection(ctx)
	if err != nil {
		return err
	}
	if _, err := coll.InsertOne(ctx, client); err != nil {
		return fmt.Errorf("ошибка создания клиента: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"client_id":  client.ID.Hex(),
		"created_by": attributionID(client.CreatedBy),
	}).Info("client created")
	return nil
}

// buildClientQuery объединяет область видимости и поиск по имени или телефону
func buildClientQuery(scope Scope, filter ClientFilter) bson.M {
	query := BuildScopeFilter(scope, KindClient, ScopeOptions{Category: filter.Type})

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"first_name": pattern},
			bson.M{"last_name": pattern},
			bson.M{"phone": pattern},
			bson.M{"email": pattern},
		}
	}
	return query
}

// List возвращает клиентов, видимых вызывающему, новые первыми
func (s *ClientService) List(ctx context.Context, scope Scope, filter ClientFilter) ([]models.Client, error) {
	coll, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := coll.Find(ctx, buildClientQuery(scope, filter), opts)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения клиентов: %w", err)
	}
	defer cursor.Close(ctx)

	clients := []models.Client{}
	if err := cursor.All(ctx, &clients); err != nil {
		return nil, fmt.Errorf("ошибка чтения клиентов: %w", err)
	}
	return clients, nil
}

// Get возвращает клиента по id в пределах области видимости
func (s *ClientService) Get(ctx context.Context, scope Scope, id primitive.ObjectID) (*models.Client, error) {
	coll, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}

	var client models.Client
	filter := withID(BuildScopeFilter(scope, KindClient, ScopeOptions{}), id)
	if err := coll.FindOne(ctx, filter).Decode(&client); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения клиента: %w", err)
	}
	return &client, nil
}

// BuildClientUpdate оставляет только редактируемые поля и обновляет updated_at
func BuildClientUpdate(patch map[string]interface{}, now time.Time) (bson.M, error) {
	set := bson.M{}
	for field, value := range patch {
		if _, ok := editableClientFields[field]; !ok {
			continue
		}
		if field == "type" {
			clientType, _ := value.(string)
			if err := validateClientType(clientType); err != nil {
				return nil, err
			}
		}
		set[field] = value
	}
	set["updated_at"] = now
	return bson.M{"$set": set}, nil
}

// Update применяет частичное обновление к клиенту
func (s *ClientService) Update(ctx context.Context, scope Scope, id primitive.ObjectID, patch map[string]interface{}) error {
	update, err := BuildClientUpdate(patch, s.now().UTC())
	if err != nil {
		return err
	}

	coll, err := s.collection(ctx)
	if err != nil {
		return err
	}

	filter := withID(BuildScopeFilter(scope, KindClient, ScopeOptions{}), id)
	res, err := coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("ошибка обновления клиента: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет клиента безвозвратно
func (s *ClientService) Delete(ctx context.Context, scope Scope, id primitive.ObjectID) error {
	coll, err := s.collection(ctx)
	if err != nil {
		return err
	}

	filter := withID(BuildScopeFilter(scope, KindClient, ScopeOptions{}), id)
	res, err := coll.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("ошибка удаления клиента: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}

	s.logger.WithField("client_id", id.Hex()).Info("client deleted")
	return nil
}
