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

// Время на доставку одного уведомления
const notifyTimeout = 10 * time.Second

// Тип события, которое добавляется при смене статуса
const DealEventStatusChanged = "status_changed"

// DealService репозиторий сделок
type DealService struct {
	db       DatabaseProvider
	notifier DealNotifier
	logger   *logrus.Logger
	now      func() time.Time
}

// NewDealService создает новый экземпляр DealService
func NewDealService(db DatabaseProvider, notifier DealNotifier, logger *logrus.Logger) *DealService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &DealService{db: db, notifier: notifier, logger: logger, now: time.Now}
}

func (s *DealService) collection(ctx context.Context) (*mongo.Collection, error) {
	db, err := s.db.Database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(database.CollectionDeals), nil
}

// Create сохраняет новую сделку с пустым журналом событий
func (s *DealService) Create(ctx context.Context, deal *models.Deal, author *models.CreatedBy) error {
	if deal.BuyerID == "" && deal.SellerID == "" {
		return NewValidationError("buyer_id", "укажите покупателя или продавца")
	}

	now := s.now().UTC()
	deal.ID = primitive.NewObjectID()
	if deal.Status == "" {
		deal.Status = models.DealStatusNew
	}
	deal.Events = []models.DealEvent{}
	deal.CreatedAt = now
	deal.UpdatedAt = now
	if author != nil && author.AdminID != "" {
		deal.CreatedBy = author
	}

	coll, err := s.collection(ctx)
	if err != nil {
		return err
	}
	if _, err := coll.InsertOne(ctx, deal); err != nil {
		return fmt.Errorf("ошибка создания сделки: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"deal_id":    deal.ID.Hex(),
		"created_by": attributionID(deal.CreatedBy),
	}).Info("deal created")
	return nil
}

// List возвращает сделки, видимые вызывающему. status сужает выборку.
func (s *DealService) List(ctx context.Context, scope Scope, status string) ([]models.Deal, error) {
	coll, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}

	filter := BuildScopeFilter(scope, KindDeal, ScopeOptions{Category: status})
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения сделок: %w", err)
	}
	defer cursor.Close(ctx)

	deals := []models.Deal{}
	if err := cursor.All(ctx, &deals); err != nil {
		return nil, fmt.Errorf("ошибка чтения сделок: %w", err)
	}
	return deals, nil
}

// Get возвращает сделку по id в пределах области видимости
func (s *DealService) Get(ctx context.Context, scope Scope, id primitive.ObjectID) (*models.Deal, error) {
	coll, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}

	var deal models.Deal
	filter := withID(BuildScopeFilter(scope, KindDeal, ScopeOptions{}), id)
	if err := coll.FindOne(ctx, filter).Decode(&deal); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения сделки: %w", err)
	}
	return &deal, nil
}

// StampEvent копирует событие и проставляет created_at
func StampEvent(event models.DealEvent, now time.Time) models.DealEvent {
	stamped := make(models.DealEvent, len(event)+1)
	for k, v := range event {
		stamped[k] = v
	}
	stamped["created_at"] = now
	return stamped
}

// BuildEventAppend формирует атомарное добавление события с обновлением updated_at
func BuildEventAppend(event models.DealEvent, now time.Time) bson.M {
	return bson.M{
		"$push": bson.M{"events": event},
		"$set":  bson.M{"updated_at": now},
	}
}

// AppendEvent добавляет событие в конец журнала сделки.
// Содержимое события не проверяется и сохраняется как есть.
func (s *DealService) AppendEvent(ctx context.Context, scope Scope, id primitive.ObjectID, event models.DealEvent) (*models.Deal, error) {
	if len(event) == 0 {
		return nil, NewValidationError("event", "пустое событие")
	}

	now := s.now().UTC()
	stamped := StampEvent(event, now)

	deal, err := s.findAndUpdate(ctx, withID(BuildScopeFilter(scope, KindDeal, ScopeOptions{}), id), BuildEventAppend(stamped, now))
	if err != nil {
		return nil, err
	}

	s.notify(deal, stamped)
	return deal, nil
}

// UpdateStatus меняет статус сделки и фиксирует смену в журнале
func (s *DealService) UpdateStatus(ctx context.Context, scope Scope, id primitive.ObjectID, status string) (*models.Deal, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, NewValidationError("status", "обязательное поле")
	}

	now := s.now().UTC()
	event := models.DealEvent{"type": DealEventStatusChanged, "status": status, "created_at": now}
	update := BuildEventAppend(event, now)
	update["$set"].(bson.M)["status"] = status

	deal, err := s.findAndUpdate(ctx, withID(BuildScopeFilter(scope, KindDeal, ScopeOptions{}), id), update)
	if err != nil {
		return nil, err
	}

	s.notify(deal, event)
	return deal, nil
}

func (s *DealService) findAndUpdate(ctx context.Context, filter, update bson.M) (*models.Deal, error) {
	coll, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var deal models.Deal
	if err := coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&deal); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка обновления сделки: %w", err)
	}
	return &deal, nil
}

// notify доставляет уведомление в фоне, ошибка доставки только логируется
func (s *DealService) notify(deal *models.Deal, event models.DealEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := s.notifier.DealEventAppended(ctx, deal, event); err != nil {
			s.logger.WithError(err).WithField("deal_id", deal.ID.Hex()).Warn("deal notification failed")
		}
	}()
}
