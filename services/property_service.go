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

// Порядок выдачи объектов: сначала выделенные, затем новые
var propertySort = bson.D{{Key: "is_featured", Value: -1}, {Key: "created_at", Value: -1}}

// Поля, которые нельзя изменить частичным обновлением
var protectedPropertyFields = map[string]struct{}{
	"_id":            {},
	"id":             {},
	"created_at":     {},
	"created_by":     {},
	"views_count":    {},
	"last_viewed_at": {},
	"updated_at":     {},
}

// Ограничения пагинации
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// PropertyFilter фильтры выдачи объектов
type PropertyFilter struct {
	TransactionType string
	PropertyType    string
	City            string
	MinPrice        *float64
	MaxPrice        *float64
	FeaturedOnly    bool
}

// apply добавляет условия фильтра к запросу
func (f PropertyFilter) apply(filter bson.M) bson.M {
	if f.TransactionType != "" {
		filter["transaction_type"] = f.TransactionType
	}
	if f.PropertyType != "" {
		filter["property_type"] = f.PropertyType
	}
	if f.City != "" {
		filter["location.city"] = f.City
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		price := bson.M{}
		if f.MinPrice != nil {
			price["$gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			price["$lte"] = *f.MaxPrice
		}
		filter["price.amount"] = price
	}
	if f.FeaturedOnly {
		filter["is_featured"] = true
	}
	return filter
}

// ListOptions параметры пагинации. Нулевое значение возвращает все записи.
type ListOptions struct {
	Page  int
	Limit int
}

// Paginated сообщает, запрошена ли пагинация
func (o ListOptions) Paginated() bool {
	return o.Page > 0 || o.Limit > 0
}

// normalize приводит страницу и лимит к допустимым значениям
func (o ListOptions) normalize() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit < 1 {
		o.Limit = DefaultPageLimit
	}
	if o.Limit > MaxPageLimit {
		o.Limit = MaxPageLimit
	}
	return o
}

// PropertyPage страница административной выдачи
type PropertyPage struct {
	Items      []models.Property `json:"items"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
}

// ReassignResult итог массовой передачи объектов агенту.
// Modified меньше Requested означает частичное выполнение.
type ReassignResult struct {
	Requested int   `json:"requested"`
	Matched   int64 `json:"matched"`
	Modified  int64 `json:"modified"`
}

// PropertyService репозиторий объектов недвижимости
type PropertyService struct {
	db     DatabaseProvider
	cache  *ListingCache
	logger *logrus.Logger
	now    func() time.Time
}

// NewPropertyService создает новый экземпляр PropertyService
func NewPropertyService(db DatabaseProvider, cache *ListingCache, logger *logrus.Logger) *PropertyService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &PropertyService{
		db:     db,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

func (s *PropertyService) collection(ctx context.Context) (*mongo.Collection, error) {
	db, err := s.db.Database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(database.CollectionProperties), nil
}

// ListPublic возвращает активные объекты в публичной форме
func (s *PropertyService) ListPublic(ctx context.Context, filter PropertyFilter) ([]models.PublicProperty, error) {
	gen, err := s.cache.Generation(ctx)
	useCache := err == nil
	if err != nil {
		s.logger.WithError(err).Warn("listing cache generation read failed")
	}
	key := PublicListingKey(gen, filter)

	var cached []models.PublicProperty
	if useCache {
		if hit, err := s.cache.GetJSON(ctx, key, &cached); err != nil {
			s.logger.WithError(err).Warn("listing cache read failed")
		} else if hit {
			return cached, nil
		}
	}

	query := filter.apply(BuildScopeFilter(Scope{}, KindProperty, ScopeOptions{}))
	items, err := s.find(ctx, query, options.Find().SetSort(propertySort))
	if err != nil {
		return nil, err
	}

	result := ToPublicShapes(items)
	if useCache {
		if err := s.cache.SetJSON(ctx, key, result); err != nil {
			s.logger.WithError(err).Warn("listing cache write failed")
		}
	}
	return result, nil
}

// List возвращает объекты для CRM с учетом области видимости и пагинации
func (s *PropertyService) List(ctx context.Context, scope Scope, opts ScopeOptions, filter PropertyFilter, page ListOptions) (*PropertyPage, error) {
	query := filter.apply(BuildScopeFilter(scope, KindProperty, opts))
	findOpts := options.Find().SetSort(propertySort)

	if !page.Paginated() {
		items, err := s.find(ctx, query, findOpts)
		if err != nil {
			return nil, err
		}
		return &PropertyPage{
			Items:      items,
			Total:      int64(len(items)),
			Page:       1,
			Limit:      len(items),
			TotalPages: 1,
		}, nil
	}

	page = page.normalize()
	coll, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}

	total, err := coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчета объектов: %w", err)
	}

	findOpts.SetSkip(int64((page.Page - 1) * page.Limit)).SetLimit(int64(page.Limit))
	items, err := s.find(ctx, query, findOpts)
	if err != nil {
		return nil, err
	}

	return &PropertyPage{
		Items:      items,
		Total:      total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: int((total + int64(page.Limit) - 1) / int64(page.Limit)),
	}, nil
}

func (s *PropertyService) find(ctx context.Context, query bson.M, opts *options.FindOptions) ([]models.Property, error) {
	coll, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}

	cursor, err := coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения объектов: %w", err)
	}
	defer cursor.Close(ctx)

	items := []models.Property{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("ошибка чтения объектов: %w", err)
	}
	return items, nil
}

// GetActive возвращает активный объект для публичного сайта
func (s *PropertyService) GetActive(ctx context.Context, id primitive.ObjectID) (*models.Property, error) {
	return s.findOne(ctx, withID(BuildScopeFilter(Scope{}, KindProperty, ScopeOptions{}), id))
}

// Get возвращает объект для CRM. Архивные объекты видны только при showArchived.
func (s *PropertyService) Get(ctx context.Context, scope Scope, id primitive.ObjectID, showArchived bool) (*models.Property, error) {
	filter := BuildScopeFilter(scope, KindProperty, ScopeOptions{ShowArchived: showArchived})
	return s.findOne(ctx, withID(filter, id))
}

func (s *PropertyService) findOne(ctx context.Context, filter bson.M) (*models.Property, error) {
	coll, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}

	var property models.Property
	if err := coll.FindOne(ctx, filter).Decode(&property); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения объекта: %w", err)
	}
	return &property, nil
}

// Create сохраняет новый объект со значениями по умолчанию
func (s *PropertyService) Create(ctx context.Context, property *models.Property, author *models.CreatedBy) error {
	property.ApplyDefaults(s.now().UTC())
	property.Title = strings.TrimSpace(property.Title)
	if author != nil && author.AdminID != "" {
		property.CreatedBy = author
	}

	coll, err := s.collection(ctx)
	if err != nil {
		return err
	}
	if _, err := coll.InsertOne(ctx, property); err != nil {
		return fmt.Errorf("ошибка создания объекта: %w", err)
	}

	s.cache.invalidate(ctx)
	s.logger.WithFields(logrus.Fields{
		"property_id": property.ID.Hex(),
		"created_by":  attributionID(property.CreatedBy),
	}).Info("property created")
	return nil
}

// Вложенные документы, которые обновляются по отдельным полям
var mergedPropertyDocuments = map[string]struct{}{
	"price":    {},
	"location": {},
}

// Имя поля патча не может адресовать вложенный путь или оператор
func checkPatchField(field string) error {
	if field == "" || strings.Contains(field, ".") || strings.HasPrefix(field, "$") {
		return NewValidationError(field, "недопустимое имя поля")
	}
	return nil
}

// BuildPropertyUpdate формирует документ частичного обновления.
// price и location сливаются с сохраненными значениями по полям.
func BuildPropertyUpdate(patch map[string]interface{}, now time.Time) (bson.M, error) {
	set := bson.M{}
	for field, value := range patch {
		if err := checkPatchField(field); err != nil {
			return nil, err
		}
		if _, protected := protectedPropertyFields[field]; protected {
			continue
		}
		nested, isDoc := value.(map[string]interface{})
		if _, merged := mergedPropertyDocuments[field]; merged && isDoc {
			for key, v := range nested {
				if err := checkPatchField(key); err != nil {
					return nil, NewValidationError(field+"."+key, "недопустимое имя поля")
				}
				set[field+"."+key] = v
			}
			continue
		}
		set[field] = value
	}
	set["updated_at"] = now
	return bson.M{"$set": set}, nil
}

// Update применяет частичное обновление к объекту, видимому вызывающему
func (s *PropertyService) Update(ctx context.Context, scope Scope, id primitive.ObjectID, patch map[string]interface{}) error {
	update, err := BuildPropertyUpdate(patch, s.now().UTC())
	if err != nil {
		return err
	}
	filter := withID(BuildScopeFilter(scope, KindProperty, ScopeOptions{ShowArchived: true}), id)
	if err := s.updateOne(ctx, filter, update); err != nil {
		return err
	}
	s.cache.invalidate(ctx)
	return nil
}

// SoftDelete архивирует объект: is_active=false, запись остается доступной по id
func (s *PropertyService) SoftDelete(ctx context.Context, scope Scope, id primitive.ObjectID) error {
	return s.setActive(ctx, scope, id, false)
}

// Restore возвращает архивный объект в выдачу
func (s *PropertyService) Restore(ctx context.Context, scope Scope, id primitive.ObjectID) error {
	return s.setActive(ctx, scope, id, true)
}

func (s *PropertyService) setActive(ctx context.Context, scope Scope, id primitive.ObjectID, active bool) error {
	filter := withID(BuildScopeFilter(scope, KindProperty, ScopeOptions{ShowArchived: true}), id)
	update := bson.M{"$set": bson.M{"is_active": active, "updated_at": s.now().UTC()}}
	if err := s.updateOne(ctx, filter, update); err != nil {
		return err
	}

	s.cache.invalidate(ctx)
	s.logger.WithFields(logrus.Fields{
		"property_id": id.Hex(),
		"is_active":   active,
	}).Info("property activity changed")
	return nil
}

// BuildViewIncrement формирует атомарное увеличение счетчика просмотров
func BuildViewIncrement(now time.Time) bson.M {
	return bson.M{
		"$inc": bson.M{"views_count": 1},
		"$set": bson.M{"last_viewed_at": now},
	}
}

// IncrementViewCount учитывает просмотр активного объекта.
// Повторные просмотры не ограничиваются.
func (s *PropertyService) IncrementViewCount(ctx context.Context, id primitive.ObjectID) error {
	filter := withID(BuildScopeFilter(Scope{}, KindProperty, ScopeOptions{}), id)
	return s.updateOne(ctx, filter, BuildViewIncrement(s.now().UTC()))
}

func (s *PropertyService) updateOne(ctx context.Context, filter, update bson.M) error {
	coll, err := s.collection(ctx)
	if err != nil {
		return err
	}

	res, err := coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("ошибка обновления объекта: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// BulkReassignOwner передает объекты агенту target, сохраняя снимок его профиля на момент вызова.
// Частичное выполнение возвращается счетчиками, а не ошибкой.
func (s *PropertyService) BulkReassignOwner(ctx context.Context, scope Scope, ids []primitive.ObjectID, target *models.Admin) (*ReassignResult, error) {
	if len(ids) == 0 {
		return nil, NewValidationError("property_ids", "список пуст")
	}
	if target == nil {
		return nil, NewValidationError("target_admin_id", "обязательное поле")
	}

	filter := BuildScopeFilter(scope, KindProperty, ScopeOptions{ShowArchived: true})
	filter["_id"] = bson.M{"$in": ids}

	snapshot := target.Snapshot()
	update := bson.M{"$set": bson.M{
		"created_by": snapshot,
		"updated_at": s.now().UTC(),
	}}

	coll, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}
	res, err := coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return nil, fmt.Errorf("ошибка передачи объектов: %w", err)
	}

	result := &ReassignResult{
		Requested: len(ids),
		Matched:   res.MatchedCount,
		Modified:  res.ModifiedCount,
	}
	s.cache.invalidate(ctx)

	entry := s.logger.WithFields(logrus.Fields{
		"target_admin_id": snapshot.AdminID,
		"requested":       result.Requested,
		"modified":        result.Modified,
	})
	if result.Modified < int64(result.Requested) {
		entry.Warn("property reassignment partially applied")
	} else {
		entry.Info("properties reassigned")
	}
	return result, nil
}

func attributionID(c *models.CreatedBy) string {
	if c == nil {
		return ""
	}
	return c.AdminID
}
