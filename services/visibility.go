package services

import (
	"backend_realty/models"

	"go.mongodb.org/mongo-driver/bson"
)

// RecordKind тип записей, к которым применяется область видимости
type RecordKind string

const (
	KindProperty      RecordKind = "property"
	KindClient        RecordKind = "client"
	KindDeal          RecordKind = "deal"
	KindCalendarEvent RecordKind = "calendar_event"
)

// Scope роль и идентификатор вызывающего.
// Пустая роль или пустой идентификатор дают фильтр без ограничения по автору.
type Scope struct {
	Role    string
	AdminID string
}

// IsAgent сообщает, ограничена ли видимость записями самого агента
func (s Scope) IsAgent() bool {
	return s.Role == models.RoleAgent && s.AdminID != ""
}

// ScopeOptions дополнительные условия фильтра
type ScopeOptions struct {
	// ShowArchived включает архивные объекты (is_active=false)
	ShowArchived bool
	// AgentID явный запрос записей конкретного агента (для owner/admin)
	AgentID string
	// Category тип клиента или статус сделки
	Category string
}

// Поле автора записи
const attributionField = "created_by.admin_id"

// BuildScopeFilter формирует фильтр запроса по роли и идентификатору вызывающего
func BuildScopeFilter(scope Scope, kind RecordKind, opts ScopeOptions) bson.M {
	filter := bson.M{}

	if kind == KindProperty && !opts.ShowArchived {
		// Документы без поля is_active считаются активными
		filter["is_active"] = bson.M{"$ne": false}
	}

	switch {
	case scope.IsAgent():
		filter[attributionField] = scope.AdminID
	case opts.AgentID != "":
		filter[attributionField] = opts.AgentID
	}

	if opts.Category != "" {
		switch kind {
		case KindClient:
			filter["type"] = opts.Category
		case KindDeal:
			filter["status"] = opts.Category
		}
	}

	return filter
}

// withID добавляет к фильтру видимости условие по _id
func withID(filter bson.M, id interface{}) bson.M {
	filter["_id"] = id
	return filter
}
