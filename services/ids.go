package services

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ParseObjectID разбирает идентификатор записи из запроса
func ParseObjectID(id string) (primitive.ObjectID, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return primitive.NilObjectID, NewValidationError("id", "обязательное поле")
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, NewValidationError("id", "некорректный идентификатор")
	}
	return oid, nil
}

// ParseObjectIDs разбирает список идентификаторов, пропуская дубликаты
func ParseObjectIDs(ids []string) ([]primitive.ObjectID, error) {
	if len(ids) == 0 {
		return nil, NewValidationError("ids", "список пуст")
	}

	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	result := make([]primitive.ObjectID, 0, len(ids))
	for _, raw := range ids {
		oid, err := ParseObjectID(raw)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[oid]; ok {
			continue
		}
		seen[oid] = struct{}{}
		result = append(result, oid)
	}
	return result, nil
}
