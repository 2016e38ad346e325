package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Схема тела запроса создания и обновления объекта.
// Обязательных полей нет: значения по умолчанию проставляет сервер.
const propertyPayloadSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"title": {"type": "string", "maxLength": 300},
		"description": {"type": "string"},
		"property_type": {"enum": ["apartment", "house", "commercial", "land"]},
		"transaction_type": {"enum": ["sale", "rent"]},
		"price": {
			"type": "object",
			"properties": {
				"amount": {"type": "number", "minimum": 0},
				"currency": {"type": "string", "minLength": 3, "maxLength": 3}
			}
		},
		"area": {"type": "number", "minimum": 0},
		"rooms": {"type": "integer", "minimum": 0},
		"floor": {"type": "integer"},
		"totalFloors": {"type": "integer", "minimum": 0},
		"location": {
			"type": "object",
			"properties": {
				"city": {"type": "string"},
				"address": {"type": "string"},
				"coordinates": {"type": ["object", "null"]}
			}
		},
		"features": {"type": "array", "items": {"type": "string"}},
		"images": {"type": "array", "items": {"type": "string"}},
		"is_featured": {"type": "boolean"},
		"is_active": {"type": "boolean"},
		"status": {"type": "string"}
	}
}`

var propertySchema = jsonschema.MustCompileString("property.json", propertyPayloadSchema)

// ValidatePropertyPayload проверяет JSON тела запроса по схеме объекта
func ValidatePropertyPayload(body []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var v interface{}
	if err := decoder.Decode(&v); err != nil {
		return NewValidationError("", "некорректный JSON: "+err.Error())
	}

	if err := propertySchema.Validate(v); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return NewValidationError(schemaField(ve), schemaMessage(ve))
		}
		return NewValidationError("", err.Error())
	}
	return nil
}

// schemaField возвращает путь к первому невалидному полю
func schemaField(ve *jsonschema.ValidationError) string {
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	return strings.TrimPrefix(strings.ReplaceAll(leaf.InstanceLocation, "/", "."), ".")
}

func schemaMessage(ve *jsonschema.ValidationError) string {
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	return leaf.Message
}
