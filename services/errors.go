package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound запись не найдена или невидима для вызывающего
var ErrNotFound = errors.New("record not found")

// ErrInvalidCredentials неверный логин или пароль
var ErrInvalidCredentials = errors.New("invalid login or password")

// ValidationError ошибка входных данных, побочных эффектов не было
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError создает ошибку валидации поля
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsNotFound проверяет, что ошибка означает отсутствие записи
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, mongo.ErrNoDocuments)
}

// IsValidation проверяет, что ошибка является ошибкой валидации
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// DatabaseProvider выдает дескриптор базы данных из общего пула
type DatabaseProvider interface {
	Database(ctx context.Context) (*mongo.Database, error)
}
