package services

import (
	"context"

	"backend_realty/models"
)

// DealNotifier получает события сделок после их сохранения
type DealNotifier interface {
	DealEventAppended(ctx context.Context, deal *models.Deal, event models.DealEvent) error
}

// NoopNotifier используется, когда уведомления отключены
type NoopNotifier struct{}

// DealEventAppended ничего не делает
func (NoopNotifier) DealEventAppended(context.Context, *models.Deal, models.DealEvent) error {
	return nil
}
