package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DealStatusNew статус новой сделки
const DealStatusNew = "new"

// DealEvent произвольное событие сделки. Схема не фиксирована, сохраняется как есть.
type DealEvent map[string]interface{}

// Deal представляет сделку между покупателем и продавцом
type Deal struct {
	ID primitive.ObjectID `json:"id" bson:"_id,omitempty"`

	BuyerID    string `json:"buyer_id,omitempty" bson:"buyer_id,omitempty"`
	SellerID   string `json:"seller_id,omitempty" bson:"seller_id,omitempty"`
	PropertyID string `json:"property_id,omitempty" bson:"property_id,omitempty"`
	Status     string `json:"status" bson:"status"`

	// Журнал событий, только добавление
	Events []DealEvent `json:"events" bson:"events"`

	CreatedBy *CreatedBy `json:"created_by,omitempty" bson:"created_by,omitempty"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
}
