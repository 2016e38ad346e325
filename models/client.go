package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Классификация клиентов
const (
	ClientTypeBuyer  = "buyer"
	ClientTypeSeller = "seller"
)

// Client представляет клиента CRM
type Client struct {
	ID   primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Type string             `json:"type" bson:"type"` // buyer, seller

	// Контактные данные
	FirstName string `json:"first_name" bson:"first_name"`
	LastName  string `json:"last_name" bson:"last_name"`
	Phone     string `json:"phone" bson:"phone"`
	Email     string `json:"email,omitempty" bson:"email,omitempty"`
	Notes     string `json:"notes,omitempty" bson:"notes,omitempty"`

	CreatedBy *CreatedBy `json:"created_by,omitempty" bson:"created_by,omitempty"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
}
