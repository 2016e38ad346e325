package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CalendarEvent встреча или напоминание в календаре агента
type CalendarEvent struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	StartDate   time.Time          `json:"start_date" bson:"start_date"`
	EndDate     *time.Time         `json:"end_date,omitempty" bson:"end_date,omitempty"`

	ClientID   string `json:"client_id,omitempty" bson:"client_id,omitempty"`
	DealID     string `json:"deal_id,omitempty" bson:"deal_id,omitempty"`
	PropertyID string `json:"property_id,omitempty" bson:"property_id,omitempty"`

	CreatedBy *CreatedBy `json:"created_by,omitempty" bson:"created_by,omitempty"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
}
