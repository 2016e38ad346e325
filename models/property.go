package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Типы недвижимости
const (
	PropertyTypeApartment  = "apartment"
	PropertyTypeHouse      = "house"
	PropertyTypeCommercial = "commercial"
	PropertyTypeLand       = "land"
)

// Типы сделки
const (
	TransactionSale = "sale"
	TransactionRent = "rent"
)

// PropertyStatusPendingReview статус нового объекта по умолчанию (информационный)
const PropertyStatusPendingReview = "pending_review"

// Price цена объекта, валюта передается как есть
type Price struct {
	Amount   float64 `json:"amount" bson:"amount"`
	Currency string  `json:"currency" bson:"currency"`
}

// Location местоположение объекта.
// Coordinates хранятся как есть ({lat, lng}), проверяются при формировании публичного ответа.
type Location struct {
	City        string                 `json:"city" bson:"city"`
	Address     string                 `json:"address" bson:"address"`
	Coordinates map[string]interface{} `json:"coordinates,omitempty" bson:"coordinates,omitempty"`
}

// Property представляет объект недвижимости
type Property struct {
	ID primitive.ObjectID `json:"id" bson:"_id,omitempty"`

	// Основные поля
	Title           string `json:"title" bson:"title"`
	Description     string `json:"description" bson:"description"`
	PropertyType    string `json:"property_type" bson:"property_type"`       // apartment, house, commercial, land
	TransactionType string `json:"transaction_type" bson:"transaction_type"` // sale, rent

	// Характеристики
	Price       Price    `json:"price" bson:"price"`
	Area        float64  `json:"area" bson:"area"`
	Rooms       int      `json:"rooms" bson:"rooms"`
	Floor       int      `json:"floor" bson:"floor"`
	TotalFloors int      `json:"totalFloors" bson:"totalFloors"`
	Location    Location `json:"location" bson:"location"`
	Features    []string `json:"features" bson:"features"`
	Images      []string `json:"images" bson:"images"`

	// Статус и публикация
	IsActive   bool   `json:"is_active" bson:"is_active"`
	IsFeatured bool   `json:"is_featured" bson:"is_featured"`
	Status     string `json:"status" bson:"status"`

	// Просмотры
	ViewsCount   int64      `json:"views_count" bson:"views_count"`
	LastViewedAt *time.Time `json:"last_viewed_at,omitempty" bson:"last_viewed_at,omitempty"`

	CreatedBy *CreatedBy `json:"created_by,omitempty" bson:"created_by,omitempty"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
}

// ApplyDefaults заполняет значения по умолчанию для нового объекта
func (p *Property) ApplyDefaults(now time.Time) {
	p.ID = primitive.NewObjectID()
	p.IsActive = true
	p.ViewsCount = 0
	p.LastViewedAt = nil
	if p.Status == "" {
		p.Status = PropertyStatusPendingReview
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Features == nil {
		p.Features = []string{}
	}
	p.CreatedAt = now
	p.UpdatedAt = now
}

// PublicCoordinates проверенные координаты публичного ответа
type PublicCoordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PublicProperty объект в форме для публичного сайта
type PublicProperty struct {
	ID              string             `json:"id"`
	Title           string             `json:"title"`
	Description     string             `json:"description"`
	PropertyType    string             `json:"property_type"`
	TransactionType string             `json:"transaction_type"`
	Price           Price              `json:"price"`
	Area            float64            `json:"area"`
	Rooms           int                `json:"rooms"`
	Floor           int                `json:"floor"`
	TotalFloors     int                `json:"totalFloors"`
	City            string             `json:"city"`
	Address         string             `json:"address"`
	Coordinates     *PublicCoordinates `json:"coordinates"`
	Geohash         string             `json:"geohash,omitempty"`
	Features        []string           `json:"features"`
	Images          []string           `json:"images"`
	IsFeatured      bool               `json:"is_featured"`
	Status          string             `json:"status"`
	ViewsCount      int64              `json:"views_count"`
	CreatedAt       time.Time          `json:"created_at"`
}
