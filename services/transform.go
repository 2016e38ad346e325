package services

import (
	"strings"

	"backend_realty/models"

	"github.com/mmcloughlin/geohash"
)

// Точность geohash публичного ответа (~150 м)
const publicGeohashPrecision = 7

// Допустимые префиксы ссылок на изображения
var allowedImagePrefixes = []string{"http://", "https://", "/"}

// ToPublicShape преобразует сохраненный объект в форму для публичного сайта
func ToPublicShape(p *models.Property) models.PublicProperty {
	public := models.PublicProperty{
		ID:              p.ID.Hex(),
		Title:           p.Title,
		Description:     p.Description,
		PropertyType:    p.PropertyType,
		TransactionType: p.TransactionType,
		Price:           p.Price,
		Area:            p.Area,
		Rooms:           p.Rooms,
		Floor:           p.Floor,
		TotalFloors:     p.TotalFloors,
		City:            p.Location.City,
		Address:         p.Location.Address,
		Features:        p.Features,
		Images:          FilterImageURLs(p.Images),
		IsFeatured:      p.IsFeatured,
		Status:          p.Status,
		ViewsCount:      p.ViewsCount,
		CreatedAt:       p.CreatedAt,
	}
	if public.Features == nil {
		public.Features = []string{}
	}

	if coords := ExtractCoordinates(p.Location.Coordinates); coords != nil {
		public.Coordinates = coords
		public.Geohash = geohash.EncodeWithPrecision(coords.Lat, coords.Lng, publicGeohashPrecision)
	}

	return public
}

// ToPublicShapes преобразует список объектов
func ToPublicShapes(properties []models.Property) []models.PublicProperty {
	result := make([]models.PublicProperty, 0, len(properties))
	for i := range properties {
		result = append(result, ToPublicShape(&properties[i]))
	}
	return result
}

// FilterImageURLs оставляет только абсолютные http(s) ссылки и пути от корня.
// Остальные значения молча отбрасываются.
func FilterImageURLs(images []string) []string {
	result := make([]string, 0, len(images))
	for _, image := range images {
		for _, prefix := range allowedImagePrefixes {
			if strings.HasPrefix(image, prefix) {
				result = append(result, image)
				break
			}
		}
	}
	return result
}

// ExtractCoordinates возвращает координаты только если заданы обе и обе числовые
func ExtractCoordinates(raw map[string]interface{}) *models.PublicCoordinates {
	if raw == nil {
		return nil
	}

	lat, ok := numericValue(firstPresent(raw, "lat", "latitude"))
	if !ok {
		return nil
	}
	lng, ok := numericValue(firstPresent(raw, "lng", "longitude"))
	if !ok {
		return nil
	}

	return &models.PublicCoordinates{Lat: lat, Lng: lng}
}

func firstPresent(raw map[string]interface{}, keys ...string) interface{} {
	for _, key := range keys {
		if value, exists := raw[key]; exists && value != nil {
			return value
		}
	}
	return nil
}

func numericValue(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
