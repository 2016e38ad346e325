package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Роли сотрудников CRM
const (
	RoleOwner = "owner"
	RoleAdmin = "admin"
	RoleAgent = "agent"
)

// IsValidRole проверяет, что роль известна системе
func IsValidRole(role string) bool {
	switch role {
	case RoleOwner, RoleAdmin, RoleAgent:
		return true
	}
	return false
}

// Admin представляет сотрудника CRM (владелец, администратор или агент)
type Admin struct {
	ID primitive.ObjectID `json:"id" bson:"_id,omitempty"`

	FirstName string `json:"first_name" bson:"first_name"`
	LastName  string `json:"last_name" bson:"last_name"`
	Email     string `json:"email" bson:"email"`

	// Вход в CRM
	Login        string `json:"login,omitempty" bson:"login,omitempty"`
	PasswordHash string `json:"-" bson:"password_hash,omitempty"` // Хэш не возвращается в JSON

	TelegramID string `json:"telegram_id,omitempty" bson:"telegram_id,omitempty"`
	Role       string `json:"role" bson:"role"` // owner, admin, agent

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// FullName возвращает имя и фамилию сотрудника
func (a *Admin) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Snapshot возвращает денормализованную атрибуцию на момент вызова
func (a *Admin) Snapshot() CreatedBy {
	return CreatedBy{
		AdminID: a.ID.Hex(),
		Name:    a.FullName(),
		Email:   a.Email,
		Role:    a.Role,
	}
}

// CreatedBy денормализованный снимок сотрудника, создавшего запись
type CreatedBy struct {
	AdminID string `json:"admin_id" bson:"admin_id"`
	Name    string `json:"name,omitempty" bson:"name,omitempty"`
	Email   string `json:"email,omitempty" bson:"email,omitempty"`
	Role    string `json:"role,omitempty" bson:"role,omitempty"`
}
