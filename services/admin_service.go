package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"backend_realty/database"
	"backend_realty/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

// Минимальная длина пароля сотрудника
const minPasswordLength = 8

// Хэш для выравнивания времени ответа при неизвестном логине
var dummyPasswordHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password"), bcrypt.DefaultCost)

// AdminInput данные нового сотрудника
type AdminInput struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Login      string `json:"login"`
	Password   string `json:"password"`
	TelegramID string `json:"telegram_id"`
	Role       string `json:"role"`
}

// Validate проверяет данные нового сотрудника
func (in AdminInput) Validate() error {
	if strings.TrimSpace(in.FirstName) == "" {
		return NewValidationError("first_name", "обязательное поле")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return NewValidationError("email", "некорректный адрес")
	}
	if !models.IsValidRole(in.Role) {
		return NewValidationError("role", "допустимые значения: owner, admin, agent")
	}
	if in.Login != "" && len(in.Password) < minPasswordLength {
		return NewValidationError("password", fmt.Sprintf("не короче %d символов", minPasswordLength))
	}
	return nil
}

// AdminService репозиторий сотрудников CRM
type AdminService struct {
	db     DatabaseProvider
	logger *logrus.Logger
	now    func() time.Time
}

// NewAdminService создает новый экземпляр AdminService
func NewAdminService(db DatabaseProvider, logger *logrus.Logger) *AdminService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AdminService{db: db, logger: logger, now: time.Now}
}

func (s *AdminService) collection(ctx context.Context) (*mongo.Collection, error) {
	db, err := s.db.Database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(database.CollectionAdmins), nil
}

// Create сохраняет сотрудника, пароль хранится только в виде bcrypt-хэша
func (s *AdminService) Create(ctx context.Context, in AdminInput) (*models.Admin, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	admin := &models.Admin{
		ID:         primitive.NewObjectID(),
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		Email:      strings.ToLower(strings.TrimSpace(in.Email)),
		Login:      strings.TrimSpace(in.Login),
		TelegramID: strings.TrimSpace(in.TelegramID),
		Role:       in.Role,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if admin.Login != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("ошибка хэширования пароля: %w", err)
		}
		admin.PasswordHash = string(hash)
	}

	coll, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := coll.InsertOne(ctx, admin); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, NewValidationError("login", "логин или email уже используется")
		}
		return nil, fmt.Errorf("ошибка создания сотрудника: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"admin_id": admin.ID.Hex(),
		"role":     admin.Role,
	}).Info("admin created")
	return admin, nil
}

// List возвращает сотрудников, role сужает выборку
func (s *AdminService) List(ctx context.Context, role string) ([]models.Admin, error) {
	coll, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}

	filter := bson.M{}
	if role != "" {
		filter["role"] = role
	}
	opts := options.Find().SetSort(bson.D{{Key: "last_name", Value: 1}, {Key: "first_name", Value: 1}})

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения сотрудников: %w", err)
	}
	defer cursor.Close(ctx)

	admins := []models.Admin{}
	if err := cursor.All(ctx, &admins); err != nil {
		return nil, fmt.Errorf("ошибка чтения сотрудников: %w", err)
	}
	return admins, nil
}

// Get возвращает сотрудника по id
func (s *AdminService) Get(ctx context.Context, id primitive.ObjectID) (*models.Admin, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByHex возвращает сотрудника по строковому id
func (s *AdminService) GetByHex(ctx context.Context, id string) (*models.Admin, error) {
	oid, err := ParseObjectID(id)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, oid)
}

func (s *AdminService) findOne(ctx context.Context, filter bson.M) (*models.Admin, error) {
	coll, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}

	var admin models.Admin
	if err := coll.FindOne(ctx, filter).Decode(&admin); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения сотрудника: %w", err)
	}
	return &admin, nil
}

// Authenticate проверяет логин и пароль сотрудника
func (s *AdminService) Authenticate(ctx context.Context, login, password string) (*models.Admin, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	admin, err := s.findOne(ctx, bson.M{"login": login})
	if errors.Is(err, ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyPasswordHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if admin.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		s.logger.WithField("login", login).Warn("failed login attempt")
		return nil, ErrInvalidCredentials
	}
	return admin, nil
}
