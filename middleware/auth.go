package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"backend_realty/models"
	"backend_realty/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Ключи контекста запроса
const (
	ContextClaimsKey = "claims"
	ContextTokenKey  = "token"
)

// ErrTokenMissing в запросе нет токена
var ErrTokenMissing = errors.New("authorization header is required")

// Claims данные сотрудника в токене CRM
type Claims struct {
	AdminID string `json:"admin_id"`
	Role    string `json:"role"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer выпускает и проверяет токены сотрудников
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenIssuer создает новый экземпляр TokenIssuer
func NewTokenIssuer(secret string, ttl time.Duration, issuer string) *TokenIssuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		now:    time.Now,
	}
}

// Enabled сообщает, задан ли секрет подписи
func (ti *TokenIssuer) Enabled() bool {
	return ti != nil && len(ti.secret) > 0
}

// Issue подписывает токен для сотрудника
func (ti *TokenIssuer) Issue(admin *models.Admin) (string, time.Time, error) {
	if !ti.Enabled() {
		return "", time.Time{}, errors.New("token signing is not configured")
	}

	now := ti.now()
	expiresAt := now.Add(ti.ttl)
	claims := Claims{
		AdminID: admin.ID.Hex(),
		Role:    admin.Role,
		Name:    admin.FullName(),
		Email:   admin.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ti.issuer,
			Subject:   admin.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse проверяет подпись, срок действия и издателя токена
func (ti *TokenIssuer) Parse(tokenString string) (*Claims, error) {
	if !ti.Enabled() {
		return nil, errors.New("token signing is not configured")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ti.now),
	}
	if ti.issuer != "" {
		opts = append(opts, jwt.WithIssuer(ti.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return ti.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if claims.AdminID == "" || !models.IsValidRole(claims.Role) {
		return nil, errors.New("token has no valid admin identity")
	}
	return claims, nil
}

// AuthMiddleware проверяет токены сотрудников CRM
type AuthMiddleware struct {
	tokens   *TokenIssuer
	required bool
}

// NewAuthMiddleware создает новый экземпляр AuthMiddleware.
// required=false оставляет доступ по параметрам role/admin_id без токена.
func NewAuthMiddleware(tokens *TokenIssuer, required bool) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, required: required}
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	switch {
	case strings.HasPrefix(authHeader, "Bearer "):
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	case strings.HasPrefix(authHeader, "Token "):
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Token "))
	}
	return strings.TrimSpace(authHeader)
}

func (am *AuthMiddleware) authenticate(c *gin.Context) (*Claims, error) {
	token := extractToken(c)
	if token == "" {
		return nil, ErrTokenMissing
	}

	claims, err := am.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	c.Set(ContextClaimsKey, claims)
	c.Set(ContextTokenKey, token)
	return claims, nil
}

// RequireAuth отклоняет запросы без действительного токена
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := am.authenticate(c); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"status": "error",
				"error":  "Invalid or expired token",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalAuth сохраняет данные токена, если он действителен
func (am *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, err := am.authenticate(c)
		if err != nil && !errors.Is(err, ErrTokenMissing) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"status": "error",
				"error":  "Invalid or expired token",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// CRM выбирает RequireAuth или OptionalAuth по настройке AUTH_REQUIRED
func (am *AuthMiddleware) CRM() gin.HandlerFunc {
	if am.required {
		return am.RequireAuth()
	}
	return am.OptionalAuth()
}

// GetClaims возвращает данные токена текущего запроса
func GetClaims(c *gin.Context) *Claims {
	if value, exists := c.Get(ContextClaimsKey); exists {
		if claims, ok := value.(*Claims); ok {
			return claims
		}
	}
	return nil
}

// GetCurrentToken возвращает текущий токен из контекста
func GetCurrentToken(c *gin.Context) string {
	return c.GetString(ContextTokenKey)
}

// ResolveScope определяет область видимости вызывающего.
// Данные токена имеют приоритет, иначе используются параметры role и admin_id.
func ResolveScope(c *gin.Context) services.Scope {
	if claims := GetClaims(c); claims != nil {
		return services.Scope{Role: claims.Role, AdminID: claims.AdminID}
	}
	return services.Scope{
		Role:    strings.TrimSpace(c.Query("role")),
		AdminID: strings.TrimSpace(c.Query("admin_id")),
	}
}

// RequireRole пропускает только вызывающих с одной из ролей
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := allowed[ResolveScope(c).Role]; !ok {
			c.JSON(http.StatusForbidden, gin.H{
				"status": "error",
				"error":  "Insufficient permissions",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
