package models

import "time"

// Статусы подписки тенанта. Аналитика учитывает только StatusActive.
const (
	StatusActive    = "active"
	StatusTrial     = "trial"
	StatusPastDue   = "past_due"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
)

// SubscriptionStatuses перечисляет допустимые значения статуса подписки.
var SubscriptionStatuses = []string{StatusActive, StatusTrial, StatusPastDue, StatusCancelled, StatusExpired}

// IsSubscriptionStatus сообщает, является ли значение допустимым статусом подписки.
func IsSubscriptionStatus(v string) bool {
	for _, s := range SubscriptionStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Tenant — клиент платформы (например, ресторан) с собственной изолированной базой.
// Пароль от базы тенанта не сериализуется в ответах админских маршрутов.
type Tenant struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	RestaurantID  string         `json:"restaurantId"`
	DBName        string         `json:"dbName"`
	DBUser        string         `json:"dbUser"`
	DBPassword    string         `json:"-"`
	UseRedis      bool           `json:"useRedis"`
	Plan          string         `json:"plan"`
	Country       string         `json:"country"`
	City          string         `json:"city"`
	State         string         `json:"state"`
	Phone         string         `json:"phone"`
	CreatedAt     time.Time      `json:"createdAt"`
	Subscriptions []Subscription `json:"subscriptions"`
}

// Subscription описывает подписку тенанта.
type Subscription struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenantId"`
	Status    string     `json:"status"`
	ExpiresAt *time.Time `json:"expiresAt"`
	CreatedAt time.Time  `json:"createdAt"`
}

// TenantConnection содержит данные подключения к базе тенанта, которые получает POS-бэкенд.
type TenantConnection struct {
	ID           string `json:"id"`
	RestaurantID string `json:"restaurantId"`
	Email        string `json:"email"`
	DBName       string `json:"dbName"`
	DBUser       string `json:"dbUser"`
	DBPassword   string `json:"dbPassword"`
	UseRedis     bool   `json:"useRedis"`
	Country      string `json:"country"`
	City         string `json:"city"`
	Phone        string `json:"phone"`
}

// Connection возвращает данные подключения тенанта.
func (t *Tenant) Connection() TenantConnection {
	return TenantConnection{
		ID:           t.ID,
		RestaurantID: t.RestaurantID,
		Email:        t.Email,
		DBName:       t.DBName,
		DBUser:       t.DBUser,
		DBPassword:   t.DBPassword,
		UseRedis:     t.UseRedis,
		Country:      t.Country,
		City:         t.City,
		Phone:        t.Phone,
	}
}

// TenantSignupRequest описывает тело запроса на регистрацию тенанта со стороны клиентского продукта.
type TenantSignupRequest struct {
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	RestaurantID string `json:"restaurantId" validate:"required"`
	DBName       string `json:"dbName" validate:"required"`
	DBUser       string `json:"dbUser" validate:"required"`
	DBPassword   string `json:"dbPassword" validate:"required"`
	UseRedis     bool   `json:"useRedis"`
	Plan         string `json:"plan"`
	Country      string `json:"country"`
	City         string `json:"city"`
	State        string `json:"state"`
	Phone        string `json:"phone"`
}

// UpdateTenantRequest описывает частичное обновление тенанта администратором.
//
// SubscriptionStatus и ExpiryDate применяются к подписке SubscriptionID,
// а если он не указан, к первой подписке тенанта.
type UpdateTenantRequest struct {
	Name               *string `json:"name"`
	Email              *string `json:"email" validate:"omitempty,email"`
	Plan               *string `json:"plan"`
	Country            *string `json:"country"`
	City               *string `json:"city"`
	State              *string `json:"state"`
	Phone              *string `json:"phone"`
	UseRedis           *bool   `json:"useRedis"`
	SubscriptionID     *string `json:"subscriptionId"`
	SubscriptionStatus *string `json:"subscriptionStatus"`
	ExpiryDate         *string `json:"expiryDate"`
}

// SubscriptionPatch содержит изменения подписки, уже прошедшие разбор и валидацию.
type SubscriptionPatch struct {
	Status    *string
	ExpiresAt *time.Time
}

// TenantFilter задаёт параметры фильтрации и пагинации списка тенантов.
type TenantFilter struct {
	PosType string
	Query   string
	Page    int
	Limit   int
}

// PageMeta содержит метаданные пагинации списка.
type PageMeta struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// TenantPage содержит страницу списка тенантов.
type TenantPage struct {
	Data []Tenant `json:"data"`
	Meta PageMeta `json:"meta"`
}

// TenantChanges задаёт набор изменений тенанта для хранилища.
// SubscriptionID пуст, если изменения подписки относятся к первой подписке тенанта.
type TenantChanges struct {
	Fields         map[string]any
	SubscriptionID string
	Subscription   *SubscriptionPatch
}
