// Package jwt выпускает и проверяет подписанные токены администраторов.
//
// Maker описывает выпуск токена с id, email и ролью администратора и его разбор.
// MakerImpl подписывает токены HS256 общим секретом и ограничивает их TTL.
package jwt

import (
	"time"
)

// DefaultTTL — срок жизни токена администратора.
const DefaultTTL = 7 * 24 * time.Hour

// Maker описывает интерфейс для генерации и парсинга JWT токенов.
type Maker interface {
	GenerateToken(id, email, role string) (string, error)
	ParseToken(tokenStr string) (*Claims, error)
}

// MakerImpl реализует Maker с использованием секретного ключа и TTL.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewJWTMaker создаёт MakerImpl. Нулевой ttl заменяется на DefaultTTL.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
		now:       time.Now,
	}
}
