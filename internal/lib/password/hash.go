// Package password хэширует и проверяет пароли администраторов через bcrypt.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch возвращается, если пароль не соответствует хэшу.
var ErrMismatch = errors.New("password does not match")

// Cost — стоимость bcrypt, совпадает с хэшами, которые создаёт сидер.
const Cost = 10

// Hash возвращает bcrypt-хэш пароля.
func Hash(plain string) (string, error) {
	const op = "password.Hash"
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), Cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// Compare сравнивает сохранённый хэш с введённым паролем.
//
// Несовпадение возвращается как ErrMismatch, повреждённый хэш как обёрнутая ошибка bcrypt.
func Compare(hash, plain string) error {
	const op = "password.Compare"
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
