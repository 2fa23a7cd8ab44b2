// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков: успешный ответ
// {"success": true, ...}, ошибка {"success": false, "message": "..."}.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/easytomanagexyz/admin-backend/internal/storage/repository"
)

// Payload — поля успешного ответа.
type Payload map[string]any

// ErrorResponse описывает JSON‑ответ с ошибкой.
// Используется в аннотациях @Failure как возвращаемый тип ошибки.
type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Message string `json:"message" example:"invalid request body"`
}

// Сообщения для ошибок хранилища и непредвиденных ошибок.
const (
	MsgNotFound   = "not found"
	MsgConflict   = "already exists"
	MsgReferenced = "resource is still referenced"
	MsgInternal   = "internal server error"
)

// OK добавляет к полям ответа success=true.
func OK(p Payload) Payload {
	if p == nil {
		p = Payload{}
	}
	p["success"] = true
	return p
}

// Error возвращает ответ с ошибкой и переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{Message: msg}
}

// WriteError пишет ответ с ошибкой и HTTP-статусом.
func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, Error(msg))
}

// RepositoryError сопоставляет ошибку хранилища HTTP-статусу и безопасному сообщению.
// Текст исходной ошибки клиенту не возвращается.
func RepositoryError(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, MsgNotFound
	case errors.Is(err, repository.ErrAlreadyExists):
		return http.StatusConflict, MsgConflict
	case errors.Is(err, repository.ErrReferenced):
		return http.StatusConflict, MsgReferenced
	default:
		return http.StatusInternalServerError, MsgInternal
	}
}

// ValidationError формирует ответ на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) ErrorResponse {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at least %s characters", err.Field(), err.Param()))
		case "gte":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be greater than or equal to %s", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Error(strings.Join(errsMsgs, ", "))
}

// Decode разбирает JSON-тело запроса и проверяет его валидатором.
// При ошибке ответ клиенту уже записан, а ошибка возвращается для лога.
func Decode(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) error {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return fmt.Errorf("decode body: %w", err)
	}
	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ValidationError(verrs))
		} else {
			WriteError(w, r, http.StatusBadRequest, "invalid request body")
		}
		return fmt.Errorf("validate body: %w", err)
	}
	return nil
}
