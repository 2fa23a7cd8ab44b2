package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Допустимые сегменты POS, в рамках которых существуют тарифные планы.
const (
	PosRestaurant = "restaurant"
	PosArtist     = "artist"
	PosBusiness   = "business"
	PosSalon      = "salon"
	PosBakery     = "bakery"
	PosHealthcare = "healthcare"
	PosEducation  = "education"
)

// PosTypes задаёт белый список значений posType.
var PosTypes = []string{
	PosRestaurant,
	PosArtist,
	PosBusiness,
	PosSalon,
	PosBakery,
	PosHealthcare,
	PosEducation,
}

// Периоды оплаты тарифного плана.
const (
	BillingMonthly   = "monthly"
	BillingQuarterly = "quarterly"
	BillingYearly    = "yearly"
	BillingLifetime  = "lifetime"
)

// IsPosType сообщает, входит ли значение в белый список posType.
func IsPosType(v string) bool {
	for _, p := range PosTypes {
		if p == v {
			return true
		}
	}
	return false
}

// Plan — тарифный план, привязанный к сегменту POS.
// YearlyPrice равен nil для бессрочных (lifetime) планов.
type Plan struct {
	ID               string    `json:"id"`
	Slug             string    `json:"slug"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Currency         string    `json:"currency"`
	MonthlyPrice     float64   `json:"monthlyPrice"`
	YearlyPrice      *float64  `json:"yearlyPrice"`
	PosType          string    `json:"posType"`
	BillingCycle     string    `json:"billingCycle"`
	Active           bool      `json:"active"`
	TransactionLimit *int      `json:"transactionLimit"`
	UserLimit        *int      `json:"userLimit"`
	StorageLimit     *int      `json:"storageLimit"`
	SupportLevel     string    `json:"supportLevel"`
	Features         []Feature `json:"features"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Feature описывает строку списка возможностей плана.
type Feature struct {
	ID          string `json:"id"`
	PlanID      string `json:"planId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// FeatureInput принимает возможность плана либо строкой, либо объектом
// {"name": "...", "description": "..."}.
type FeatureInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// UnmarshalJSON поддерживает обе формы записи возможности.
func (f *FeatureInput) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		f.Name = name
		return nil
	}
	type plain FeatureInput
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("feature must be a string or an object: %w", err)
	}
	*f = FeatureInput(obj)
	return nil
}

// CreatePlanRequest описывает тело запроса на создание плана.
type CreatePlanRequest struct {
	Name             string         `json:"name" validate:"required"`
	Price            *float64       `json:"price" validate:"required,gte=0"`
	PosType          string         `json:"posType" validate:"required"`
	BillingCycle     string         `json:"billingCycle"`
	Description      string         `json:"description"`
	Currency         string         `json:"currency"`
	Active           *bool          `json:"active"`
	TransactionLimit *int           `json:"transactionLimit"`
	UserLimit        *int           `json:"userLimit"`
	StorageLimit     *int           `json:"storageLimit"`
	SupportLevel     string         `json:"supportLevel"`
	Features         []FeatureInput `json:"features"`
}

// UpdatePlanRequest описывает частичное обновление плана: применяются только переданные поля.
type UpdatePlanRequest struct {
	Name             *string         `json:"name"`
	Price            *float64        `json:"price" validate:"omitempty,gte=0"`
	PosType          *string         `json:"posType"`
	BillingCycle     *string         `json:"billingCycle"`
	Description      *string         `json:"description"`
	Currency         *string         `json:"currency"`
	Active           *bool           `json:"active"`
	TransactionLimit *int            `json:"transactionLimit"`
	UserLimit        *int            `json:"userLimit"`
	StorageLimit     *int            `json:"storageLimit"`
	SupportLevel     *string         `json:"supportLevel"`
	Features         *[]FeatureInput `json:"features"`
}

// ClonePlanRequest описывает тело запроса на клонирование плана в другой сегмент.
type ClonePlanRequest struct {
	TargetPosType string `json:"targetPosType" validate:"required"`
}

// PlanChanges задаёт набор колонок для частичного обновления в хранилище.
type PlanChanges struct {
	Fields   map[string]any
	Features *[]FeatureInput
}
