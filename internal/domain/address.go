package domain

import "time"

type AddressType string

const (
	AddressShipping AddressType = "shipping"
	AddressBilling  AddressType = "billing"
	AddressBoth     AddressType = "both"
)

// Address — почтовый адрес пользователя. У пользователя может быть
// несколько адресов, но только один с флагом is_default.
type Address struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	Label     string `json:"label"` // "Home", "Office", "Billing"
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company,omitempty"`

	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`

	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"` // Контакт получателя, может отличаться от email аккаунта

	Type      AddressType `json:"address_type"`
	IsDefault bool        `json:"is_default"`
	IsActive  bool        `json:"is_active"` // Деактивация вместо удаления

	DeliveryInstructions string `json:"delivery_instructions,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AddressUpdate struct {
	Label                *string      `json:"label,omitempty"`
	FirstName            *string      `json:"first_name,omitempty"`
	LastName             *string      `json:"last_name,omitempty"`
	Company              *string      `json:"company,omitempty"`
	AddressLine1         *string      `json:"address_line_1,omitempty"`
	AddressLine2         *string      `json:"address_line_2,omitempty"`
	City                 *string      `json:"city,omitempty"`
	State                *string      `json:"state,omitempty"`
	PostalCode           *string      `json:"postal_code,omitempty"`
	Country              *string      `json:"country,omitempty"`
	Phone                *string      `json:"phone,omitempty"`
	Email                *string      `json:"email,omitempty"`
	Type                 *AddressType `json:"address_type,omitempty"`
	IsDefault            *bool        `json:"is_default,omitempty"`
	DeliveryInstructions *string      `json:"delivery_instructions,omitempty"`
}
