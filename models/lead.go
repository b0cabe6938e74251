package models

import "time"

type Lead struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Company      string    `json:"company,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Source       string    `json:"source"`
	ProductID    string    `json:"productId,omitempty"`
	ProductTitle string    `json:"productTitle,omitempty"`
	Status       string    `json:"status"` // new, contacted, nurturing, converted
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CreateLeadRequest struct {
	Email        string `json:"email" binding:"required,email"`
	FirstName    string `json:"firstName" binding:"required,max=50"`
	LastName     string `json:"lastName" binding:"required,max=50"`
	Company      string `json:"company" binding:"max=100"`
	Phone        string `json:"phone" binding:"max=20"`
	Source       string `json:"source" binding:"required"`
	ProductID    string `json:"productId"`
	ProductTitle string `json:"productTitle"`
}

func IsValidLeadStatus(status string) bool {
	switch status {
	case "new", "contacted", "nurturing", "converted":
		return true
	default:
		return false
	}
}
