package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer is a billing counterparty. Deletion is a soft archive so
// historical invoices keep a valid reference.
type Customer struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Name        string     `gorm:"size:200;not null;index" json:"name"`
	Address     string     `gorm:"size:500" json:"address,omitempty"`
	Email       string     `gorm:"size:255;not null" json:"email"`
	PhoneNumber string     `gorm:"size:50" json:"phone_number,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
	DeletedAt   *time.Time `gorm:"index" json:"-"`

	Invoices []Invoice `gorm:"foreignKey:CustomerID" json:"invoices,omitempty"`
}

func (Customer) TableName() string { return "customers" }

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
