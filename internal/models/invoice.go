package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InvoiceStatus is the invoice workflow state.
type InvoiceStatus string

const (
	InvoiceStatusCreated   InvoiceStatus = "created"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusReceived  InvoiceStatus = "received"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
	InvoiceStatusRejected  InvoiceStatus = "rejected"
)

// ValidInvoiceStatus reports whether s is a known workflow state.
func ValidInvoiceStatus(s InvoiceStatus) bool {
	switch s {
	case InvoiceStatusCreated, InvoiceStatusSent, InvoiceStatusReceived,
		InvoiceStatusPaid, InvoiceStatusCancelled, InvoiceStatusRejected:
		return true
	}
	return false
}

// Invoice is a billing document. TotalSum is always recomputed from the rows
// on write; invoices can only be edited or hard-deleted while still in the
// created state. Archive is a soft delete.
type Invoice struct {
	ID         string        `gorm:"primaryKey;size:36" json:"id"`
	CustomerID string        `gorm:"index;size:36;not null" json:"customer_id"`
	StartDate  time.Time     `json:"start_date"`
	EndDate    time.Time     `json:"end_date"`
	TotalSum   float64       `json:"total_sum"`
	Comment    string        `gorm:"size:1000" json:"comment"`
	Status     InvoiceStatus `gorm:"size:20;default:created;index" json:"status"`
	CreatedAt  time.Time     `gorm:"index" json:"created_at"`
	UpdatedAt  *time.Time    `json:"updated_at"`
	DeletedAt  *time.Time    `gorm:"index" json:"-"`

	Customer *Customer    `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Rows     []InvoiceRow `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"rows"`
}

func (Invoice) TableName() string { return "invoices" }

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Status == "" {
		i.Status = InvoiceStatusCreated
	}
	return nil
}

// RecalculateTotal sets TotalSum from the row sums.
func (i *Invoice) RecalculateTotal() {
	var total float64
	for _, r := range i.Rows {
		total += r.Sum
	}
	i.TotalSum = total
}

// InvoiceRow is a single service line on an invoice.
type InvoiceRow struct {
	ID        string  `gorm:"primaryKey;size:36" json:"id"`
	InvoiceID string  `gorm:"index;size:36;not null" json:"invoice_id"`
	Service   string  `gorm:"size:200;not null" json:"service"`
	Quantity  float64 `json:"quantity"`
	Amount    float64 `json:"amount"`
	Sum       float64 `json:"sum"`
}

func (InvoiceRow) TableName() string { return "invoice_rows" }

func (r *InvoiceRow) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
