package services

import (
	"time"

	"github.com/invoicemenecer/api/internal/models"
	"github.com/invoicemenecer/api/pkg/response"
	"gorm.io/gorm"
)

// Row operations address single invoice lines without replacing the whole
// invoice. The same rule as for invoice edits applies: rows can only change
// while the invoice is still in the created state, and the invoice total is
// recomputed on every mutation.

// ListRows returns the rows of one non-archived invoice.
func (s *InvoiceService) ListRows(invoiceID string) ([]models.InvoiceRow, error) {
	if _, err := s.GetByID(invoiceID); err != nil {
		return nil, err
	}

	var rows []models.InvoiceRow
	if err := s.db.Where("invoice_id = ?", invoiceID).Find(&rows).Error; err != nil {
		return nil, response.NewServerError("failed to list invoice rows")
	}
	return rows, nil
}

// GetRow returns a single row by its id.
func (s *InvoiceService) GetRow(rowID string) (*models.InvoiceRow, error) {
	var row models.InvoiceRow
	err := s.db.Where("id = ?", rowID).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, response.NewNotFound("invoice row not found")
		}
		return nil, response.NewServerError("failed to load invoice row")
	}
	return &row, nil
}

// AddRow appends a row to an invoice still in the created state and updates
// the invoice total.
func (s *InvoiceService) AddRow(invoiceID string, req *InvoiceRowRequest) (*models.InvoiceRow, error) {
	invoice, err := s.GetByID(invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status != models.InvoiceStatusCreated {
		return nil, response.NewConflict("only invoices in the created state can receive rows")
	}

	row := models.InvoiceRow{
		InvoiceID: invoiceID,
		Service:   req.Service,
		Quantity:  req.Quantity,
		Amount:    req.Amount,
		Sum:       req.Quantity * req.Amount,
	}

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return recalculateInvoiceTotal(tx, invoice)
	})
	if txErr != nil {
		return nil, response.NewServerError("failed to add invoice row")
	}
	return &row, nil
}

// UpdateRow replaces a row's fields and updates the invoice total.
func (s *InvoiceService) UpdateRow(rowID string, req *InvoiceRowRequest) (*models.InvoiceRow, error) {
	row, err := s.GetRow(rowID)
	if err != nil {
		return nil, err
	}
	invoice, err := s.rowInvoiceForEdit(row)
	if err != nil {
		return nil, err
	}

	row.Service = req.Service
	row.Quantity = req.Quantity
	row.Amount = req.Amount
	row.Sum = req.Quantity * req.Amount

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(row).Error; err != nil {
			return err
		}
		return recalculateInvoiceTotal(tx, invoice)
	})
	if txErr != nil {
		return nil, response.NewServerError("failed to update invoice row")
	}
	return row, nil
}

// DeleteRow removes a row and updates the invoice total.
func (s *InvoiceService) DeleteRow(rowID string) error {
	row, err := s.GetRow(rowID)
	if err != nil {
		return err
	}
	invoice, err := s.rowInvoiceForEdit(row)
	if err != nil {
		return err
	}

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(row).Error; err != nil {
			return err
		}
		return recalculateInvoiceTotal(tx, invoice)
	})
	if txErr != nil {
		return response.NewServerError("failed to delete invoice row")
	}
	return nil
}

// rowInvoiceForEdit loads the row's parent invoice and rejects the mutation
// when the invoice is archived or has left the created state.
func (s *InvoiceService) rowInvoiceForEdit(row *models.InvoiceRow) (*models.Invoice, error) {
	invoice, err := s.GetByID(row.InvoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status != models.InvoiceStatusCreated {
		return nil, response.NewConflict("only rows of invoices in the created state can be changed")
	}
	return invoice, nil
}

// recalculateInvoiceTotal re-reads the invoice's rows inside the transaction
// and persists the fresh total.
func recalculateInvoiceTotal(tx *gorm.DB, invoice *models.Invoice) error {
	var rows []models.InvoiceRow
	if err := tx.Where("invoice_id = ?", invoice.ID).Find(&rows).Error; err != nil {
		return err
	}

	now := time.Now()
	invoice.Rows = rows
	invoice.RecalculateTotal()

	return tx.Model(&models.Invoice{}).
		Where("id = ?", invoice.ID).
		Updates(map[string]interface{}{
			"total_sum":  invoice.TotalSum,
			"updated_at": now,
		}).Error
}
