package services

import (
	"strings"
	"time"

	"github.com/invoicemenecer/api/internal/models"
	"github.com/invoicemenecer/api/pkg/response"
	"gorm.io/gorm"
)

type InvoiceService struct {
	db *gorm.DB
}

func NewInvoiceService(db *gorm.DB) *InvoiceService {
	return &InvoiceService{db: db}
}

type InvoiceListRequest struct {
	Page          int        `form:"page"`
	Size          int        `form:"size"`
	Sort          string     `form:"sort"`
	SortDirection string     `form:"sort_direction"`
	CustomerID    string     `form:"customer_id"`
	Status        string     `form:"status"`
	StartDateFrom *time.Time `form:"start_date_from" time_format:"2006-01-02"`
	StartDateTo   *time.Time `form:"start_date_to" time_format:"2006-01-02"`
	EndDateFrom   *time.Time `form:"end_date_from" time_format:"2006-01-02"`
	EndDateTo     *time.Time `form:"end_date_to" time_format:"2006-01-02"`
	MinTotalSum   *float64   `form:"min_total_sum"`
	MaxTotalSum   *float64   `form:"max_total_sum"`
	Search        string     `form:"search"`
}

var invoiceSortFields = map[string]string{
	"customerid":  "invoices.customer_id",
	"customer_id": "invoices.customer_id",
	"startdate":   "invoices.start_date",
	"start_date":  "invoices.start_date",
	"enddate":     "invoices.end_date",
	"end_date":    "invoices.end_date",
	"totalsum":    "invoices.total_sum",
	"total_sum":   "invoices.total_sum",
	"status":      "invoices.status",
	"createdat":   "invoices.created_at",
	"created_at":  "invoices.created_at",
	"updatedat":   "invoices.updated_at",
	"updated_at":  "invoices.updated_at",
}

func (r *InvoiceListRequest) normalize() {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.Size < 1 {
		r.Size = 10
	}
	if r.Size > 100 {
		r.Size = 100
	}

	if _, ok := invoiceSortFields[strings.ToLower(r.Sort)]; !ok {
		r.Sort = "created_at"
	}
	r.SortDirection = strings.ToLower(r.SortDirection)
	if r.SortDirection != "asc" && r.SortDirection != "desc" {
		r.SortDirection = "desc"
	}
}

type InvoiceListResponse struct {
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Size  int              `json:"size"`
	Items []models.Invoice `json:"items"`
}

type InvoiceRowRequest struct {
	Service  string  `json:"service" binding:"required"`
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
	Amount   float64 `json:"amount" binding:"required,gte=0"`
}

type CreateInvoiceRequest struct {
	CustomerID string              `json:"customer_id" binding:"required"`
	StartDate  time.Time           `json:"start_date" binding:"required"`
	EndDate    time.Time           `json:"end_date" binding:"required"`
	Comment    string              `json:"comment"`
	Rows       []InvoiceRowRequest `json:"rows" binding:"required,min=1,dive"`
}

type UpdateInvoiceRequest struct {
	StartDate time.Time           `json:"start_date" binding:"required"`
	EndDate   time.Time           `json:"end_date" binding:"required"`
	Comment   string              `json:"comment"`
	Rows      []InvoiceRowRequest `json:"rows" binding:"required,min=1,dive"`
}

type ChangeInvoiceStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// List returns a page of non-archived invoices with customer and rows
// preloaded, applying the optional filters.
func (s *InvoiceService) List(req *InvoiceListRequest) (*InvoiceListResponse, error) {
	req.normalize()

	query := s.db.Model(&models.Invoice{}).Where("invoices.deleted_at IS NULL")

	if req.CustomerID != "" {
		query = query.Where("invoices.customer_id = ?", req.CustomerID)
	}
	if req.Status != "" && models.ValidInvoiceStatus(models.InvoiceStatus(req.Status)) {
		query = query.Where("invoices.status = ?", req.Status)
	}
	if req.StartDateFrom != nil {
		query = query.Where("invoices.start_date >= ?", *req.StartDateFrom)
	}
	if req.StartDateTo != nil {
		query = query.Where("invoices.start_date <= ?", *req.StartDateTo)
	}
	if req.EndDateFrom != nil {
		query = query.Where("invoices.end_date >= ?", *req.EndDateFrom)
	}
	if req.EndDateTo != nil {
		query = query.Where("invoices.end_date <= ?", *req.EndDateTo)
	}
	if req.MinTotalSum != nil {
		query = query.Where("invoices.total_sum >= ?", *req.MinTotalSum)
	}
	if req.MaxTotalSum != nil {
		query = query.Where("invoices.total_sum <= ?", *req.MaxTotalSum)
	}
	if req.Search != "" {
		term := "%" + req.Search + "%"
		query = query.
			Select("invoices.*").
			Joins("JOIN customers ON customers.id = invoices.customer_id").
			Where("invoices.comment LIKE ? OR customers.name LIKE ?", term, term)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, response.NewServerError("failed to count invoices")
	}

	order := invoiceSortFields[strings.ToLower(req.Sort)] + " " + req.SortDirection
	offset := (req.Page - 1) * req.Size

	var invoices []models.Invoice
	err := query.
		Preload("Customer").
		Preload("Rows").
		Order(order).
		Offset(offset).
		Limit(req.Size).
		Find(&invoices).Error
	if err != nil {
		return nil, response.NewServerError("failed to list invoices")
	}

	return &InvoiceListResponse{
		Total: total,
		Page:  req.Page,
		Size:  req.Size,
		Items: invoices,
	}, nil
}

func (s *InvoiceService) GetByID(id string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := s.db.
		Preload("Customer").
		Preload("Rows").
		Where("id = ? AND deleted_at IS NULL", id).
		First(&invoice).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, response.NewNotFound("invoice not found")
		}
		return nil, response.NewServerError("failed to load invoice")
	}
	return &invoice, nil
}

// ListByCustomer returns all non-archived invoices of one customer.
func (s *InvoiceService) ListByCustomer(customerID string) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := s.db.
		Preload("Customer").
		Preload("Rows").
		Where("customer_id = ? AND deleted_at IS NULL", customerID).
		Order("created_at desc").
		Find(&invoices).Error
	if err != nil {
		return nil, response.NewServerError("failed to list invoices")
	}
	return invoices, nil
}

// Create persists a new invoice in the created state. Row sums and the
// invoice total are always computed server-side.
func (s *InvoiceService) Create(req *CreateInvoiceRequest) (*models.Invoice, error) {
	var customer models.Customer
	err := s.db.Where("id = ? AND deleted_at IS NULL", req.CustomerID).First(&customer).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, response.NewNotFound("customer not found")
		}
		return nil, response.NewServerError("failed to load customer")
	}

	invoice := models.Invoice{
		CustomerID: req.CustomerID,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		Comment:    req.Comment,
		Status:     models.InvoiceStatusCreated,
		Rows:       buildRows(req.Rows),
	}
	invoice.RecalculateTotal()

	if err := s.db.Create(&invoice).Error; err != nil {
		return nil, response.NewServerError("failed to create invoice")
	}

	invoice.Customer = &customer
	return &invoice, nil
}

// Update replaces the invoice's editable fields and rows. Only invoices
// still in the created state can change.
func (s *InvoiceService) Update(id string, req *UpdateInvoiceRequest) (*models.Invoice, error) {
	invoice, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if invoice.Status != models.InvoiceStatusCreated {
		return nil, response.NewConflict("only invoices in the created state can be edited")
	}

	now := time.Now()
	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceRow{}).Error; err != nil {
			return err
		}

		invoice.StartDate = req.StartDate
		invoice.EndDate = req.EndDate
		invoice.Comment = req.Comment
		invoice.Rows = buildRows(req.Rows)
		for i := range invoice.Rows {
			invoice.Rows[i].InvoiceID = invoice.ID
		}
		invoice.RecalculateTotal()
		invoice.UpdatedAt = &now

		return tx.Save(invoice).Error
	})
	if txErr != nil {
		return nil, response.NewServerError("failed to update invoice")
	}
	return invoice, nil
}

// ChangeStatus moves the invoice to a new workflow state.
func (s *InvoiceService) ChangeStatus(id string, status models.InvoiceStatus) (*models.Invoice, error) {
	if !models.ValidInvoiceStatus(status) {
		return nil, response.NewValidation("validation failed", map[string]string{
			"status": "unknown invoice status",
		})
	}

	invoice, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	invoice.Status = status
	invoice.UpdatedAt = &now
	if err := s.db.Save(invoice).Error; err != nil {
		return nil, response.NewServerError("failed to change invoice status")
	}
	return invoice, nil
}

// Archive soft-deletes the invoice, keeping it for history.
func (s *InvoiceService) Archive(id string) error {
	invoice, err := s.GetByID(id)
	if err != nil {
		return err
	}

	now := time.Now()
	invoice.DeletedAt = &now
	invoice.UpdatedAt = &now
	if err := s.db.Save(invoice).Error; err != nil {
		return response.NewServerError("failed to archive invoice")
	}
	return nil
}

// HardDelete physically removes an invoice and its rows. Allowed only while
// the invoice has not left the created state.
func (s *InvoiceService) HardDelete(id string) error {
	invoice, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if invoice.Status != models.InvoiceStatusCreated {
		return response.NewConflict("only invoices in the created state can be deleted")
	}

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceRow{}).Error; err != nil {
			return err
		}
		return tx.Delete(invoice).Error
	})
	if txErr != nil {
		return response.NewServerError("failed to delete invoice")
	}
	return nil
}

func buildRows(reqs []InvoiceRowRequest) []models.InvoiceRow {
	rows := make([]models.InvoiceRow, 0, len(reqs))
	for _, r := range reqs {
		rows = append(rows, models.InvoiceRow{
			Service:  r.Service,
			Quantity: r.Quantity,
			Amount:   r.Amount,
			Sum:      r.Quantity * r.Amount,
		})
	}
	return rows
}
