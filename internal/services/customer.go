package services

import (
	"strings"
	"time"

	"github.com/invoicemenecer/api/internal/models"
	"github.com/invoicemenecer/api/pkg/response"
	"gorm.io/gorm"
)

type CustomerService struct {
	db *gorm.DB
}

func NewCustomerService(db *gorm.DB) *CustomerService {
	return &CustomerService{db: db}
}

type CustomerListRequest struct {
	Page          int    `form:"page"`
	Size          int    `form:"size"`
	Sort          string `form:"sort"`
	SortDirection string `form:"sort_direction"`
	Name          string `form:"name"`
	Email         string `form:"email"`
	PhoneNumber   string `form:"phone_number"`
	Search        string `form:"search"`
}

var customerSortFields = map[string]string{
	"name":       "name",
	"email":      "email",
	"createdat":  "created_at",
	"created_at": "created_at",
	"updatedat":  "updated_at",
	"updated_at": "updated_at",
}

// normalize clamps paging and falls back to safe sort defaults. Sort fields
// are whitelisted; anything else becomes the default.
func (r *CustomerListRequest) normalize() {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.Size < 1 {
		r.Size = 10
	}
	if r.Size > 100 {
		r.Size = 100
	}

	if _, ok := customerSortFields[strings.ToLower(r.Sort)]; !ok {
		r.Sort = "name"
	}
	r.SortDirection = strings.ToLower(r.SortDirection)
	if r.SortDirection != "asc" && r.SortDirection != "desc" {
		r.SortDirection = "asc"
	}
}

type CustomerListResponse struct {
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Size  int               `json:"size"`
	Items []models.Customer `json:"items"`
}

type CreateCustomerRequest struct {
	Name        string `json:"name" binding:"required"`
	Address     string `json:"address"`
	Email       string `json:"email" binding:"required,email"`
	PhoneNumber string `json:"phone_number"`
}

type UpdateCustomerRequest struct {
	Name        string `json:"name" binding:"required"`
	Address     string `json:"address"`
	Email       string `json:"email" binding:"required,email"`
	PhoneNumber string `json:"phone_number"`
}

// List returns a page of non-archived customers with optional filters.
func (s *CustomerService) List(req *CustomerListRequest) (*CustomerListResponse, error) {
	req.normalize()

	query := s.db.Model(&models.Customer{}).Where("deleted_at IS NULL")

	if req.Name != "" {
		query = query.Where("name LIKE ?", "%"+req.Name+"%")
	}
	if req.Email != "" {
		query = query.Where("email LIKE ?", "%"+req.Email+"%")
	}
	if req.PhoneNumber != "" {
		query = query.Where("phone_number LIKE ?", "%"+req.PhoneNumber+"%")
	}
	if req.Search != "" {
		term := "%" + req.Search + "%"
		query = query.Where("name LIKE ? OR email LIKE ? OR phone_number LIKE ?", term, term, term)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, response.NewServerError("failed to count customers")
	}

	order := customerSortFields[strings.ToLower(req.Sort)] + " " + req.SortDirection
	var customers []models.Customer
	offset := (req.Page - 1) * req.Size
	if err := query.Order(order).Offset(offset).Limit(req.Size).Find(&customers).Error; err != nil {
		return nil, response.NewServerError("failed to list customers")
	}

	return &CustomerListResponse{
		Total: total,
		Page:  req.Page,
		Size:  req.Size,
		Items: customers,
	}, nil
}

func (s *CustomerService) GetByID(id string) (*models.Customer, error) {
	var customer models.Customer
	err := s.db.Where("id = ? AND deleted_at IS NULL", id).First(&customer).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, response.NewNotFound("customer not found")
		}
		return nil, response.NewServerError("failed to load customer")
	}
	return &customer, nil
}

func (s *CustomerService) Create(req *CreateCustomerRequest) (*models.Customer, error) {
	customer := models.Customer{
		Name:        req.Name,
		Address:     req.Address,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
	}
	if err := s.db.Create(&customer).Error; err != nil {
		return nil, response.NewServerError("failed to create customer")
	}
	return &customer, nil
}

func (s *CustomerService) Update(id string, req *UpdateCustomerRequest) (*models.Customer, error) {
	customer, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	customer.Name = req.Name
	customer.Address = req.Address
	customer.Email = req.Email
	customer.PhoneNumber = req.PhoneNumber
	customer.UpdatedAt = &now

	if err := s.db.Save(customer).Error; err != nil {
		return nil, response.NewServerError("failed to update customer")
	}
	return customer, nil
}

// HardDelete physically removes a customer together with their invoices and
// rows. Refused once any invoice has left the created state, since those
// document real billing history.
func (s *CustomerService) HardDelete(id string) error {
	customer, err := s.GetByID(id)
	if err != nil {
		return err
	}

	var invoices []models.Invoice
	if err := s.db.Where("customer_id = ?", customer.ID).Find(&invoices).Error; err != nil {
		return response.NewServerError("failed to load customer invoices")
	}
	for _, inv := range invoices {
		if inv.Status != models.InvoiceStatusCreated {
			return response.NewConflict("cannot delete a customer with sent invoices")
		}
	}

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		for _, inv := range invoices {
			if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceRow{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("customer_id = ?", customer.ID).Delete(&models.Invoice{}).Error; err != nil {
			return err
		}
		return tx.Delete(customer).Error
	})
	if txErr != nil {
		return response.NewServerError("failed to delete customer")
	}
	return nil
}

// Archive soft-deletes the customer; invoices keep their reference.
func (s *CustomerService) Archive(id string) error {
	customer, err := s.GetByID(id)
	if err != nil {
		return err
	}

	now := time.Now()
	customer.DeletedAt = &now
	customer.UpdatedAt = &now
	if err := s.db.Save(customer).Error; err != nil {
		return response.NewServerError("failed to archive customer")
	}
	return nil
}
