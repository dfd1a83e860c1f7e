package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/invoicemenecer/api/internal/services"
	"github.com/invoicemenecer/api/pkg/response"
)

type CustomerHandler struct {
	customers *services.CustomerService
	invoices  *services.InvoiceService
}

func NewCustomerHandler(customers *services.CustomerService, invoices *services.InvoiceService) *CustomerHandler {
	return &CustomerHandler{customers: customers, invoices: invoices}
}

// List returns a filtered, sorted page of customers
// GET /api/customers
func (h *CustomerHandler) List(c *gin.Context) {
	var req services.CustomerListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.customers.List(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// Get returns one customer
// GET /api/customers/:id
func (h *CustomerHandler) Get(c *gin.Context) {
	customer, err := h.customers.GetByID(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, customer)
}

// Create adds a customer
// POST /api/customers
func (h *CustomerHandler) Create(c *gin.Context) {
	var req services.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	customer, err := h.customers.Create(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, customer)
}

// Update replaces a customer's details
// PUT /api/customers/:id
func (h *CustomerHandler) Update(c *gin.Context) {
	var req services.UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	customer, err := h.customers.Update(c.Param("id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, customer)
}

// Delete archives a customer
// DELETE /api/customers/:id
func (h *CustomerHandler) Delete(c *gin.Context) {
	if err := h.customers.Archive(c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// HardDelete physically removes a customer whose invoices never left the
// created state
// DELETE /api/customers/:id/hard
func (h *CustomerHandler) HardDelete(c *gin.Context) {
	if err := h.customers.HardDelete(c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ListInvoices returns all invoices of one customer
// GET /api/customers/:id/invoices
func (h *CustomerHandler) ListInvoices(c *gin.Context) {
	// 404 for an unknown customer instead of an empty list.
	if _, err := h.customers.GetByID(c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	invoices, err := h.invoices.ListByCustomer(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, invoices)
}
