package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/invoicemenecer/api/internal/models"
	"github.com/invoicemenecer/api/internal/services"
	"github.com/invoicemenecer/api/pkg/response"
)

type InvoiceHandler struct {
	invoices *services.InvoiceService
}

func NewInvoiceHandler(invoices *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

// List returns a filtered, sorted page of invoices
// GET /api/invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	var req services.InvoiceListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.invoices.List(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// Get returns one invoice with its rows
// GET /api/invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoice, err := h.invoices.GetByID(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, invoice)
}

// Create adds an invoice in the created state
// POST /api/invoices
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req services.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	invoice, err := h.invoices.Create(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, invoice)
}

// Update replaces an invoice's editable fields and rows
// PUT /api/invoices/:id
func (h *InvoiceHandler) Update(c *gin.Context) {
	var req services.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	invoice, err := h.invoices.Update(c.Param("id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, invoice)
}

// ChangeStatus moves an invoice through its workflow
// PATCH /api/invoices/:id/status
func (h *InvoiceHandler) ChangeStatus(c *gin.Context) {
	var req services.ChangeInvoiceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	invoice, err := h.invoices.ChangeStatus(c.Param("id"), models.InvoiceStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, invoice)
}

// Archive soft-deletes an invoice
// DELETE /api/invoices/:id
func (h *InvoiceHandler) Archive(c *gin.Context) {
	if err := h.invoices.Archive(c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Delete physically removes an invoice still in the created state
// DELETE /api/invoices/:id/hard
func (h *InvoiceHandler) Delete(c *gin.Context) {
	if err := h.invoices.HardDelete(c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
