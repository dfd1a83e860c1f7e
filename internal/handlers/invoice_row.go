package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/invoicemenecer/api/internal/services"
	"github.com/invoicemenecer/api/pkg/response"
)

// ListRows returns the rows of one invoice
// GET /api/invoices/:id/rows
func (h *InvoiceHandler) ListRows(c *gin.Context) {
	rows, err := h.invoices.ListRows(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, rows)
}

// AddRow appends a row to an invoice still in the created state
// POST /api/invoices/:id/rows
func (h *InvoiceHandler) AddRow(c *gin.Context) {
	var req services.InvoiceRowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	row, err := h.invoices.AddRow(c.Param("id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, row)
}

// GetRow returns a single invoice row
// GET /api/invoice-rows/:id
func (h *InvoiceHandler) GetRow(c *gin.Context) {
	row, err := h.invoices.GetRow(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, row)
}

// UpdateRow replaces a row's fields
// PUT /api/invoice-rows/:id
func (h *InvoiceHandler) UpdateRow(c *gin.Context) {
	var req services.InvoiceRowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	row, err := h.invoices.UpdateRow(c.Param("id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, row)
}

// DeleteRow removes a row from an invoice
// DELETE /api/invoice-rows/:id
func (h *InvoiceHandler) DeleteRow(c *gin.Context) {
	if err := h.invoices.DeleteRow(c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
