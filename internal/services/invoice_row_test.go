package services

import (
	"errors"
	"testing"

	"github.com/invoicemenecer/api/internal/models"
	"github.com/invoicemenecer/api/pkg/response"
)

func TestInvoiceService_AddRow(t *testing.T) {
	invoices, customers, _ := newTestInvoiceService(t)
	invoice := createTestInvoice(t, invoices, customers)

	row, err := invoices.AddRow(invoice.ID, &InvoiceRowRequest{
		Service:  "Training",
		Quantity: 3,
		Amount:   200,
	})
	if err != nil {
		t.Fatalf("AddRow() error = %v", err)
	}
	if row.Sum != 600 {
		t.Errorf("row Sum = %v, expected 600", row.Sum)
	}

	// The invoice total includes the new row.
	reloaded, err := invoices.GetByID(invoice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(reloaded.Rows) != 3 {
		t.Errorf("rows = %d, expected 3", len(reloaded.Rows))
	}
	if reloaded.TotalSum != 1800 {
		t.Errorf("TotalSum = %v, expected 1800", reloaded.TotalSum)
	}
}

func TestInvoiceService_AddRow_Guards(t *testing.T) {
	invoices, customers, _ := newTestInvoiceService(t)
	invoice := createTestInvoice(t, invoices, customers)

	t.Run("unknown invoice", func(t *testing.T) {
		_, err := invoices.AddRow("no-such-invoice", &InvoiceRowRequest{Service: "X", Quantity: 1, Amount: 1})
		var appErr *response.AppError
		if !errors.As(err, &appErr) || appErr.HTTPStatus != 404 {
			t.Errorf("expected 404, got %v", err)
		}
	})

	t.Run("refused after leaving created", func(t *testing.T) {
		if _, err := invoices.ChangeStatus(invoice.ID, models.InvoiceStatusSent); err != nil {
			t.Fatal(err)
		}
		_, err := invoices.AddRow(invoice.ID, &InvoiceRowRequest{Service: "X", Quantity: 1, Amount: 1})
		var appErr *response.AppError
		if !errors.As(err, &appErr) || appErr.HTTPStatus != 409 {
			t.Errorf("expected 409, got %v", err)
		}
	})
}

func TestInvoiceService_UpdateRow(t *testing.T) {
	invoices, customers, _ := newTestInvoiceService(t)
	invoice := createTestInvoice(t, invoices, customers)

	updated, err := invoices.UpdateRow(invoice.Rows[0].ID, &InvoiceRowRequest{
		Service:  "Consulting revised",
		Quantity: 4,
		Amount:   25,
	})
	if err != nil {
		t.Fatalf("UpdateRow() error = %v", err)
	}
	if updated.Sum != 100 {
		t.Errorf("row Sum = %v, expected 100", updated.Sum)
	}

	// Total drops from 1200 to 300: the second row's 200 plus the new 100.
	reloaded, err := invoices.GetByID(invoice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.TotalSum != 300 {
		t.Errorf("TotalSum = %v, expected 300", reloaded.TotalSum)
	}
}

func TestInvoiceService_UpdateRow_Guards(t *testing.T) {
	invoices, customers, _ := newTestInvoiceService(t)
	invoice := createTestInvoice(t, invoices, customers)

	t.Run("unknown row", func(t *testing.T) {
		_, err := invoices.UpdateRow("no-such-row", &InvoiceRowRequest{Service: "X", Quantity: 1, Amount: 1})
		var appErr *response.AppError
		if !errors.As(err, &appErr) || appErr.HTTPStatus != 404 {
			t.Errorf("expected 404, got %v", err)
		}
	})

	t.Run("refused after leaving created", func(t *testing.T) {
		if _, err := invoices.ChangeStatus(invoice.ID, models.InvoiceStatusPaid); err != nil {
			t.Fatal(err)
		}
		_, err := invoices.UpdateRow(invoice.Rows[0].ID, &InvoiceRowRequest{Service: "X", Quantity: 1, Amount: 1})
		var appErr *response.AppError
		if !errors.As(err, &appErr) || appErr.HTTPStatus != 409 {
			t.Errorf("expected 409, got %v", err)
		}
	})
}

func TestInvoiceService_DeleteRow(t *testing.T) {
	invoices, customers, _ := newTestInvoiceService(t)
	invoice := createTestInvoice(t, invoices, customers)

	if err := invoices.DeleteRow(invoice.Rows[0].ID); err != nil {
		t.Fatalf("DeleteRow() error = %v", err)
	}

	reloaded, err := invoices.GetByID(invoice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(reloaded.Rows) != 1 {
		t.Errorf("rows = %d, expected 1", len(reloaded.Rows))
	}
	if reloaded.TotalSum != 200 {
		t.Errorf("TotalSum = %v, expected 200", reloaded.TotalSum)
	}

	// Deleting the same row again is a 404, not a silent no-op.
	err = invoices.DeleteRow(invoice.Rows[0].ID)
	var appErr *response.AppError
	if !errors.As(err, &appErr) || appErr.HTTPStatus != 404 {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestInvoiceService_DeleteRow_RefusedAfterSent(t *testing.T) {
	invoices, customers, _ := newTestInvoiceService(t)
	invoice := createTestInvoice(t, invoices, customers)

	if _, err := invoices.ChangeStatus(invoice.ID, models.InvoiceStatusSent); err != nil {
		t.Fatal(err)
	}

	err := invoices.DeleteRow(invoice.Rows[0].ID)
	var appErr *response.AppError
	if !errors.As(err, &appErr) || appErr.HTTPStatus != 409 {
		t.Errorf("expected 409, got %v", err)
	}
}

func TestInvoiceService_ListRows(t *testing.T) {
	invoices, customers, _ := newTestInvoiceService(t)
	invoice := createTestInvoice(t, invoices, customers)

	rows, err := invoices.ListRows(invoice.ID)
	if err != nil {
		t.Fatalf("ListRows() error = %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("rows = %d, expected 2", len(rows))
	}

	_, err = invoices.ListRows("no-such-invoice")
	var appErr *response.AppError
	if !errors.As(err, &appErr) || appErr.HTTPStatus != 404 {
		t.Errorf("expected 404 for unknown invoice, got %v", err)
	}
}

func TestInvoiceService_GetRow(t *testing.T) {
	invoices, customers, _ := newTestInvoiceService(t)
	invoice := createTestInvoice(t, invoices, customers)

	row, err := invoices.GetRow(invoice.Rows[1].ID)
	if err != nil {
		t.Fatalf("GetRow() error = %v", err)
	}
	if row.Service != "Support" {
		t.Errorf("Service = %q, expected %q", row.Service, "Support")
	}

	_, err = invoices.GetRow("no-such-row")
	var appErr *response.AppError
	if !errors.As(err, &appErr) || appErr.HTTPStatus != 404 {
		t.Errorf("expected 404, got %v", err)
	}
}
