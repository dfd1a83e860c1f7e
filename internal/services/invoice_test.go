package services

import (
	"errors"
	"testing"
	"time"

	"github.com/invoicemenecer/api/internal/models"
	"github.com/invoicemenecer/api/pkg/response"
	"gorm.io/gorm"
)

func newTestInvoiceService(t *testing.T) (*InvoiceService, *CustomerService, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	return NewInvoiceService(db), NewCustomerService(db), db
}

func createTestInvoice(t *testing.T, invoices *InvoiceService, customers *CustomerService) *models.Invoice {
	t.Helper()

	customer, err := customers.Create(&CreateCustomerRequest{Name: "Acme", Email: "a@acme.test"})
	if err != nil {
		t.Fatal(err)
	}

	invoice, err := invoices.Create(&CreateInvoiceRequest{
		CustomerID: customer.ID,
		StartDate:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
		Comment:    "January work",
		Rows: []InvoiceRowRequest{
			{Service: "Consulting", Quantity: 10, Amount: 100},
			{Service: "Support", Quantity: 5, Amount: 40},
		},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return invoice
}

func TestInvoiceService_Create(t *testing.T) {
	invoices, customers, _ := newTestInvoiceService(t)
	invoice := createTestInvoice(t, invoices, customers)

	if invoice.Status != models.InvoiceStatusCreated {
		t.Errorf("Status = %s, expected created", invoice.Status)
	}
	if len(invoice.Rows) != 2 {
		t.Fatalf("Rows = %d, expected 2", len(invoice.Rows))
	}

	// Row sums and the total are computed server-side.
	if invoice.Rows[0].Sum != 1000 || invoice.Rows[1].Sum != 200 {
		t.Errorf("row sums = %v, %v", invoice.Rows[0].Sum, invoice.Rows[1].Sum)
	}
	if invoice.TotalSum != 1200 {
		t.Errorf("TotalSum = %v, expected 1200", invoice.TotalSum)
	}
}

func TestInvoiceService_Create_UnknownCustomer(t *testing.T) {
	invoices, _, _ := newTestInvoiceService(t)

	_, err := invoices.Create(&CreateInvoiceRequest{
		CustomerID: "no-such-customer",
		StartDate:  time.Now(),
		EndDate:    time.Now(),
		Rows:       []InvoiceRowRequest{{Service: "X", Quantity: 1, Amount: 1}},
	})

	var appErr *response.AppError
	if !errors.As(err, &appErr) || appErr.HTTPStatus != 404 {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestInvoiceService_Update(t *testing.T) {
	invoices, customers, _ := newTestInvoiceService(t)
	invoice := createTestInvoice(t, invoices, customers)

	updated, err := invoices.Update(invoice.ID, &UpdateInvoiceRequest{
		StartDate: invoice.StartDate,
		EndDate:   invoice.EndDate,
		Comment:   "reworked",
		Rows: []InvoiceRowRequest{
			{Service: "Consulting", Quantity: 2, Amount: 50},
		},
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(updated.Rows) != 1 || updated.TotalSum != 100 {
		t.Errorf("rows = %d, total = %v", len(updated.Rows), updated.TotalSum)
	}

	// Old rows are really gone, not orphaned.
	reloaded, err := invoices.GetByID(invoice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(reloaded.Rows) != 1 {
		t.Errorf("reloaded rows = %d, expected 1", len(reloaded.Rows))
	}
}

func TestInvoiceService_Update_OnlyWhileCreated(t *testing.T) {
	invoices, customers, _ := newTestInvoiceService(t)
	invoice := createTestInvoice(t, invoices, customers)

	if _, err := invoices.ChangeStatus(invoice.ID, models.InvoiceStatusSent); err != nil {
		t.Fatal(err)
	}

	_, err := invoices.Update(invoice.ID, &UpdateInvoiceRequest{
		StartDate: invoice.StartDate,
		EndDate:   invoice.EndDate,
		Rows:      []InvoiceRowRequest{{Service: "X", Quantity: 1, Amount: 1}},
	})

	var appErr *response.AppError
	if !errors.As(err, &appErr) || appErr.HTTPStatus != 409 {
		t.Errorf("expected 409 conflict, got %v", err)
	}
}

func TestInvoiceService_ChangeStatus(t *testing.T) {
	invoices, customers, _ := newTestInvoiceService(t)
	invoice := createTestInvoice(t, invoices, customers)

	updated, err := invoices.ChangeStatus(invoice.ID, models.InvoiceStatusPaid)
	if err != nil {
		t.Fatalf("ChangeStatus() error = %v", err)
	}
	if updated.Status != models.InvoiceStatusPaid {
		t.Errorf("Status = %s, expected paid", updated.Status)
	}

	_, err = invoices.ChangeStatus(invoice.ID, models.InvoiceStatus("bogus"))
	var appErr *response.AppError
	if !errors.As(err, &appErr) || appErr.HTTPStatus != 400 {
		t.Errorf("expected 400 for unknown status, got %v", err)
	}
}

func TestInvoiceService_Archive(t *testing.T) {
	invoices, customers, _ := newTestInvoiceService(t)
	invoice := createTestInvoice(t, invoices, customers)

	if err := invoices.Archive(invoice.ID); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if _, err := invoices.GetByID(invoice.ID); err == nil {
		t.Error("archived invoice must not be readable")
	}
}

func TestInvoiceService_HardDelete(t *testing.T) {
	invoices, customers, db := newTestInvoiceService(t)
	invoice := createTestInvoice(t, invoices, customers)

	t.Run("refused after leaving created", func(t *testing.T) {
		if _, err := invoices.ChangeStatus(invoice.ID, models.InvoiceStatusSent); err != nil {
			t.Fatal(err)
		}
		err := invoices.HardDelete(invoice.ID)
		var appErr *response.AppError
		if !errors.As(err, &appErr) || appErr.HTTPStatus != 409 {
			t.Errorf("expected 409, got %v", err)
		}
	})

	t.Run("removes invoice and rows", func(t *testing.T) {
		fresh := createTestInvoice(t, invoices, customers)
		if err := invoices.HardDelete(fresh.ID); err != nil {
			t.Fatalf("HardDelete() error = %v", err)
		}

		var rows int64
		db.Model(&models.InvoiceRow{}).Where("invoice_id = ?", fresh.ID).Count(&rows)
		if rows != 0 {
			t.Errorf("rows left behind: %d", rows)
		}
		if _, err := invoices.GetByID(fresh.ID); err == nil {
			t.Error("deleted invoice must not be readable")
		}
	})
}

func TestInvoiceService_List(t *testing.T) {
	invoices, customers, _ := newTestInvoiceService(t)

	first := createTestInvoice(t, invoices, customers)
	second := createTestInvoice(t, invoices, customers)
	if _, err := invoices.ChangeStatus(second.ID, models.InvoiceStatusPaid); err != nil {
		t.Fatal(err)
	}

	t.Run("all", func(t *testing.T) {
		list, err := invoices.List(&InvoiceListRequest{})
		if err != nil {
			t.Fatal(err)
		}
		if list.Total != 2 {
			t.Errorf("total = %d, expected 2", list.Total)
		}
		if len(list.Items) != 2 || list.Items[0].Customer == nil || len(list.Items[0].Rows) == 0 {
			t.Error("items must preload customer and rows")
		}
	})

	t.Run("status filter", func(t *testing.T) {
		list, _ := invoices.List(&InvoiceListRequest{Status: string(models.InvoiceStatusPaid)})
		if list.Total != 1 || list.Items[0].ID != second.ID {
			t.Errorf("paid filter: total = %d", list.Total)
		}
	})

	t.Run("customer filter", func(t *testing.T) {
		list, _ := invoices.List(&InvoiceListRequest{CustomerID: first.CustomerID})
		if list.Total != 1 {
			t.Errorf("customer filter: total = %d, expected 1", list.Total)
		}
	})

	t.Run("sum bounds", func(t *testing.T) {
		min := 100.0
		max := 2000.0
		list, _ := invoices.List(&InvoiceListRequest{MinTotalSum: &min, MaxTotalSum: &max})
		if list.Total != 2 {
			t.Errorf("sum bounds: total = %d, expected 2", list.Total)
		}

		tight := 5000.0
		list, _ = invoices.List(&InvoiceListRequest{MinTotalSum: &tight})
		if list.Total != 0 {
			t.Errorf("tight min: total = %d, expected 0", list.Total)
		}
	})

	t.Run("search by customer name", func(t *testing.T) {
		list, err := invoices.List(&InvoiceListRequest{Search: "Acme"})
		if err != nil {
			t.Fatal(err)
		}
		if list.Total != 2 {
			t.Errorf("search: total = %d, expected 2", list.Total)
		}
	})
}

func TestInvoiceService_ListByCustomer(t *testing.T) {
	invoices, customers, _ := newTestInvoiceService(t)
	invoice := createTestInvoice(t, invoices, customers)

	list, err := invoices.ListByCustomer(invoice.CustomerID)
	if err != nil {
		t.Fatalf("ListByCustomer() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != invoice.ID {
		t.Errorf("ListByCustomer() = %d items", len(list))
	}

	if list, _ := invoices.ListByCustomer("no-such-customer"); len(list) != 0 {
		t.Errorf("unknown customer should list nothing, got %d", len(list))
	}
}
