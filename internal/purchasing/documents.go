package purchasing

import (
	"context"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/agriflight/backoffice/internal/shared"
)

// Document projections. These render the order's financial view for the
// downstream PDF service; they never mutate the order except for the
// one-time invoice number assignment.

// DocumentLine is one priced position on a rendered document.
type DocumentLine struct {
	ProductRef    string  `json:"product_ref"`
	Description   string  `json:"description"`
	Quantity      float64 `json:"quantity"`
	UnitOfMeasure string  `json:"unit_of_measure"`
	UnitPrice     string  `json:"unit_price"`
	TaxRate       float64 `json:"tax_rate"`
	TaxAmount     string  `json:"tax_amount"`
	TotalPrice    string  `json:"total_price"`
}

// InvoiceData is the invoice projection of an order.
type InvoiceData struct {
	InvoiceNumber   string         `json:"invoice_number"`
	OrderNumber     string         `json:"order_number"`
	VendorID        int64          `json:"vendor_id"`
	IssuedAt        time.Time      `json:"issued_at"`
	Lines           []DocumentLine `json:"lines"`
	Subtotal        string         `json:"subtotal"`
	TaxAmount       string         `json:"tax_amount"`
	ShippingCharges string         `json:"shipping_charges"`
	OtherCharges    string         `json:"other_charges"`
	DiscountAmount  string         `json:"discount_amount"`
	TotalAmount     string         `json:"total_amount"`
	Currency        string         `json:"currency"`
}

// BillData is the bill projection: the same financial view keyed by the
// order number, available before an invoice number exists.
type BillData struct {
	OrderNumber string         `json:"order_number"`
	VendorID    int64          `json:"vendor_id"`
	OrderDate   time.Time      `json:"order_date"`
	Lines       []DocumentLine `json:"lines"`
	TotalAmount string         `json:"total_amount"`
	Currency    string         `json:"currency"`
	Status      Status         `json:"status"`
}

// ReceiptData is the payment receipt projection, only produced for PAID
// orders.
type ReceiptData struct {
	OrderNumber   string     `json:"order_number"`
	InvoiceNumber string     `json:"invoice_number"`
	VendorID      int64      `json:"vendor_id"`
	PaymentDate   *time.Time `json:"payment_date"`
	AmountPaid    string     `json:"amount_paid"`
	Currency      string     `json:"currency"`
}

// Invoice builds the invoice projection. Orders must have reached INVOICED;
// the first render assigns a persistent invoice number, later renders reuse
// it.
func (s *Service) Invoice(ctx context.Context, id int64) (InvoiceData, error) {
	po, err := s.repo.Get(ctx, id)
	if err != nil {
		return InvoiceData{}, err
	}
	if po.Status != StatusInvoiced && po.Status != StatusPaid {
		return InvoiceData{}, shared.InvalidStatef("only invoiced purchase orders have an invoice document")
	}
	if po.InvoiceNumber == "" {
		generated, err := s.seq.Next(ctx, shared.SeqInvoice)
		if err != nil {
			return InvoiceData{}, err
		}
		err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			assigned, err := tx.SetInvoiceNumberIfAbsent(ctx, id, generated)
			if err != nil {
				return err
			}
			po.InvoiceNumber = assigned
			return nil
		})
		if err != nil {
			return InvoiceData{}, err
		}
	}
	money := moneyFormatter(po.Currency)
	return InvoiceData{
		InvoiceNumber:   po.InvoiceNumber,
		OrderNumber:     po.Number,
		VendorID:        po.VendorID,
		IssuedAt:        s.now(),
		Lines:           documentLines(po.Items, money),
		Subtotal:        money(po.Subtotal),
		TaxAmount:       money(po.TaxAmount),
		ShippingCharges: money(po.ShippingCharges),
		OtherCharges:    money(po.OtherCharges),
		DiscountAmount:  money(po.DiscountAmount),
		TotalAmount:     money(po.TotalAmount),
		Currency:        po.Currency,
	}, nil
}

// Bill builds the bill projection for any non-cancelled order.
func (s *Service) Bill(ctx context.Context, id int64) (BillData, error) {
	po, err := s.repo.Get(ctx, id)
	if err != nil {
		return BillData{}, err
	}
	if po.Status == StatusCancelled {
		return BillData{}, shared.InvalidStatef("cancelled purchase orders have no bill document")
	}
	money := moneyFormatter(po.Currency)
	return BillData{
		OrderNumber: po.Number,
		VendorID:    po.VendorID,
		OrderDate:   po.OrderDate,
		Lines:       documentLines(po.Items, money),
		TotalAmount: money(po.TotalAmount),
		Currency:    po.Currency,
		Status:      po.Status,
	}, nil
}

// Receipt builds the payment receipt. Only PAID orders have one.
func (s *Service) Receipt(ctx context.Context, id int64) (ReceiptData, error) {
	po, err := s.repo.Get(ctx, id)
	if err != nil {
		return ReceiptData{}, err
	}
	if po.Status != StatusPaid {
		return ReceiptData{}, shared.InvalidStatef("only paid purchase orders have a payment receipt")
	}
	money := moneyFormatter(po.Currency)
	return ReceiptData{
		OrderNumber:   po.Number,
		InvoiceNumber: po.InvoiceNumber,
		VendorID:      po.VendorID,
		PaymentDate:   po.PaymentDate,
		AmountPaid:    money(po.TotalAmount),
		Currency:      po.Currency,
	}, nil
}

func documentLines(items []LineItem, money func(float64) string) []DocumentLine {
	lines := make([]DocumentLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, DocumentLine{
			ProductRef:    item.ProductRef,
			Description:   item.Description,
			Quantity:      item.Quantity,
			UnitOfMeasure: item.UnitOfMeasure,
			UnitPrice:     money(item.UnitPrice),
			TaxRate:       item.TaxRate,
			TaxAmount:     money(item.TaxAmount),
			TotalPrice:    money(item.TotalPrice),
		})
	}
	return lines
}

// moneyFormatter renders amounts with locale-aware digit grouping for the
// order currency, e.g. "INR 12,34,567.89".
func moneyFormatter(code string) func(float64) string {
	tag := language.English
	if code == "INR" {
		tag = language.MustParse("en-IN")
	}
	printer := message.NewPrinter(tag)
	return func(amount float64) string {
		return printer.Sprintf("%s %v", code,
			number.Decimal(amount, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
	}
}
