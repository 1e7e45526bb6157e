package purchasing

import (
	"math"
	"time"

	"github.com/agriflight/backoffice/internal/approvals"
)

// Purchase order lifecycle statuses. The main chain is
// DRAFT -> APPROVED -> DELIVERED -> INVOICED -> PAID; CANCELLED is a
// terminal override reachable from any non-terminal state.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusApproved  Status = "APPROVED"
	StatusDelivered Status = "DELIVERED"
	StatusInvoiced  Status = "INVOICED"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

// Payment settlement statuses.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPartial PaymentStatus = "PARTIAL"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentOverdue PaymentStatus = "OVERDUE"
)

// LineItem is one ordered position. TotalPrice and TaxAmount are derived
// and recomputed on every persist.
type LineItem struct {
	ID            int64   `json:"id"`
	ProductRef    string  `json:"product_ref"`
	Description   string  `json:"description"`
	Quantity      float64 `json:"quantity"`
	UnitOfMeasure string  `json:"unit_of_measure"`
	UnitPrice     float64 `json:"unit_price"`
	TaxRate       float64 `json:"tax_rate"`
	TotalPrice    float64 `json:"total_price"`
	TaxAmount     float64 `json:"tax_amount"`
}

// FileRef is opaque attached-document metadata. The state machine never
// interprets file bytes.
type FileRef struct {
	Filename     string    `json:"filename"`
	OriginalName string    `json:"original_name"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// HistoryEntry records one accepted status transition. The history is
// append-only, never rewritten.
type HistoryEntry struct {
	Status    Status    `json:"status"`
	At        time.Time `json:"at"`
	UpdatedBy string    `json:"updated_by"`
	Notes     string    `json:"notes,omitempty"`
}

// PurchaseOrder is the richest approvable entity. Status and Approval are
// two explicit state machines: Status can only reach APPROVED once the
// approval gate has cleared.
type PurchaseOrder struct {
	ID       int64           `json:"id"`
	Number   string          `json:"number"`
	VendorID int64           `json:"vendor_id"`
	Status   Status          `json:"status"`
	Approval approvals.State `json:"approval"`

	OrderDate            time.Time  `json:"order_date"`
	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date,omitempty"`
	ActualDeliveryDate   *time.Time `json:"actual_delivery_date,omitempty"`
	PaymentDate          *time.Time `json:"payment_date,omitempty"`
	PaymentStatus        PaymentStatus `json:"payment_status"`

	Items []LineItem `json:"items"`

	// Derived order totals, never set directly by callers.
	Subtotal        float64 `json:"subtotal"`
	TaxAmount       float64 `json:"tax_amount"`
	ShippingCharges float64 `json:"shipping_charges"`
	OtherCharges    float64 `json:"other_charges"`
	DiscountAmount  float64 `json:"discount_amount"`
	TotalAmount     float64 `json:"total_amount"`

	Currency      string   `json:"currency"`
	InvoiceNumber string   `json:"invoice_number,omitempty"`
	InvoiceFile   *FileRef `json:"invoice_file,omitempty"`
	QuotationFile *FileRef `json:"quotation_file,omitempty"`

	History []HistoryEntry `json:"workflow_history"`
	Notes   string         `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Recalculate rederives line and order totals from the items and charges.
// Called before every persist so stored totals can never drift from the
// lines they summarise. TotalAmount is floored at zero.
func (po *PurchaseOrder) Recalculate() {
	var subtotal, tax float64
	for i := range po.Items {
		item := &po.Items[i]
		item.TotalPrice = round2(item.Quantity * item.UnitPrice)
		item.TaxAmount = round2(item.TotalPrice * item.TaxRate / 100)
		subtotal += item.TotalPrice
		tax += item.TaxAmount
	}
	po.Subtotal = round2(subtotal)
	po.TaxAmount = round2(tax)
	total := po.Subtotal + po.TaxAmount + po.ShippingCharges + po.OtherCharges - po.DiscountAmount
	if total < 0 {
		total = 0
	}
	po.TotalAmount = round2(total)
}

// Terminal reports whether no further lifecycle transition is possible.
func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// POListItem is the list projection with the vendor name joined in.
type POListItem struct {
	ID          int64     `json:"id"`
	Number      string    `json:"number"`
	VendorID    int64     `json:"vendor_id"`
	VendorName  string    `json:"vendor_name"`
	Status      Status    `json:"status"`
	TotalAmount float64   `json:"total_amount"`
	OrderDate   time.Time `json:"order_date"`
	CreatedAt   time.Time `json:"created_at"`
}
