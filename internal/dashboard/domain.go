package dashboard

// StatusCount pairs a status value with how many rows carry it.
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// EntityCounts summarises one approvable entity collection.
type EntityCounts struct {
	Total           int64         `json:"total"`
	PendingApproval int64         `json:"pending_approval"`
	ByStatus        []StatusCount `json:"by_status"`
}

// OrderValue pairs a lifecycle status with count and monetary value.
type OrderValue struct {
	Status string  `json:"status"`
	Count  int64   `json:"count"`
	Value  float64 `json:"value"`
}

// VendorRank is one entry of the top vendors board.
type VendorRank struct {
	VendorID   int64   `json:"vendor_id"`
	Name       string  `json:"name"`
	Orders     int64   `json:"orders"`
	OrderValue float64 `json:"order_value"`
}

// Summary is the aggregated dashboard payload.
type Summary struct {
	Vendors        EntityCounts `json:"vendors"`
	Customers      EntityCounts `json:"customers"`
	Employees      EntityCounts `json:"employees"`
	PurchaseOrders EntityCounts `json:"purchase_orders"`

	OrdersByStatus []OrderValue `json:"orders_by_status"`
	// PendingPayment sums TotalAmount over delivered and invoiced orders,
	// the money already owed but not yet settled.
	PendingPayment float64      `json:"pending_payment"`
	TopVendors     []VendorRank `json:"top_vendors"`
}
