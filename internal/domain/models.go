package domain

import "time"

// TransactionKind is the closed set of cash movements a shift drawer accepts.
type TransactionKind string

const (
	KindManualIn   TransactionKind = "manual_in"
	KindManualOut  TransactionKind = "manual_out"
	KindHandoverIn TransactionKind = "handover_in"
)

// IsManual reports whether the kind may be recorded directly by an operator.
// Handover entries are only ever written by the handover processor.
func (k TransactionKind) IsManual() bool {
	return k == KindManualIn || k == KindManualOut
}

func (k TransactionKind) Valid() bool {
	return k == KindManualIn || k == KindManualOut || k == KindHandoverIn
}

const (
	PaymentCash = "cash"
	PaymentCard = "card"
)

const (
	RoleCashier = "cashier"
	RoleCourier = "courier"
	RoleWaiter  = "waiter"
)

// Employee is a staff member who can own a shift or hold collected cash.
// CashBalanceCents is the debt ledger: cash the employee physically holds
// on the business's behalf. It never goes below zero.
type Employee struct {
	ID               string `json:"id"`
	FullName         string `json:"full_name"`
	Role             string `json:"role"`
	CashBalanceCents int64  `json:"cash_balance_cents"`
}

// Shift is one employee's accountability window over the cash drawer.
// The Sales*/Service* totals stay zero while the shift is open and are
// frozen from the statistics engine at close time.
type Shift struct {
	ID              string     `json:"id"`
	EmployeeID      string     `json:"employee_id"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	StartCashCents  int64      `json:"start_cash_cents"`
	EndCashCents    int64      `json:"end_cash_cents"`
	SalesCashCents  int64      `json:"sales_cash_cents"`
	SalesCardCents  int64      `json:"sales_card_cents"`
	ServiceInCents  int64      `json:"service_in_cents"`
	ServiceOutCents int64      `json:"service_out_cents"`
	Closed          bool       `json:"closed"`
}

// CashTransaction is an append-only drawer movement. Immutable once written.
type CashTransaction struct {
	ID          string          `json:"id"`
	ShiftID     string          `json:"shift_id"`
	AmountCents int64           `json:"amount_cents"`
	Kind        TransactionKind `json:"kind"`
	Comment     string          `json:"comment"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Order is owned by the order subsystem; the ledger only reads payment
// fields and sets ShiftID (set-once) and CashTurnedIn.
type Order struct {
	ID            string `json:"id"`
	PaymentMethod string `json:"payment_method"`
	TotalCents    int64  `json:"total_cents"`
	CashTurnedIn  bool   `json:"cash_turned_in"`
	ShiftID       string `json:"shift_id,omitempty"`
	CourierID     string `json:"courier_id,omitempty"`
	WaiterID      string `json:"waiter_id,omitempty"`
}

// ShiftAggregates are the raw sums the statistics engine works from.
// CollectedCashCents counts cash orders linked to the shift with the money
// already in the drawer (turned in directly or via handover);
// HandoverInCents is informational and never re-added to the drawer.
type ShiftAggregates struct {
	SalesCashCents     int64 `json:"sales_cash_cents"`
	SalesCardCents     int64 `json:"sales_card_cents"`
	CollectedCashCents int64 `json:"collected_cash_cents"`
	ServiceInCents     int64 `json:"service_in_cents"`
	ServiceOutCents    int64 `json:"service_out_cents"`
	HandoverInCents    int64 `json:"handover_in_cents"`
}

// ShiftStatistics is the X-report (mid-shift) or Z-report (at close).
type ShiftStatistics struct {
	ShiftID              string    `json:"shift_id"`
	StartTime            time.Time `json:"start_time"`
	StartCashCents       int64     `json:"start_cash_cents"`
	SalesCashCents       int64     `json:"sales_cash_cents"`
	SalesCardCents       int64     `json:"sales_card_cents"`
	TotalSalesCents      int64     `json:"total_sales_cents"`
	CollectedCashCents   int64     `json:"collected_cash_cents"`
	ServiceInCents       int64     `json:"service_in_cents"`
	ServiceOutCents      int64     `json:"service_out_cents"`
	HandoverInCents      int64     `json:"handover_in_cents"`
	TheoreticalCashCents int64     `json:"theoretical_cash_cents"`
	Closed               bool      `json:"closed"`
}

// BuildShiftStatistics applies the drawer formula to a shift and its
// aggregates. Sales figures are the business view (everything linked to
// the shift); theoretical cash is the drawer view and only counts cash
// that physically reached it. The two are deliberately distinct.
func BuildShiftStatistics(shift Shift, agg ShiftAggregates) ShiftStatistics {
	return ShiftStatistics{
		ShiftID:              shift.ID,
		StartTime:            shift.StartTime,
		StartCashCents:       shift.StartCashCents,
		SalesCashCents:       agg.SalesCashCents,
		SalesCardCents:       agg.SalesCardCents,
		TotalSalesCents:      agg.SalesCashCents + agg.SalesCardCents,
		CollectedCashCents:   agg.CollectedCashCents,
		ServiceInCents:       agg.ServiceInCents,
		ServiceOutCents:      agg.ServiceOutCents,
		HandoverInCents:      agg.HandoverInCents,
		TheoreticalCashCents: shift.StartCashCents + agg.CollectedCashCents + agg.ServiceInCents - agg.ServiceOutCents,
		Closed:               shift.Closed,
	}
}

type ShiftOpenRequest struct {
	EmployeeID     string `json:"employee_id"`
	StartCashCents int64  `json:"start_cash_cents"`
}

type ShiftCloseRequest struct {
	ShiftID      string `json:"shift_id"`
	EndCashCents int64  `json:"end_cash_cents"`
}

type ShiftResponse struct {
	Shift Shift `json:"shift"`
}

// ShiftCloseResponse carries the frozen Z-report alongside the closed shift.
type ShiftCloseResponse struct {
	Shift      Shift           `json:"shift"`
	Statistics ShiftStatistics `json:"statistics"`
}

type TransactionRequest struct {
	ShiftID     string          `json:"shift_id"`
	AmountCents int64           `json:"amount_cents"`
	Kind        TransactionKind `json:"kind"`
	Comment     string          `json:"comment"`
}

type TransactionResponse struct {
	Transaction CashTransaction `json:"transaction"`
}

type HandoverRequest struct {
	CashierShiftID string   `json:"cashier_shift_id"`
	EmployeeID     string   `json:"employee_id"`
	OrderIDs       []string `json:"order_ids"`
}

// HandoverResult is what the store returns after the atomic handover:
// the settled orders, the drawer transaction, and the employee's balance
// after the decrease (clamped at zero).
type HandoverResult struct {
	AmountCents          int64           `json:"amount_cents"`
	SettledOrderIDs      []string        `json:"settled_order_ids"`
	Transaction          CashTransaction `json:"transaction"`
	EmployeeBalanceCents int64           `json:"employee_balance_cents"`
}

type OrderCompletedRequest struct {
	ActingEmployeeID string `json:"acting_employee_id,omitempty"`
}

// OrderCompletedResult reports how the ledger absorbed a completed order.
// Linked is false only in the degraded no-open-shift case.
type OrderCompletedResult struct {
	OrderID         string `json:"order_id"`
	Linked          bool   `json:"linked"`
	ShiftID         string `json:"shift_id,omitempty"`
	DebtEmployeeID  string `json:"debt_employee_id,omitempty"`
	SettledDirectly bool   `json:"settled_directly"`
}

type EmployeeBalance struct {
	EmployeeID       string `json:"employee_id"`
	FullName         string `json:"full_name"`
	Role             string `json:"role"`
	CashBalanceCents int64  `json:"cash_balance_cents"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}
