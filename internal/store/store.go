package store

import (
	"context"
	"errors"
	"time"

	"restokasa/backend/internal/domain"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrShiftAlreadyOpen = errors.New("employee already has an open shift")
	ErrShiftClosed      = errors.New("shift already closed")
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrInvalidKind      = errors.New("unknown transaction kind")
	ErrNoEligibleOrders = errors.New("no eligible orders for handover")
)

// Repository is the ledger's persistence boundary. Multi-step operations
// (OpenShift, CloseShift, RegisterOrderDebt, ProcessHandover) are atomic:
// an implementation must either commit every step or none, and two
// concurrent calls against the same shift or employee must serialize.
type Repository interface {
	GetEmployee(ctx context.Context, employeeID string) (*domain.Employee, error)
	ListEmployeeBalances(ctx context.Context) ([]domain.EmployeeBalance, error)

	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	// ListOutstandingOrders returns the cash orders an employee collected
	// but has not yet turned in, oldest first.
	ListOutstandingOrders(ctx context.Context, employeeID string) ([]domain.Order, error)

	// OpenShift persists a new open shift, failing with ErrShiftAlreadyOpen
	// if the employee already has one. The check-and-create is atomic.
	OpenShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error)
	GetShift(ctx context.Context, shiftID string) (*domain.Shift, error)
	// GetOpenShiftByEmployee returns ErrNotFound when the employee has no
	// open shift; callers treat that as "none", not a failure.
	GetOpenShiftByEmployee(ctx context.Context, employeeID string) (*domain.Shift, error)
	GetAnyOpenShift(ctx context.Context) (*domain.Shift, error)
	// CloseShift freezes the shift: it computes the aggregates, stamps the
	// cached totals and end time, and marks the shift closed, all in one
	// transaction. Fails with ErrShiftClosed on a second close.
	CloseShift(ctx context.Context, shiftID string, endCashCents int64, closedAt time.Time) (*domain.Shift, error)

	// AppendTransaction writes an immutable drawer movement. Fails with
	// ErrShiftClosed when the target shift is no longer open.
	AppendTransaction(ctx context.Context, tx domain.CashTransaction) (*domain.CashTransaction, error)
	ListShiftTransactions(ctx context.Context, shiftID string) ([]domain.CashTransaction, error)
	ShiftAggregates(ctx context.Context, shiftID string) (domain.ShiftAggregates, error)

	// LinkOrderToShift binds an order to a shift for reporting. Set-once:
	// if the order is already linked the call is a no-op and returns the
	// order unchanged.
	LinkOrderToShift(ctx context.Context, orderID string, shiftID string) (*domain.Order, error)
	// RegisterOrderDebt moves a cash order's total onto the employee's
	// balance and marks the order not turned in. No-op for non-cash orders.
	RegisterOrderDebt(ctx context.Context, orderID string, employeeID string) (*domain.Employee, error)
	// SettleOrderDirect marks a cash order as turned in with no debt,
	// i.e. the money went straight into the drawer.
	SettleOrderDirect(ctx context.Context, orderID string) (*domain.Order, error)
	// ProcessHandover settles the still-outstanding orders from orderIDs
	// against the cashier's shift: marks them turned in, links unlinked
	// ones to the shift, decreases the employee balance (clamped at zero)
	// and appends one handover_in transaction, all atomically.
	ProcessHandover(ctx context.Context, cashierShiftID string, employeeID string, orderIDs []string, at time.Time) (*domain.HandoverResult, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
