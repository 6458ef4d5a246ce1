package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"restokasa/backend/internal/domain"
	"restokasa/backend/internal/store"
	"restokasa/backend/internal/xid"
)

// Store is the in-memory ledger used for dev mode and tests. One mutex
// serializes every mutation, which trivially satisfies the atomicity
// contract of store.Repository.
type Store struct {
	mu                  sync.RWMutex
	employeesByID       map[string]domain.Employee
	ordersByID          map[string]domain.Order
	shiftsByID          map[string]domain.Shift
	openShiftByEmployee map[string]string
	transactionsByShift map[string][]domain.CashTransaction
	usersByUsername     map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory auth accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD; if
// unset, dev defaults are used with a warning. Production deployments use
// PostgreSQL (DATABASE_URL) and never hit this path.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewSeeded returns a store pre-populated with a small staff roster and a
// few completed-but-unprocessed orders, enough to exercise every ledger
// flow without a database.
func NewSeeded() *Store {
	employees := []domain.Employee{
		{ID: "emp-olha", FullName: "Olha Kovalenko", Role: domain.RoleCashier},
		{ID: "emp-taras", FullName: "Taras Melnyk", Role: domain.RoleCourier},
		{ID: "emp-iryna", FullName: "Iryna Shevchenko", Role: domain.RoleWaiter},
		{ID: "emp-petro", FullName: "Petro Bondar", Role: domain.RoleCourier},
	}

	orders := []domain.Order{
		{ID: "ord-1001", PaymentMethod: domain.PaymentCash, TotalCents: 15000, CourierID: "emp-taras"},
		{ID: "ord-1002", PaymentMethod: domain.PaymentCard, TotalCents: 22000, CourierID: "emp-taras"},
		{ID: "ord-1003", PaymentMethod: domain.PaymentCash, TotalCents: 9000, WaiterID: "emp-iryna"},
		{ID: "ord-1004", PaymentMethod: domain.PaymentCash, TotalCents: 12500},
	}

	employeeMap := make(map[string]domain.Employee, len(employees))
	for _, e := range employees {
		employeeMap[e.ID] = e
	}
	orderMap := make(map[string]domain.Order, len(orders))
	for _, o := range orders {
		orderMap[o.ID] = o
	}

	return &Store{
		employeesByID:       employeeMap,
		ordersByID:          orderMap,
		shiftsByID:          make(map[string]domain.Shift),
		openShiftByEmployee: make(map[string]string),
		transactionsByShift: make(map[string][]domain.CashTransaction),
		usersByUsername:     seedUsers(),
	}
}

// PutOrder inserts or replaces an order. The order subsystem owns orders
// in production; this is the seam tests and dev seeding use to stand in
// for it.
func (s *Store) PutOrder(order domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ordersByID[order.ID] = order
}

// PutEmployee inserts or replaces an employee, for tests and dev seeding.
func (s *Store) PutEmployee(employee domain.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employeesByID[employee.ID] = employee
}

func (s *Store) GetEmployee(_ context.Context, employeeID string) (*domain.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	employee, ok := s.employeesByID[employeeID]
	if !ok {
		return nil, store.ErrEmployeeNotFound
	}
	copied := employee
	return &copied, nil
}

func (s *Store) ListEmployeeBalances(_ context.Context) ([]domain.EmployeeBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	balances := make([]domain.EmployeeBalance, 0, len(s.employeesByID))
	for _, e := range s.employeesByID {
		balances = append(balances, domain.EmployeeBalance{
			EmployeeID:       e.ID,
			FullName:         e.FullName,
			Role:             e.Role,
			CashBalanceCents: e.CashBalanceCents,
		})
	}
	slices.SortFunc(balances, func(a, b domain.EmployeeBalance) int {
		return strings.Compare(a.FullName, b.FullName)
	})
	return balances, nil
}

func (s *Store) GetOrder(_ context.Context, orderID string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.ordersByID[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := order
	return &copied, nil
}

func (s *Store) ListOutstandingOrders(_ context.Context, employeeID string) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]domain.Order, 0, 8)
	for _, o := range s.ordersByID {
		if o.PaymentMethod != domain.PaymentCash || o.CashTurnedIn {
			continue
		}
		if o.CourierID != employeeID && o.WaiterID != employeeID {
			continue
		}
		orders = append(orders, o)
	}
	slices.SortFunc(orders, func(a, b domain.Order) int {
		return strings.Compare(a.ID, b.ID)
	})
	return orders, nil
}

func (s *Store) OpenShift(_ context.Context, shift domain.Shift) (*domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.employeesByID[shift.EmployeeID]; !exists {
		return nil, store.ErrEmployeeNotFound
	}
	if _, open := s.openShiftByEmployee[shift.EmployeeID]; open {
		return nil, store.ErrShiftAlreadyOpen
	}

	if shift.ID == "" {
		shift.ID = xid.New("shift")
	}
	if shift.StartTime.IsZero() {
		shift.StartTime = time.Now().UTC()
	}
	shift.Closed = false
	shift.EndTime = nil

	s.shiftsByID[shift.ID] = shift
	s.openShiftByEmployee[shift.EmployeeID] = shift.ID
	created := shift
	return &created, nil
}

func (s *Store) GetShift(_ context.Context, shiftID string) (*domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getShiftLocked(shiftID)
}

func (s *Store) getShiftLocked(shiftID string) (*domain.Shift, error) {
	shift, ok := s.shiftsByID[shiftID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := shift
	return &copied, nil
}

func (s *Store) GetOpenShiftByEmployee(_ context.Context, employeeID string) (*domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shiftID, ok := s.openShiftByEmployee[employeeID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.getShiftLocked(shiftID)
}

func (s *Store) GetAnyOpenShift(_ context.Context) (*domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.openShiftByEmployee))
	for _, shiftID := range s.openShiftByEmployee {
		ids = append(ids, shiftID)
	}
	if len(ids) == 0 {
		return nil, store.ErrNotFound
	}
	// Shift ids are time-ordered, so the lowest id is the earliest-opened
	// shift. Deterministic fallback target.
	slices.Sort(ids)
	return s.getShiftLocked(ids[0])
}

func (s *Store) CloseShift(_ context.Context, shiftID string, endCashCents int64, closedAt time.Time) (*domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shift, ok := s.shiftsByID[shiftID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if shift.Closed {
		return nil, store.ErrShiftClosed
	}
	if closedAt.IsZero() {
		closedAt = time.Now().UTC()
	}

	agg := s.aggregatesLocked(shiftID)
	shift.SalesCashCents = agg.SalesCashCents
	shift.SalesCardCents = agg.SalesCardCents
	shift.ServiceInCents = agg.ServiceInCents
	shift.ServiceOutCents = agg.ServiceOutCents
	shift.EndCashCents = endCashCents
	shift.EndTime = &closedAt
	shift.Closed = true

	s.shiftsByID[shiftID] = shift
	delete(s.openShiftByEmployee, shift.EmployeeID)
	closed := shift
	return &closed, nil
}

func (s *Store) AppendTransaction(_ context.Context, tx domain.CashTransaction) (*domain.CashTransaction, error) {
	if tx.AmountCents <= 0 {
		return nil, store.ErrInvalidAmount
	}
	if !tx.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", store.ErrInvalidKind, tx.Kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendTransactionLocked(tx)
}

func (s *Store) appendTransactionLocked(tx domain.CashTransaction) (*domain.CashTransaction, error) {
	shift, ok := s.shiftsByID[tx.ShiftID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if shift.Closed {
		return nil, store.ErrShiftClosed
	}

	if tx.ID == "" {
		tx.ID = xid.New("ctx")
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	s.transactionsByShift[tx.ShiftID] = append(s.transactionsByShift[tx.ShiftID], tx)
	created := tx
	return &created, nil
}

func (s *Store) ListShiftTransactions(_ context.Context, shiftID string) ([]domain.CashTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.shiftsByID[shiftID]; !ok {
		return nil, store.ErrNotFound
	}
	history := s.transactionsByShift[shiftID]
	result := make([]domain.CashTransaction, len(history))
	copy(result, history)
	return result, nil
}

func (s *Store) ShiftAggregates(_ context.Context, shiftID string) (domain.ShiftAggregates, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.shiftsByID[shiftID]; !ok {
		return domain.ShiftAggregates{}, store.ErrNotFound
	}
	return s.aggregatesLocked(shiftID), nil
}

func (s *Store) aggregatesLocked(shiftID string) domain.ShiftAggregates {
	var agg domain.ShiftAggregates

	for _, o := range s.ordersByID {
		if o.ShiftID != shiftID {
			continue
		}
		switch o.PaymentMethod {
		case domain.PaymentCash:
			agg.SalesCashCents += o.TotalCents
			if o.CashTurnedIn {
				agg.CollectedCashCents += o.TotalCents
			}
		case domain.PaymentCard:
			agg.SalesCardCents += o.TotalCents
		}
	}

	for _, tx := range s.transactionsByShift[shiftID] {
		switch tx.Kind {
		case domain.KindManualIn:
			agg.ServiceInCents += tx.AmountCents
		case domain.KindManualOut:
			agg.ServiceOutCents += tx.AmountCents
		case domain.KindHandoverIn:
			agg.HandoverInCents += tx.AmountCents
		}
	}

	return agg
}

func (s *Store) LinkOrderToShift(_ context.Context, orderID string, shiftID string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.ordersByID[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if order.ShiftID != "" {
		linked := order
		return &linked, nil
	}
	if _, ok := s.shiftsByID[shiftID]; !ok {
		return nil, store.ErrNotFound
	}

	order.ShiftID = shiftID
	s.ordersByID[orderID] = order
	linked := order
	return &linked, nil
}

func (s *Store) RegisterOrderDebt(_ context.Context, orderID string, employeeID string) (*domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.ordersByID[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	employee, ok := s.employeesByID[employeeID]
	if !ok {
		return nil, store.ErrEmployeeNotFound
	}
	if order.PaymentMethod != domain.PaymentCash {
		unchanged := employee
		return &unchanged, nil
	}

	employee.CashBalanceCents += order.TotalCents
	order.CashTurnedIn = false

	s.employeesByID[employeeID] = employee
	s.ordersByID[orderID] = order
	updated := employee
	return &updated, nil
}

func (s *Store) SettleOrderDirect(_ context.Context, orderID string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.ordersByID[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	order.CashTurnedIn = true
	s.ordersByID[orderID] = order
	settled := order
	return &settled, nil
}

func (s *Store) ProcessHandover(_ context.Context, cashierShiftID string, employeeID string, orderIDs []string, at time.Time) (*domain.HandoverResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shift, ok := s.shiftsByID[cashierShiftID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if shift.Closed {
		return nil, store.ErrShiftClosed
	}
	employee, ok := s.employeesByID[employeeID]
	if !ok {
		return nil, store.ErrEmployeeNotFound
	}

	// Already-settled or unknown ids are silently excluded; the caller is
	// trusted to have picked a coherent set.
	eligible := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		order, ok := s.ordersByID[id]
		if !ok || order.CashTurnedIn {
			continue
		}
		eligible = append(eligible, order)
	}
	if len(eligible) == 0 {
		return nil, store.ErrNoEligibleOrders
	}

	if at.IsZero() {
		at = time.Now().UTC()
	}

	var amount int64
	settledIDs := make([]string, 0, len(eligible))
	for _, order := range eligible {
		amount += order.TotalCents
		order.CashTurnedIn = true
		if order.ShiftID == "" {
			order.ShiftID = cashierShiftID
		}
		s.ordersByID[order.ID] = order
		settledIDs = append(settledIDs, order.ID)
	}

	employee.CashBalanceCents -= amount
	if employee.CashBalanceCents < 0 {
		employee.CashBalanceCents = 0
	}
	s.employeesByID[employeeID] = employee

	tx, err := s.appendTransactionLocked(domain.CashTransaction{
		ShiftID:     cashierShiftID,
		AmountCents: amount,
		Kind:        domain.KindHandoverIn,
		Comment:     fmt.Sprintf("Handover from %s (orders: %s)", employee.FullName, strings.Join(settledIDs, ", ")),
		CreatedAt:   at,
	})
	if err != nil {
		return nil, err
	}

	return &domain.HandoverResult{
		AmountCents:          amount,
		SettledOrderIDs:      settledIDs,
		Transaction:          *tx,
		EmployeeBalanceCents: employee.CashBalanceCents,
	}, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[user.Username]; exists {
		return fmt.Errorf("username already exists")
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}
