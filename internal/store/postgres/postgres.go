package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"restokasa/backend/internal/domain"
	"restokasa/backend/internal/store"
	"restokasa/backend/internal/xid"
)

// Store is the PostgreSQL ledger repository. The one-open-shift-per-employee
// invariant is enforced by a partial unique index:
//
//	CREATE UNIQUE INDEX uq_cash_shifts_open ON cash_shifts (employee_id) WHERE NOT closed;
//
// so concurrent opens race at the database, not in application code. All
// multi-step mutations run in serializable transactions with row locks.
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) GetEmployee(ctx context.Context, employeeID string) (*domain.Employee, error) {
	var employee domain.Employee
	err := s.db.QueryRowContext(ctx, `
		SELECT id, full_name, role, cash_balance_cents
		FROM employees
		WHERE id = $1
	`, employeeID).Scan(&employee.ID, &employee.FullName, &employee.Role, &employee.CashBalanceCents)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrEmployeeNotFound
		}
		return nil, err
	}
	return &employee, nil
}

func (s *Store) ListEmployeeBalances(ctx context.Context) ([]domain.EmployeeBalance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, full_name, role, cash_balance_cents
		FROM employees
		ORDER BY full_name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	balances := make([]domain.EmployeeBalance, 0, 32)
	for rows.Next() {
		var b domain.EmployeeBalance
		if err := rows.Scan(&b.EmployeeID, &b.FullName, &b.Role, &b.CashBalanceCents); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return balances, nil
}

func (s *Store) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var order domain.Order
	err := s.db.QueryRowContext(ctx, `
		SELECT id, payment_method, total_cents, cash_turned_in,
			COALESCE(cash_shift_id,''), COALESCE(courier_id,''), COALESCE(waiter_id,'')
		FROM orders
		WHERE id = $1
	`, orderID).Scan(&order.ID, &order.PaymentMethod, &order.TotalCents, &order.CashTurnedIn,
		&order.ShiftID, &order.CourierID, &order.WaiterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (s *Store) ListOutstandingOrders(ctx context.Context, employeeID string) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, payment_method, total_cents, cash_turned_in,
			COALESCE(cash_shift_id,''), COALESCE(courier_id,''), COALESCE(waiter_id,'')
		FROM orders
		WHERE payment_method = 'cash'
			AND cash_turned_in = false
			AND (courier_id = $1 OR waiter_id = $1)
		ORDER BY id ASC
	`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, 16)
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.PaymentMethod, &order.TotalCents, &order.CashTurnedIn,
			&order.ShiftID, &order.CourierID, &order.WaiterID); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Store) OpenShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error) {
	if strings.TrimSpace(shift.EmployeeID) == "" {
		return nil, store.ErrEmployeeNotFound
	}
	if shift.ID == "" {
		shift.ID = xid.New("shift")
	}
	if shift.StartTime.IsZero() {
		shift.StartTime = time.Now().UTC()
	}
	shift.Closed = false
	shift.EndTime = nil

	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM employees WHERE id = $1)
	`, shift.EmployeeID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrEmployeeNotFound
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cash_shifts (
			id, employee_id, start_time, end_time, start_cash_cents, end_cash_cents,
			sales_cash_cents, sales_card_cents, service_in_cents, service_out_cents, closed
		)
		VALUES ($1,$2,$3,NULL,$4,0,0,0,0,0,false)
	`, shift.ID, shift.EmployeeID, shift.StartTime, shift.StartCashCents)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrShiftAlreadyOpen
		}
		return nil, err
	}

	created := shift
	return &created, nil
}

const shiftColumns = `id, employee_id, start_time, end_time, start_cash_cents, end_cash_cents,
	sales_cash_cents, sales_card_cents, service_in_cents, service_out_cents, closed`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShift(row rowScanner) (*domain.Shift, error) {
	var shift domain.Shift
	var endTime sql.NullTime
	err := row.Scan(&shift.ID, &shift.EmployeeID, &shift.StartTime, &endTime,
		&shift.StartCashCents, &shift.EndCashCents, &shift.SalesCashCents, &shift.SalesCardCents,
		&shift.ServiceInCents, &shift.ServiceOutCents, &shift.Closed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	shift.StartTime = shift.StartTime.UTC()
	if endTime.Valid {
		at := endTime.Time.UTC()
		shift.EndTime = &at
	}
	return &shift, nil
}

func (s *Store) GetShift(ctx context.Context, shiftID string) (*domain.Shift, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+shiftColumns+`
		FROM cash_shifts
		WHERE id = $1
	`, shiftID)
	return scanShift(row)
}

func (s *Store) GetOpenShiftByEmployee(ctx context.Context, employeeID string) (*domain.Shift, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+shiftColumns+`
		FROM cash_shifts
		WHERE employee_id = $1 AND closed = false
		LIMIT 1
	`, employeeID)
	return scanShift(row)
}

func (s *Store) GetAnyOpenShift(ctx context.Context) (*domain.Shift, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+shiftColumns+`
		FROM cash_shifts
		WHERE closed = false
		ORDER BY id ASC
		LIMIT 1
	`)
	return scanShift(row)
}

func (s *Store) CloseShift(ctx context.Context, shiftID string, endCashCents int64, closedAt time.Time) (*domain.Shift, error) {
	if closedAt.IsZero() {
		closedAt = time.Now().UTC()
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	row := pgTx.QueryRowContext(ctx, `
		SELECT `+shiftColumns+`
		FROM cash_shifts
		WHERE id = $1
		FOR UPDATE
	`, shiftID)
	shift, err := scanShift(row)
	if err != nil {
		return nil, err
	}
	if shift.Closed {
		return nil, store.ErrShiftClosed
	}

	agg, err := shiftAggregatesTx(ctx, pgTx, shiftID)
	if err != nil {
		return nil, err
	}

	_, err = pgTx.ExecContext(ctx, `
		UPDATE cash_shifts
		SET closed = true, end_time = $2, end_cash_cents = $3,
			sales_cash_cents = $4, sales_card_cents = $5,
			service_in_cents = $6, service_out_cents = $7
		WHERE id = $1
	`, shiftID, closedAt, endCashCents, agg.SalesCashCents, agg.SalesCardCents, agg.ServiceInCents, agg.ServiceOutCents)
	if err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	shift.Closed = true
	shift.EndTime = &closedAt
	shift.EndCashCents = endCashCents
	shift.SalesCashCents = agg.SalesCashCents
	shift.SalesCardCents = agg.SalesCardCents
	shift.ServiceInCents = agg.ServiceInCents
	shift.ServiceOutCents = agg.ServiceOutCents
	return shift, nil
}

func (s *Store) AppendTransaction(ctx context.Context, txn domain.CashTransaction) (*domain.CashTransaction, error) {
	if txn.AmountCents <= 0 {
		return nil, store.ErrInvalidAmount
	}
	if !txn.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", store.ErrInvalidKind, txn.Kind)
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	created, err := appendTransactionTx(ctx, pgTx, txn)
	if err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return created, nil
}

// appendTransactionTx locks the shift row, rejects closed shifts, and inserts
// the transaction. Callers own the surrounding transaction.
func appendTransactionTx(ctx context.Context, pgTx *sql.Tx, txn domain.CashTransaction) (*domain.CashTransaction, error) {
	var closed bool
	err := pgTx.QueryRowContext(ctx, `
		SELECT closed
		FROM cash_shifts
		WHERE id = $1
		FOR UPDATE
	`, txn.ShiftID).Scan(&closed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if closed {
		return nil, store.ErrShiftClosed
	}

	if txn.ID == "" {
		txn.ID = xid.New("ctx")
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO cash_transactions (id, shift_id, amount_cents, kind, comment, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, txn.ID, txn.ShiftID, txn.AmountCents, string(txn.Kind), txn.Comment, txn.CreatedAt)
	if err != nil {
		return nil, err
	}

	created := txn
	return &created, nil
}

func (s *Store) ListShiftTransactions(ctx context.Context, shiftID string) ([]domain.CashTransaction, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM cash_shifts WHERE id = $1)
	`, shiftID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, shift_id, amount_cents, kind, comment, created_at
		FROM cash_transactions
		WHERE shift_id = $1
		ORDER BY created_at ASC, id ASC
	`, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := make([]domain.CashTransaction, 0, 32)
	for rows.Next() {
		var txn domain.CashTransaction
		var kind string
		if err := rows.Scan(&txn.ID, &txn.ShiftID, &txn.AmountCents, &kind, &txn.Comment, &txn.CreatedAt); err != nil {
			return nil, err
		}
		txn.Kind = domain.TransactionKind(kind)
		txn.CreatedAt = txn.CreatedAt.UTC()
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return transactions, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func shiftAggregatesTx(ctx context.Context, q querier, shiftID string) (domain.ShiftAggregates, error) {
	var agg domain.ShiftAggregates

	err := q.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN payment_method = 'cash' THEN total_cents ELSE 0 END),0)::bigint,
			COALESCE(SUM(CASE WHEN payment_method = 'card' THEN total_cents ELSE 0 END),0)::bigint,
			COALESCE(SUM(CASE WHEN payment_method = 'cash' AND cash_turned_in THEN total_cents ELSE 0 END),0)::bigint
		FROM orders
		WHERE cash_shift_id = $1
	`, shiftID).Scan(&agg.SalesCashCents, &agg.SalesCardCents, &agg.CollectedCashCents)
	if err != nil {
		return agg, err
	}

	err = q.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN kind = 'manual_in' THEN amount_cents ELSE 0 END),0)::bigint,
			COALESCE(SUM(CASE WHEN kind = 'manual_out' THEN amount_cents ELSE 0 END),0)::bigint,
			COALESCE(SUM(CASE WHEN kind = 'handover_in' THEN amount_cents ELSE 0 END),0)::bigint
		FROM cash_transactions
		WHERE shift_id = $1
	`, shiftID).Scan(&agg.ServiceInCents, &agg.ServiceOutCents, &agg.HandoverInCents)
	if err != nil {
		return agg, err
	}

	return agg, nil
}

func (s *Store) ShiftAggregates(ctx context.Context, shiftID string) (domain.ShiftAggregates, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM cash_shifts WHERE id = $1)
	`, shiftID).Scan(&exists)
	if err != nil {
		return domain.ShiftAggregates{}, err
	}
	if !exists {
		return domain.ShiftAggregates{}, store.ErrNotFound
	}
	return shiftAggregatesTx(ctx, s.db, shiftID)
}

func (s *Store) LinkOrderToShift(ctx context.Context, orderID string, shiftID string) (*domain.Order, error) {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var order domain.Order
	err = pgTx.QueryRowContext(ctx, `
		SELECT id, payment_method, total_cents, cash_turned_in,
			COALESCE(cash_shift_id,''), COALESCE(courier_id,''), COALESCE(waiter_id,'')
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, orderID).Scan(&order.ID, &order.PaymentMethod, &order.TotalCents, &order.CashTurnedIn,
		&order.ShiftID, &order.CourierID, &order.WaiterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if order.ShiftID != "" {
		return &order, nil
	}

	var exists bool
	err = pgTx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM cash_shifts WHERE id = $1)
	`, shiftID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}

	_, err = pgTx.ExecContext(ctx, `
		UPDATE orders
		SET cash_shift_id = $2
		WHERE id = $1
	`, orderID, shiftID)
	if err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	order.ShiftID = shiftID
	return &order, nil
}

func (s *Store) RegisterOrderDebt(ctx context.Context, orderID string, employeeID string) (*domain.Employee, error) {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var paymentMethod string
	var totalCents int64
	err = pgTx.QueryRowContext(ctx, `
		SELECT payment_method, total_cents
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, orderID).Scan(&paymentMethod, &totalCents)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	var employee domain.Employee
	err = pgTx.QueryRowContext(ctx, `
		SELECT id, full_name, role, cash_balance_cents
		FROM employees
		WHERE id = $1
		FOR UPDATE
	`, employeeID).Scan(&employee.ID, &employee.FullName, &employee.Role, &employee.CashBalanceCents)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrEmployeeNotFound
		}
		return nil, err
	}

	if paymentMethod != domain.PaymentCash {
		if err := pgTx.Commit(); err != nil {
			return nil, err
		}
		return &employee, nil
	}

	err = pgTx.QueryRowContext(ctx, `
		UPDATE employees
		SET cash_balance_cents = cash_balance_cents + $2
		WHERE id = $1
		RETURNING cash_balance_cents
	`, employeeID, totalCents).Scan(&employee.CashBalanceCents)
	if err != nil {
		return nil, err
	}

	_, err = pgTx.ExecContext(ctx, `
		UPDATE orders
		SET cash_turned_in = false
		WHERE id = $1
	`, orderID)
	if err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return &employee, nil
}

func (s *Store) SettleOrderDirect(ctx context.Context, orderID string) (*domain.Order, error) {
	var order domain.Order
	err := s.db.QueryRowContext(ctx, `
		UPDATE orders
		SET cash_turned_in = true
		WHERE id = $1
		RETURNING id, payment_method, total_cents, cash_turned_in,
			COALESCE(cash_shift_id,''), COALESCE(courier_id,''), COALESCE(waiter_id,'')
	`, orderID).Scan(&order.ID, &order.PaymentMethod, &order.TotalCents, &order.CashTurnedIn,
		&order.ShiftID, &order.CourierID, &order.WaiterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (s *Store) ProcessHandover(ctx context.Context, cashierShiftID string, employeeID string, orderIDs []string, at time.Time) (*domain.HandoverResult, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var closed bool
	err = pgTx.QueryRowContext(ctx, `
		SELECT closed
		FROM cash_shifts
		WHERE id = $1
		FOR UPDATE
	`, cashierShiftID).Scan(&closed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if closed {
		return nil, store.ErrShiftClosed
	}

	var employee domain.Employee
	err = pgTx.QueryRowContext(ctx, `
		SELECT id, full_name, role, cash_balance_cents
		FROM employees
		WHERE id = $1
		FOR UPDATE
	`, employeeID).Scan(&employee.ID, &employee.FullName, &employee.Role, &employee.CashBalanceCents)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrEmployeeNotFound
		}
		return nil, err
	}

	// Already-settled and unknown ids are excluded here rather than
	// rejected; the handover form may race with a direct settle.
	rows, err := pgTx.QueryContext(ctx, `
		SELECT id, total_cents
		FROM orders
		WHERE id = ANY($1) AND cash_turned_in = false
		ORDER BY id ASC
		FOR UPDATE
	`, orderIDs)
	if err != nil {
		return nil, err
	}
	var amount int64
	settledIDs := make([]string, 0, len(orderIDs))
	for rows.Next() {
		var id string
		var total int64
		if err := rows.Scan(&id, &total); err != nil {
			_ = rows.Close()
			return nil, err
		}
		amount += total
		settledIDs = append(settledIDs, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	if len(settledIDs) == 0 {
		return nil, store.ErrNoEligibleOrders
	}

	_, err = pgTx.ExecContext(ctx, `
		UPDATE orders
		SET cash_turned_in = true,
			cash_shift_id = COALESCE(cash_shift_id, $2)
		WHERE id = ANY($1)
	`, settledIDs, cashierShiftID)
	if err != nil {
		return nil, err
	}

	err = pgTx.QueryRowContext(ctx, `
		UPDATE employees
		SET cash_balance_cents = GREATEST(0, cash_balance_cents - $2)
		WHERE id = $1
		RETURNING cash_balance_cents
	`, employeeID, amount).Scan(&employee.CashBalanceCents)
	if err != nil {
		return nil, err
	}

	txn, err := appendTransactionTx(ctx, pgTx, domain.CashTransaction{
		ShiftID:     cashierShiftID,
		AmountCents: amount,
		Kind:        domain.KindHandoverIn,
		Comment:     fmt.Sprintf("Handover from %s (orders: %s)", employee.FullName, strings.Join(settledIDs, ", ")),
		CreatedAt:   at,
	})
	if err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	return &domain.HandoverResult{
		AmountCents:          amount,
		SettledOrderIDs:      settledIDs,
		Transaction:          *txn,
		EmployeeBalanceCents: employee.CashBalanceCents,
	}, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return fmt.Errorf("username and password required")
	}
	if user.Role == "" {
		user.Role = "cashier"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("username already exists")
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return fmt.Errorf("username and password required")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
