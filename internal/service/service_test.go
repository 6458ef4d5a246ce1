package service

import (
	"context"
	"errors"
	"testing"

	"restokasa/backend/internal/cache"
	"restokasa/backend/internal/domain"
	"restokasa/backend/internal/store"
	"restokasa/backend/internal/store/memory"
)

func newTestService() (*Service, *memory.Store) {
	repo := memory.NewSeeded()
	svc := New(repo, cache.NoopStatisticsCache{}, 0)
	return svc, repo
}

func openCashierShift(t *testing.T, svc *Service, startCashCents int64) domain.Shift {
	t.Helper()
	shift, err := svc.OpenShift(context.Background(), domain.ShiftOpenRequest{
		EmployeeID:     "emp-olha",
		StartCashCents: startCashCents,
	})
	if err != nil {
		t.Fatalf("open shift failed: %v", err)
	}
	return shift
}

func TestOpenShiftRejectsSecondOpenForSameEmployee(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	openCashierShift(t, svc, 50000)

	_, err := svc.OpenShift(ctx, domain.ShiftOpenRequest{EmployeeID: "emp-olha"})
	if !errors.Is(err, store.ErrShiftAlreadyOpen) {
		t.Fatalf("expected ErrShiftAlreadyOpen, got %v", err)
	}

	// A different employee is unaffected.
	if _, err := svc.OpenShift(ctx, domain.ShiftOpenRequest{EmployeeID: "emp-iryna"}); err != nil {
		t.Fatalf("open shift for second employee failed: %v", err)
	}
}

func TestOpenShiftValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.OpenShift(ctx, domain.ShiftOpenRequest{EmployeeID: "emp-olha", StartCashCents: -1}); !errors.Is(err, store.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative start cash, got %v", err)
	}
	if _, err := svc.OpenShift(ctx, domain.ShiftOpenRequest{EmployeeID: "emp-nobody"}); !errors.Is(err, store.ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
}

func TestGetOpenShiftByEmployeeAndAny(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.GetOpenShift(ctx, ""); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound with no open shifts, got %v", err)
	}

	first := openCashierShift(t, svc, 10000)

	byEmployee, err := svc.GetOpenShift(ctx, "emp-olha")
	if err != nil {
		t.Fatalf("get open shift by employee failed: %v", err)
	}
	if byEmployee.ID != first.ID {
		t.Fatalf("expected shift %s, got %s", first.ID, byEmployee.ID)
	}

	any, err := svc.GetOpenShift(ctx, "")
	if err != nil {
		t.Fatalf("get any open shift failed: %v", err)
	}
	if any.ID != first.ID {
		t.Fatalf("expected earliest open shift %s, got %s", first.ID, any.ID)
	}
}

func TestRecordTransactionValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	shift := openCashierShift(t, svc, 0)

	_, err := svc.RecordTransaction(ctx, domain.TransactionRequest{ShiftID: shift.ID, AmountCents: 0, Kind: domain.KindManualIn})
	if !errors.Is(err, store.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero amount, got %v", err)
	}

	_, err = svc.RecordTransaction(ctx, domain.TransactionRequest{ShiftID: shift.ID, AmountCents: -500, Kind: domain.KindManualOut})
	if !errors.Is(err, store.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative amount, got %v", err)
	}

	_, err = svc.RecordTransaction(ctx, domain.TransactionRequest{ShiftID: shift.ID, AmountCents: 100, Kind: domain.KindHandoverIn})
	if !errors.Is(err, store.ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind for handover kind, got %v", err)
	}

	_, err = svc.RecordTransaction(ctx, domain.TransactionRequest{ShiftID: "shift-missing", AmountCents: 100, Kind: domain.KindManualIn})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown shift, got %v", err)
	}
}

func TestTheoreticalCashFromManualTransactions(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	shift := openCashierShift(t, svc, 50000)

	if _, err := svc.RecordTransaction(ctx, domain.TransactionRequest{ShiftID: shift.ID, AmountCents: 20000, Kind: domain.KindManualIn, Comment: "change float top-up"}); err != nil {
		t.Fatalf("record manual_in failed: %v", err)
	}
	if _, err := svc.RecordTransaction(ctx, domain.TransactionRequest{ShiftID: shift.ID, AmountCents: 5000, Kind: domain.KindManualOut, Comment: "courier fuel"}); err != nil {
		t.Fatalf("record manual_out failed: %v", err)
	}

	stats, err := svc.ShiftStatistics(ctx, shift.ID)
	if err != nil {
		t.Fatalf("statistics failed: %v", err)
	}
	if stats.ServiceInCents != 20000 || stats.ServiceOutCents != 5000 {
		t.Fatalf("unexpected service totals: in=%d out=%d", stats.ServiceInCents, stats.ServiceOutCents)
	}
	if stats.TheoreticalCashCents != 65000 {
		t.Fatalf("expected theoretical cash 65000, got %d", stats.TheoreticalCashCents)
	}
}

func TestOrderCompletedRegistersCourierDebt(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	shift := openCashierShift(t, svc, 0)

	result, err := svc.OrderCompleted(ctx, "ord-1001", domain.OrderCompletedRequest{})
	if err != nil {
		t.Fatalf("order completed failed: %v", err)
	}
	if !result.Linked || result.ShiftID != shift.ID {
		t.Fatalf("expected order linked to %s, got linked=%v shift=%s", shift.ID, result.Linked, result.ShiftID)
	}
	if result.DebtEmployeeID != "emp-taras" {
		t.Fatalf("expected debt registered to courier, got %q", result.DebtEmployeeID)
	}

	courier, err := repo.GetEmployee(ctx, "emp-taras")
	if err != nil {
		t.Fatalf("get courier failed: %v", err)
	}
	if courier.CashBalanceCents != 15000 {
		t.Fatalf("expected courier balance 15000, got %d", courier.CashBalanceCents)
	}

	order, err := repo.GetOrder(ctx, "ord-1001")
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if order.CashTurnedIn {
		t.Fatalf("expected order not turned in while courier holds the cash")
	}
}

func TestOrderCompletedWaiterDebtWhenNoCourier(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	openCashierShift(t, svc, 0)

	result, err := svc.OrderCompleted(ctx, "ord-1003", domain.OrderCompletedRequest{})
	if err != nil {
		t.Fatalf("order completed failed: %v", err)
	}
	if result.DebtEmployeeID != "emp-iryna" {
		t.Fatalf("expected waiter debt, got %q", result.DebtEmployeeID)
	}

	waiter, err := repo.GetEmployee(ctx, "emp-iryna")
	if err != nil {
		t.Fatalf("get waiter failed: %v", err)
	}
	if waiter.CashBalanceCents != 9000 {
		t.Fatalf("expected waiter balance 9000, got %d", waiter.CashBalanceCents)
	}
}

func TestOrderCompletedDirectSettleWithoutCourierOrWaiter(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	shift := openCashierShift(t, svc, 0)

	result, err := svc.OrderCompleted(ctx, "ord-1004", domain.OrderCompletedRequest{})
	if err != nil {
		t.Fatalf("order completed failed: %v", err)
	}
	if !result.SettledDirectly {
		t.Fatalf("expected direct settle for pickup order")
	}
	if result.DebtEmployeeID != "" {
		t.Fatalf("expected no debt, got %q", result.DebtEmployeeID)
	}

	stats, err := svc.ShiftStatistics(ctx, shift.ID)
	if err != nil {
		t.Fatalf("statistics failed: %v", err)
	}
	if stats.CollectedCashCents != 12500 {
		t.Fatalf("expected collected cash 12500, got %d", stats.CollectedCashCents)
	}
	if stats.SalesCashCents != 12500 {
		t.Fatalf("expected cash sales 12500, got %d", stats.SalesCashCents)
	}
}

func TestOrderCompletedCardOrderOnlyLinks(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	shift := openCashierShift(t, svc, 0)

	result, err := svc.OrderCompleted(ctx, "ord-1002", domain.OrderCompletedRequest{})
	if err != nil {
		t.Fatalf("order completed failed: %v", err)
	}
	if !result.Linked || result.DebtEmployeeID != "" || result.SettledDirectly {
		t.Fatalf("card order must only link: %+v", result)
	}

	courier, err := repo.GetEmployee(ctx, "emp-taras")
	if err != nil {
		t.Fatalf("get courier failed: %v", err)
	}
	if courier.CashBalanceCents != 0 {
		t.Fatalf("card order must not create debt, balance=%d", courier.CashBalanceCents)
	}

	stats, err := svc.ShiftStatistics(ctx, shift.ID)
	if err != nil {
		t.Fatalf("statistics failed: %v", err)
	}
	if stats.SalesCardCents != 22000 {
		t.Fatalf("expected card sales 22000, got %d", stats.SalesCardCents)
	}
	if stats.TheoreticalCashCents != 0 {
		t.Fatalf("card sales must not reach the drawer, theoretical=%d", stats.TheoreticalCashCents)
	}
}

func TestOrderCompletedWithNoOpenShiftLeavesUnlinked(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	result, err := svc.OrderCompleted(ctx, "ord-1001", domain.OrderCompletedRequest{})
	if err != nil {
		t.Fatalf("order completed without shift must not fail: %v", err)
	}
	if result.Linked || result.ShiftID != "" {
		t.Fatalf("expected unlinked order, got %+v", result)
	}
	if result.DebtEmployeeID != "emp-taras" {
		t.Fatalf("debt must still be registered, got %q", result.DebtEmployeeID)
	}

	order, err := repo.GetOrder(ctx, "ord-1001")
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if order.ShiftID != "" {
		t.Fatalf("expected order to stay unlinked, got shift %s", order.ShiftID)
	}
}

func TestOrderLinkIsSetOnce(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	first := openCashierShift(t, svc, 0)

	if _, err := svc.OrderCompleted(ctx, "ord-1002", domain.OrderCompletedRequest{}); err != nil {
		t.Fatalf("order completed failed: %v", err)
	}

	second, err := svc.OpenShift(ctx, domain.ShiftOpenRequest{EmployeeID: "emp-iryna"})
	if err != nil {
		t.Fatalf("open second shift failed: %v", err)
	}

	relinked, err := repo.LinkOrderToShift(ctx, "ord-1002", second.ID)
	if err != nil {
		t.Fatalf("relink failed: %v", err)
	}
	if relinked.ShiftID != first.ID {
		t.Fatalf("link must be set-once, expected %s got %s", first.ID, relinked.ShiftID)
	}
}

func TestHandoverSettlesDebtAndFeedsDrawer(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	shift := openCashierShift(t, svc, 50000)

	if _, err := svc.OrderCompleted(ctx, "ord-1001", domain.OrderCompletedRequest{}); err != nil {
		t.Fatalf("order completed failed: %v", err)
	}

	result, err := svc.ProcessHandover(ctx, domain.HandoverRequest{
		CashierShiftID: shift.ID,
		EmployeeID:     "emp-taras",
		OrderIDs:       []string{"ord-1001"},
	})
	if err != nil {
		t.Fatalf("handover failed: %v", err)
	}
	if result.AmountCents != 15000 {
		t.Fatalf("expected handover amount 15000, got %d", result.AmountCents)
	}
	if result.EmployeeBalanceCents != 0 {
		t.Fatalf("expected courier balance 0 after handover, got %d", result.EmployeeBalanceCents)
	}
	if result.Transaction.Kind != domain.KindHandoverIn {
		t.Fatalf("expected handover_in transaction, got %s", result.Transaction.Kind)
	}

	order, err := repo.GetOrder(ctx, "ord-1001")
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if !order.CashTurnedIn {
		t.Fatalf("expected order turned in after handover")
	}

	stats, err := svc.ShiftStatistics(ctx, shift.ID)
	if err != nil {
		t.Fatalf("statistics failed: %v", err)
	}
	if stats.CollectedCashCents != 15000 {
		t.Fatalf("expected collected cash 15000, got %d", stats.CollectedCashCents)
	}
	if stats.HandoverInCents != 15000 {
		t.Fatalf("expected handover_in 15000, got %d", stats.HandoverInCents)
	}
	// The handover transaction is informational: the drawer counts the cash
	// once, through the collected orders.
	if stats.TheoreticalCashCents != 65000 {
		t.Fatalf("expected theoretical cash 65000, got %d", stats.TheoreticalCashCents)
	}
}

func TestHandoverLinksUnlinkedOrdersToCashierShift(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	// Order completed while nothing was open stays unlinked.
	if _, err := svc.OrderCompleted(ctx, "ord-1001", domain.OrderCompletedRequest{}); err != nil {
		t.Fatalf("order completed failed: %v", err)
	}

	shift := openCashierShift(t, svc, 0)
	if _, err := svc.ProcessHandover(ctx, domain.HandoverRequest{
		CashierShiftID: shift.ID,
		EmployeeID:     "emp-taras",
		OrderIDs:       []string{"ord-1001"},
	}); err != nil {
		t.Fatalf("handover failed: %v", err)
	}

	order, err := repo.GetOrder(ctx, "ord-1001")
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if order.ShiftID != shift.ID {
		t.Fatalf("expected lazy link to cashier shift %s, got %q", shift.ID, order.ShiftID)
	}
}

func TestHandoverWithNoEligibleOrdersFails(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	shift := openCashierShift(t, svc, 0)

	// Direct-settled order is already turned in.
	if _, err := svc.OrderCompleted(ctx, "ord-1004", domain.OrderCompletedRequest{}); err != nil {
		t.Fatalf("order completed failed: %v", err)
	}

	_, err := svc.ProcessHandover(ctx, domain.HandoverRequest{
		CashierShiftID: shift.ID,
		EmployeeID:     "emp-taras",
		OrderIDs:       []string{"ord-1004"},
	})
	if !errors.Is(err, store.ErrNoEligibleOrders) {
		t.Fatalf("expected ErrNoEligibleOrders, got %v", err)
	}
}

func TestHandoverClampsBalanceAtZero(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	shift := openCashierShift(t, svc, 0)

	// Debt registered for ord-1001 only; the handover also includes
	// ord-1004 whose cash never hit the courier's balance.
	if _, err := svc.OrderCompleted(ctx, "ord-1001", domain.OrderCompletedRequest{}); err != nil {
		t.Fatalf("order completed failed: %v", err)
	}

	result, err := svc.ProcessHandover(ctx, domain.HandoverRequest{
		CashierShiftID: shift.ID,
		EmployeeID:     "emp-taras",
		OrderIDs:       []string{"ord-1001", "ord-1004"},
	})
	if err != nil {
		t.Fatalf("handover failed: %v", err)
	}
	if result.AmountCents != 27500 {
		t.Fatalf("expected handover amount 27500, got %d", result.AmountCents)
	}
	if result.EmployeeBalanceCents != 0 {
		t.Fatalf("balance must clamp at zero, got %d", result.EmployeeBalanceCents)
	}

	courier, err := repo.GetEmployee(ctx, "emp-taras")
	if err != nil {
		t.Fatalf("get courier failed: %v", err)
	}
	if courier.CashBalanceCents != 0 {
		t.Fatalf("expected persisted balance 0, got %d", courier.CashBalanceCents)
	}
}

func TestCloseShiftFreezesTotalsAndRejectsReuse(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	shift := openCashierShift(t, svc, 50000)

	if _, err := svc.OrderCompleted(ctx, "ord-1004", domain.OrderCompletedRequest{}); err != nil {
		t.Fatalf("order completed failed: %v", err)
	}
	if _, err := svc.RecordTransaction(ctx, domain.TransactionRequest{ShiftID: shift.ID, AmountCents: 2000, Kind: domain.KindManualOut, Comment: "supplies"}); err != nil {
		t.Fatalf("record transaction failed: %v", err)
	}

	resp, err := svc.CloseShift(ctx, domain.ShiftCloseRequest{ShiftID: shift.ID, EndCashCents: 60500})
	if err != nil {
		t.Fatalf("close shift failed: %v", err)
	}
	if !resp.Shift.Closed || resp.Shift.EndTime == nil {
		t.Fatalf("expected closed shift with end time")
	}
	if resp.Shift.SalesCashCents != 12500 || resp.Shift.ServiceOutCents != 2000 {
		t.Fatalf("unexpected frozen totals: %+v", resp.Shift)
	}
	if resp.Statistics.TheoreticalCashCents != 60500 {
		t.Fatalf("expected theoretical cash 60500, got %d", resp.Statistics.TheoreticalCashCents)
	}
	if !resp.Statistics.Closed {
		t.Fatalf("expected closed statistics")
	}

	if _, err := svc.CloseShift(ctx, domain.ShiftCloseRequest{ShiftID: shift.ID, EndCashCents: 0}); !errors.Is(err, store.ErrShiftClosed) {
		t.Fatalf("expected ErrShiftClosed on double close, got %v", err)
	}
	if _, err := svc.RecordTransaction(ctx, domain.TransactionRequest{ShiftID: shift.ID, AmountCents: 100, Kind: domain.KindManualIn}); !errors.Is(err, store.ErrShiftClosed) {
		t.Fatalf("expected ErrShiftClosed for transaction on closed shift, got %v", err)
	}

	// The employee can open a fresh shift after closing.
	if _, err := svc.OpenShift(ctx, domain.ShiftOpenRequest{EmployeeID: "emp-olha"}); err != nil {
		t.Fatalf("reopen after close failed: %v", err)
	}

	stats, err := svc.ShiftStatistics(ctx, shift.ID)
	if err != nil {
		t.Fatalf("statistics for closed shift failed: %v", err)
	}
	if stats.SalesCashCents != 12500 || stats.TheoreticalCashCents != 60500 {
		t.Fatalf("closed shift must report frozen totals, got %+v", stats)
	}
}

func TestShiftTransactionsListedInAppendOrder(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	shift := openCashierShift(t, svc, 0)

	first, err := svc.RecordTransaction(ctx, domain.TransactionRequest{ShiftID: shift.ID, AmountCents: 1000, Kind: domain.KindManualIn})
	if err != nil {
		t.Fatalf("record transaction failed: %v", err)
	}
	second, err := svc.RecordTransaction(ctx, domain.TransactionRequest{ShiftID: shift.ID, AmountCents: 700, Kind: domain.KindManualOut})
	if err != nil {
		t.Fatalf("record transaction failed: %v", err)
	}

	transactions, err := svc.ShiftTransactions(ctx, shift.ID)
	if err != nil {
		t.Fatalf("list transactions failed: %v", err)
	}
	if len(transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(transactions))
	}
	if transactions[0].ID != first.ID || transactions[1].ID != second.ID {
		t.Fatalf("transactions out of append order")
	}
}

func TestOutstandingOrdersAndBalances(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	openCashierShift(t, svc, 0)

	if _, err := svc.OrderCompleted(ctx, "ord-1001", domain.OrderCompletedRequest{}); err != nil {
		t.Fatalf("order completed failed: %v", err)
	}

	orders, err := svc.OutstandingOrders(ctx, "emp-taras")
	if err != nil {
		t.Fatalf("outstanding orders failed: %v", err)
	}
	for _, o := range orders {
		if o.PaymentMethod != domain.PaymentCash || o.CashTurnedIn {
			t.Fatalf("non-outstanding order in listing: %+v", o)
		}
	}
	foundDebt := false
	for _, o := range orders {
		if o.ID == "ord-1001" {
			foundDebt = true
		}
		if o.ID == "ord-1002" {
			t.Fatalf("card order must not be outstanding")
		}
	}
	if !foundDebt {
		t.Fatalf("expected ord-1001 in outstanding orders")
	}

	if _, err := svc.OutstandingOrders(ctx, "emp-nobody"); !errors.Is(err, store.ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}

	balances, err := svc.EmployeeBalances(ctx)
	if err != nil {
		t.Fatalf("employee balances failed: %v", err)
	}
	var courierBalance int64 = -1
	for _, b := range balances {
		if b.EmployeeID == "emp-taras" {
			courierBalance = b.CashBalanceCents
		}
	}
	if courierBalance != 15000 {
		t.Fatalf("expected courier balance 15000 in listing, got %d", courierBalance)
	}
}
