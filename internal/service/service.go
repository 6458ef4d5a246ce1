package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"restokasa/backend/internal/cache"
	"restokasa/backend/internal/domain"
	"restokasa/backend/internal/metrics"
	"restokasa/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo     store.Repository
	stats    cache.StatisticsCache
	statsTTL time.Duration
}

func New(repo store.Repository, stats cache.StatisticsCache, statsTTL time.Duration) *Service {
	if stats == nil {
		stats = cache.NoopStatisticsCache{}
	}
	if statsTTL <= 0 {
		statsTTL = 15 * time.Second
	}

	return &Service{
		repo:     repo,
		stats:    stats,
		statsTTL: statsTTL,
	}
}

func (s *Service) OpenShift(ctx context.Context, req domain.ShiftOpenRequest) (domain.Shift, error) {
	req.EmployeeID = strings.TrimSpace(req.EmployeeID)
	if req.EmployeeID == "" {
		return domain.Shift{}, store.ErrEmployeeNotFound
	}
	if req.StartCashCents < 0 {
		return domain.Shift{}, store.ErrInvalidAmount
	}

	shift, err := s.repo.OpenShift(ctx, domain.Shift{
		EmployeeID:     req.EmployeeID,
		StartCashCents: req.StartCashCents,
	})
	if err != nil {
		return domain.Shift{}, err
	}

	metrics.ShiftOpened()
	s.logAction(ctx, "shift_open", shift.ID, fmt.Sprintf("employee=%s start_cash=%d", shift.EmployeeID, shift.StartCashCents))
	return *shift, nil
}

// GetOpenShift returns the employee's open shift, or with an empty
// employeeID the earliest open shift of anyone.
func (s *Service) GetOpenShift(ctx context.Context, employeeID string) (domain.Shift, error) {
	employeeID = strings.TrimSpace(employeeID)

	var shift *domain.Shift
	var err error
	if employeeID == "" {
		shift, err = s.repo.GetAnyOpenShift(ctx)
	} else {
		shift, err = s.repo.GetOpenShiftByEmployee(ctx, employeeID)
	}
	if err != nil {
		return domain.Shift{}, err
	}
	return *shift, nil
}

func (s *Service) CloseShift(ctx context.Context, req domain.ShiftCloseRequest) (domain.ShiftCloseResponse, error) {
	if strings.TrimSpace(req.ShiftID) == "" {
		return domain.ShiftCloseResponse{}, store.ErrNotFound
	}
	if req.EndCashCents < 0 {
		return domain.ShiftCloseResponse{}, store.ErrInvalidAmount
	}

	shift, err := s.repo.CloseShift(ctx, req.ShiftID, req.EndCashCents, time.Now().UTC())
	if err != nil {
		return domain.ShiftCloseResponse{}, err
	}

	s.invalidateStats(ctx, shift.ID)

	stats, err := s.statisticsFor(ctx, *shift)
	if err != nil {
		return domain.ShiftCloseResponse{}, err
	}

	metrics.ShiftClosed()
	s.logAction(ctx, "shift_close", shift.ID, fmt.Sprintf("end_cash=%d theoretical=%d", shift.EndCashCents, stats.TheoreticalCashCents))
	return domain.ShiftCloseResponse{Shift: *shift, Statistics: stats}, nil
}

func (s *Service) RecordTransaction(ctx context.Context, req domain.TransactionRequest) (domain.CashTransaction, error) {
	if strings.TrimSpace(req.ShiftID) == "" {
		return domain.CashTransaction{}, store.ErrNotFound
	}
	if req.AmountCents <= 0 {
		return domain.CashTransaction{}, store.ErrInvalidAmount
	}
	if !req.Kind.IsManual() {
		return domain.CashTransaction{}, fmt.Errorf("%w: %q cannot be recorded manually", store.ErrInvalidKind, req.Kind)
	}

	created, err := s.repo.AppendTransaction(ctx, domain.CashTransaction{
		ShiftID:     req.ShiftID,
		AmountCents: req.AmountCents,
		Kind:        req.Kind,
		Comment:     strings.TrimSpace(req.Comment),
	})
	if err != nil {
		return domain.CashTransaction{}, err
	}

	s.invalidateStats(ctx, req.ShiftID)
	metrics.TransactionRecorded(string(created.Kind))
	s.logAction(ctx, "transaction_record", created.ID, fmt.Sprintf("shift=%s kind=%s amount=%d", created.ShiftID, created.Kind, created.AmountCents))
	return *created, nil
}

// OrderCompleted absorbs a completed order into the ledger: link it to a
// shift, then for cash orders route the money. A courier on the order takes
// the debt; otherwise the waiter does; with neither, the cash is already in
// the drawer and the order settles directly.
func (s *Service) OrderCompleted(ctx context.Context, orderID string, req domain.OrderCompletedRequest) (domain.OrderCompletedResult, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.OrderCompletedResult{}, store.ErrNotFound
	}

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return domain.OrderCompletedResult{}, err
	}

	result := domain.OrderCompletedResult{OrderID: order.ID}

	shiftID, linked, err := s.linkOrderToOpenShift(ctx, order, req.ActingEmployeeID)
	if err != nil {
		return domain.OrderCompletedResult{}, err
	}
	result.Linked = linked
	result.ShiftID = shiftID
	if !linked {
		metrics.OrderCompleted("unlinked")
	}

	if order.PaymentMethod == domain.PaymentCash {
		switch {
		case order.CourierID != "":
			if _, err := s.repo.RegisterOrderDebt(ctx, order.ID, order.CourierID); err != nil {
				return domain.OrderCompletedResult{}, err
			}
			result.DebtEmployeeID = order.CourierID
			metrics.OrderCompleted("debt")
		case order.WaiterID != "":
			if _, err := s.repo.RegisterOrderDebt(ctx, order.ID, order.WaiterID); err != nil {
				return domain.OrderCompletedResult{}, err
			}
			result.DebtEmployeeID = order.WaiterID
			metrics.OrderCompleted("debt")
		default:
			if _, err := s.repo.SettleOrderDirect(ctx, order.ID); err != nil {
				return domain.OrderCompletedResult{}, err
			}
			result.SettledDirectly = true
			metrics.OrderCompleted("direct")
		}
	} else if linked {
		metrics.OrderCompleted("linked")
	}

	if linked {
		s.invalidateStats(ctx, shiftID)
	}
	return result, nil
}

// linkOrderToOpenShift binds the order to the acting employee's open shift,
// falling back to any open shift. No shift open anywhere is degraded but not
// an error: the order stays unlinked and a later handover picks it up.
func (s *Service) linkOrderToOpenShift(ctx context.Context, order *domain.Order, preferredEmployeeID string) (string, bool, error) {
	if order.ShiftID != "" {
		return order.ShiftID, true, nil
	}

	var shift *domain.Shift
	preferredEmployeeID = strings.TrimSpace(preferredEmployeeID)
	if preferredEmployeeID != "" {
		found, err := s.repo.GetOpenShiftByEmployee(ctx, preferredEmployeeID)
		if err != nil && !isNotFound(err) {
			return "", false, err
		}
		shift = found
	}
	if shift == nil {
		found, err := s.repo.GetAnyOpenShift(ctx)
		if err != nil {
			if isNotFound(err) {
				log.Printf("[service] WARN: order %s completed with no open shift anywhere, leaving unlinked", order.ID)
				return "", false, nil
			}
			return "", false, err
		}
		shift = found
	}

	linked, err := s.repo.LinkOrderToShift(ctx, order.ID, shift.ID)
	if err != nil {
		return "", false, err
	}
	order.ShiftID = linked.ShiftID
	return linked.ShiftID, true, nil
}

func (s *Service) ProcessHandover(ctx context.Context, req domain.HandoverRequest) (domain.HandoverResult, error) {
	if strings.TrimSpace(req.CashierShiftID) == "" {
		return domain.HandoverResult{}, store.ErrNotFound
	}
	if strings.TrimSpace(req.EmployeeID) == "" {
		return domain.HandoverResult{}, store.ErrEmployeeNotFound
	}
	if len(req.OrderIDs) == 0 {
		return domain.HandoverResult{}, store.ErrNoEligibleOrders
	}

	result, err := s.repo.ProcessHandover(ctx, req.CashierShiftID, req.EmployeeID, req.OrderIDs, time.Now().UTC())
	if err != nil {
		return domain.HandoverResult{}, err
	}

	s.invalidateStats(ctx, req.CashierShiftID)
	metrics.HandoverProcessed(result.AmountCents)
	s.logAction(ctx, "handover", req.CashierShiftID, fmt.Sprintf("employee=%s amount=%d orders=%d", req.EmployeeID, result.AmountCents, len(result.SettledOrderIDs)))
	return *result, nil
}

// ShiftStatistics computes the X-report for an open shift or returns the
// frozen Z-report numbers for a closed one. Results are cached briefly.
func (s *Service) ShiftStatistics(ctx context.Context, shiftID string) (domain.ShiftStatistics, error) {
	if cached, ok, err := s.stats.Get(ctx, shiftID); err != nil {
		log.Printf("[service] WARN: statistics cache read failed for shift %s: %v", shiftID, err)
	} else if ok {
		return *cached, nil
	}

	shift, err := s.repo.GetShift(ctx, shiftID)
	if err != nil {
		return domain.ShiftStatistics{}, err
	}

	stats, err := s.statisticsFor(ctx, *shift)
	if err != nil {
		return domain.ShiftStatistics{}, err
	}

	if err := s.stats.Set(ctx, shiftID, &stats, s.statsTTL); err != nil {
		log.Printf("[service] WARN: statistics cache write failed for shift %s: %v", shiftID, err)
	}
	return stats, nil
}

func (s *Service) statisticsFor(ctx context.Context, shift domain.Shift) (domain.ShiftStatistics, error) {
	agg, err := s.repo.ShiftAggregates(ctx, shift.ID)
	if err != nil {
		return domain.ShiftStatistics{}, err
	}

	// A closed shift reports the totals frozen at close time, not whatever
	// the live tables say now.
	if shift.Closed {
		agg.SalesCashCents = shift.SalesCashCents
		agg.SalesCardCents = shift.SalesCardCents
		agg.ServiceInCents = shift.ServiceInCents
		agg.ServiceOutCents = shift.ServiceOutCents
	}

	return domain.BuildShiftStatistics(shift, agg), nil
}

func (s *Service) ShiftTransactions(ctx context.Context, shiftID string) ([]domain.CashTransaction, error) {
	return s.repo.ListShiftTransactions(ctx, shiftID)
}

func (s *Service) GetShift(ctx context.Context, shiftID string) (domain.Shift, error) {
	shift, err := s.repo.GetShift(ctx, shiftID)
	if err != nil {
		return domain.Shift{}, err
	}
	return *shift, nil
}

func (s *Service) EmployeeBalances(ctx context.Context) ([]domain.EmployeeBalance, error) {
	return s.repo.ListEmployeeBalances(ctx)
}

func (s *Service) OutstandingOrders(ctx context.Context, employeeID string) ([]domain.Order, error) {
	if _, err := s.repo.GetEmployee(ctx, employeeID); err != nil {
		return nil, err
	}
	return s.repo.ListOutstandingOrders(ctx, employeeID)
}

func (s *Service) invalidateStats(ctx context.Context, shiftID string) {
	if shiftID == "" {
		return
	}
	if err := s.stats.Invalidate(ctx, shiftID); err != nil {
		log.Printf("[service] WARN: statistics cache invalidation failed for shift %s: %v", shiftID, err)
	}
}

func (s *Service) logAction(ctx context.Context, action string, entityID string, detail string) {
	username := "system"
	if actor, ok := ActorFromContext(ctx); ok {
		username = actor.Username
	}
	log.Printf("[service] %s by %s: %s %s", action, username, entityID, detail)
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
