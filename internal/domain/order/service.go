package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/foodworks-dev/counter-pos/internal/domain/catalog"
	"github.com/foodworks-dev/counter-pos/internal/domain/pricing"
	"github.com/foodworks-dev/counter-pos/internal/domain/promotion"
)

// ItemNotFoundError indicates a requested item id is not in the catalog.
type ItemNotFoundError struct {
	ItemID string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %s not found", e.ItemID)
}

// Service drives the order lifecycle: it builds and prices new orders and
// enforces the payment/preparation state machine.
type Service struct {
	items      catalog.ItemRepository
	customers  catalog.CustomerRepository
	promotions promotion.Repository
	orders     Repository

	now func() time.Time
}

// NewService creates an order Service with the required collaborators.
func NewService(
	items catalog.ItemRepository,
	customers catalog.CustomerRepository,
	promotions promotion.Repository,
	orders Repository,
) *Service {
	return &Service{
		items:      items,
		customers:  customers,
		promotions: promotions,
		orders:     orders,
		now:        time.Now,
	}
}

// Build resolves the requested items, the active promotions, and the
// customer, prices the order, and returns it in the initial
// awaiting-payment state. It does not persist anything.
func (s *Service) Build(ctx context.Context, customerID string, itemIDs []string) (*Order, error) {
	if len(itemIDs) == 0 {
		return nil, ErrEmptyItems
	}

	var (
		fetched []catalog.Item
		promos  []promotion.Promotion
	)

	// The three lookups are independent; fetch them concurrently.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fetched, err = s.items.GetByIDs(gctx, dedupe(itemIDs))
		if err != nil {
			return errors.Wrap(err, "get items")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		promos, err = s.promotions.ListActive(gctx)
		if err != nil {
			return errors.Wrap(err, "list active promotions")
		}
		return nil
	})
	g.Go(func() error {
		_, err := s.customers.GetByID(gctx, customerID)
		if errors.Is(err, catalog.ErrCustomerNotFound) {
			return err
		}
		if err != nil {
			return errors.Wrap(err, "get customer")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Expand the fetched set back into the requested sequence; duplicates in
	// the request resolve to the same catalog item repeated.
	byID := make(map[string]catalog.Item, len(fetched))
	for _, it := range fetched {
		byID[it.ID] = it
	}
	items := make([]catalog.Item, 0, len(itemIDs))
	for _, id := range itemIDs {
		it, ok := byID[id]
		if !ok {
			return nil, &ItemNotFoundError{ItemID: id}
		}
		items = append(items, it)
	}

	totals := pricing.ComputeTotals(items, promos)

	return &Order{
		ID:                uuid.New().String(),
		CustomerID:        customerID,
		Items:             itemIDs,
		Promotions:        totals.AppliedPromotions,
		Total:             totals.Total,
		TaxTotal:          totals.TaxTotal,
		PreparationTime:   totals.TimeTotal,
		PaymentStatus:     PaymentAwaiting,
		PreparationStatus: PreparationAwaitingPayment,
		CreatedAt:         s.now(),
	}, nil
}

// Create builds a new order and persists it.
func (s *Service) Create(ctx context.Context, customerID string, itemIDs []string) (*Order, error) {
	o, err := s.Build(ctx, customerID, itemIDs)
	if err != nil {
		return nil, err
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return o, nil
}

// Get returns a single order by id.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

// List returns all orders.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	return s.orders.List(ctx)
}

// Replace rebuilds an existing order from scratch with new items and
// customer. Permitted only while the order is still awaiting payment;
// totals are never patched incrementally.
func (s *Service) Replace(ctx context.Context, id, customerID string, itemIDs []string) (*Order, error) {
	existing, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !existing.Editable() {
		return nil, ErrConflict
	}

	rebuilt, err := s.Build(ctx, customerID, itemIDs)
	if err != nil {
		return nil, err
	}
	rebuilt.ID = existing.ID
	rebuilt.CreatedAt = existing.CreatedAt

	if err := s.orders.Replace(ctx, rebuilt); err != nil {
		return nil, errors.Wrap(err, "replace order")
	}
	return rebuilt, nil
}

// Delete removes an order. Permitted only while it is awaiting payment.
func (s *Service) Delete(ctx context.Context, id string) error {
	existing, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !existing.Editable() {
		return ErrConflict
	}
	return s.orders.Delete(ctx, id)
}

// Pay captures payment for an order in the initial state. The store performs
// the state flip as a compare-and-update, so a concurrent second Pay loses
// with ErrConflict even if both calls saw the order as unpaid.
func (s *Service) Pay(ctx context.Context, id string) (*Progress, error) {
	existing, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !existing.Editable() {
		return nil, ErrConflict
	}

	if err := s.orders.MarkPaid(ctx, id, s.now()); err != nil {
		return nil, err
	}

	return &Progress{
		PaymentStatus:     PaymentPaid,
		PreparationStatus: PreparationPreparing,
		NextPollSecs:      float64(existing.PreparationTime),
	}, nil
}

// CheckProgress reports how far along a paid order is. There is no background
// timer: when the preparation window has elapsed, this poll itself flips the
// order to DONE. Repeated polls after completion are no-ops.
func (s *Service) CheckProgress(ctx context.Context, id string) (*Progress, error) {
	existing, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.PaymentStatus != PaymentPaid || existing.PaymentTimestamp == nil {
		return nil, ErrPaymentRequired
	}

	prepWindow := time.Duration(existing.PreparationTime) * time.Second
	remaining := prepWindow - s.now().Sub(*existing.PaymentTimestamp)
	if remaining < 0 {
		remaining = 0
	}

	status := existing.PreparationStatus
	if remaining == 0 && status != PreparationDone {
		if err := s.orders.MarkDone(ctx, id); err != nil {
			return nil, errors.Wrap(err, "mark order done")
		}
		status = PreparationDone
	}

	return &Progress{
		PaymentStatus:     existing.PaymentStatus,
		PreparationStatus: status,
		NextPollSecs:      remaining.Seconds(),
	}, nil
}

// dedupe preserves first-occurrence order while dropping repeated ids, so the
// batch catalog fetch asks for each id once.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
