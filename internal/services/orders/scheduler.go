package orders

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/fastprodman/playerbank/internal/services/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const Kind = "orders"

type Config struct {
	MaxFailures     int `env:"ORDERS_MAX_FAILURES" envDefault:"3"`
	MaxIntervalDays int `env:"ORDERS_MAX_INTERVAL_DAYS" envDefault:"365"`
}

type Accounts interface {
	Exists(owner uuid.UUID) bool
	Pay(from, to uuid.UUID, amount decimal.Decimal, outType, inType ledger.TxType, desc string) (decimal.Decimal, error)
}

// Slots is the per-player cap shared with loans. Only active orders hold
// a slot.
type Slots interface {
	Reserve(owner uuid.UUID) error
	Release(owner uuid.UUID)
	Occupy(owner uuid.UUID)
}

type DirtyMarker interface {
	MarkDirty(owner uuid.UUID, kind string)
}

type Order struct {
	ID                  uuid.UUID       `json:"id"`
	OwnerID             uuid.UUID       `json:"ownerId"`
	PayeeID             uuid.UUID       `json:"payeeId"`
	Amount              decimal.Decimal `json:"amount"`
	IntervalDays        int             `json:"intervalDays"`
	NextDueDay          int64           `json:"nextDueDay"`
	Active              bool            `json:"active"`
	Overdue             bool            `json:"overdue"`
	ConsecutiveFailures int             `json:"consecutiveFailures"`
	LastProcessedDay    int64           `json:"lastProcessedDay"`
	CreatedDay          int64           `json:"createdDay"`
}

type order struct {
	mu      sync.Mutex
	o       Order
	deleted bool
}

// Scheduler keeps standing orders and executes the due ones once per day.
type Scheduler struct {
	cfg      Config
	accounts Accounts
	slots    Slots
	dirty    DirtyMarker

	mu     sync.RWMutex
	owners map[uuid.UUID]map[uuid.UUID]*order
}

func New(cfg Config, accounts Accounts, slots Slots, dirty DirtyMarker) *Scheduler {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}

	return &Scheduler{
		cfg:      cfg,
		accounts: accounts,
		slots:    slots,
		dirty:    dirty,
		owners:   make(map[uuid.UUID]map[uuid.UUID]*order),
	}
}

func (s *Scheduler) markDirty(owner uuid.UUID) {
	if s.dirty != nil {
		s.dirty.MarkDirty(owner, Kind)
	}
}

// Create registers a recurring payment; the first execution is due
// intervalDays after day.
func (s *Scheduler) Create(owner, payee uuid.UUID, amount decimal.Decimal, intervalDays int, day int64) (Order, error) {
	err := s.validate(owner, payee, amount, intervalDays)
	if err != nil {
		return Order{}, fmt.Errorf("create order: %w", err)
	}

	err = s.slots.Reserve(owner)
	if err != nil {
		return Order{}, fmt.Errorf("create order: %w", err)
	}

	o := &order{o: Order{
		ID:               uuid.New(),
		OwnerID:          owner,
		PayeeID:          payee,
		Amount:           amount,
		IntervalDays:     intervalDays,
		NextDueDay:       day + int64(intervalDays),
		Active:           true,
		LastProcessedDay: day,
		CreatedDay:       day,
	}}

	s.mu.Lock()
	byID, ok := s.owners[owner]
	if !ok {
		byID = make(map[uuid.UUID]*order)
		s.owners[owner] = byID
	}
	byID[o.o.ID] = o
	s.mu.Unlock()

	s.markDirty(owner)

	return o.o, nil
}

func (s *Scheduler) validate(owner, payee uuid.UUID, amount decimal.Decimal, intervalDays int) error {
	err := ledger.ValidateAmount(amount)
	if err != nil {
		return err
	}

	if intervalDays <= 0 {
		return fmt.Errorf("%w: interval must be > 0 days", ledger.ErrValidation)
	}

	if s.cfg.MaxIntervalDays > 0 && intervalDays > s.cfg.MaxIntervalDays {
		return fmt.Errorf("%w: interval must be <= %d days", ledger.ErrValidation, s.cfg.MaxIntervalDays)
	}

	if payee == uuid.Nil || payee == owner {
		return fmt.Errorf("%w: invalid payee", ledger.ErrValidation)
	}

	if !s.accounts.Exists(owner) {
		return fmt.Errorf("owner account: %w", ledger.ErrNotFound)
	}

	if !s.accounts.Exists(payee) {
		return fmt.Errorf("%w: unknown payee", ledger.ErrValidation)
	}

	return nil
}

// resolve finds an order by full id or by a unique id prefix.
func (s *Scheduler) resolve(owner uuid.UUID, ref string) (*order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := s.owners[owner]

	id, err := uuid.Parse(ref)
	if err == nil {
		o, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("order %s: %w", ref, ledger.ErrNotFound)
		}

		return o, nil
	}

	prefix := strings.ToLower(strings.TrimSpace(ref))
	if prefix == "" {
		return nil, fmt.Errorf("%w: empty order id", ledger.ErrValidation)
	}

	var found *order
	for oid, o := range byID {
		if !strings.HasPrefix(oid.String(), prefix) {
			continue
		}

		if found != nil {
			return nil, fmt.Errorf("%w: order id %q is ambiguous", ledger.ErrValidation, ref)
		}

		found = o
	}

	if found == nil {
		return nil, fmt.Errorf("order %s: %w", ref, ledger.ErrNotFound)
	}

	return found, nil
}

func (s *Scheduler) Pause(owner uuid.UUID, ref string) (Order, error) {
	o, err := s.resolve(owner, ref)
	if err != nil {
		return Order{}, fmt.Errorf("pause order: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.deleted {
		return Order{}, fmt.Errorf("pause order: %w", ledger.ErrNotFound)
	}

	if o.o.Active {
		o.o.Active = false
		s.slots.Release(owner)
		s.markDirty(owner)
	}

	return o.o, nil
}

// Resume reactivates a paused order. It needs a free slot.
func (s *Scheduler) Resume(owner uuid.UUID, ref string) (Order, error) {
	o, err := s.resolve(owner, ref)
	if err != nil {
		return Order{}, fmt.Errorf("resume order: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.deleted {
		return Order{}, fmt.Errorf("resume order: %w", ledger.ErrNotFound)
	}

	if !o.o.Active {
		err = s.slots.Reserve(owner)
		if err != nil {
			return o.o, fmt.Errorf("resume order: %w", err)
		}

		o.o.Active = true
		o.o.ConsecutiveFailures = 0
		o.o.Overdue = false
		s.markDirty(owner)
	}

	return o.o, nil
}

// Delete removes an order. It waits for an in-flight execution of the same
// order to finish.
func (s *Scheduler) Delete(owner uuid.UUID, ref string) (Order, error) {
	o, err := s.resolve(owner, ref)
	if err != nil {
		return Order{}, fmt.Errorf("delete order: %w", err)
	}

	o.mu.Lock()
	if o.deleted {
		o.mu.Unlock()
		return Order{}, fmt.Errorf("delete order: %w", ledger.ErrNotFound)
	}

	o.deleted = true
	if o.o.Active {
		s.slots.Release(owner)
	}
	snapshot := o.o
	o.mu.Unlock()

	s.mu.Lock()
	delete(s.owners[owner], snapshot.ID)
	if len(s.owners[owner]) == 0 {
		delete(s.owners, owner)
	}
	s.mu.Unlock()

	s.markDirty(owner)

	return snapshot, nil
}

// List returns owner's orders sorted by creation day, then id.
func (s *Scheduler) List(owner uuid.UUID) []Order {
	s.mu.RLock()
	refs := make([]*order, 0, len(s.owners[owner]))
	for _, o := range s.owners[owner] {
		refs = append(refs, o)
	}
	s.mu.RUnlock()

	out := make([]Order, 0, len(refs))
	for _, o := range refs {
		o.mu.Lock()
		if !o.deleted {
			out = append(out, o.o)
		}
		o.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedDay != out[j].CreatedDay {
			return out[i].CreatedDay < out[j].CreatedDay
		}

		return out[i].ID.String() < out[j].ID.String()
	})

	return out
}

func (s *Scheduler) ActiveCount(owner uuid.UUID) int {
	n := 0
	for _, o := range s.List(owner) {
		if o.Active {
			n++
		}
	}

	return n
}

type TickReport struct {
	Executed   int
	Failed     int
	AutoPaused int
}

// DailyTick executes every active order due on or before day. Each order
// is processed at most once per day; a failed payment leaves the due day
// in place for the next tick.
func (s *Scheduler) DailyTick(ctx context.Context, day int64) (TickReport, error) {
	s.mu.RLock()
	all := make([]*order, 0)
	for _, byID := range s.owners {
		for _, o := range byID {
			all = append(all, o)
		}
	}
	s.mu.RUnlock()

	var rep TickReport

	for _, o := range all {
		err := ctx.Err()
		if err != nil {
			return rep, fmt.Errorf("orders tick: %w", err)
		}

		s.execute(ctx, o, day, &rep)
	}

	return rep, nil
}

func (s *Scheduler) execute(ctx context.Context, o *order, day int64, rep *TickReport) {
	o.mu.Lock()
	defer o.mu.Unlock()

	cur := &o.o
	if o.deleted || !cur.Active || cur.NextDueDay > day || cur.LastProcessedDay >= day {
		return
	}

	cur.LastProcessedDay = day

	_, err := s.accounts.Pay(cur.OwnerID, cur.PayeeID, cur.Amount,
		ledger.TxRecurringPaymentOut, ledger.TxRecurringPaymentIn, "recurring payment "+cur.ID.String()[:8])
	if err != nil {
		cur.ConsecutiveFailures++
		cur.Overdue = true
		rep.Failed++

		slog.WarnContext(ctx, "recurring payment failed",
			"order_id", cur.ID, "owner", cur.OwnerID, "day", day, "failures", cur.ConsecutiveFailures, "error", err)

		if cur.ConsecutiveFailures >= s.cfg.MaxFailures {
			cur.Active = false
			s.slots.Release(cur.OwnerID)
			rep.AutoPaused++

			slog.WarnContext(ctx, "recurring order paused after repeated failures", "order_id", cur.ID, "owner", cur.OwnerID)
		}

		s.markDirty(cur.OwnerID)

		return
	}

	cur.NextDueDay += int64(cur.IntervalDays)
	cur.ConsecutiveFailures = 0
	cur.Overdue = false
	rep.Executed++

	s.markDirty(cur.OwnerID)
}

func (s *Scheduler) Snapshot(owner uuid.UUID) ([]Order, bool) {
	list := s.List(owner)
	return list, len(list) > 0
}

func (s *Scheduler) Restore(owner uuid.UUID, list []Order) error {
	byID := make(map[uuid.UUID]*order, len(list))

	for _, o := range list {
		if !o.Amount.IsPositive() || o.IntervalDays <= 0 {
			return fmt.Errorf("restore order %s: %w", o.ID, ledger.ErrValidation)
		}

		o.OwnerID = owner
		byID[o.ID] = &order{o: o}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, old := range s.owners[owner] {
		if old.o.Active {
			s.slots.Release(owner)
		}
	}

	for _, o := range byID {
		if o.o.Active {
			s.slots.Occupy(owner)
		}
	}

	s.owners[owner] = byID

	return nil
}
