// Package lifecycle keeps the back office's view of bookings and tasks in
// step with the remote store and drives their status transitions.
//
// The store is authoritative. The manager only applies a status after the
// store confirms it, and on any failure it re-fetches the whole collection.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"backoffice/internal/payment"
	"backoffice/pkg/remote"
)

var ErrUnknownRecord = errors.New("unknown record")

// Store is the remote store as the manager uses it. *remote.Client implements it.
type Store interface {
	List(ctx context.Context, collection string) ([]remote.Record, error)
	UpdateStatus(ctx context.Context, collection, id, status string) (*remote.Record, error)
}

type Config struct {
	Kind     Kind
	Store    Store
	Guard    Guard
	Journal  Journal
	Notifier Notifier
	Logger   *slog.Logger
	// Timeout bounds every store call. Zero means 10s.
	Timeout time.Duration
	Now     func() time.Time
}

// TransitionError is returned when the store did not confirm a transition.
// The local status is unchanged; Resynced tells whether the collection was
// re-fetched afterwards.
type TransitionError struct {
	RecordID  string
	Action    Action
	Err       error
	Resynced  bool
	ResyncErr error
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("transition %s on %s failed: %v", e.Action, e.RecordID, e.Err)
	if e.ResyncErr != nil {
		msg += fmt.Sprintf(" (resync failed: %v)", e.ResyncErr)
	}
	return msg
}

func (e *TransitionError) Unwrap() error { return e.Err }

type Manager struct {
	kind     Kind
	store    Store
	guard    Guard
	journal  Journal
	notifier Notifier
	logger   *slog.Logger
	timeout  time.Duration
	now      func() time.Time

	mu      sync.Mutex
	records map[string]*Record
	order   []string
	// seq increases on every local change. confirmedAt holds the seq at which a
	// store-confirmed status was applied, so an older fetch cannot undo it.
	seq         uint64
	confirmedAt map[string]uint64
	// fetchGen numbers fetches as they start; appliedGen is the newest applied.
	fetchGen   uint64
	appliedGen uint64
	drifting   map[string]bool
	lastFetch  time.Time
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("lifecycle manager needs a store")
	}
	if _, err := ParseKind(string(cfg.Kind)); err != nil {
		return nil, err
	}
	m := &Manager{
		kind:        cfg.Kind,
		store:       cfg.Store,
		guard:       cfg.Guard,
		journal:     cfg.Journal,
		notifier:    cfg.Notifier,
		logger:      cfg.Logger,
		timeout:     cfg.Timeout,
		now:         cfg.Now,
		records:     map[string]*Record{},
		confirmedAt: map[string]uint64{},
		drifting:    map[string]bool{},
	}
	if m.guard == nil {
		m.guard = NewLocalGuard()
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.logger = m.logger.With("component", "lifecycle", "kind", string(m.kind))
	if m.timeout <= 0 {
		m.timeout = 10 * time.Second
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m, nil
}

func (m *Manager) Kind() Kind { return m.kind }

func (m *Manager) collection() string {
	if m.kind == KindTask {
		return remote.CollectionTask
	}
	return remote.CollectionBooking
}

// FetchAll replaces local state with the store's collection. Payment status is
// corrected on every record before it becomes visible.
func (m *Manager) FetchAll(ctx context.Context) ([]Record, error) {
	m.mu.Lock()
	m.fetchGen++
	gen := m.fetchGen
	startSeq := m.seq
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	raw, err := m.store.List(ctx, m.collection())
	cancel()
	if err != nil {
		m.logger.WarnContext(ctx, "fetch failed", "err", err)
		return nil, err
	}

	fetched := make([]Record, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, in := range raw {
		rec, err := fromRemote(m.kind, in)
		if err != nil {
			// One bad record rejects the whole response.
			err = &remote.Error{Kind: remote.KindShape, Message: "unexpected record in collection", Err: err}
			m.logger.WarnContext(ctx, "fetch rejected", "err", err)
			return nil, err
		}
		if _, dup := seen[rec.ID]; dup {
			err = &remote.Error{Kind: remote.KindShape, Message: "duplicate record in collection: " + rec.ID}
			m.logger.WarnContext(ctx, "fetch rejected", "err", err)
			return nil, err
		}
		seen[rec.ID] = struct{}{}
		rec.correctPayment()
		fetched = append(fetched, rec)
	}

	m.mu.Lock()
	if gen < m.appliedGen {
		// A fetch that started later has already been applied.
		out := m.snapshotLocked()
		m.mu.Unlock()
		m.logger.DebugContext(ctx, "stale fetch discarded", "generation", gen)
		return out, nil
	}

	next := make(map[string]*Record, len(fetched))
	order := make([]string, 0, len(fetched))
	var newDrift []Record
	for i := range fetched {
		rec := fetched[i]
		if local, ok := m.records[rec.ID]; ok {
			if m.confirmedAt[rec.ID] > startSeq {
				rec.Status = local.Status
			}
			rec.Pending = local.Pending
		}
		if rec.PaymentDrift && !m.drifting[rec.ID] {
			newDrift = append(newDrift, rec)
		}
		next[rec.ID] = &rec
		order = append(order, rec.ID)
	}
	// Keep records confirmed after this fetch started even if the response missed them.
	for id, at := range m.confirmedAt {
		if at <= startSeq {
			delete(m.confirmedAt, id)
			continue
		}
		if _, ok := next[id]; !ok {
			if local, ok := m.records[id]; ok {
				next[id] = local
				order = append(order, id)
			}
		}
	}
	drifting := make(map[string]bool, len(m.drifting))
	for id, rec := range next {
		if rec.PaymentDrift {
			drifting[id] = true
		}
	}

	m.records = next
	m.order = order
	m.drifting = drifting
	m.appliedGen = gen
	m.seq++
	m.lastFetch = m.now()
	out := m.snapshotLocked()
	m.mu.Unlock()

	for _, rec := range newDrift {
		m.reportDrift(ctx, rec)
	}
	m.logger.DebugContext(ctx, "collection fetched", "records", len(out))
	return out, nil
}

// reportDrift flags a store-side data-integrity problem. The corrected status
// is only shown locally; fixing the store is an explicit reconcile.
func (m *Manager) reportDrift(ctx context.Context, rec Record) {
	m.logger.WarnContext(ctx, "payment status disagrees with amounts",
		"record_id", rec.ID,
		"store_status", rec.StorePaymentStatus,
		"corrected_status", rec.PaymentStatus,
		"paid", rec.Payment.Paid.String(),
		"subtotal", rec.Payment.Subtotal.String(),
	)
	m.record(ctx, Entry{
		Kind:     m.kind,
		RecordID: rec.ID,
		Outcome:  OutcomeDrift,
		Message:  fmt.Sprintf("store says %s, amounts say %s", rec.StorePaymentStatus, rec.PaymentStatus),
		Data: map[string]any{
			"paidAmount":    rec.Payment.Paid.String(),
			"pendingAmount": rec.Payment.Pending.String(),
			"subtotal":      rec.Payment.Subtotal.String(),
		},
	})
}

// RequestTransition asks the store to apply action to record id.
//
// Illegal actions are rejected before any network call. Only one transition
// per record may be in flight; a concurrent request gets ErrTransitionInFlight.
// On success the record takes the status the store echoes. On failure nothing
// is applied and, unless the failure was an authentication error, the
// collection is re-fetched. The journal entry and notification are written
// after the record is released, each bounded by the manager's timeout.
func (m *Manager) RequestTransition(ctx context.Context, id string, action Action) (Record, error) {
	from, to, err := m.plan(id, action)
	if err != nil {
		if errors.Is(err, ErrIllegalTransition) {
			m.record(ctx, Entry{Kind: m.kind, RecordID: id, Action: action, From: from, Outcome: OutcomeRejected, Message: err.Error()})
		}
		return Record{}, err
	}

	release, err := m.guard.Acquire(ctx, string(m.kind)+":"+id)
	if err != nil {
		return Record{}, err
	}
	unlock := sync.OnceFunc(release)
	defer unlock()

	// The status may have moved while the guard was being acquired.
	m.mu.Lock()
	rec, ok := m.records[id]
	if !ok {
		m.mu.Unlock()
		return Record{}, fmt.Errorf("%w: %s", ErrUnknownRecord, id)
	}
	if rec.Status != from {
		from = rec.Status
		if to, err = Next(m.kind, from, action); err != nil {
			m.mu.Unlock()
			return Record{}, err
		}
	}
	target := to
	rec.Pending = &target
	m.seq++
	m.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	echo, err := m.store.UpdateStatus(callCtx, m.collection(), id, string(to))
	cancel()

	var confirmed Status
	if err == nil {
		confirmed, err = m.confirmedStatus(echo)
	}
	if err != nil {
		return Record{}, m.failTransition(ctx, unlock, id, action, from, to, err)
	}

	m.mu.Lock()
	rec, ok = m.records[id]
	if !ok {
		// Dropped by a fetch while the request was out; the store just confirmed it exists.
		rec = &Record{ID: id, Kind: m.kind}
		m.records[id] = rec
		m.order = append(m.order, id)
	}
	rec.Pending = nil
	rec.Status = confirmed
	m.seq++
	m.confirmedAt[id] = m.seq
	out := rec.clone()
	m.mu.Unlock()
	unlock()

	actor := actorFrom(ctx)
	at := m.now().UTC()
	m.logger.InfoContext(ctx, "transition confirmed", "record_id", id, "action", action, "from", from, "to", confirmed, "actor", actor)
	m.record(ctx, Entry{Kind: m.kind, RecordID: id, Action: action, From: from, To: confirmed, Outcome: OutcomeConfirmed})
	if m.notifier != nil {
		ev := Event{Kind: m.kind, RecordID: id, Action: action, From: from, To: confirmed, Actor: actor, OccurredAt: at}
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
		err := m.notifier.Notify(nctx, ev)
		cancel()
		if err != nil {
			m.logger.WarnContext(ctx, "transition notification failed", "record_id", id, "err", err)
		}
	}
	return out, nil
}

func (m *Manager) plan(id string, action Action) (Status, Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownRecord, id)
	}
	if rec.Pending != nil {
		return rec.Status, "", ErrTransitionInFlight
	}
	to, err := Next(m.kind, rec.Status, action)
	return rec.Status, to, err
}

func (m *Manager) confirmedStatus(echo *remote.Record) (Status, error) {
	if echo == nil {
		return "", &remote.Error{Kind: remote.KindShape, Message: "store did not echo the record"}
	}
	st, err := ParseStatus(echo.Status)
	if err == nil && !ValidFor(m.kind, st) {
		err = fmt.Errorf("status %s not valid for %s", st, m.kind)
	}
	if err != nil {
		return "", &remote.Error{Kind: remote.KindShape, Message: "store echoed an unknown status", Err: err}
	}
	return st, nil
}

func (m *Manager) failTransition(ctx context.Context, unlock func(), id string, action Action, from, to Status, cause error) error {
	m.mu.Lock()
	if rec, ok := m.records[id]; ok {
		rec.Pending = nil
	}
	m.seq++
	m.mu.Unlock()
	unlock()

	terr := &TransitionError{RecordID: id, Action: action, Err: cause}
	m.record(ctx, Entry{Kind: m.kind, RecordID: id, Action: action, From: from, To: to, Outcome: OutcomeFailed, Message: remote.MessageOf(cause)})

	// Re-authentication is the only recovery for auth failures; a fetch would fail the same way.
	if remote.KindOf(cause) != remote.KindAuth {
		if _, err := m.FetchAll(context.WithoutCancel(ctx)); err != nil {
			terr.ResyncErr = err
		} else {
			terr.Resynced = true
		}
	}
	m.logger.WarnContext(ctx, "transition failed",
		"record_id", id, "action", action, "from", from, "to", to,
		"kind", remote.KindOf(cause), "err", cause, "resynced", terr.Resynced)
	return terr
}

func (m *Manager) record(ctx context.Context, e Entry) {
	if m.journal == nil {
		return
	}
	if e.Actor == "" {
		e.Actor = actorFrom(ctx)
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = m.now().UTC()
	}
	ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()
	if err := m.journal.Insert(ictx, e); err != nil {
		m.logger.WarnContext(ctx, "journal insert failed", "record_id", e.RecordID, "outcome", e.Outcome, "err", err)
	}
}

// Records returns a copy of the collection in store order.
func (m *Manager) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() []Record {
	out := make([]Record, 0, len(m.order))
	for _, id := range m.order {
		if rec, ok := m.records[id]; ok {
			out = append(out, rec.clone())
		}
	}
	return out
}

func (m *Manager) Get(id string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return Record{}, false
	}
	return rec.clone(), true
}

// Actions returns the actions an operator may take on id right now: the table
// entries for its status, or none while a transition is in flight.
func (m *Manager) Actions(id string) ([]Action, error) {
	rec, ok := m.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRecord, id)
	}
	return ActionsFor(rec), nil
}

// ActionsFor is Actions for a record snapshot.
func ActionsFor(rec Record) []Action {
	if rec.Pending != nil {
		return []Action{}
	}
	return LegalActions(rec.Kind, rec.Status)
}

// PaymentOf returns the payment amounts of a record.
func (m *Manager) PaymentOf(id string) (payment.Amounts, bool) {
	rec, ok := m.Get(id)
	if !ok {
		return payment.Amounts{}, false
	}
	return rec.Payment, true
}

// Journal returns journaled events for id, or nil when no journal is configured.
func (m *Manager) Journal(ctx context.Context, id string) ([]Entry, bool, error) {
	if m.journal == nil {
		return nil, false, nil
	}
	entries, err := m.journal.ListByRecord(ctx, m.kind, id)
	return entries, true, err
}

// LastFetch is when the collection was last replaced. Zero before the first fetch.
func (m *Manager) LastFetch() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastFetch
}

// Poll fetches immediately and then every interval until ctx is done.
func (m *Manager) Poll(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	if _, err := m.FetchAll(ctx); err != nil {
		m.logger.ErrorContext(ctx, "initial fetch failed", "err", err)
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := m.FetchAll(ctx); err != nil {
				m.logger.ErrorContext(ctx, "poll fetch failed", "err", err)
			}
		}
	}
}
