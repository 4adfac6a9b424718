package credit

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const Kind = "credit"

var ErrRatingTooLow = errors.New("credit rating too low")

type DirtyMarker interface {
	MarkDirty(owner uuid.UUID, kind string)
}

// History is the repayment record a score is derived from.
type History struct {
	OnTimePayments int             `json:"onTimePayments"`
	MissedPayments int             `json:"missedPayments"`
	LoansCompleted int             `json:"loansCompleted"`
	TotalRepaid    decimal.Decimal `json:"totalRepaid"`
	Defaults       int             `json:"defaults"`
	OpenedDay      int64           `json:"openedDay"`
}

const (
	baseScore = 500
	minScore  = 0
	maxScore  = 1000

	onTimePoints   = 5
	onTimeCap      = 200
	missedPenalty  = 25
	completedBonus = 40
	completedCap   = 200
	repaidPerPoint = 1000
	repaidCap      = 50
	agePerWeek     = 5
	ageCap         = 50
	defaultPenalty = 200
)

// ScoreOf derives a 0..1000 score from h as of day.
func ScoreOf(h History, day int64) int {
	score := baseScore

	score += min(h.OnTimePayments*onTimePoints, onTimeCap)
	score -= h.MissedPayments * missedPenalty
	score += min(h.LoansCompleted*completedBonus, completedCap)
	score += min(int(h.TotalRepaid.Div(decimal.NewFromInt(repaidPerPoint)).IntPart()), repaidCap)

	if age := day - h.OpenedDay; age > 0 {
		score += int(min(age/7*agePerWeek, ageCap))
	}

	score -= h.Defaults * defaultPenalty

	return max(minScore, min(score, maxScore))
}

// Report is what a player sees when requesting credit data.
type Report struct {
	Score    int             `json:"score"`
	Rating   Rating          `json:"rating"`
	Modifier decimal.Decimal `json:"interestModifier"`
	History  History         `json:"history"`
	Blocked  bool            `json:"blocked"`
}

// Engine keeps repayment histories and rates players from them. Records
// are created on first reference with that day as the account age origin.
type Engine struct {
	dirty DirtyMarker

	mu        sync.Mutex
	histories map[uuid.UUID]*History
}

func New(dirty DirtyMarker) *Engine {
	return &Engine{
		dirty:     dirty,
		histories: make(map[uuid.UUID]*History),
	}
}

// get returns owner's history, creating it at day; the caller holds e.mu.
func (e *Engine) get(owner uuid.UUID, day int64) *History {
	h, ok := e.histories[owner]
	if !ok {
		h = &History{OpenedDay: day}
		e.histories[owner] = h
		e.markDirty(owner)
	}

	return h
}

func (e *Engine) markDirty(owner uuid.UUID) {
	if e.dirty != nil {
		e.dirty.MarkDirty(owner, Kind)
	}
}

// Open starts owner's credit history at day, counting account age from
// then. It does nothing if a history already exists.
func (e *Engine) Open(owner uuid.UUID, day int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.get(owner, day)
}

func (e *Engine) CalculateScore(owner uuid.UUID, day int64) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return ScoreOf(*e.get(owner, day), day)
}

func (e *Engine) Rating(owner uuid.UUID, day int64) Rating {
	return RatingFor(e.CalculateScore(owner, day))
}

// CanTakeLoan compares the current tier with required. Any recorded
// default blocks new loans.
func (e *Engine) CanTakeLoan(owner uuid.UUID, required Rating, day int64) bool {
	return e.CheckEligibility(owner, required, day) == nil
}

func (e *Engine) CheckEligibility(owner uuid.UUID, required Rating, day int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	h := e.get(owner, day)
	if h.Defaults > 0 {
		return fmt.Errorf("%w: %d defaulted loan(s) on record", ErrRatingTooLow, h.Defaults)
	}

	r := RatingFor(ScoreOf(*h, day))
	if !r.AtLeast(required) {
		return fmt.Errorf("%w: %s, requires %s", ErrRatingTooLow, r, required)
	}

	return nil
}

func (e *Engine) Report(owner uuid.UUID, day int64) Report {
	e.mu.Lock()
	defer e.mu.Unlock()

	h := *e.get(owner, day)
	score := ScoreOf(h, day)
	r := RatingFor(score)

	return Report{
		Score:    score,
		Rating:   r,
		Modifier: r.InterestModifier(),
		History:  h,
		Blocked:  h.Defaults > 0,
	}
}

func (e *Engine) update(owner uuid.UUID, day int64, fn func(h *History)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn(e.get(owner, day))
	e.markDirty(owner)
}

func (e *Engine) RecordOnTimePayment(owner uuid.UUID, day int64) {
	e.update(owner, day, func(h *History) { h.OnTimePayments++ })
}

func (e *Engine) RecordMissedPayment(owner uuid.UUID, day int64) {
	e.update(owner, day, func(h *History) { h.MissedPayments++ })
}

func (e *Engine) RecordLoanCompleted(owner uuid.UUID, repaid decimal.Decimal, day int64) {
	e.update(owner, day, func(h *History) {
		h.LoansCompleted++
		h.TotalRepaid = h.TotalRepaid.Add(repaid)
	})
}

func (e *Engine) RecordDefault(owner uuid.UUID, day int64) {
	e.update(owner, day, func(h *History) { h.Defaults++ })
}

func (e *Engine) Snapshot(owner uuid.UUID) (History, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, ok := e.histories[owner]
	if !ok {
		return History{}, false
	}

	return *h, true
}

func (e *Engine) Restore(owner uuid.UUID, h History) error {
	if h.OnTimePayments < 0 || h.MissedPayments < 0 || h.LoansCompleted < 0 || h.Defaults < 0 {
		return fmt.Errorf("restore credit %s: negative counter", owner)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.histories[owner] = &h

	return nil
}
