package services

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"math/big"
	"slices"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	"github.com/sudao/sudao/pkg/contribution"
	"github.com/sudao/sudao/pkg/models"
	"github.com/sudao/sudao/pkg/persistence"
	"golang.org/x/time/rate"
)

const (
	DefaultRetention        = 24 * time.Hour
	DefaultEvictionSchedule = "@every 1m"
	DefaultStartsPerMinute  = 6
	DefaultStartBurst       = 3
)

type ContributionsConfig struct {
	// Exchange is approved as spender for every run.
	Exchange     models.Account
	DepositAsset models.Principal
	// StartsPerMinute limits Start per depositor account; zero disables the limit.
	StartsPerMinute int `validate:"gte=0"`
	StartBurst      int `validate:"gte=0"`
	// Retention is how long a finished session stays live before eviction.
	Retention        time.Duration `validate:"gt=0"`
	EvictionSchedule string        `validate:"required"`
}

func DefaultContributionsConfig(exchange models.Account, depositAsset models.Principal) ContributionsConfig {
	return ContributionsConfig{
		Exchange:         exchange,
		DepositAsset:     depositAsset,
		StartsPerMinute:  DefaultStartsPerMinute,
		StartBurst:       DefaultStartBurst,
		Retention:        DefaultRetention,
		EvictionSchedule: DefaultEvictionSchedule,
	}
}

type StartRequest struct {
	Amount  *big.Int
	Account models.Account
	Memo    []byte
}

// Session is a snapshot of a live run.
type Session struct {
	ID        string
	Request   contribution.Request
	State     contribution.State
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s Session) Record() (*models.RunRecord, error) {
	return persistence.NewRunRecord(s.ID, s.Request, s.State, s.CreatedAt, s.UpdatedAt)
}

type session struct {
	handle    *contribution.Handle
	createdAt time.Time
	updatedAt time.Time
}

// Contributions keeps the live contribution runs. Every run has its own handle and
// state; the service only routes calls and expires finished runs.
type Contributions struct {
	logger      *slog.Logger
	coordinator *contribution.Coordinator
	clients     contribution.Clients
	journal     persistence.Journal
	config      ContributionsConfig
	clock       clockwork.Clock
	cron        *cron.Cron

	mu       sync.RWMutex
	sessions map[string]*session
	limiters map[string]*rate.Limiter
}

type ContributionsOption func(*Contributions)

func WithClock(clock clockwork.Clock) ContributionsOption {
	return func(c *Contributions) {
		c.clock = clock
	}
}

// WithJournal enables history lookups for runs that are no longer live.
func WithJournal(journal persistence.Journal) ContributionsOption {
	return func(c *Contributions) {
		c.journal = journal
	}
}

func NewContributions(
	logger *slog.Logger,
	coordinator *contribution.Coordinator,
	clients contribution.Clients,
	config ContributionsConfig,
	opts ...ContributionsOption,
) (*Contributions, error) {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(config)
	if err != nil {
		return nil, fmt.Errorf("invalid contributions config: %w", err)
	}

	_, err = cron.ParseStandard(config.EvictionSchedule)
	if err != nil {
		return nil, fmt.Errorf("invalid eviction schedule %q: %w", config.EvictionSchedule, err)
	}

	c := &Contributions{
		logger:      logger.With("module", "contributions"),
		coordinator: coordinator,
		clients:     clients,
		config:      config,
		clock:       clockwork.NewRealClock(),
		sessions:    make(map[string]*session),
		limiters:    make(map[string]*rate.Limiter),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// StartEviction schedules the eviction job. It returns immediately.
func (c *Contributions) StartEviction(ctx context.Context) error {
	c.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := c.cron.AddFunc(c.config.EvictionSchedule, func() {
		c.EvictExpired(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule session eviction: %w", err)
	}

	c.cron.Start()
	c.logger.InfoContext(ctx, "Session eviction scheduled",
		"schedule", c.config.EvictionSchedule,
		"retention", c.config.Retention,
	)

	return nil
}

// StopEviction stops the eviction job and waits for a running pass, or for ctx.
func (c *Contributions) StopEviction(ctx context.Context) {
	if c.cron == nil {
		return
	}

	select {
	case <-c.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// HealthCheck reports the journal health; without a journal the service is healthy.
func (c *Contributions) HealthCheck(ctx context.Context) (string, bool) {
	if c.journal == nil {
		return "No journal configured", true
	}

	err := c.journal.HealthCheck(ctx)
	if err != nil {
		return "Journal is unhealthy: " + err.Error(), false
	}

	return "Journal is healthy", true
}

// Start creates a run for req. A request that fails validation still
// creates a session, failed at step 0, and the validation error is returned with it.
func (c *Contributions) Start(ctx context.Context, req StartRequest) (Session, error) {
	if !req.Account.IsZero() && !c.allow(req.Account) {
		c.logger.WarnContext(ctx, "Contribution start rate limited", "account", req.Account.String())

		return Session{}, newServiceError("start", "", ErrRateLimited)
	}

	handle, startErr := c.coordinator.Start(ctx, c.request(req), c.clients)

	now := c.clock.Now()
	s := &session{handle: handle, createdAt: now, updatedAt: now}

	c.mu.Lock()
	c.sessions[handle.ID()] = s
	c.mu.Unlock()

	return c.snapshot(s), startErr
}

// Advance executes the next step of the run.
func (c *Contributions) Advance(ctx context.Context, id string) (Session, contribution.StepResult, error) {
	s, err := c.session("advance", id)
	if err != nil {
		return Session{}, nil, err
	}

	result, err := s.handle.Advance(ctx)
	c.touch(s)

	return c.snapshot(s), result, err
}

// Run advances the run until it completes or fails.
func (c *Contributions) Run(ctx context.Context, id string) (Session, error) {
	s, err := c.session("run", id)
	if err != nil {
		return Session{}, err
	}

	_, err = s.handle.RunAll(ctx)
	c.touch(s)

	return c.snapshot(s), err
}

// Reset rearms the run at step 0 with a new request.
func (c *Contributions) Reset(ctx context.Context, id string, req StartRequest) (Session, error) {
	s, err := c.session("reset", id)
	if err != nil {
		return Session{}, err
	}

	err = s.handle.Reset(ctx, c.request(req))
	c.touch(s)

	return c.snapshot(s), err
}

// Reconcile reads the depositor's balances for the run without advancing it.
func (c *Contributions) Reconcile(ctx context.Context, id string) (Session, models.Balances, error) {
	s, err := c.session("reconcile", id)
	if err != nil {
		return Session{}, models.Balances{}, err
	}

	balances, err := s.handle.Reconcile(ctx)
	if err != nil {
		return c.snapshot(s), models.Balances{}, err
	}

	c.touch(s)

	return c.snapshot(s), balances, nil
}

// Session returns the live session with the given ID.
func (c *Contributions) Session(id string) (Session, error) {
	s, err := c.session("get", id)
	if err != nil {
		return Session{}, err
	}

	return c.snapshot(s), nil
}

// Get returns the record of a live session, falling back to the journal for runs
// that were acknowledged or evicted.
func (c *Contributions) Get(ctx context.Context, id string) (*models.RunRecord, error) {
	c.mu.RLock()
	s, ok := c.sessions[id]
	c.mu.RUnlock()

	if ok {
		return c.snapshot(s).Record()
	}

	if c.journal == nil {
		return nil, newServiceError("get", id, ErrSessionNotFound)
	}

	record, err := c.journal.RunByID(ctx, id)
	if err != nil {
		if persistence.IsRunNotFound(err) {
			return nil, newServiceError("get", id, ErrSessionNotFound)
		}

		return nil, fmt.Errorf("failed to read run %s from journal: %w", id, err)
	}

	return record, nil
}

// Acknowledge drops a finished live session. Its journal record, if any, stays.
func (c *Contributions) Acknowledge(ctx context.Context, id string) error {
	s, err := c.session("acknowledge", id)
	if err != nil {
		return err
	}

	if !s.handle.State().Status.Terminal() {
		return newServiceError("acknowledge", id, ErrSessionActive)
	}

	c.mu.Lock()
	delete(c.sessions, id)
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "Contribution session acknowledged", "run_id", id)

	return nil
}

// List returns the owner's runs, newest first. With a journal the history covers
// evicted runs; without one only live sessions are listed.
func (c *Contributions) List(ctx context.Context, owner string, limit int) ([]*models.RunRecord, error) {
	if owner == "" {
		return nil, newServiceError("list", "", ErrEmptyOwner)
	}

	principal, err := models.ParsePrincipal(owner)
	if err != nil {
		return nil, &ServiceError{Op: "list", Message: err.Error(), Err: ErrInvalidRequest}
	}

	limit = persistence.NormalizeLimit(limit)

	if c.journal != nil {
		records, err := c.journal.RunsByOwner(ctx, principal.String(), limit)
		if err != nil {
			return nil, fmt.Errorf("failed to list runs from journal: %w", err)
		}

		return records, nil
	}

	return c.liveRecords(principal, limit)
}

// Len returns the number of live sessions.
func (c *Contributions) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.sessions)
}

// EvictExpired drops finished sessions idle for longer than the retention window
// and forgets limiters that are full again. It returns the number of evicted sessions.
func (c *Contributions) EvictExpired(ctx context.Context) int {
	now := c.clock.Now()
	cutoff := now.Add(-c.config.Retention)

	expired := make([]string, 0)

	for id, s := range c.live() {
		c.mu.RLock()
		idle := !s.updatedAt.After(cutoff)
		c.mu.RUnlock()

		if idle && s.handle.State().Status.Terminal() {
			expired = append(expired, id)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0

	for _, id := range expired {
		if _, ok := c.sessions[id]; ok {
			delete(c.sessions, id)

			evicted++
		}
	}

	for key, limiter := range c.limiters {
		if limiter.TokensAt(now) >= float64(limiter.Burst()) {
			delete(c.limiters, key)
		}
	}

	if evicted > 0 {
		c.logger.InfoContext(ctx, "Evicted finished contribution sessions", "count", evicted)
	}

	return evicted
}

func (c *Contributions) request(req StartRequest) contribution.Request {
	return contribution.Request{
		Amount:       req.Amount,
		Account:      req.Account,
		Exchange:     c.config.Exchange,
		DepositAsset: c.config.DepositAsset,
		Memo:         req.Memo,
	}
}

func (c *Contributions) allow(account models.Account) bool {
	if c.config.StartsPerMinute == 0 {
		return true
	}

	key := account.String()

	c.mu.Lock()
	defer c.mu.Unlock()

	limiter, ok := c.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(c.config.StartsPerMinute)), c.config.StartBurst)
		c.limiters[key] = limiter
	}

	return limiter.AllowN(c.clock.Now(), 1)
}

func (c *Contributions) session(op, id string) (*session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.sessions[id]
	if !ok {
		return nil, newServiceError(op, id, ErrSessionNotFound)
	}

	return s, nil
}

// live copies the session map so handles can be inspected without holding c.mu.
func (c *Contributions) live() map[string]*session {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return maps.Clone(c.sessions)
}

func (c *Contributions) touch(s *session) {
	now := c.clock.Now()

	c.mu.Lock()
	s.updatedAt = now
	c.mu.Unlock()
}

func (c *Contributions) snapshot(s *session) Session {
	c.mu.RLock()
	createdAt, updatedAt := s.createdAt, s.updatedAt
	c.mu.RUnlock()

	return Session{
		ID:        s.handle.ID(),
		Request:   s.handle.Request(),
		State:     s.handle.State(),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

func (c *Contributions) liveRecords(owner models.Principal, limit int) ([]*models.RunRecord, error) {
	matching := make([]*session, 0)

	for _, s := range c.live() {
		if s.handle.Request().Account.Owner.Equal(owner) {
			matching = append(matching, s)
		}
	}

	slices.SortFunc(matching, func(a, b *session) int {
		return b.createdAt.Compare(a.createdAt)
	})

	if len(matching) > limit {
		matching = matching[:limit]
	}

	records := make([]*models.RunRecord, 0, len(matching))

	for _, s := range matching {
		record, err := c.snapshot(s).Record()
		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	return records, nil
}
