package contribution

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultSlippageBps = 100
	DefaultApprovalTTL = time.Hour
	DefaultStepDelay   = 500 * time.Millisecond
	// DefaultLedgerFee is the ICP ledger fee in e8s.
	DefaultLedgerFee = 10_000
)

// Config tunes the workflow. The zero value is not usable; start from DefaultConfig.
type Config struct {
	// SlippageBps is the tolerance applied to the quote, in basis points.
	SlippageBps uint32 `validate:"lt=10000"`
	// ApproveFee is paid to the ledger for the approve transaction.
	ApproveFee *big.Int
	// TransferFee is added on top of the amount so the exchange's transfer_from is covered.
	TransferFee *big.Int
	ApprovalTTL time.Duration `validate:"gt=0"`
	// StepDelay separates steps in RunAll so remote reads observe earlier writes.
	StepDelay time.Duration `validate:"gte=0"`
	// StepTimeout bounds each remote call; zero leaves it to the caller's context.
	StepTimeout time.Duration `validate:"gte=0"`
}

func DefaultConfig() Config {
	return Config{
		SlippageBps: DefaultSlippageBps,
		ApproveFee:  big.NewInt(DefaultLedgerFee),
		TransferFee: big.NewInt(DefaultLedgerFee),
		ApprovalTTL: DefaultApprovalTTL,
		StepDelay:   DefaultStepDelay,
	}
}

func (c Config) validate() error {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(c)
	if err != nil {
		return fmt.Errorf("invalid contribution config: %w", err)
	}

	if c.ApproveFee == nil || c.ApproveFee.Sign() < 0 {
		return errors.New("invalid contribution config: approve fee must be non-negative")
	}

	if c.TransferFee == nil || c.TransferFee.Sign() < 0 {
		return errors.New("invalid contribution config: transfer fee must be non-negative")
	}

	return nil
}

type Option func(*Coordinator)

func WithClock(clock clockwork.Clock) Option {
	return func(c *Coordinator) {
		c.clock = clock
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Coordinator) {
		c.tracer = tracer
	}
}

// WithObservers registers observers notified of every state transition.
func WithObservers(observers ...Observer) Option {
	return func(c *Coordinator) {
		c.observers = append(c.observers, observers...)
	}
}

func WithIDGenerator(generate func() string) Option {
	return func(c *Coordinator) {
		c.newID = generate
	}
}

func defaultOptions(c *Coordinator) {
	c.clock = clockwork.NewRealClock()
	c.tracer = otel.Tracer("github.com/sudao/sudao/pkg/contribution")
	c.newID = func() string {
		return "run-" + uuid.New().String()
	}
}
