package contribution

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/sudao/sudao/pkg/models"
)

// Step identifies a position in the workflow. StepValidate (0) is where requests that
// never reach a remote service fail.
type Step int

const (
	StepValidate Step = iota
	StepApprove
	StepQuote
	StepSwap
	StepBalances
)

// StepNone is returned by State.Next once the workflow is terminal.
const StepNone Step = -1

const lastStep = StepBalances

func (s Step) String() string {
	switch s {
	case StepValidate:
		return "validate"
	case StepApprove:
		return "approve"
	case StepQuote:
		return "quote"
	case StepSwap:
		return "swap"
	case StepBalances:
		return "balances"
	case StepNone:
		return "none"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// StepResult is the outcome of one step. The set of implementations is closed:
// Approved, QuoteObtained, Swapped, BalancesChecked and Failed.
type StepResult interface {
	Step() Step
	Accept(v ResultVisitor)
	isStepResult()
}

// ResultVisitor must handle every result variant; adding a variant breaks every
// implementation at compile time.
type ResultVisitor interface {
	VisitApproved(Approved)
	VisitQuoteObtained(QuoteObtained)
	VisitSwapped(Swapped)
	VisitBalancesChecked(BalancesChecked)
	VisitFailed(Failed)
}

type Approved struct {
	AllowanceTxID *big.Int
	Allowance     *big.Int
	ExpiresAt     time.Time
}

func (Approved) Step() Step               { return StepApprove }
func (r Approved) Accept(v ResultVisitor) { v.VisitApproved(r) }
func (Approved) isStepResult()            {}

type QuoteObtained struct {
	ExpectedOut *big.Int
}

func (QuoteObtained) Step() Step               { return StepQuote }
func (r QuoteObtained) Accept(v ResultVisitor) { v.VisitQuoteObtained(r) }
func (QuoteObtained) isStepResult()            {}

type Swapped struct {
	ActualOut    *big.Int
	MinAmountOut *big.Int
}

func (Swapped) Step() Step               { return StepSwap }
func (r Swapped) Accept(v ResultVisitor) { v.VisitSwapped(r) }
func (Swapped) isStepResult()            {}

type BalancesChecked struct {
	Balances models.Balances
}

func (BalancesChecked) Step() Step               { return StepBalances }
func (r BalancesChecked) Accept(v ResultVisitor) { v.VisitBalancesChecked(r) }
func (BalancesChecked) isStepResult()            {}

// Failed records the step that failed, the error class and the remote reason verbatim.
type Failed struct {
	StepIndex Step
	Kind      ErrorKind
	Reason    string
	Err       error
}

func (r Failed) Step() Step             { return r.StepIndex }
func (r Failed) Accept(v ResultVisitor) { v.VisitFailed(r) }
func (Failed) isStepResult()            {}

// OutcomeUnknown is true when the failed call may still have taken effect remotely.
// Callers must Reconcile before deciding to resubmit anything.
func (r Failed) OutcomeUnknown() bool {
	return r.Kind == KindTransport
}

type resultJSON struct {
	Kind           string           `json:"kind"`
	Step           int              `json:"step"`
	StepName       string           `json:"step_name"`
	AllowanceTxID  string           `json:"allowance_tx_id,omitempty"`
	Allowance      string           `json:"allowance,omitempty"`
	ExpiresAt      *time.Time       `json:"expires_at,omitempty"`
	ExpectedOut    string           `json:"expected_out,omitempty"`
	ActualOut      string           `json:"actual_out,omitempty"`
	MinAmountOut   string           `json:"min_amount_out,omitempty"`
	Balances       *models.Balances `json:"balances,omitempty"`
	ErrorKind      ErrorKind        `json:"error_kind,omitempty"`
	Reason         string           `json:"reason,omitempty"`
	OutcomeUnknown bool             `json:"outcome_unknown,omitempty"`
}

type jsonVisitor struct {
	out resultJSON
}

func (j *jsonVisitor) VisitApproved(r Approved) {
	expires := r.ExpiresAt
	j.out.Kind = "approved"
	j.out.AllowanceTxID = models.FormatAmount(r.AllowanceTxID)
	j.out.Allowance = models.FormatAmount(r.Allowance)
	j.out.ExpiresAt = &expires
}

func (j *jsonVisitor) VisitQuoteObtained(r QuoteObtained) {
	j.out.Kind = "quote_obtained"
	j.out.ExpectedOut = models.FormatAmount(r.ExpectedOut)
}

func (j *jsonVisitor) VisitSwapped(r Swapped) {
	j.out.Kind = "swapped"
	j.out.ActualOut = models.FormatAmount(r.ActualOut)
	j.out.MinAmountOut = models.FormatAmount(r.MinAmountOut)
}

func (j *jsonVisitor) VisitBalancesChecked(r BalancesChecked) {
	balances := r.Balances
	j.out.Kind = "balances_checked"
	j.out.Balances = &balances
}

func (j *jsonVisitor) VisitFailed(r Failed) {
	j.out.Kind = "failed"
	j.out.ErrorKind = r.Kind
	j.out.Reason = r.Reason
	j.out.OutcomeUnknown = r.OutcomeUnknown()
}

// MarshalResult renders a result as a tagged JSON object with amounts as decimal strings.
func MarshalResult(r StepResult) ([]byte, error) {
	return json.Marshal(resultEnvelope(r))
}

func resultEnvelope(r StepResult) resultJSON {
	v := &jsonVisitor{}
	r.Accept(v)
	v.out.Step = int(r.Step())
	v.out.StepName = r.Step().String()

	return v.out
}
