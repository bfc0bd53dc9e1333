package protocol

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// LedgerErrorKind enumerates the ICRC-2 approve / ICRC-1 rejections.
type LedgerErrorKind string

const (
	LedgerBadFee                 LedgerErrorKind = "BadFee"
	LedgerInsufficientFunds      LedgerErrorKind = "InsufficientFunds"
	LedgerAllowanceChanged       LedgerErrorKind = "AllowanceChanged"
	LedgerExpired                LedgerErrorKind = "Expired"
	LedgerTooOld                 LedgerErrorKind = "TooOld"
	LedgerCreatedInFuture        LedgerErrorKind = "CreatedInFuture"
	LedgerDuplicate              LedgerErrorKind = "Duplicate"
	LedgerTemporarilyUnavailable LedgerErrorKind = "TemporarilyUnavailable"
	LedgerGenericError           LedgerErrorKind = "GenericError"
)

// ExchangeErrorKind enumerates AMM quote and swap refusals.
type ExchangeErrorKind string

const (
	ExchangeNotInitialized        ExchangeErrorKind = "NotInitialized"
	ExchangeInvalidToken          ExchangeErrorKind = "InvalidToken"
	ExchangeInsufficientLiquidity ExchangeErrorKind = "InsufficientLiquidity"
	ExchangeSlippageExceeded      ExchangeErrorKind = "SlippageExceeded"
	ExchangeQuoteExpired          ExchangeErrorKind = "QuoteExpired"
	ExchangeInsufficientAllowance ExchangeErrorKind = "InsufficientAllowance"
	ExchangeTransferFailed        ExchangeErrorKind = "TransferFailed"
	ExchangeOther                 ExchangeErrorKind = "Other"
)

// LedgerError is a structured business rejection returned by a ledger.
type LedgerError struct {
	Op      string
	Kind    LedgerErrorKind
	Message string
	Details map[string]string
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("ledger %s rejected: %s%s", e.Op, e.Kind, suffix(e.Message, e.Details))
}

// ExchangeError is a structured business refusal returned by the exchange.
type ExchangeError struct {
	Op      string
	Kind    ExchangeErrorKind
	Message string
	Details map[string]string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("exchange %s rejected: %s%s", e.Op, e.Kind, suffix(e.Message, e.Details))
}

// TransportError means the call may or may not have reached the remote service.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func IsLedgerError(err error, kind LedgerErrorKind) bool {
	var le *LedgerError

	return errors.As(err, &le) && le.Kind == kind
}

func IsExchangeError(err error, kind ExchangeErrorKind) bool {
	var ee *ExchangeError

	return errors.As(err, &ee) && ee.Kind == kind
}

// IsRejection reports whether the remote service answered with a structured refusal.
func IsRejection(err error) bool {
	var (
		le *LedgerError
		ee *ExchangeError
	)

	return errors.As(err, &le) || errors.As(err, &ee)
}

func suffix(message string, details map[string]string) string {
	var b strings.Builder

	if message != "" {
		b.WriteString(": ")
		b.WriteString(message)
	}

	if len(details) > 0 {
		keys := make([]string, 0, len(details))
		for k := range details {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		b.WriteString(" (")

		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}

			b.WriteString(k + "=" + details[k])
		}

		b.WriteString(")")
	}

	return b.String()
}
