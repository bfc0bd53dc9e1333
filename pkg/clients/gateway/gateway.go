// Package gateway implements the ledger and exchange clients over the JSON/HTTP
// canister gateway. Every response is either {"ok": ...} or {"err": {...}}.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sudao/sudao/pkg/models"
	"github.com/sudao/sudao/pkg/protocol"
)

const (
	DefaultTimeout   = 30 * time.Second
	defaultRetryWait = 200 * time.Millisecond
)

var errMalformedResponse = errors.New("response has neither ok nor err")

// Options tune the HTTP transport shared by the gateway clients.
type Options struct {
	Timeout time.Duration
	// ReadRetries applies to read-only calls (quote, balance_of). Approve and swap
	// mutate remote state and are never retried.
	ReadRetries int
	RetryWait   time.Duration
	Logger      *slog.Logger
}

type remoteError struct {
	Kind    string            `json:"kind"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type envelope struct {
	Ok  *string      `json:"ok"`
	Err *remoteError `json:"err"`
}

// endpoint pairs a write client (no retries) with a read client (ReadRetries).
type endpoint struct {
	name   string
	writes *resty.Client
	reads  *resty.Client
	logger *slog.Logger
}

func newEndpoint(name, baseURL string, opts Options) *endpoint {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	wait := opts.RetryWait
	if wait <= 0 {
		wait = defaultRetryWait
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	base := func() *resty.Client {
		return resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json")
	}

	reads := base().
		SetRetryCount(max(opts.ReadRetries, 0)).
		SetRetryWaitTime(wait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	return &endpoint{
		name:   name,
		writes: base(),
		reads:  reads,
		logger: logger.With("module", "gateway", "endpoint", name),
	}
}

// call posts body and returns the decoded "ok" amount, or the "err" payload.
func (e *endpoint) call(ctx context.Context, client *resty.Client, op string, body any) (*big.Int, *remoteError, error) {
	resp, err := client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/" + op)

	e.logger.DebugContext(ctx, "Gateway call", "op", op, "status", statusOf(resp), "error", err)

	if err != nil {
		return nil, nil, &protocol.TransportError{Op: op, Err: err}
	}

	var env envelope

	decodeErr := json.Unmarshal(resp.Body(), &env)
	if decodeErr != nil {
		if resp.IsError() {
			return nil, nil, &protocol.TransportError{Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode())}
		}

		return nil, nil, &protocol.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", decodeErr)}
	}

	if env.Err != nil {
		e.logger.InfoContext(ctx, "Gateway call rejected", "op", op, "kind", env.Err.Kind, "message", env.Err.Message)

		return nil, env.Err, nil
	}

	if env.Ok == nil {
		return nil, nil, &protocol.TransportError{Op: op, Err: errMalformedResponse}
	}

	amount, err := models.ParseAmount(*env.Ok)
	if err != nil {
		return nil, nil, &protocol.TransportError{Op: op, Err: err}
	}

	return amount, nil, nil
}

func statusOf(resp *resty.Response) int {
	if resp == nil || resp.RawResponse == nil {
		return 0
	}

	return resp.StatusCode()
}
