package cmd

import (
	"errors"
	"log/slog"
	"time"

	"github.com/sudao/sudao/pkg/clients"
	"github.com/sudao/sudao/pkg/clients/gateway"
	"github.com/sudao/sudao/pkg/contribution"
)

type ClientsConfig struct {
	LedgerURL           string
	GovernanceLedgerURL string
	AMMURL              string
	Timeout             time.Duration
	ReadRetries         int
}

// NewClients builds the gateway clients for the deposit ledger, the governance
// ledger and the exchange.
func NewClients(logger *slog.Logger, config ClientsConfig) (contribution.Clients, error) {
	if config.LedgerURL == "" || config.GovernanceLedgerURL == "" || config.AMMURL == "" {
		return contribution.Clients{}, errors.New("ledger, governance ledger and exchange URLs are required")
	}

	opts := gateway.Options{
		Timeout:     config.Timeout,
		ReadRetries: config.ReadRetries,
		Logger:      logger,
	}

	deposit := gateway.NewLedger(config.LedgerURL, opts)
	governance := gateway.NewLedger(config.GovernanceLedgerURL, opts)

	return contribution.Clients{
		Ledger:   deposit,
		Exchange: gateway.NewExchange(config.AMMURL, opts),
		Balances: clients.NewLedgerBalances(deposit, governance),
	}, nil
}
