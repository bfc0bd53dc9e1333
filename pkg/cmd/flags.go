package cmd

import (
	"fmt"

	"github.com/sudao/sudao/pkg/clients/gateway"
	"github.com/sudao/sudao/pkg/contribution"
	"github.com/sudao/sudao/pkg/models"
	cli "github.com/urfave/cli/v3"
)

// ClientFlags configure the remote ledger and exchange endpoints.
func ClientFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "ledger-url",
			Usage:    "Gateway URL of the deposit asset ledger",
			Required: true,
			Sources:  cli.EnvVars("LEDGER_URL"),
		},
		&cli.StringFlag{
			Name:     "governance-ledger-url",
			Usage:    "Gateway URL of the governance token ledger",
			Required: true,
			Sources:  cli.EnvVars("GOVERNANCE_LEDGER_URL"),
		},
		&cli.StringFlag{
			Name:     "amm-url",
			Usage:    "Gateway URL of the exchange",
			Required: true,
			Sources:  cli.EnvVars("AMM_URL"),
		},
		&cli.StringFlag{
			Name:     "amm-account",
			Usage:    "Exchange account approved as spender (principal[.subaccount])",
			Required: true,
			Sources:  cli.EnvVars("AMM_ACCOUNT"),
		},
		&cli.StringFlag{
			Name:    "deposit-asset",
			Usage:   "Principal of the deposit asset ledger, used as the swap input token",
			Value:   "ryjl3-tyaaa-aaaaa-aaaba-cai",
			Sources: cli.EnvVars("DEPOSIT_ASSET"),
		},
		&cli.DurationFlag{
			Name:    "request-timeout",
			Usage:   "Timeout of each gateway HTTP request",
			Value:   gateway.DefaultTimeout,
			Sources: cli.EnvVars("REQUEST_TIMEOUT"),
		},
		&cli.IntFlag{
			Name:    "read-retries",
			Usage:   "Retries of read-only gateway calls (quote, balance)",
			Value:   0,
			Sources: cli.EnvVars("READ_RETRIES"),
		},
	}
}

// WorkflowFlags tune the contribution workflow.
func WorkflowFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "slippage-bps",
			Usage:   "Slippage tolerance applied to the quote, in basis points",
			Value:   contribution.DefaultSlippageBps,
			Sources: cli.EnvVars("SLIPPAGE_BPS"),
		},
		&cli.StringFlag{
			Name:    "ledger-fee",
			Usage:   "Ledger fee in the smallest unit, paid for approve and added to the allowance",
			Value:   "10000",
			Sources: cli.EnvVars("LEDGER_FEE"),
		},
		&cli.DurationFlag{
			Name:    "approval-ttl",
			Usage:   "Lifetime of the allowance granted to the exchange",
			Value:   contribution.DefaultApprovalTTL,
			Sources: cli.EnvVars("APPROVAL_TTL"),
		},
		&cli.DurationFlag{
			Name:    "step-delay",
			Usage:   "Pause between steps of a full run",
			Value:   contribution.DefaultStepDelay,
			Sources: cli.EnvVars("STEP_DELAY"),
		},
		&cli.DurationFlag{
			Name:    "step-timeout",
			Usage:   "Timeout of each remote call, 0 for none",
			Value:   0,
			Sources: cli.EnvVars("STEP_TIMEOUT"),
		},
	}
}

// CommonFlags configure logging and tracing.
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log format (text, json)",
			Value:   "text",
			Sources: cli.EnvVars("LOG_FORMAT"),
		},
		&cli.BoolFlag{
			Name:    "otel",
			Usage:   "Export traces over OTLP/HTTP (configured by the OTEL_EXPORTER_OTLP_* variables)",
			Value:   false,
			Sources: cli.EnvVars("OTEL_ENABLED"),
		},
	}
}

func ClientsConfigFromCommand(command *cli.Command) ClientsConfig {
	return ClientsConfig{
		LedgerURL:           command.String("ledger-url"),
		GovernanceLedgerURL: command.String("governance-ledger-url"),
		AMMURL:              command.String("amm-url"),
		Timeout:             command.Duration("request-timeout"),
		ReadRetries:         command.Int("read-retries"),
	}
}

func ContributionConfigFromCommand(command *cli.Command) (contribution.Config, error) {
	slippage := command.Int("slippage-bps")
	if slippage < 0 || slippage >= 10_000 {
		return contribution.Config{}, fmt.Errorf("invalid slippage: %d bps", slippage)
	}

	fee, err := models.ParseAmount(command.String("ledger-fee"))
	if err != nil {
		return contribution.Config{}, fmt.Errorf("invalid ledger fee: %w", err)
	}

	config := contribution.DefaultConfig()
	config.SlippageBps = uint32(slippage)
	config.ApproveFee = fee
	config.TransferFee = models.CloneAmount(fee)
	config.ApprovalTTL = command.Duration("approval-ttl")
	config.StepDelay = command.Duration("step-delay")
	config.StepTimeout = command.Duration("step-timeout")

	return config, nil
}

// Exchange parses the exchange account and deposit asset flags.
func Exchange(command *cli.Command) (models.Account, models.Principal, error) {
	exchange, err := models.ParseAccount(command.String("amm-account"))
	if err != nil {
		return models.Account{}, nil, fmt.Errorf("invalid exchange account: %w", err)
	}

	asset, err := models.ParsePrincipal(command.String("deposit-asset"))
	if err != nil {
		return models.Account{}, nil, fmt.Errorf("invalid deposit asset: %w", err)
	}

	return exchange, asset, nil
}
