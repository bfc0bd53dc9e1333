// Package main runs a single contribution from the command line and prints its
// final state as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sudao/sudao/pkg/cmd"
	"github.com/sudao/sudao/pkg/contribution"
	"github.com/sudao/sudao/pkg/log"
	"github.com/sudao/sudao/pkg/models"
	cli "github.com/urfave/cli/v3"
)

func main() {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     "amount",
			Aliases:  []string{"a"},
			Usage:    "Amount of the deposit asset in its smallest unit",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "owner",
			Aliases:  []string{"o"},
			Usage:    "Principal of the depositor",
			Required: true,
			Sources:  cli.EnvVars("OWNER"),
		},
		&cli.StringFlag{
			Name:  "subaccount",
			Usage: "Depositor sub-account as hex",
		},
		&cli.StringFlag{
			Name:  "memo",
			Usage: "Memo attached to the approve transaction",
		},
	}

	flags = append(flags, cmd.ClientFlags()...)
	flags = append(flags, cmd.WorkflowFlags()...)
	flags = append(flags, cmd.CommonFlags()...)

	command := &cli.Command{
		Name:   "sudao-contribute",
		Usage:  "Approve, quote, swap and check balances for one contribution",
		Flags:  flags,
		Action: run,
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"), command.String("log-format"))

	logger := log.WithModule("contribute")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracer, shutdownTracer, err := cmd.NewTracer(ctx, command.Bool("otel"))
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}

	defer func() {
		err := shutdownTracer(context.Background())
		if err != nil {
			logger.ErrorContext(ctx, "Failed to shut down tracer", "error", err)
		}
	}()

	clients, err := cmd.NewClients(logger, cmd.ClientsConfigFromCommand(command))
	if err != nil {
		return err
	}

	config, err := cmd.ContributionConfigFromCommand(command)
	if err != nil {
		return err
	}

	exchange, depositAsset, err := cmd.Exchange(command)
	if err != nil {
		return err
	}

	req, err := request(command, exchange, depositAsset)
	if err != nil {
		return err
	}

	coordinator, err := contribution.NewCoordinator(logger, config,
		contribution.WithTracer(tracer),
		contribution.WithObservers(progress(logger)),
	)
	if err != nil {
		return err
	}

	handle, err := coordinator.Start(ctx, req, clients)
	if err == nil {
		_, err = handle.RunAll(ctx)
	}

	printErr := printState(os.Stdout, handle.ID(), handle.State())
	if printErr != nil {
		return printErr
	}

	if err != nil {
		if contribution.IsTransport(err) {
			logger.WarnContext(ctx, "Outcome of the last step is unknown; check balances before retrying",
				"run_id", handle.ID())
		}

		return cli.Exit(err.Error(), 1)
	}

	return nil
}

func request(command *cli.Command, exchange models.Account, depositAsset models.Principal) (contribution.Request, error) {
	amount, err := models.ParseAmount(command.String("amount"))
	if err != nil {
		return contribution.Request{}, err
	}

	account, err := models.NewAccount(command.String("owner"), command.String("subaccount"))
	if err != nil {
		return contribution.Request{}, fmt.Errorf("invalid depositor: %w", err)
	}

	var memo []byte
	if m := command.String("memo"); m != "" {
		memo = []byte(m)
	}

	return contribution.Request{
		Amount:       amount,
		Account:      account,
		Exchange:     exchange,
		DepositAsset: depositAsset,
		Memo:         memo,
	}, nil
}

func printState(w io.Writer, runID string, state contribution.State) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(struct {
		RunID string             `json:"run_id"`
		State contribution.State `json:"state"`
	}{RunID: runID, State: state})
}
