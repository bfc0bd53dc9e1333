package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sudao/sudao/pkg/cmd"
	"github.com/sudao/sudao/pkg/contribution"
	"github.com/sudao/sudao/pkg/eventbus"
	"github.com/sudao/sudao/pkg/log"
	"github.com/sudao/sudao/pkg/metrics"
	"github.com/sudao/sudao/pkg/persistence"
	"github.com/sudao/sudao/pkg/services"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	flags := []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Port to run the API server on",
			Value:   defaultPort,
			Sources: cli.EnvVars("PORT"),
		},
		&cli.StringFlag{
			Name:    "journal-url",
			Usage:   "Run journal URL (file path or file://, redis://, postgres://)",
			Value:   "./data",
			Sources: cli.EnvVars("JOURNAL_URL", "DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (gochannel, kafka)",
			Value:   "gochannel",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma separated Kafka brokers, used with --event-bus kafka",
			Value:   "localhost:9092",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    "plugins-manifest",
			Usage:   "Plugin catalog manifest (JSON); the built-in catalog when empty",
			Sources: cli.EnvVars("PLUGINS_MANIFEST"),
		},
		&cli.DurationFlag{
			Name:    "retention",
			Usage:   "How long finished contributions stay live before eviction",
			Value:   services.DefaultRetention,
			Sources: cli.EnvVars("SESSION_RETENTION"),
		},
		&cli.IntFlag{
			Name:    "starts-per-minute",
			Usage:   "Contributions an account may start per minute, 0 for no limit",
			Value:   services.DefaultStartsPerMinute,
			Sources: cli.EnvVars("STARTS_PER_MINUTE"),
		},
	}

	flags = append(flags, cmd.ClientFlags()...)
	flags = append(flags, cmd.WorkflowFlags()...)
	flags = append(flags, cmd.CommonFlags()...)

	command := &cli.Command{
		Name:                  "sudao-api",
		Usage:                 "Serve contribution workflows and the plugin catalog",
		EnableShellCompletion: true,
		Flags:                 flags,
		Action:                run,
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"), command.String("log-format"))

	logger := log.WithModule("api")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.InfoContext(ctx, "Initializing SUDAO API")

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

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	journal, err := cmd.NewJournal(ctx, logger, command.String("journal-url"))
	if err != nil {
		return err
	}

	defer func() {
		err := journal.Close(context.Background())
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close journal", "error", err)
		}
	}()

	catalog, err := cmd.NewCatalog(logger, command.String("plugins-manifest"), eventBus)
	if err != nil {
		return err
	}

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

	observer := metrics.NewObserver()

	coordinator, err := contribution.NewCoordinator(logger, config,
		contribution.WithTracer(tracer),
		contribution.WithObservers(
			persistence.NewJournalObserver(logger, journal),
			eventbus.NewContributionPublisher(logger, eventBus),
			observer,
		),
	)
	if err != nil {
		return err
	}

	serviceConfig := services.DefaultContributionsConfig(exchange, depositAsset)
	serviceConfig.Retention = command.Duration("retention")
	serviceConfig.StartsPerMinute = command.Int("starts-per-minute")

	contributions, err := services.NewContributions(logger, coordinator, clients, serviceConfig,
		services.WithJournal(journal))
	if err != nil {
		return err
	}

	err = contributions.StartEviction(ctx)
	if err != nil {
		return err
	}

	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		contributions.StopEviction(stopCtx)
	}()

	api := NewAPI(logger, contributions, catalog, observer)

	err = api.Start(ctx, command.Int("port"))
	if err != nil {
		logger.ErrorContext(ctx, "Failed to start API server", "error", err)

		return err
	}

	return nil
}
