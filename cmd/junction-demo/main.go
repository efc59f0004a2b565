package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	stream "github.com/pnvasko/stream-junction"
	"github.com/pnvasko/stream-junction/common"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:  "junction-demo",
		Usage: "merge a dynamic set of synthetic tickers into one stream",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "sources", Value: 5, Usage: "number of ticker sources to feed in"},
			&cli.IntFlag{Name: "values", Value: 10, Usage: "values each source emits before closing"},
			&cli.IntFlag{Name: "max-open", Value: 0, Usage: "cap on simultaneously open sources, <= 0 is unbounded"},
			&cli.DurationFlag{Name: "interval", Value: 100 * time.Millisecond, Usage: "emission interval per source"},
			&cli.BoolFlag{Name: "debug", Value: false, Usage: "console debug logging"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	var logger *common.Logger
	var err error
	if os.Getenv("DSN") != "" {
		cfg, cfgErr := common.NewDevOtlpConfig()
		if cfgErr != nil {
			return cfgErr
		}
		if err = common.InitOpentelemetry(cfg); err != nil {
			return err
		}
		logger, err = common.NewLogger(cfg)
	} else {
		logger, err = common.NewLibLogger(common.NewLocalOtlpConfig("junction_demo", c.Bool("debug")))
	}
	if err != nil {
		return err
	}
	tracer := otel.Tracer("junction_demo")

	producers := make([]stream.Producer[string], 0, c.Int("sources"))
	for i := 0; i < c.Int("sources"); i++ {
		producers = append(producers, ticker(fmt.Sprintf("src_%d", i), c.Int("values"), c.Duration("interval")))
	}

	junction, err := stream.Merge(ctx,
		stream.NewProducersSource(producers...),
		c.Int("max-open"),
		stream.WithName[string]("junction_demo"),
		stream.WithLogger[string](logger),
		stream.WithTracer[string](tracer),
	)
	if err != nil {
		return err
	}

	rg, err := common.NewRunGroup()
	if err != nil {
		return err
	}

	err = rg.Add("consumer",
		func() error {
			for {
				v, nextErr := junction.Next(ctx)
				if nextErr != nil {
					if stream.IsHardFailure(nextErr) {
						return nextErr
					}
					return nil
				}
				logger.Ctx(ctx).Info("merged value", zap.String("value", v))
			}
		},
		func(error) {
			closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer closeCancel()
			if closeErr := junction.Close(closeCtx); closeErr != nil {
				logger.Ctx(ctx).Warn("junction close", zap.Error(closeErr))
			}
		},
	)
	if err != nil {
		return err
	}

	if err := rg.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	stats := junction.Stats()
	outcome, _ := junction.Outcome()
	logger.Ctx(ctx).Info("junction finished",
		zap.String("outcome", outcome.String()),
		zap.Uint64("admitted", stats.Admitted),
		zap.Uint64("delivered", stats.Delivered),
		zap.Uint64("cancelled", stats.Cancelled),
	)
	return nil
}

// ticker emits "<name>:<n>" count times at the given interval.
func ticker(name string, count int, interval time.Duration) stream.Producer[string] {
	n := 0
	return stream.NewFuncProducer(
		func(ctx context.Context) (string, error) {
			if n >= count {
				return "", stream.ErrEndOfStream
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(interval):
			}
			n++
			return fmt.Sprintf("%s:%d", name, n), nil
		},
		nil,
	)
}
