package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/nats-io/nats.go"

	"discover-scanner/internal/config"
	"discover-scanner/internal/reporting"
	"discover-scanner/internal/storage"
	chstore "discover-scanner/internal/storage/clickhouse"
	"discover-scanner/internal/storage/memory"
	"discover-scanner/internal/storage/migrations"
	pgstore "discover-scanner/internal/storage/postgres"
	"discover-scanner/internal/telegram"
)

// sinkSet is the composed sink plus the resources it holds open.
type sinkSet struct {
	Sink    reporting.Sink
	closers []func()
}

func (s *sinkSet) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func buildSinks(ctx context.Context, logger *log.Logger, cfg *config.Config) (_ *sinkSet, err error) {
	set := &sinkSet{}
	defer func() {
		if err != nil {
			set.Close()
		}
	}()

	var sinks reporting.Multi

	if cfg.Reporting.Console {
		sinks = append(sinks, reporting.NewWriterSink("console", os.Stdout, reporting.Format(cfg.Reporting.Format)))
	}

	if cfg.Reporting.OutputFile != "" {
		fileSink, f, err := reporting.OpenFileSink(cfg.Reporting.OutputFile, reporting.Format(cfg.Reporting.Format))
		if err != nil {
			return nil, err
		}
		set.closers = append(set.closers, func() { f.Close() })
		sinks = append(sinks, fileSink)
	}

	if tg := cfg.Reporting.Telegram; tg.Enabled {
		notifier, err := telegram.NewNotifier(tg.BotToken, tg.ChatID, tg.MaxRetries, tg.RetryDelayBase)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, notifier)
	}

	if nc := cfg.Reporting.NATS; nc.Enabled {
		conn, err := nats.Connect(nc.URL,
			nats.Name("discover-scanner"),
			nats.MaxReconnects(-1),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				logger.Printf("NATS disconnected: %v", err)
			}),
			nats.ReconnectHandler(func(c *nats.Conn) {
				logger.Printf("NATS reconnected to %s", c.ConnectedUrl())
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("connect to nats: %w", err)
		}
		set.closers = append(set.closers, func() { conn.Drain() })
		sinks = append(sinks, reporting.NewNATSSink(conn, nc.Subject))
	}

	journal, err := openJournal(ctx, logger, cfg.Storage, set)
	if err != nil {
		return nil, err
	}
	if journal != nil {
		sinks = append(sinks, reporting.NewJournalSink(journal))
	}

	if len(sinks) == 0 {
		logger.Println("Warning: no sinks enabled, matches are only counted")
	}

	composed, err := composeSinks(sinks, logger, cfg.Reporting.SuppressRepeats)
	if err != nil {
		return nil, err
	}
	set.Sink = composed

	return set, nil
}

// composeSinks guards each sink so a panic in one does not skip the rest.
// Repeat suppression sits inside the guard, per sink, so it sees that
// sink's delivery errors and a failed delivery is retried.
func composeSinks(sinks []reporting.Sink, logger *log.Logger, suppressRepeats int) (reporting.Multi, error) {
	composed := make(reporting.Multi, 0, len(sinks))
	for _, s := range sinks {
		if suppressRepeats > 0 {
			suppressed, err := reporting.NewSuppressRepeats(s, suppressRepeats)
			if err != nil {
				return nil, err
			}
			s = suppressed
		}
		composed = append(composed, reporting.Guard(s, logger))
	}
	return composed, nil
}

func openJournal(ctx context.Context, logger *log.Logger, cfg config.StorageConfig, set *sinkSet) (storage.MatchJournal, error) {
	switch cfg.Journal {
	case "memory":
		return memory.NewMatchJournal(), nil
	case "postgres":
		pool, err := pgstore.NewPool(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		set.closers = append(set.closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return nil, fmt.Errorf("run postgres migrations: %w", err)
		}
		logger.Println("Match journal: postgres")
		return pgstore.NewMatchJournal(pool), nil
	case "clickhouse":
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		set.closers = append(set.closers, func() { conn.Close() })
		logger.Println("Match journal: clickhouse")
		return chstore.NewMatchJournal(conn), nil
	default:
		return nil, nil
	}
}
