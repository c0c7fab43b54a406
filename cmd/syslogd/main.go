// Command syslogd wires a Listener, a Decoder, and an example Sink
// together into a runnable syslog collector.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"syslogd/internal/decoder"
	"syslogd/internal/listener"
	"syslogd/internal/parser"
	"syslogd/internal/pipeline"
	"syslogd/internal/sink"
)

func main() {
	var (
		port     = flag.Int("port", 5544, "port to listen on")
		protocol = flag.String("protocol", "udp", "transport protocol: udp or tcp")
		dbPath   = flag.String("db", "syslogd.db", "SQLite database path; use ':memory:' for an in-memory sink")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	s, err := newSink(*dbPath)
	if err != nil {
		logger.Error("failed to open sink", "error", err)
		os.Exit(1)
	}
	defer s.Close()

	l := listener.New(listener.Config{
		Port:     *port,
		Protocol: *protocol,
		Logger:   logger,
	})
	if err := l.Start(); err != nil {
		logger.Error("failed to start listener", "error", err)
		os.Exit(1)
	}
	logger.Info("listening", "protocol", *protocol, "port", l.GetPort())

	d := decoder.New(decoder.Config{
		Parser: parser.New(parser.WithLogger(logger)),
		Logger: logger,
	})
	d.Start(l.Subscribe())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go consume(ctx, d.Subscribe(), s, logger)

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-l.FatalErr():
		logger.Error("listener stopped unexpectedly", "error", err)
	}

	d.Stop()
	l.Stop()
}

func newSink(dbPath string) (sink.Sink, error) {
	if dbPath == ":memory:" {
		return sink.NewMemorySink(), nil
	}
	return sink.NewSQLiteSink(dbPath)
}

func consume(ctx context.Context, sub *pipeline.Subscription[*parser.Record], s sink.Sink, logger *slog.Logger) {
	for {
		sub.Request(1)
		select {
		case rec, ok := <-sub.Items():
			if !ok {
				return
			}
			if err := s.Store(rec); err != nil {
				logger.Warn("failed to store record", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
