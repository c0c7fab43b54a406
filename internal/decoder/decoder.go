// Package decoder implements the second pipeline stage: it consumes raw
// frames from a Listener subscription, runs the parser on each, stamps
// the transport peer address, and emits normalized records downstream
// through its own demand-driven Dispatcher.
package decoder

import (
	"context"
	"log/slog"
	"sync"

	"syslogd/internal/listener"
	"syslogd/internal/parser"
	"syslogd/internal/pipeline"
)

// Config configures a Decoder.
type Config struct {
	Parser *parser.Parser
	Logger *slog.Logger
}

// Decoder is the frame-to-record pipeline stage.
type Decoder struct {
	parser *parser.Parser
	logger *slog.Logger

	out *pipeline.Dispatcher[*parser.Record]

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New builds a Decoder. If cfg.Parser is nil, parser.New() defaults apply.
func New(cfg Config) *Decoder {
	p := cfg.Parser
	if p == nil {
		p = parser.New()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{
		parser: p,
		logger: logger.With("component", "decoder"),
	}
}

// Start begins consuming from producer, one frame at a time: the Decoder
// only requests its next frame once the previous record has been handed
// to a downstream subscriber, so it never holds more than a single frame
// in flight and never over-requests from the Listener.
func (d *Decoder) Start(producer *pipeline.Subscription[listener.Frame]) {
	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.out = pipeline.NewDispatcher[*parser.Record](d.ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			producer.Request(1)
			select {
			case frame, ok := <-producer.Items():
				if !ok {
					return
				}
				rec := d.parser.Parse(frame.Data)
				if rec == nil {
					d.logger.Warn("dropped frame: parser returned no record")
					continue
				}
				rec.RawIPAddress = &frame.PeerIP
				if !d.out.Emit(rec) {
					return
				}
			case <-d.ctx.Done():
				return
			}
		}
	}()
}

// Subscribe attaches a new demand-driven subscriber to the record stream.
func (d *Decoder) Subscribe() *pipeline.Subscription[*parser.Record] {
	return d.out.Subscribe()
}

// Stop cancels the consume loop and closes the downstream dispatcher.
// Idempotent.
func (d *Decoder) Stop() {
	d.stopOnce.Do(func() {
		if d.cancel != nil {
			d.cancel()
		}
		d.wg.Wait()
		if d.out != nil {
			d.out.Close()
		}
	})
}
