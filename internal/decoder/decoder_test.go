package decoder

import (
	"context"
	"testing"
	"time"

	"syslogd/internal/listener"
	"syslogd/internal/pipeline"
)

func TestDecoderStampsPeerAddressAndParses(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	producer := pipeline.NewDispatcher[listener.Frame](ctx)
	in := producer.Subscribe()

	d := New(Config{})
	d.Start(in)
	defer d.Stop()

	out := d.Subscribe()
	out.Request(1)

	raw := []byte("<34>Oct 11 22:14:15 mymachine su: 'su root' failed for lonvick on /dev/pts/8")
	go producer.Emit(listener.Frame{Data: raw, PeerIP: "203.0.113.9"})

	select {
	case rec := <-out.Items():
		if rec == nil {
			t.Fatal("record is nil")
		}
		if rec.RawIPAddress == nil || *rec.RawIPAddress != "203.0.113.9" {
			t.Errorf("RawIPAddress = %v, want 203.0.113.9", rec.RawIPAddress)
		}
		if rec.Facility == nil || *rec.Facility != 4 {
			t.Errorf("Facility = %v, want 4", rec.Facility)
		}
		if rec.Message != "'su root' failed for lonvick on /dev/pts/8" {
			t.Errorf("Message = %q", rec.Message)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no record received")
	}
}

func TestDecoderOneFrameAtATime(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	producer := pipeline.NewDispatcher[listener.Frame](ctx)
	in := producer.Subscribe()

	d := New(Config{})
	d.Start(in)
	defer d.Stop()

	out := d.Subscribe()

	emitDone := make(chan bool, 1)
	go func() { emitDone <- producer.Emit(listener.Frame{Data: []byte("Use the BFG!"), PeerIP: "10.0.0.1"}) }()

	select {
	case <-emitDone:
	case <-time.After(2 * time.Second):
		t.Fatal("decoder never pulled the first frame")
	}

	secondEmitDone := make(chan bool, 1)
	go func() { secondEmitDone <- producer.Emit(listener.Frame{Data: []byte("second"), PeerIP: "10.0.0.1"}) }()

	select {
	case <-secondEmitDone:
		t.Fatal("decoder pulled a second frame before downstream requested demand for the first")
	case <-time.After(50 * time.Millisecond):
	}

	out.Request(2)
	<-out.Items()
	<-out.Items()
}
