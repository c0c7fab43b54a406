// Package listener owns the network-facing half of the pipeline: one UDP
// socket or TCP acceptor producing a demand-driven stream of raw frames.
package listener

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"syslogd/internal/pipeline"
)

// Frame is one delivered read: raw bytes plus the peer's transport
// address, exactly as received (no re-framing is attempted on TCP).
type Frame struct {
	Data   []byte
	PeerIP string
}

// Config configures a Listener. The zero value selects UDP on an
// OS-assigned ephemeral port.
type Config struct {
	Port           int
	Protocol       string // "udp" (default) or "tcp"
	MaxMessageSize int
	Logger         *slog.Logger
}

const defaultMaxMessageSize = 64 * 1024

// Listener owns one listening socket and fans raw frames out to
// subscribers through a pipeline.Dispatcher.
type Listener struct {
	protocol       string
	maxMessageSize int
	logger         *slog.Logger

	dispatcher *pipeline.Dispatcher[Frame]

	udpConn     *net.UDPConn
	tcpListener *net.TCPListener

	clientsMu sync.Mutex
	clients   map[string]net.Conn
	nextID    int

	port int

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup

	fatalErr chan error
}

// New constructs a Listener from cfg. Start must be called to actually
// bind the socket.
func New(cfg Config) *Listener {
	protocol := cfg.Protocol
	if protocol == "" {
		protocol = "udp"
	}
	maxSize := cfg.MaxMessageSize
	if maxSize <= 0 {
		maxSize = defaultMaxMessageSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	l := &Listener{
		protocol:       protocol,
		maxMessageSize: maxSize,
		logger:         logger.With("component", "listener", "protocol", protocol),
		clients:        make(map[string]net.Conn),
		port:           cfg.Port,
		fatalErr:       make(chan error, 1),
	}
	return l
}

// Start binds the configured socket and begins producing frames. Port 0
// requests an OS-assigned ephemeral port; GetPort reports the result.
func (l *Listener) Start() error {
	l.ctx, l.cancel = context.WithCancel(context.Background())
	l.dispatcher = pipeline.NewDispatcher[Frame](l.ctx)

	switch l.protocol {
	case "tcp":
		return l.startTCP()
	case "udp":
		return l.startUDP()
	default:
		return fmt.Errorf("listener: unsupported protocol %q", l.protocol)
	}
}

func (l *Listener) startUDP() error {
	addr := &net.UDPAddr{Port: l.port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("listener: udp listen: %w", err)
	}
	l.udpConn = conn
	l.port = conn.LocalAddr().(*net.UDPAddr).Port

	l.wg.Add(1)
	go l.udpLoop()
	return nil
}

func (l *Listener) udpLoop() {
	defer l.wg.Done()
	buf := make([]byte, l.maxMessageSize)
	for {
		n, peer, err := l.udpConn.ReadFromUDP(buf)
		if err != nil {
			if l.ctx.Err() != nil {
				return
			}
			l.logger.Warn("udp recv error", "error", err)
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		frame := Frame{Data: data, PeerIP: peer.IP.String()}
		if !l.dispatcher.Emit(frame) {
			return
		}
	}
}

func (l *Listener) startTCP() error {
	addr := &net.TCPAddr{Port: l.port}
	ln, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return fmt.Errorf("listener: tcp listen: %w", err)
	}
	l.tcpListener = ln
	l.port = ln.Addr().(*net.TCPAddr).Port

	l.wg.Add(1)
	go l.acceptLoop()
	return nil
}

func (l *Listener) acceptLoop() {
	defer l.wg.Done()
	for {
		conn, err := l.tcpListener.AcceptTCP()
		if err != nil {
			if l.ctx.Err() != nil {
				return
			}
			l.logger.Error("tcp accept error, stopping listener", "error", err)
			select {
			case l.fatalErr <- err:
			default:
			}
			l.cancel()
			return
		}
		id := l.registerClient(conn)
		l.wg.Add(1)
		go l.handleClient(id, conn)
	}
}

func (l *Listener) registerClient(conn net.Conn) string {
	l.clientsMu.Lock()
	defer l.clientsMu.Unlock()
	l.nextID++
	id := fmt.Sprintf("%s#%d", conn.RemoteAddr().String(), l.nextID)
	l.clients[id] = conn
	return id
}

func (l *Listener) removeClient(id string) {
	l.clientsMu.Lock()
	defer l.clientsMu.Unlock()
	delete(l.clients, id)
}

// ClientCount reports the number of live TCP clients (0 for UDP).
func (l *Listener) ClientCount() int {
	l.clientsMu.Lock()
	defer l.clientsMu.Unlock()
	return len(l.clients)
}

func (l *Listener) handleClient(id string, conn *net.TCPConn) {
	defer l.wg.Done()
	defer conn.Close()
	defer l.removeClient(id)

	peerIP, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
	buf := make([]byte, l.maxMessageSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			if !l.dispatcher.Emit(Frame{Data: data, PeerIP: peerIP}) {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// Subscribe attaches a new demand-driven subscriber to the frame stream.
func (l *Listener) Subscribe() *pipeline.Subscription[Frame] {
	return l.dispatcher.Subscribe()
}

// GetPort returns the actually-bound port.
func (l *Listener) GetPort() int {
	return l.port
}

// FatalErr returns a channel that receives at most one error if a fatal
// transport failure (e.g. accept failure) stopped the Listener.
func (l *Listener) FatalErr() <-chan error {
	return l.fatalErr
}

// Stop closes the listening socket and every live client connection, then
// waits for all goroutines to exit. Idempotent.
func (l *Listener) Stop() {
	l.stopOnce.Do(func() {
		l.cancel()
		if l.udpConn != nil {
			l.udpConn.Close()
		}
		if l.tcpListener != nil {
			l.tcpListener.Close()
		}
		l.clientsMu.Lock()
		for id, conn := range l.clients {
			conn.Close()
			delete(l.clients, id)
		}
		l.clientsMu.Unlock()
		l.wg.Wait()
		if l.dispatcher != nil {
			l.dispatcher.Close()
		}
	})
}
