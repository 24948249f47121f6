package mqttbroker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// PublishMessage represents a QoS 0 publish received from a client.
type PublishMessage struct {
	ClientID string
	Username string
	Topic    string
	Payload  []byte
}

// Handler is invoked for each received publish message.
type Handler func(context.Context, PublishMessage)

type clientSession struct {
	conn     net.Conn
	reader   *bufio.Reader
	writeMu  sync.Mutex
	clientID string
	username string
	closed   atomic.Bool

	subMu         sync.RWMutex
	subscriptions map[string]struct{}
}

func newSession(conn net.Conn) *clientSession {
	return &clientSession{
		conn:          conn,
		reader:        bufio.NewReader(conn),
		subscriptions: make(map[string]struct{}),
	}
}

func (c *clientSession) subscribed(topic string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	for filter := range c.subscriptions {
		if TopicMatches(filter, topic) {
			return true
		}
	}
	return false
}

func (c *clientSession) addSubscription(filter string) {
	c.subMu.Lock()
	c.subscriptions[filter] = struct{}{}
	c.subMu.Unlock()
}

func (c *clientSession) removeSubscription(filter string) {
	c.subMu.Lock()
	delete(c.subscriptions, filter)
	c.subMu.Unlock()
}

func (c *clientSession) writePacket(packet []byte) error {
	if c.closed.Load() {
		return net.ErrClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_, err := c.conn.Write(packet)
	return err
}

// Broker is a minimal MQTT v3.1.1 broker that supports QoS 0 publish and
// subscribe with "+" and "#" topic filters.
type Broker struct {
	logger       *slog.Logger
	listener     net.Listener
	handler      atomic.Value // stores Handler
	reserved     atomic.Value // stores []string
	mu           sync.Mutex
	wg           sync.WaitGroup
	shuttingDown atomic.Bool
	ctx          context.Context
	cancel       context.CancelFunc

	clientsMu sync.RWMutex
	clients   map[*clientSession]struct{}
}

// New constructs a broker with the supplied logger.
func New(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &Broker{
		logger:  logger,
		clients: make(map[*clientSession]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
	b.handler.Store(Handler(func(context.Context, PublishMessage) {}))
	b.reserved.Store([]string(nil))
	return b
}

// Start begins listening for MQTT clients on the provided bind address.
// The returned channel is closed once the accept loop terminates; fatal errors are sent on it.
func (b *Broker) Start(bind string) (<-chan error, error) {
	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return nil, fmt.Errorf("mqtt listen: %w", err)
	}

	b.mu.Lock()
	b.listener = ln
	b.mu.Unlock()

	errCh := make(chan error, 1)

	b.logger.Info("mqtt broker listening", "addr", ln.Addr().String())

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer close(errCh)
		for {
			conn, err := ln.Accept()
			if err != nil {
				if b.shuttingDown.Load() || errors.Is(err, net.ErrClosed) {
					return
				}
				var ne net.Error
				if errors.As(err, &ne) && ne.Timeout() {
					b.logger.Warn("temporary accept error", "error", err)
					time.Sleep(50 * time.Millisecond)
					continue
				}
				errCh <- fmt.Errorf("mqtt accept: %w", err)
				return
			}

			session := newSession(conn)
			b.addClient(session)

			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.handleConn(session)
			}()
		}
	}()

	return errCh, nil
}

// Addr returns the listening address, or nil before Start.
func (b *Broker) Addr() net.Addr {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listener == nil {
		return nil
	}
	return b.listener.Addr()
}

// Port returns the TCP port the broker listens on, or 0 before Start.
func (b *Broker) Port() int {
	if addr, ok := b.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// Stop shuts down the broker and releases resources.
func (b *Broker) Stop() error {
	if !b.shuttingDown.CompareAndSwap(false, true) {
		return nil
	}
	b.cancel()

	b.mu.Lock()
	ln := b.listener
	b.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}

	b.clientsMu.Lock()
	for session := range b.clients {
		session.closed.Store(true)
		_ = session.conn.Close()
	}
	b.clients = make(map[*clientSession]struct{})
	b.clientsMu.Unlock()

	b.wg.Wait()
	return nil
}

// SetPublishHandler installs the function invoked for each received publish.
func (b *Broker) SetPublishHandler(h Handler) {
	if h == nil {
		h = func(context.Context, PublishMessage) {}
	}
	b.handler.Store(h)
}

// ReserveTopics marks topic prefixes that only the server may publish to.
// Client publishes under a reserved prefix still reach the publish handler
// but are not forwarded to subscribers.
func (b *Broker) ReserveTopics(prefixes ...string) {
	b.reserved.Store(append([]string(nil), prefixes...))
}

func (b *Broker) isReserved(topic string) bool {
	prefixes, _ := b.reserved.Load().([]string)
	for _, p := range prefixes {
		if strings.HasPrefix(topic, p) {
			return true
		}
	}
	return false
}

// Publish sends a QoS 0 message to all clients subscribed to the topic.
func (b *Broker) Publish(topic string, payload []byte) error {
	packet, err := buildPublishPacket(topic, payload)
	if err != nil {
		return err
	}
	b.forward(topic, packet, nil)
	return nil
}

// Clients returns the number of connected sessions.
func (b *Broker) Clients() int {
	b.clientsMu.RLock()
	defer b.clientsMu.RUnlock()
	return len(b.clients)
}

func (b *Broker) addClient(session *clientSession) {
	b.clientsMu.Lock()
	b.clients[session] = struct{}{}
	b.clientsMu.Unlock()
}

func (b *Broker) removeClient(session *clientSession) {
	b.clientsMu.Lock()
	delete(b.clients, session)
	b.clientsMu.Unlock()
}

func (b *Broker) handleConn(session *clientSession) {
	defer func() {
		session.closed.Store(true)
		b.removeClient(session)
		_ = session.conn.Close()
	}()

	connected := false

	for {
		header, err := session.reader.ReadByte()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				b.logger.Debug("read header error", "error", err)
			}
			return
		}

		remaining, err := readVarInt(session.reader)
		if err != nil {
			b.logger.Debug("read remaining length error", "error", err)
			return
		}
		if remaining > maxPacketSize {
			b.logger.Debug("packet too large", "client", session.clientID, "size", remaining)
			return
		}

		payload := make([]byte, remaining)
		if _, err := io.ReadFull(session.reader, payload); err != nil {
			b.logger.Debug("read packet payload error", "error", err)
			return
		}

		packetType := header >> 4
		if !connected && packetType != packetConnect {
			b.logger.Debug("packet before connect", "type", packetType)
			return
		}

		switch packetType {
		case packetConnect:
			if connected {
				b.logger.Debug("duplicate connect", "client", session.clientID)
				return
			}
			if err := b.handleConnect(session, payload); err != nil {
				b.logger.Debug("handle connect error", "error", err)
				return
			}
			connected = true
		case packetPublish:
			msg, err := parsePublish(header, payload)
			if err != nil {
				b.logger.Debug("parse publish error", "error", err)
				return
			}
			msg.ClientID = session.clientID
			msg.Username = session.username
			if h, ok := b.handler.Load().(Handler); ok {
				safeInvoke(b.ctx, h, msg, b.logger)
			}
			if b.isReserved(msg.Topic) {
				b.logger.Debug("client publish on reserved topic not forwarded", "client", session.clientID, "topic", msg.Topic)
				break
			}
			if packet, err := buildPublishPacket(msg.Topic, msg.Payload); err == nil {
				b.forward(msg.Topic, packet, session)
			}
		case packetSubscribe:
			if err := b.handleSubscribe(session, payload); err != nil {
				b.logger.Debug("handle subscribe error", "error", err)
				return
			}
		case packetUnsubscribe:
			if err := b.handleUnsubscribe(session, payload); err != nil {
				b.logger.Debug("handle unsubscribe error", "error", err)
				return
			}
		case packetPingReq:
			if err := session.writePacket([]byte{packetPingResp << 4, 0x00}); err != nil {
				b.logger.Debug("write pingresp error", "error", err)
				return
			}
		case packetDisconnect:
			return
		default:
			b.logger.Debug("unsupported packet", "type", packetType)
			return
		}
	}
}

func (b *Broker) handleConnect(session *clientSession, payload []byte) error {
	rd := bytesReader(payload)

	protoName, err := rd.readString()
	if err != nil {
		return fmt.Errorf("read protocol name: %w", err)
	}
	if protoName != "MQTT" {
		return fmt.Errorf("unsupported protocol %q", protoName)
	}

	level, err := rd.readByte()
	if err != nil {
		return fmt.Errorf("read protocol level: %w", err)
	}
	if level != protocolLevel311 {
		// Connection refused, unacceptable protocol version.
		_ = session.writePacket([]byte{packetConnAck << 4, 0x02, 0x00, 0x01})
		return fmt.Errorf("unsupported protocol level %d", level)
	}

	flags, err := rd.readByte()
	if err != nil {
		return fmt.Errorf("read connect flags: %w", err)
	}
	const (
		flagWill     = 1 << 2
		flagPassword = 1 << 6
		flagUsername = 1 << 7
	)
	if flags&0x01 != 0 || flags&(flagWill|1<<3|1<<4|1<<5) != 0 {
		return fmt.Errorf("unsupported connect flags %08b", flags)
	}

	if _, err := rd.readUint16(); err != nil { // keep alive
		return fmt.Errorf("read keepalive: %w", err)
	}

	clientID, err := rd.readString()
	if err != nil {
		return fmt.Errorf("read client id: %w", err)
	}
	if clientID == "" {
		clientID = fmt.Sprintf("anon-%d", time.Now().UnixNano())
	}
	session.clientID = clientID

	if flags&flagUsername != 0 {
		username, err := rd.readString()
		if err != nil {
			return fmt.Errorf("read username: %w", err)
		}
		session.username = username
	}
	if flags&flagPassword != 0 {
		if _, err := rd.readString(); err != nil {
			return fmt.Errorf("read password: %w", err)
		}
	}

	if err := session.writePacket([]byte{packetConnAck << 4, 0x02, 0x00, 0x00}); err != nil {
		return fmt.Errorf("write connack: %w", err)
	}

	b.logger.Debug("mqtt client connected", "client", clientID)
	return nil
}

func (b *Broker) handleSubscribe(session *clientSession, payload []byte) error {
	rd := bytesReader(payload)

	packetID, err := rd.readUint16()
	if err != nil {
		return fmt.Errorf("read packet id: %w", err)
	}

	var codes []byte
	for rd.remaining() > 0 {
		filter, err := rd.readString()
		if err != nil {
			return fmt.Errorf("read topic: %w", err)
		}
		if rd.remaining() == 0 {
			return fmt.Errorf("missing qos byte")
		}
		if _, err := rd.readByte(); err != nil {
			return fmt.Errorf("read qos: %w", err)
		}
		if !ValidFilter(filter) {
			codes = append(codes, subAckFailure)
			continue
		}
		// Every subscription is granted at QoS 0.
		session.addSubscription(filter)
		codes = append(codes, 0x00)
	}

	packet, err := buildSubAck(packetID, codes)
	if err != nil {
		return err
	}
	return session.writePacket(packet)
}

func (b *Broker) handleUnsubscribe(session *clientSession, payload []byte) error {
	rd := bytesReader(payload)
	packetID, err := rd.readUint16()
	if err != nil {
		return fmt.Errorf("read packet id: %w", err)
	}
	for rd.remaining() > 0 {
		filter, err := rd.readString()
		if err != nil {
			return fmt.Errorf("read topic: %w", err)
		}
		session.removeSubscription(filter)
	}
	return session.writePacket(buildUnsubAck(packetID))
}

func (b *Broker) forward(topic string, packet []byte, exclude *clientSession) {
	b.clientsMu.RLock()
	targets := make([]*clientSession, 0, len(b.clients))
	for session := range b.clients {
		if session != exclude && session.subscribed(topic) {
			targets = append(targets, session)
		}
	}
	b.clientsMu.RUnlock()

	for _, session := range targets {
		if err := session.writePacket(packet); err != nil {
			b.logger.Debug("forward publish failed", "client", session.clientID, "error", err)
		}
	}
}

func safeInvoke(ctx context.Context, h Handler, msg PublishMessage, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("publish handler panic", "topic", msg.Topic, "panic", r)
		}
	}()
	h(ctx, msg)
}
