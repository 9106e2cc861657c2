package netio

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"fenrir/internal/aggregator"
	"fenrir/internal/bookerr"
	"fenrir/internal/ids"
	"fenrir/internal/validate"
)

const (
	maxRecvSize        = 4 * 1024
	defaultNWorkers    = 10
	defaultConnTimeout = time.Second
	taskChanSize       = 100
)

var ErrImproperConversion = errors.New("improper type conversion")

// workerFunc is one unit of the connection-handling pool, in the
// teacher's tomb.v2-supervised worker shape (internal/worker.go).
type workerFunc = func(t *tomb.Tomb, task any) error

// workerPool runs a fixed number of goroutines pulling tasks off a
// shared channel, each supervised by the same tomb so a panic or a
// fatal error in one worker tears down the whole pool.
type workerPool struct {
	n     int
	tasks chan any
	work  workerFunc
}

func newWorkerPool(size int) *workerPool {
	return &workerPool{n: size, tasks: make(chan any, taskChanSize)}
}

func (p *workerPool) setup(t *tomb.Tomb, work workerFunc) {
	p.work = work
	log.Info().Int("workers", p.n).Msg("starting connection worker pool")
	for i := 0; i < p.n; i++ {
		t.Go(func() error { return p.run(t) })
	}
}

func (p *workerPool) run(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case task := <-p.tasks:
			if err := p.work(t, task); err != nil {
				return err
			}
		}
	}
}

func (p *workerPool) addTask(task any) {
	p.tasks <- task
}

// clientSession tracks one connected TCP client.
type clientSession struct {
	conn net.Conn
}

// Server is the demo TCP ingress driving a BookEngine: it accepts
// connections, decodes NewOrder/CancelOrder frames, calls the
// aggregator, and writes back execution/error reports. It exists to
// exercise the aggregator end-to-end; the HTTP/WebSocket surface spec.md
// §6 describes as "layered by collaborators" is out of scope.
type Server struct {
	address string
	port    int
	engine  *aggregator.BookEngine

	pool   *workerPool
	cancel context.CancelFunc

	sessionsMu sync.Mutex
	sessions   map[string]clientSession
}

// New builds a Server bound to address:port, driving engine.
func New(address string, port int, engine *aggregator.BookEngine) *Server {
	return &Server{
		address:  address,
		port:     port,
		engine:   engine,
		pool:     newWorkerPool(defaultNWorkers),
		sessions: make(map[string]clientSession),
	}
}

// Run accepts connections until ctx is cancelled. It blocks.
func (s *Server) Run(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	defer s.cancel()

	t, ctx := tomb.WithContext(ctx)
	s.pool.setup(t, s.handleConnection)

	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start listener")
		return
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close listener")
		}
	}()

	log.Info().Str("address", listener.Addr().String()).Msg("server running")

	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := listener.Accept()
			if err != nil {
				log.Error().Err(err).Msg("error accepting client")
				continue
			}
			log.Info().Str("address", conn.RemoteAddr().String()).Msg("client connected")
			s.addSession(conn)
			s.pool.addTask(conn)
		}
	}
}

// Shutdown stops Run's accept loop and tears down the worker pool.
func (s *Server) Shutdown() {
	log.Info().Msg("server shutting down")
	if s.cancel != nil {
		s.cancel()
	}
}

// handleConnection reads one frame off conn, dispatches it, writes a
// report, then requeues the connection for its next frame — a
// short-lived worker per message, in the teacher's style.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return ErrImproperConversion
	}

	select {
	case <-t.Dying():
		return nil
	default:
	}

	if err := conn.SetDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		return nil
	}

	buf := make([]byte, maxRecvSize)
	n, err := conn.Read(buf)
	if err != nil {
		s.closeSession(conn)
		return nil
	}

	typ, msg, err := DecodeMessage(buf[:n])
	if err != nil {
		log.Error().Err(err).Str("address", conn.RemoteAddr().String()).Msg("error decoding message")
		s.reply(conn, EncodeErrorReport(err))
		s.pool.addTask(conn)
		return nil
	}

	switch typ {
	case MsgNewOrder:
		s.handleNewOrder(conn, msg.(NewOrderMessage))
	case MsgCancelOrder:
		s.handleCancelOrder(conn, msg.(CancelOrderMessage))
	case MsgHeartbeat:
	}

	s.pool.addTask(conn)
	return nil
}

func (s *Server) handleNewOrder(conn net.Conn, msg NewOrderMessage) {
	req, err := toSubmitRequest(msg)
	if err != nil {
		s.reply(conn, EncodeErrorReport(err))
		return
	}
	outcome, err := s.engine.SubmitOrder(req)
	if err != nil && !bookerr.Is(err, bookerr.KindMarketNoLiquidity) {
		s.reply(conn, EncodeErrorReport(err))
		return
	}
	s.reply(conn, EncodeExecutionReport(outcome))
}

func (s *Server) handleCancelOrder(conn net.Conn, msg CancelOrderMessage) {
	order, err := s.engine.CancelOrder(msg.Symbol, msg.OrderID)
	if err != nil {
		s.reply(conn, EncodeErrorReport(err))
		return
	}
	s.reply(conn, EncodeExecutionReport(aggregator.SubmitOutcome{
		OrderID:        order.ID,
		Status:         order.Status,
		FilledQuantity: order.FilledQuantity,
	}))
}

func (s *Server) reply(conn net.Conn, payload []byte) {
	if _, err := conn.Write(payload); err != nil {
		log.Error().Err(err).Str("address", conn.RemoteAddr().String()).Msg("error writing report")
	}
}

func (s *Server) addSession(conn net.Conn) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	s.sessions[conn.RemoteAddr().String()] = clientSession{conn: conn}
}

func (s *Server) closeSession(conn net.Conn) {
	s.sessionsMu.Lock()
	delete(s.sessions, conn.RemoteAddr().String())
	s.sessionsMu.Unlock()
	if err := conn.Close(); err != nil {
		log.Error().Err(err).Msg("error closing connection")
	}
}

// toSubmitRequest validates msg and assigns it a fresh order identifier.
func toSubmitRequest(msg NewOrderMessage) (aggregator.SubmitRequest, error) {
	parsed, err := validate.SubmitOrder(msg.ToRequest())
	if err != nil {
		return aggregator.SubmitRequest{}, err
	}
	return aggregator.SubmitRequest{
		ID:       ids.New(),
		Symbol:   parsed.Symbol,
		Side:     parsed.Side,
		Type:     parsed.Type,
		Price:    parsed.Price,
		Quantity: parsed.Quantity,
		UserID:   parsed.UserID,
	}, nil
}
