package models

import (
	"context"
	"errors"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/allbin/serialport"
)

// Messages a session feeds into the program
type (
	DataMsg struct {
		Data []byte
	}

	WriteResultMsg struct {
		ID  int
		Err error
	}

	// ClosedMsg reports the end of the read loop: Err is nil after a
	// regular close and the cause otherwise
	ClosedMsg struct {
		Err error
	}
)

type outgoing struct {
	id   int
	data []byte
}

// Session pumps one open port: a reader turning reads into DataMsg and a
// writer draining the outbox in submission order
type Session struct {
	port   *serialport.Port
	events chan any
	outbox chan outgoing
	group  *errgroup.Group
	cancel context.CancelFunc
}

// StartSession runs the reader and writer until ctx ends or the port closes
func StartSession(ctx context.Context, port *serialport.Port) *Session {
	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)
	s := &Session{
		port:   port,
		events: make(chan any, 64),
		outbox: make(chan outgoing, 64),
		group:  g,
		cancel: cancel,
	}
	g.Go(func() error { return s.readLoop(ctx) })
	g.Go(func() error { return s.writeLoop(ctx) })
	return s
}

func (s *Session) readLoop(ctx context.Context) error {
	buf := make([]byte, 4096)
	for {
		n, err := s.port.ReadContext(ctx, buf)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				err = nil
			}
			s.emit(ctx, ClosedMsg{Err: err})
			return err
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		if !s.emit(ctx, DataMsg{Data: data}) {
			return nil
		}
	}
}

func (s *Session) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case out := <-s.outbox:
			_, err := s.port.WriteContext(ctx, out.data)
			if !s.emit(ctx, WriteResultMsg{ID: out.id, Err: err}) {
				return nil
			}
		}
	}
}

func (s *Session) emit(ctx context.Context, msg any) bool {
	select {
	case s.events <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

var errQueueFull = errors.New("send queue full")

// Send queues data behind every earlier Send
func (s *Session) Send(id int, data []byte) error {
	select {
	case s.outbox <- outgoing{id: id, data: data}:
		return nil
	default:
		return errQueueFull
	}
}

// Events delivers DataMsg, WriteResultMsg and ClosedMsg values
func (s *Session) Events() <-chan any { return s.events }

// Stop closes the port and waits for both loops
func (s *Session) Stop() error {
	s.cancel()
	closeErr := s.port.Close()
	if errors.Is(closeErr, serialport.ErrNotOpen) {
		closeErr = nil
	}
	if err := s.group.Wait(); err != nil && !serialport.IsDisconnect(err) {
		return err
	}
	return closeErr
}
