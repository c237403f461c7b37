package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/klundeen/5300-Antelope/execute"
	"github.com/klundeen/5300-Antelope/repl"
	"github.com/klundeen/5300-Antelope/sql/stmt"
)

var ErrServerClosed = errors.New("server: closed")

// Server runs sessions against one executor. Statements from all sessions are executed one at
// a time.
type Server struct {
	Executor *execute.Executor
	Format   repl.Format

	execMutex sync.Mutex

	mutex      sync.Mutex
	listeners  map[net.Listener]struct{}
	activeConn map[net.Conn]struct{}
	connCount  int32
	shutdown   bool
	closed     bool
}

func (svr *Server) Execute(ctx context.Context, s stmt.Stmt) (*execute.Result, error) {
	svr.execMutex.Lock()
	defer svr.execMutex.Unlock()

	return svr.Executor.Execute(ctx, s)
}

// HandleSession runs handler with the server as its executor; user, typ and addr identify
// the session in the log.
func (svr *Server) HandleSession(handler repl.SessionHandler, user, typ, addr string) {
	entry := log.WithFields(log.Fields{
		"user": user,
		"type": typ,
	})
	if addr != "" {
		entry = entry.WithField("addr", addr)
	}

	entry.Info("session started")
	handler(context.Background(), svr)
	entry.Info("session done")
}

// Handle runs the statements read from rr as a session, writing results to w.
func (svr *Server) Handle(rr io.RuneReader, w io.Writer, user, typ, addr string) {
	src := fmt.Sprintf("%s@%s", user, typ)
	if addr != "" {
		src = fmt.Sprintf("%s:%s", src, addr)
	}
	svr.HandleSession(repl.Handler(rr, w, src, svr.Format), user, typ, addr)
}

func (svr *Server) addListener(l net.Listener) bool {
	svr.mutex.Lock()
	defer svr.mutex.Unlock()

	if svr.shutdown {
		return false
	}
	if svr.listeners == nil {
		svr.listeners = map[net.Listener]struct{}{}
	}
	svr.listeners[l] = struct{}{}
	return true
}

func (svr *Server) isShutdown() bool {
	svr.mutex.Lock()
	defer svr.mutex.Unlock()

	return svr.shutdown
}

func (svr *Server) trackConn(conn net.Conn, add bool) bool {
	svr.mutex.Lock()
	defer svr.mutex.Unlock()

	if svr.closed {
		return false
	}
	if svr.activeConn == nil {
		svr.activeConn = map[net.Conn]struct{}{}
	}
	if add {
		svr.activeConn[conn] = struct{}{}
	} else {
		delete(svr.activeConn, conn)
	}
	return true
}

func (svr *Server) closeListeners() error {
	var err error
	if !svr.shutdown {
		for l := range svr.listeners {
			lerr := l.Close()
			if lerr != nil && err == nil {
				err = lerr
			}
			delete(svr.listeners, l)
		}
		svr.shutdown = true
	}
	return err
}

// Close immediately closes all listeners and connections.
func (svr *Server) Close() error {
	svr.mutex.Lock()
	if svr.closed {
		svr.mutex.Unlock()
		return nil
	}
	err := svr.closeListeners()
	svr.closed = true

	for conn := range svr.activeConn {
		conn.Close()
		delete(svr.activeConn, conn)
	}
	svr.mutex.Unlock()
	return err
}

// Shutdown closes all listeners and then waits for the active connections to finish or for
// ctx to be done.
func (svr *Server) Shutdown(ctx context.Context) error {
	svr.mutex.Lock()
	if svr.closed {
		svr.mutex.Unlock()
		return nil
	}
	err := svr.closeListeners()
	svr.mutex.Unlock()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	last := int32(-1)
	for {
		cc := atomic.LoadInt32(&svr.connCount)
		if cc == 0 {
			break
		}
		if cc != last {
			log.WithField("connections", cc).Info("server: waiting for active connections")
			last = cc
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return err
}
