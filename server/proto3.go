package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync/atomic"

	pgproto3 "github.com/jackc/pgproto3/v2"
	"github.com/lib/pq/oid"
	log "github.com/sirupsen/logrus"

	"github.com/klundeen/5300-Antelope/execute"
	"github.com/klundeen/5300-Antelope/repl"
	"github.com/klundeen/5300-Antelope/sql"
	"github.com/klundeen/5300-Antelope/sql/parser"
	"github.com/klundeen/5300-Antelope/sql/stmt"
)

type Proto3Config struct {
	Address string
}

func (svr *Server) ListenAndServeProto3(p3Cfg Proto3Config) error {
	l, err := net.Listen("tcp", p3Cfg.Address)
	if err != nil {
		return err
	}
	return svr.ServeProto3(l)
}

// ServeProto3 accepts PostgreSQL wire protocol connections on l until the server is shutdown
// or closed.
func (svr *Server) ServeProto3(l net.Listener) error {
	if !svr.addListener(l) {
		l.Close()
		return ErrServerClosed
	}

	for {
		conn, err := l.Accept()
		if err != nil {
			if svr.isShutdown() {
				err = ErrServerClosed
			}
			log.WithField("error", err.Error()).Error("proto3 accept")
			return err
		}

		entry := log.WithFields(log.Fields{
			"addr": conn.RemoteAddr().String(),
		})
		entry.Info("proto3 connected")

		go svr.handleProto3Conn(conn, entry)
	}
}

func (svr *Server) handleProto3Conn(conn net.Conn, entry *log.Entry) {
	atomic.AddInt32(&svr.connCount, 1)
	defer atomic.AddInt32(&svr.connCount, -1)

	defer func() {
		entry.Info("proto3 disconnected")
	}()

	if !svr.trackConn(conn, true) {
		conn.Close()
		return
	}

	defer func() {
		if svr.trackConn(conn, false) {
			conn.Close()
		}
	}()

	be := pgproto3.NewBackend(pgproto3.NewChunkReader(conn), conn)

	var user string
	var started bool
	for !started {
		msg, err := be.ReceiveStartupMessage()
		if err != nil {
			entry.Errorf("receive startup message: %s", err)
			return
		}

		switch msg := msg.(type) {
		case *pgproto3.StartupMessage:
			entry.Infof("protocol version: %d", msg.ProtocolVersion)
			for nam, val := range msg.Parameters {
				entry.Infof("parameter: %s = %s", nam, val)
			}
			user = msg.Parameters["user"]
			_, err := conn.Write((&pgproto3.AuthenticationOk{}).Encode(nil))
			if err != nil {
				entry.Errorf("send authentication ok: %s", err)
				return
			}
			started = true
		case *pgproto3.SSLRequest:
			_, err := conn.Write([]byte("N"))
			if err != nil {
				entry.Errorf("send deny SSL request: %s", err)
				return
			}
		default:
			entry.Errorf("unknown startup message: %v", msg)
			return
		}
	}

	svr.HandleSession(
		func(ctx context.Context, ex repl.Executor) {
			handleProto3Session(ctx, ex, be, conn, entry)
		}, user, "proto3", conn.RemoteAddr().String())
}

func dataType(ca sql.ColumnAttribute) (oid.Oid, int16) {
	// Return oid and size.
	switch ca.Type {
	case sql.BooleanType:
		return oid.T_bool, 1
	case sql.IntegerType:
		return oid.T_int8, 8
	default:
		return oid.T_text, -1
	}
}

func handleProto3Session(ctx context.Context, ex repl.Executor, be *pgproto3.Backend,
	conn net.Conn, entry *log.Entry) {

	for {
		_, err := conn.Write((&pgproto3.ReadyForQuery{TxStatus: 'I'}).Encode(nil))
		if err != nil {
			entry.Errorf("send ready for query: %s", err)
			return
		}

		msg, err := be.Receive()
		if err != nil {
			if err != io.EOF {
				entry.Errorf("receive: %s", err)
			}
			return
		}

		switch msg := msg.(type) {
		case *pgproto3.Query:
			proto3Query(ctx, ex, conn, msg, entry)
		case *pgproto3.Terminate:
			return
		default:
			buf, _ := json.Marshal(msg)
			entry.Errorf("backend unexpected message: %s", string(buf))
			proto3ErrorResponse(conn, fmt.Errorf("unexpected message: %s", string(buf)), entry)
		}
	}
}

func proto3Query(ctx context.Context, ex repl.Executor, conn net.Conn, msg *pgproto3.Query,
	entry *log.Entry) {

	p := parser.NewParser(strings.NewReader(msg.String), "proto3")
	var empty = true
	for {
		s, err := p.Parse()
		if err == io.EOF {
			break
		} else if err != nil {
			proto3ErrorResponse(conn, err, entry)
			return
		}
		empty = false

		res, err := ex.Execute(ctx, s)
		if err != nil {
			proto3ErrorResponse(conn, err, entry)
			return
		}
		err = proto3Result(conn, s, res)
		if err != nil {
			entry.Errorf("send result: %s", err)
			return
		}
	}

	if empty {
		_, err := conn.Write((&pgproto3.EmptyQueryResponse{}).Encode(nil))
		if err != nil {
			entry.Errorf("send empty query response: %s", err)
		}
	}
}

func commandTag(s stmt.Stmt) string {
	switch s := s.(type) {
	case *stmt.CreateTable:
		return "CREATE TABLE"
	case *stmt.CreateIndex:
		return "CREATE INDEX"
	case *stmt.DropTable:
		return "DROP TABLE"
	case *stmt.DropIndex:
		return "DROP INDEX"
	case *stmt.Show:
		return "SHOW"
	case *stmt.Unsupported:
		return s.Verb.String()
	}
	return ""
}

func proto3Result(conn net.Conn, s stmt.Stmt, res *execute.Result) error {
	if res.ColumnNames == nil {
		if _, ok := s.(*stmt.Unsupported); ok {
			_, err := conn.Write((&pgproto3.NoticeResponse{
				Severity: "NOTICE",
				Message:  res.Message,
			}).Encode(nil))
			if err != nil {
				return err
			}
		}
		return proto3CommandComplete(conn, commandTag(s))
	}

	var fields []pgproto3.FieldDescription
	for cdx, col := range res.ColumnNames {
		oid, sz := dataType(res.ColumnAttributes[cdx])
		fields = append(fields,
			pgproto3.FieldDescription{
				Name:                 []byte(col.String()),
				TableOID:             0,
				TableAttributeNumber: 0,
				DataTypeOID:          uint32(oid),
				DataTypeSize:         sz,
				TypeModifier:         -1,
				Format:               0, // Text format; binary format = 1
			})
	}
	_, err := conn.Write((&pgproto3.RowDescription{Fields: fields}).Encode(nil))
	if err != nil {
		return err
	}

	values := make([][]byte, len(res.ColumnNames))
	for _, row := range res.Rows {
		for cdx, col := range res.ColumnNames {
			switch v := row[col].(type) {
			case nil:
				values[cdx] = nil
			case sql.StringValue:
				values[cdx] = []byte(string(v))
			default:
				values[cdx] = []byte(sql.Format(v))
			}
		}

		_, err := conn.Write((&pgproto3.DataRow{Values: values}).Encode(nil))
		if err != nil {
			return err
		}
	}

	return proto3CommandComplete(conn, commandTag(s))
}

func errorCode(err error) string {
	var ee *execute.Error
	if !errors.As(err, &ee) {
		return "42601" // syntax_error
	}

	switch ee.Kind {
	case execute.UnsupportedType, execute.UnknownStatement:
		return "0A000" // feature_not_supported
	case execute.ProtectedObject:
		return "42501" // insufficient_privilege
	case execute.DuplicateIndex:
		return "42P07" // duplicate_table
	case execute.NoSuchObject:
		return "42P01" // undefined_table
	}
	return "XX000" // internal_error
}

func proto3ErrorResponse(conn net.Conn, err error, entry *log.Entry) {
	_, cerr := conn.Write((&pgproto3.ErrorResponse{
		Severity: "ERROR",
		Code:     errorCode(err),
		Message:  err.Error(),
	}).Encode(nil))
	if cerr != nil {
		entry.Errorf("send error response: %s", cerr)
	}
}

func proto3CommandComplete(conn net.Conn, tag string) error {
	_, err := conn.Write((&pgproto3.CommandComplete{CommandTag: []byte(tag)}).Encode(nil))
	return err
}
