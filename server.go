package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/rs/zerolog/log"
)

// maxMessageSize caps a single wire message, matching the protocol's fixed
// per-message buffer.
const maxMessageSize = 1024

// tcpConn adapts a raw TCP socket to the message-oriented conn interface.
// One read returns whatever the peer sent in a single segment; the zero-byte
// read at stream close surfaces as io.EOF. net.Conn permits concurrent
// writes, so partner pushes need no extra serialization here.
type tcpConn struct {
	sock net.Conn
	buf  [maxMessageSize]byte
}

func newTCPConn(sock net.Conn) *tcpConn {
	return &tcpConn{sock: sock}
}

func (c *tcpConn) readMessage() (string, error) {
	n, err := c.sock.Read(c.buf[:])
	if err != nil {
		return "", err
	}

	return string(c.buf[:n]), nil
}

func (c *tcpConn) writeMessage(msg string) error {
	_, err := c.sock.Write([]byte(msg))
	return err
}

func (c *tcpConn) close() error {
	return c.sock.Close()
}

func (c *tcpConn) remoteAddr() string {
	return c.sock.RemoteAddr().String()
}

// Serve loads the credential store, builds the matchmaking table, and runs
// the TCP dispatcher (plus the HTTP sidecar when enabled) until ctx is
// cancelled.
func Serve(ctx context.Context, cfg *Config) error {
	creds, err := LoadCredentials(cfg.usersPath)
	if err != nil {
		return fmt.Errorf("loading credentials from %s: %w", cfg.usersPath, err)
	}

	table := NewTable(creds.Names(), cfg.rooms)

	listener, err := net.Listen("tcp", net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)))
	if err != nil {
		return err
	}

	log.Info().
		Str("addr", listener.Addr().String()).
		Int("rooms", table.RoomCount()).
		Int("players", len(creds.Names())).
		Msg("gamehouse v" + releaseVersion + " listening")

	if cfg.httpPort != 0 {
		go serveWeb(ctx, cfg, table, creds)
	}

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		sock, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				log.Info().Msg("shutting down")
				return nil
			}

			log.Error().Err(err).Msg("accept failed")
			continue
		}

		go newSession(table, creds, newTCPConn(sock)).run()
	}
}
