package main

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
)

const httpTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  maxMessageSize,
	WriteBufferSize: maxMessageSize,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsConn adapts a websocket to the conn interface: one text frame per
// protocol message. gorilla/websocket allows only a single concurrent
// writer, and partner pushes arrive on foreign goroutines, so writes are
// serialized with a mutex.
type wsConn struct {
	sock *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) readMessage() (string, error) {
	_, data, err := c.sock.ReadMessage()
	if err != nil {
		return "", err
	}

	if len(data) > maxMessageSize {
		data = data[:maxMessageSize]
	}

	return string(data), nil
}

func (c *wsConn) writeMessage(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sock.WriteMessage(websocket.TextMessage, []byte(msg))
}

func (c *wsConn) close() error {
	return c.sock.Close()
}

func (c *wsConn) remoteAddr() string {
	return c.sock.RemoteAddr().String()
}

func serveHealthCheck() httprouter.Handle {
	return func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		_, _ = w.Write([]byte("Ok\n"))
	}
}

func serveVersion() httprouter.Handle {
	return func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		_, _ = w.Write([]byte("gamehouse v" + releaseVersion + "\n"))
	}
}

// serveRooms exposes the occupancy snapshot the in-game `list` verb shows.
func serveRooms(table *Table) httprouter.Handle {
	return func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/json")

		_ = json.NewEncoder(w).Encode(map[string]any{
			"rooms": table.ListRooms(),
		})
	}
}

// serveQR returns a PNG QR code of the game server address, for sharing
// with phone clients.
func serveQR(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		host, _, err := net.SplitHostPort(r.Host)
		if err != nil {
			host = r.Host
		}

		const qrSize = 320
		png, err := qrcode.Encode(net.JoinHostPort(host, strconv.Itoa(cfg.port)), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

// serveWS upgrades the request and hands the socket to a regular session, so
// browser clients speak the identical tokenized protocol.
func serveWS(table *Table, creds *CredentialStore) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		sock, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Debug().Err(err).Msg("websocket upgrade failed")
			return
		}

		newSession(table, creds, &wsConn{sock: sock}).run()
	}
}

// serveWeb runs the HTTP sidecar: health, version, room occupancy, the
// websocket transport, and the QR connect helper.
func serveWeb(ctx context.Context, cfg *Config, table *Table, creds *CredentialStore) {
	mux := httprouter.New()

	mux.GET("/healthz", serveHealthCheck())
	mux.GET("/version", serveVersion())
	mux.GET("/api/rooms", serveRooms(table))
	mux.GET("/qr", serveQR(cfg))
	mux.GET("/ws", serveWS(table, creds))

	if cfg.profile {
		registerProfileHandlers(mux)
	}

	// No write timeout: websocket sessions may legitimately sit idle for as
	// long as a player waits on a partner.
	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.httpPort)),
		Handler:           mux,
		IdleTimeout:       10 * time.Minute,
		ReadHeaderTimeout: httpTimeout,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http sidecar listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http sidecar exited")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
