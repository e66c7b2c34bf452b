package syncserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"kitchen-ledger/internal/catalog"
	"kitchen-ledger/internal/ledger"
	"kitchen-ledger/pkg/logger"
	"kitchen-ledger/pkg/models"

	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

// Server accepts websocket connections from order-entry devices and
// display clients, applies their mutation messages to the ledger and
// broadcasts a fresh full snapshot after every successful mutation.
//
// All inbound messages funnel through one loop, so each message is fully
// validated and applied before the next one is looked at. There is no
// global order across clients; two clients racing to cancel the same line
// simply have the second cancellation fail.
type Server struct {
	addr        string
	totalTables int
	locale      string

	ledger    *ledger.Ledger
	catalog   *catalog.Catalog
	validator *Validator
	logger    *logger.Logger

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]bool

	inbound    chan envelope
	register   chan *client
	unregister chan *client

	httpServer *http.Server
}

// client wraps one websocket connection. The write mutex serializes
// snapshot broadcasts with direct replies on the same connection.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

type envelope struct {
	data []byte
	from *client
}

func NewServer(port int, gridCols, gridRows int, locale string, requiredLocales []string, led *ledger.Ledger, cat *catalog.Catalog, log *logger.Logger) *Server {
	s := &Server{
		addr:        fmt.Sprintf(":%d", port),
		totalTables: gridCols * gridRows,
		locale:      locale,
		ledger:      led,
		catalog:     cat,
		validator:   NewValidator(requiredLocales),
		logger:      log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:    make(map[*client]bool),
		inbound:    make(chan envelope, 64),
		register:   make(chan *client),
		unregister: make(chan *client),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWebSocket)
	s.httpServer = &http.Server{Addr: s.addr, Handler: mux}

	// Any ledger change, from any source, pushes a fresh snapshot to
	// every connected client.
	led.Subscribe(func(ledger.Change) { s.BroadcastState() })

	return s
}

// Run serves websocket connections and processes inbound messages until
// the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("startup", "ws_listening", "Sync server listening on "+s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return s.httpServer.Shutdown(shutdownCtx)

		case err := <-errCh:
			return fmt.Errorf("sync server failed: %w", err)

		case c := <-s.register:
			s.mu.Lock()
			s.clients[c] = true
			s.mu.Unlock()
			s.logger.Info("", "client_connected", "Client connected")

		case c := <-s.unregister:
			s.mu.Lock()
			if s.clients[c] {
				delete(s.clients, c)
				c.conn.Close()
			}
			s.mu.Unlock()
			s.logger.Info("", "client_disconnected", "Client disconnected")

		case env := <-s.inbound:
			s.handleMessage(ctx, env)
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("", "ws_upgrade_failed", "Failed to upgrade connection", err)
		return
	}

	c := &client{conn: conn}
	s.register <- c

	// Read pump. Messages are handed to the central loop; a dropped
	// connection is simply unregistered, the client is expected to
	// reconnect and re-request a full snapshot.
	go func() {
		defer func() { s.unregister <- c }()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			s.inbound <- envelope{data: data, from: c}
		}
	}()
}

// handleMessage validates and applies one inbound message. Malformed
// messages are dropped with a warning and no acknowledgment; the sender
// learns nothing beyond the snapshot not changing.
func (s *Server) handleMessage(ctx context.Context, env envelope) {
	var msg models.InboundMessage
	if err := json.Unmarshal(env.data, &msg); err != nil {
		s.logger.Warn("", "message_parse_failed", "Dropping unparseable message")
		return
	}

	if err := s.validator.Validate(&msg); err != nil {
		s.logger.Warn("", "message_invalid", "Dropping invalid message: "+err.Error())
		return
	}

	switch NormalizeAction(msg.Action) {
	case models.ActionGetState:
		s.reply(env.from, s.Snapshot())

	case models.ActionGetMenu:
		s.reply(env.from, models.MenuResponse{Menu: s.catalog.Items()})

	case models.ActionGetIngredients:
		s.reply(env.from, models.IngredientsResponse{Ingredients: s.catalog.Ingredients()})

	case models.ActionAdd:
		_, err := s.ledger.AddLine(ctx, msg.Table, *msg.Item,
			msg.IngredientsRemoved, msg.IngredientsAdded, msg.Supplements, msg.Timestamp)
		if err != nil {
			s.logger.Warn("", "add_rejected", err.Error())
		}

	case models.ActionRemove:
		matcher := ledger.Matcher{
			Timestamp: msg.Timestamp,
			Name:      msg.Item.Name.Get(s.locale),
		}
		if _, err := s.ledger.CancelLine(ctx, msg.Table, matcher); err != nil {
			s.logger.Warn("", "remove_rejected", err.Error())
		}

	case models.ActionModify:
		s.ledger.ModifyLine(ctx, msg.Table, msg.OriginalTimestamp, patchFromMessage(&msg))

	case models.ActionSetStatus:
		s.ledger.SetStatus(ctx, msg.Table, ledger.Matcher{Timestamp: msg.LineTimestamp}, msg.Status)

	case models.ActionCloseTable:
		s.ledger.CloseTable(ctx, msg.Table)

	case models.ActionSetPeopleCount:
		s.ledger.SetPeopleCount(ctx, msg.Table, msg.Count)
	}
}

func patchFromMessage(msg *models.InboundMessage) ledger.Patch {
	patch := ledger.Patch{}
	if msg.IngredientsRemoved != nil {
		patch.IngredientsRemoved = &msg.IngredientsRemoved
	}
	if msg.IngredientsAdded != nil {
		patch.IngredientsAdded = &msg.IngredientsAdded
	}
	if msg.Supplements != nil {
		patch.Supplements = &msg.Supplements
	}
	if msg.Item != nil {
		patch.Price = &msg.Item.Price
		if msg.Item.SupplementPrice != 0 {
			patch.SupplementPrice = &msg.Item.SupplementPrice
		}
	}
	return patch
}

// Snapshot regenerates the full outbound state from the ledger.
func (s *Server) Snapshot() models.StateSnapshot {
	return BuildSnapshot(s.ledger.Lines(), s.catalog, s.totalTables)
}

// BroadcastState pushes the current snapshot to every connected client.
// A client whose write fails is dropped; it will reconnect and ask for a
// full snapshot again.
func (s *Server) BroadcastState() {
	snapshot := s.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.clients {
		if err := c.send(snapshot); err != nil {
			s.logger.Warn("", "broadcast_failed", "Dropping client after failed write")
			delete(s.clients, c)
			c.conn.Close()
		}
	}
}

func (s *Server) reply(c *client, v any) {
	if err := c.send(v); err != nil {
		s.logger.Warn("", "reply_failed", "Failed to reply to client")
	}
}
