package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Williamgithubit/bsm-backend/internal/athletes"
	"github.com/Williamgithubit/bsm-backend/internal/models"
)

// SubscriberApp is what the gateway needs from the athletes application.
type SubscriberApp interface {
	SubscribeToAthletes(ctx context.Context, f athletes.Filters, fn athletes.ListSnapshotFunc) (*athletes.Subscription, error)
}

// ConnectionManager fans live directory snapshots out to WebSocket clients.
// Connections are pooled per filter set; one store subscription feeds each
// pool and is torn down when its last client disconnects.
type ConnectionManager struct {
	app SubscriberApp

	mu    sync.RWMutex
	pools map[string]*filterPool

	upgrader    websocket.Upgrader
	config      ConnectionConfig
	broadcastCh chan broadcastMessage
}

type filterPool struct {
	filters athletes.Filters
	conns   map[*Connection]bool
	sub     *athletes.Subscription
}

// Connection represents one WebSocket client.
type Connection struct {
	ID        string
	FilterKey string
	Conn      *websocket.Conn
	Send      chan []byte
	Manager   *ConnectionManager

	ConnectedAt time.Time
}

// ConnectionConfig holds WebSocket tuning knobs.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

type broadcastMessage struct {
	filterKey string
	list      []models.Athlete
}

// DefaultConnectionConfig returns the default WebSocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a manager broadcasting through app
// subscriptions.
func NewConnectionManager(app SubscriberApp, config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		app:   app,
		pools: make(map[string]*filterPool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan broadcastMessage, 256),
	}
}

// Start processes broadcast messages until the context ends.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("gateway connection manager started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("gateway connection manager shutting down")
			return
		case msg := <-cm.broadcastCh:
			cm.handleBroadcast(msg)
		}
	}
}

func filterKey(f athletes.Filters) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s",
		f.Sport, f.Level, f.County, f.ScoutingStatus, f.Position, f.Search)
}

// UpgradeConnection upgrades the request and joins the client to the pool
// for its filters, opening the pool's live subscription if it is the first.
func (cm *ConnectionManager) UpgradeConnection(ctx context.Context, w http.ResponseWriter, r *http.Request, f athletes.Filters) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	key := filterKey(f)
	connection := &Connection{
		ID:          uuid.NewString(),
		FilterKey:   key,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}

	if err := cm.registerConnection(ctx, connection, f); err != nil {
		conn.Close()
		return err
	}

	go connection.writePump()
	go connection.readPump()

	log.Info().Str("connection_id", connection.ID).Str("filter_key", key).
		Msg("WebSocket connection established")
	return nil
}

func (cm *ConnectionManager) registerConnection(ctx context.Context, conn *Connection, f athletes.Filters) error {
	cm.mu.Lock()
	pool, exists := cm.pools[conn.FilterKey]
	if !exists {
		pool = &filterPool{filters: f, conns: make(map[*Connection]bool)}
		cm.pools[conn.FilterKey] = pool
	}
	pool.conns[conn] = true
	sub := pool.sub
	cm.mu.Unlock()

	if exists {
		// Seed the newcomer with the pool's current list. sub can still be
		// nil while the first registrant is opening the subscription; the
		// newcomer then just waits for the next broadcast.
		if sub != nil {
			if data, err := marshalSnapshot(sub.Current()); err == nil {
				select {
				case conn.Send <- data:
				default:
				}
			}
		}
		return nil
	}

	key := conn.FilterKey
	sub, err := cm.app.SubscribeToAthletes(ctx, f, func(list []models.Athlete) {
		select {
		case cm.broadcastCh <- broadcastMessage{filterKey: key, list: list}:
		default:
			log.Warn().Str("filter_key", key).Msg("broadcast channel full, dropping snapshot")
		}
	})
	if err != nil {
		cm.mu.Lock()
		delete(pool.conns, conn)
		if len(pool.conns) == 0 {
			delete(cm.pools, key)
		}
		cm.mu.Unlock()
		return fmt.Errorf("failed to open directory subscription: %w", err)
	}

	cm.mu.Lock()
	pool.sub = sub
	cm.mu.Unlock()
	return nil
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	pool, exists := cm.pools[conn.FilterKey]
	if !exists || !pool.conns[conn] {
		cm.mu.Unlock()
		return
	}
	delete(pool.conns, conn)
	close(conn.Send)

	var sub *athletes.Subscription
	if len(pool.conns) == 0 {
		sub = pool.sub
		delete(cm.pools, conn.FilterKey)
	}
	cm.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}

	log.Info().Str("connection_id", conn.ID).Str("filter_key", conn.FilterKey).
		Msg("connection unregistered")
}

func (cm *ConnectionManager) handleBroadcast(msg broadcastMessage) {
	cm.mu.RLock()
	pool, exists := cm.pools[msg.filterKey]
	if !exists {
		cm.mu.RUnlock()
		return
	}
	targets := make([]*Connection, 0, len(pool.conns))
	for conn := range pool.conns {
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	data, err := marshalSnapshot(msg.list)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal directory snapshot")
		return
	}

	for _, conn := range targets {
		select {
		case conn.Send <- data:
		default:
			log.Warn().Str("connection_id", conn.ID).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			conn.Conn.Close()
		}
	}
}

func marshalSnapshot(list []models.Athlete) ([]byte, error) {
	if list == nil {
		list = []models.Athlete{}
	}
	return json.Marshal(map[string]any{
		"type":     "athletes:snapshot",
		"athletes": list,
	})
}

// ConnectionStats reports active pools and connections.
func (cm *ConnectionManager) ConnectionStats() (total int, pools int) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	for _, pool := range cm.pools {
		total += len(pool.conns)
	}
	return total, len(cm.pools)
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).
					Msg("failed to write snapshot to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
