package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type ClientMessage struct {
	Client  *Client
	Message []byte
}

// Manager tracks live connections per user. Run owns registration; publishing
// only takes the read lock.
type Manager struct {
	clients        map[string]*Client
	userIndex      map[string]map[string]bool
	clientsMutex   sync.RWMutex
	Register       chan *Client
	Unregister     chan *Client
	HandleMessage  chan *ClientMessage
	maxConnPerUser int
	maxMessageSize int64
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	messageHandler MessageHandler
	done           chan struct{}
}

type MessageHandler interface {
	HandleWebSocketMessage(client *Client, msg *Message) error
}

type Options struct {
	MaxConnPerUser int
	MaxMessageSize int64
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
}

func NewManager(opts Options) *Manager {
	return &Manager{
		clients:        make(map[string]*Client),
		userIndex:      make(map[string]map[string]bool),
		Register:       make(chan *Client),
		Unregister:     make(chan *Client),
		HandleMessage:  make(chan *ClientMessage),
		maxConnPerUser: opts.MaxConnPerUser,
		maxMessageSize: opts.MaxMessageSize,
		writeWait:      opts.WriteWait,
		pongWait:       opts.PongWait,
		pingPeriod:     opts.PingPeriod,
		done:           make(chan struct{}),
	}
}

func (m *Manager) SetMessageHandler(handler MessageHandler) {
	m.messageHandler = handler
}

// Run serves registration until ctx is cancelled, then closes every client
// and Done.
func (m *Manager) Run(ctx context.Context) {
	defer close(m.done)

	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return

		case client := <-m.Register:
			m.registerClient(client)

		case client := <-m.Unregister:
			m.unregisterClient(client)

		case clientMsg := <-m.HandleMessage:
			m.processMessage(clientMsg)
		}
	}
}

// Done is closed once Run has returned.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Join hands client to Run. It reports false when the manager has stopped.
func (m *Manager) Join(client *Client) bool {
	select {
	case m.Register <- client:
		return true
	case <-m.done:
		return false
	}
}

func (m *Manager) leave(client *Client) {
	select {
	case m.Unregister <- client:
	case <-m.done:
	}
}

func (m *Manager) registerClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if m.userIndex[client.UserID] == nil {
		m.userIndex[client.UserID] = make(map[string]bool)
	}

	if m.maxConnPerUser > 0 && len(m.userIndex[client.UserID]) >= m.maxConnPerUser {
		log.Warn().Str("user_id", client.UserID).Msg("max websocket connections reached")
		close(client.Send)
		return
	}

	m.clients[client.ID] = client
	m.userIndex[client.UserID][client.ID] = true

	log.Debug().Str("client_id", client.ID).Str("user_id", client.UserID).Msg("websocket client registered")
}

func (m *Manager) unregisterClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	m.removeLocked(client)
}

func (m *Manager) removeLocked(client *Client) {
	if _, ok := m.clients[client.ID]; !ok {
		return
	}

	delete(m.clients, client.ID)
	delete(m.userIndex[client.UserID], client.ID)
	if len(m.userIndex[client.UserID]) == 0 {
		delete(m.userIndex, client.UserID)
	}

	close(client.Send)
	log.Debug().Str("client_id", client.ID).Msg("websocket client unregistered")
}

func (m *Manager) closeAll() {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	for _, client := range m.clients {
		m.removeLocked(client)
	}
}

func (m *Manager) processMessage(clientMsg *ClientMessage) {
	var msg Message
	if err := json.Unmarshal(clientMsg.Message, &msg); err != nil {
		log.Debug().Err(err).Str("client_id", clientMsg.Client.ID).Msg("malformed websocket message")
		return
	}

	if m.messageHandler != nil {
		if err := m.messageHandler.HandleWebSocketMessage(clientMsg.Client, &msg); err != nil {
			log.Warn().Err(err).Str("client_id", clientMsg.Client.ID).Msg("websocket message handling failed")
		}
	}
}

// Publish sends an event to every connection of userID. It satisfies the
// services' event publisher contract.
func (m *Manager) Publish(userID, event string, payload interface{}) {
	msg, err := NewMessage(MessageType(event), payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to encode websocket event")
		return
	}

	m.BroadcastToUser(userID, msg)
}

func (m *Manager) BroadcastToUser(userID string, message *Message) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal websocket message")
		return
	}

	var slow []*Client

	m.clientsMutex.RLock()
	for clientID := range m.userIndex[userID] {
		client := m.clients[clientID]
		select {
		case client.Send <- messageBytes:
		default:
			slow = append(slow, client)
		}
	}
	m.clientsMutex.RUnlock()

	for _, client := range slow {
		log.Warn().Str("client_id", client.ID).Msg("websocket send buffer full, dropping client")
		go m.leave(client)
	}
}

func (m *Manager) SendToClient(client *Client, message *Message) error {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	if _, ok := m.clients[client.ID]; !ok {
		return nil
	}

	select {
	case client.Send <- messageBytes:
	default:
		log.Warn().Str("client_id", client.ID).Msg("websocket send buffer full")
	}

	return nil
}

func (m *Manager) GetUserConnections(userID string) int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	return len(m.userIndex[userID])
}
