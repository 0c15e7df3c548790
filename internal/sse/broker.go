package sse

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cliprelay/relay-server-go/internal/model"
	redisclient "github.com/cliprelay/relay-server-go/internal/redis"
)

const (
	HeartbeatInterval = 30 * time.Second
	clientBufferSize  = 16
)

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type Client struct {
	AccountID string
	Events    chan Event
	Done      chan struct{}
}

// Broker fans notifications out to every open event stream of an account.
// Notifications travel through Redis so any instance may deliver them.
type Broker struct {
	redis   *redisclient.Client
	clients map[string]map[*Client]bool // accountID -> set of clients
	subs    map[string]context.CancelFunc
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewBroker(redisClient *redisclient.Client) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		redis:   redisClient,
		clients: make(map[string]map[*Client]bool),
		subs:    make(map[string]context.CancelFunc),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (b *Broker) Subscribe(accountID string) *Client {
	client := &Client{
		AccountID: accountID,
		Events:    make(chan Event, clientBufferSize),
		Done:      make(chan struct{}),
	}

	b.mu.Lock()
	if b.clients[accountID] == nil {
		b.clients[accountID] = make(map[*Client]bool)
		subCtx, subCancel := context.WithCancel(b.ctx)
		b.subs[accountID] = subCancel
		go b.subscribeToRedis(subCtx, accountID)
	}
	b.clients[accountID][client] = true
	clientCount := len(b.clients[accountID])
	b.mu.Unlock()

	log.Info().
		Str("accountId", accountID).
		Int("clientCount", clientCount).
		Msg("sse client subscribed")

	return client
}

func (b *Broker) Unsubscribe(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if clients, ok := b.clients[client.AccountID]; ok {
		if _, present := clients[client]; !present {
			return
		}
		delete(clients, client)
		close(client.Done)

		if len(clients) == 0 {
			delete(b.clients, client.AccountID)
			if cancel, ok := b.subs[client.AccountID]; ok {
				cancel()
				delete(b.subs, client.AccountID)
			}
		}

		log.Info().
			Str("accountId", client.AccountID).
			Int("clientCount", len(clients)).
			Msg("sse client unsubscribed")
	}
}

// Notify publishes n to every stream the account has open, on any instance.
func (b *Broker) Notify(ctx context.Context, accountID string, n model.Notification) error {
	event, err := NewEvent(n)
	if err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	channel := redisclient.NotificationChannel(accountID)
	return b.redis.Publish(ctx, channel, data).Err()
}

func NewEvent(n model.Notification) (Event, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: string(n.Kind), Data: data}, nil
}

func (b *Broker) subscribeToRedis(ctx context.Context, accountID string) {
	channel := redisclient.NotificationChannel(accountID)
	pubsub := b.redis.Subscribe(ctx, channel)
	defer pubsub.Close()

	log.Debug().
		Str("accountId", accountID).
		Str("channel", channel).
		Msg("redis pubsub subscribed")

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Error().Err(err).Msg("failed to unmarshal event")
				continue
			}

			b.broadcast(accountID, event)
		}
	}
}

func (b *Broker) broadcast(accountID string, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for client := range b.clients[accountID] {
		select {
		case client.Events <- event:
		default:
			log.Warn().
				Str("accountId", accountID).
				Msg("client event buffer full, dropping event")
		}
	}
}

func (b *Broker) Close() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, clients := range b.clients {
		for client := range clients {
			close(client.Done)
		}
	}
	b.clients = make(map[string]map[*Client]bool)
	b.subs = make(map[string]context.CancelFunc)
}

func (b *Broker) ClientCount(accountID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[accountID])
}
