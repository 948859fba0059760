package stream

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/braydenmsue/cacheroyale-pomodoro/internal/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	clientBuffer   = 64
	publishBuffer  = 256
	subscribeWait  = 2 * time.Second
	channelPattern = "focus:*:samples"
	channelPrefix  = "focus:"
	channelSuffix  = ":samples"
)

// Hub fans telemetry out to websocket clients by session id. With Redis
// configured, broadcasts also reach clients connected to other instances.
type Hub struct {
	redis   *redis.Client
	log     logrus.FieldLogger
	origin  string
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex

	publish chan envelope
	pubsub  *redis.PubSub
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closed  sync.Once
}

type Client struct {
	SessionID string
	Send      chan []byte
}

type envelope struct {
	Origin    string          `json:"origin"`
	SessionID string          `json:"session_id"`
	Payload   json.RawMessage `json:"payload"`
}

func NewHub(redisClient *redis.Client, log logrus.FieldLogger) *Hub {
	if log == nil {
		log = logger.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		redis:   redisClient,
		log:     log,
		origin:  uuid.NewString(),
		clients: map[string]map[*Client]struct{}{},
		cancel:  cancel,
	}

	if redisClient != nil {
		h.publish = make(chan envelope, publishBuffer)
		h.wg.Add(1)
		go h.publishRedis(ctx)

		if err := h.subscribe(ctx); err != nil {
			h.log.WithError(err).Warn("redis subscribe failed, serving local clients only")
		} else {
			h.wg.Add(1)
			go h.forwardRedis()
		}
	}
	return h
}

func (h *Hub) Register(sessionID string) *Client {
	client := &Client{
		SessionID: sessionID,
		Send:      make(chan []byte, clientBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[sessionID] == nil {
		h.clients[sessionID] = map[*Client]struct{}{}
	}
	h.clients[sessionID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessionClients, ok := h.clients[client.SessionID]
	if !ok {
		return
	}
	if _, ok := sessionClients[client]; !ok {
		return
	}
	delete(sessionClients, client)
	if len(sessionClients) == 0 {
		delete(h.clients, client.SessionID)
	}
	close(client.Send)
}

// Broadcast never blocks: slow clients miss messages and the Redis publish is
// queued for a background goroutine.
func (h *Hub) Broadcast(sessionID string, payload []byte) {
	h.deliver(sessionID, payload)

	if h.publish == nil {
		return
	}
	select {
	case h.publish <- envelope{Origin: h.origin, SessionID: sessionID, Payload: payload}:
	default:
		h.log.WithField("session_id", sessionID).Warn("redis publish queue full, dropping message")
	}
}

// Clients reports how many local clients watch a session.
func (h *Hub) Clients(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// Close stops the Redis goroutines. Local clients stay registered until their
// handlers unregister them.
func (h *Hub) Close() {
	h.closed.Do(func() {
		h.cancel()
		if h.pubsub != nil {
			_ = h.pubsub.Close()
		}
		h.wg.Wait()
	})
}

func (h *Hub) deliver(sessionID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[sessionID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribe(ctx context.Context) error {
	h.pubsub = h.redis.PSubscribe(ctx, channelPattern)

	waitCtx, cancel := context.WithTimeout(ctx, subscribeWait)
	defer cancel()
	if _, err := h.pubsub.Receive(waitCtx); err != nil {
		_ = h.pubsub.Close()
		h.pubsub = nil
		return err
	}
	return nil
}

func (h *Hub) publishRedis(ctx context.Context) {
	defer h.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-h.publish:
			data, err := json.Marshal(env)
			if err != nil {
				h.log.WithError(err).Error("encode telemetry envelope")
				continue
			}
			if err := h.redis.Publish(ctx, redisChannel(env.SessionID), data).Err(); err != nil && ctx.Err() == nil {
				h.log.WithError(err).WithField("session_id", env.SessionID).Warn("redis publish error")
			}
		}
	}
}

func (h *Hub) forwardRedis() {
	defer h.wg.Done()
	for msg := range h.pubsub.Channel() {
		var env envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			h.log.WithError(err).WithField("channel", msg.Channel).Warn("drop malformed telemetry")
			continue
		}
		if env.Origin == h.origin {
			continue
		}
		sessionID := sessionIDFromChannel(msg.Channel)
		if sessionID == "" {
			continue
		}
		h.deliver(sessionID, env.Payload)
	}
}

func redisChannel(sessionID string) string {
	return channelPrefix + sessionID + channelSuffix
}

func sessionIDFromChannel(ch string) string {
	// focus:{session}:samples
	if len(ch) <= len(channelPrefix)+len(channelSuffix) {
		return ""
	}
	if ch[:len(channelPrefix)] != channelPrefix || ch[len(ch)-len(channelSuffix):] != channelSuffix {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
