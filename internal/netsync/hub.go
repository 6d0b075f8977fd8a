package netsync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/san-kum/gravsim/internal/collision"
	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/sim"
)

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 64 << 10
	minInterval    = time.Millisecond
)

// Hub owns the tick loop of one simulator and fans its snapshots out to
// websocket subscribers. Client commands go through the simulator's
// command API and take effect at the next step boundary.
type Hub struct {
	sim      *sim.Simulator
	metrics  *Metrics
	log      zerolog.Logger
	upgrader websocket.Upgrader

	mu          sync.Mutex
	subscribers map[string]*subscriber
}

type subscriber struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
	done chan struct{}
}

// WriteMessage sends a websocket message guarded by the subscriber's mutex and write deadline.
func (s *subscriber) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(messageType, data)
}

// NewHub attaches a hub to s as an observer, so every step of s is
// broadcast whoever drives it.
func NewHub(s *sim.Simulator, m *Metrics, log zerolog.Logger) *Hub {
	h := &Hub{
		sim:     s,
		metrics: m,
		log:     log.With().Str("component", "netsync").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		subscribers: make(map[string]*subscriber),
	}
	s.AddObserver(h)
	return h
}

// Run steps the simulator at its configured tick rate until ctx is done or
// the simulator stops; both end the loop without error. A paused simulator
// is skipped.
func (h *Hub) Run(ctx context.Context) error {
	if err := h.sim.Initialize(); err != nil {
		if errors.Is(err, dynamo.ErrStopped) {
			h.log.Info().Msg("simulator stopped, tick loop not started")
			return nil
		}
		return err
	}
	rate := h.sim.Config().TickRate
	interval := max(time.Duration(float64(time.Second)/rate), minInterval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer h.closeAll()

	h.log.Info().Float64("tick_rate", rate).Dur("interval", interval).Msg("tick loop started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			err := h.tick()
			if errors.Is(err, dynamo.ErrStopped) {
				h.log.Info().Uint64("tick", h.sim.Snapshot().Tick).Msg("simulator stopped, tick loop done")
				return nil
			}
			if err != nil {
				return err
			}
		}
	}
}

func (h *Hub) tick() error {
	start := time.Now()
	err := h.sim.Step()
	switch {
	case errors.Is(err, dynamo.ErrNotRunning):
		return nil
	case errors.Is(err, dynamo.ErrStopped):
		return err
	case err != nil:
		h.log.Error().Err(err).Msg("step failed")
		return err
	}
	h.metrics.StepDuration.Observe(time.Since(start).Seconds())
	return nil
}

// OnStep implements sim.Observer.
func (h *Hub) OnStep(snap *sim.Snapshot, merges []collision.MergeEvent) {
	h.metrics.Bodies.Set(float64(len(snap.Bodies)))
	h.metrics.Merges.Add(float64(len(merges)))
	h.metrics.Energy.Set(h.sim.Metrics().Total)
	for _, m := range merges {
		h.log.Debug().Uint64("survivor", uint64(m.Survivor)).Uint64("absorbed", uint64(m.Absorbed)).Uint64("tick", m.Tick).Msg("merge")
	}
	h.broadcast(snap)
}

// broadcast sends the snapshot to every subscriber and drops those whose
// write fails.
func (h *Hub) broadcast(snap *sim.Snapshot) {
	data, err := json.Marshal(Envelope{Type: MsgSnapshot, Snapshot: snap})
	if err != nil {
		h.log.Error().Err(err).Msg("marshal snapshot")
		return
	}

	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Warn().Err(err).Str("client", sub.id).Msg("send failed, disconnecting")
			h.disconnect(sub)
		}
	}
}

// ServeHTTP upgrades the request and serves one subscriber until it leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("upgrade failed")
		return
	}
	sub := &subscriber{id: uuid.NewString(), conn: conn, done: make(chan struct{})}

	if snap := h.sim.Snapshot(); snap != nil {
		if err := h.send(sub, Envelope{Type: MsgSnapshot, Snapshot: snap}); err != nil {
			conn.Close()
			return
		}
	}

	h.mu.Lock()
	h.subscribers[sub.id] = sub
	h.metrics.Clients.Set(float64(len(h.subscribers)))
	h.mu.Unlock()
	h.log.Info().Str("client", sub.id).Str("remote", r.RemoteAddr).Msg("client connected")

	go h.ping(sub)
	h.read(sub)
}

func (h *Hub) read(sub *subscriber) {
	defer h.disconnect(sub)

	sub.conn.SetReadLimit(maxMessageSize)
	_ = sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := sub.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn().Err(err).Str("client", sub.id).Msg("read failed")
			}
			return
		}
		ack := h.handle(data)
		if err := h.send(sub, Envelope{Type: MsgAck, Ack: ack}); err != nil {
			return
		}
	}
}

func (h *Hub) ping(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-sub.done:
			return
		case <-ticker.C:
			if err := sub.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handle decodes and applies one client command.
func (h *Hub) handle(data []byte) *Ack {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		h.metrics.Commands.WithLabelValues("", CodeBadRequest).Inc()
		return failed(0, CodeBadRequest, err)
	}

	ack := h.apply(cmd)
	code := ack.Code
	if ack.OK {
		code = "ok"
	}
	h.metrics.Commands.WithLabelValues(cmd.Type, code).Inc()
	return ack
}

func (h *Hub) apply(cmd Command) *Ack {
	var err error
	ack := &Ack{Seq: cmd.Seq}
	switch cmd.Type {
	case CmdAddBody:
		if cmd.Body == nil {
			return failed(cmd.Seq, CodeBadRequest, errors.New("add_body needs a body"))
		}
		ack.ID, err = h.sim.AddBody(*cmd.Body)
	case CmdRemoveBody:
		err = h.sim.RemoveBody(cmd.ID)
	case CmdThrust:
		if cmd.Acceleration == nil {
			return failed(cmd.Seq, CodeBadRequest, errors.New("thrust needs an acceleration"))
		}
		err = h.sim.ApplyExternalAcceleration(cmd.ID, *cmd.Acceleration)
	default:
		return failed(cmd.Seq, CodeUnknownCommand, errors.New("unknown command "+cmd.Type))
	}
	if err != nil {
		return failed(cmd.Seq, errorCode(err), err)
	}
	ack.OK = true
	return ack
}

func (h *Hub) send(sub *subscriber, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return sub.WriteMessage(websocket.TextMessage, data)
}

func (h *Hub) disconnect(sub *subscriber) {
	h.mu.Lock()
	_, ok := h.subscribers[sub.id]
	delete(h.subscribers, sub.id)
	h.metrics.Clients.Set(float64(len(h.subscribers)))
	h.mu.Unlock()
	if !ok {
		return
	}
	close(sub.done)
	sub.conn.Close()
	h.log.Info().Str("client", sub.id).Msg("client disconnected")
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()
	for _, sub := range subs {
		_ = sub.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		h.disconnect(sub)
	}
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}
