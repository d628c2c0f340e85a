package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"mailquill/handlers"
	"mailquill/middleware"
	"mailquill/utils"
	"mailquill/workflow"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

// Event is one message pushed to the browser.
type Event struct {
	ID    string          `json:"id"`
	Type  string          `json:"type"` // "state" or "error"
	State *workflow.State `json:"state,omitempty"`
	Error string          `json:"error,omitempty"`
	Code  int             `json:"code,omitempty"`
	Time  time.Time       `json:"time"`
}

func stateEvent(st workflow.State) Event {
	return Event{ID: uuid.NewString(), Type: "state", State: &st, Time: time.Now()}
}

func errorEvent(err error) Event {
	ev := Event{ID: uuid.NewString(), Type: "error", Error: err.Error(), Code: fiber.StatusInternalServerError, Time: time.Now()}
	var appErr *utils.AppError
	if errors.As(handlers.WorkflowError(err), &appErr) {
		ev.Error = appErr.Message
		ev.Code = appErr.Code
	}
	return ev
}

const apologyKey = "apology"

// EventsHandler pushes a client's state to the browser after every change,
// over a websocket (which also accepts actions) or server-sent events.
type EventsHandler struct {
	registry  *workflow.Registry
	generator *workflow.Generator
	keepAlive time.Duration
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(registry *workflow.Registry, generator *workflow.Generator) *EventsHandler {
	return &EventsHandler{
		registry:  registry,
		generator: generator,
		keepAlive: 30 * time.Second,
	}
}

// Upgrade rejects non-websocket requests and carries request-scoped values
// into the connection.
func (h *EventsHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	c.Locals(apologyKey, Apology(c))
	return c.Next()
}

// HandleSSE streams state snapshots as server-sent events.
func (h *EventsHandler) HandleSSE(c *fiber.Ctx) error {
	clientID := middleware.ClientID(c)
	if _, err := Store(c, h.registry); err != nil {
		return err
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")

	utils.Log.Info("SSE subscriber connected: %s", clientID)

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer utils.Log.Info("SSE subscriber disconnected: %s", clientID)

		send := func(ev Event) error {
			data, err := json.Marshal(ev)
			if err != nil {
				return err
			}
			if _, err := w.WriteString("data: " + string(data) + "\n\n"); err != nil {
				return err
			}
			return w.Flush()
		}
		keepAlive := func() error {
			if _, err := w.WriteString(": keepalive\n\n"); err != nil {
				return err
			}
			return w.Flush()
		}

		h.push(clientID, send, keepAlive, nil)
	}))

	return nil
}

// HandleWebSocket pushes state snapshots and applies actions sent by the
// browser. Generation actions run in the background; their progress arrives
// as state events.
func (h *EventsHandler) HandleWebSocket(conn *websocket.Conn) {
	clientID, _ := conn.Locals(middleware.ClientIDKey).(string)
	apology, _ := conn.Locals(apologyKey).(string)

	var writeMu sync.Mutex
	send := func(ev Event) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(ev)
	}
	keepAlive := func() error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
	}

	done := make(chan struct{})
	pushed := make(chan struct{})
	go func() {
		defer close(pushed)
		h.push(clientID, send, keepAlive, done)
	}()

	defer func() {
		close(done)
		<-pushed
		conn.Close()
		utils.Log.Info("WebSocket subscriber disconnected: %s", clientID)
	}()

	utils.Log.Info("WebSocket subscriber connected: %s", clientID)

	for {
		var req ActionRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				utils.Log.Warn("WebSocket read failed for %s: %v", clientID, err)
			}
			return
		}
		if err := h.apply(clientID, req, apology); err != nil {
			if werr := send(errorEvent(err)); werr != nil {
				return
			}
		}
	}
}

// apply runs one action from the websocket. Generation errors that happen
// after the run started are reported through state, not here.
func (h *EventsHandler) apply(clientID string, req ActionRequest, apology string) error {
	store, err := h.registry.Get(clientID)
	if err != nil {
		return err
	}

	switch req.Type {
	case ActionGenerate:
		run, err := h.generator.StartGenerate(store, apology)
		if err != nil {
			return err
		}
		go run(context.Background())
		return nil
	case ActionGenerateSubject:
		run, err := h.generator.StartSubject(store)
		if err != nil {
			return err
		}
		go run(context.Background())
		return nil
	}

	action, err := req.Action()
	if err != nil {
		return err
	}
	_, err = store.Dispatch(action)
	return err
}

// push sends the current state, then every change, until done is closed or
// a write fails. When the client's store is dropped for idleness the
// subscription is renewed against a fresh one.
func (h *EventsHandler) push(clientID string, send func(Event) error, keepAlive func() error, done <-chan struct{}) {
	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		store, err := h.registry.Get(clientID)
		if err != nil {
			utils.Log.Error("Failed to load state for %s: %v", clientID, err)
			send(errorEvent(err))
			return
		}
		states, cancel := store.Subscribe()

		if err := send(stateEvent(store.State())); err != nil {
			cancel()
			return
		}

	loop:
		for {
			select {
			case st, ok := <-states:
				if !ok {
					break loop
				}
				if err := send(stateEvent(st)); err != nil {
					cancel()
					return
				}
			case <-ticker.C:
				// An open connection keeps the store from going idle
				h.registry.Touch(clientID)
				if err := keepAlive(); err != nil {
					cancel()
					return
				}
			case <-done:
				cancel()
				return
			}
		}
		cancel()
	}
}
