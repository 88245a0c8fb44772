package screen

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"complaintdesk/backend/internal/complaint"
	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/view"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

// WebSocketClient is a browser screen. It implements both Session and
// complaint.View: renders become keyed patches, notices become toast frames.
type WebSocketClient struct {
	ID        string
	UserID    string
	Conn      *websocket.Conn
	Hub       *ManagerService
	Send      chan models.ScreenFrame
	Formatter view.Formatter

	actions chan models.FeedbackAction
	quit    chan struct{}
	state   view.ListState

	mu     sync.Mutex
	closed bool
}

// NewWebSocketClient wraps an upgraded connection.
func NewWebSocketClient(id, userID string, conn *websocket.Conn, hub *ManagerService, f view.Formatter) *WebSocketClient {
	return &WebSocketClient{
		ID:        id,
		UserID:    userID,
		Conn:      conn,
		Hub:       hub,
		Send:      make(chan models.ScreenFrame, sendBuffer),
		Formatter: f,
		actions:   make(chan models.FeedbackAction),
		quit:      make(chan struct{}),
	}
}

func (c *WebSocketClient) GetSessionID() string                  { return c.ID }
func (c *WebSocketClient) GetUserID() string                     { return c.UserID }
func (c *WebSocketClient) View() complaint.View                  { return c }
func (c *WebSocketClient) Actions() <-chan models.FeedbackAction { return c.actions }

// Run starts the read and write pumps.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close stops the write pump, which closes the connection.
func (c *WebSocketClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.quit)
	close(c.Send)
}

// SetLanguage switches row texts to the profile language. Like Render it runs
// on the controller goroutine.
func (c *WebSocketClient) SetLanguage(lang string) {
	c.Formatter = c.Formatter.ForLanguage(lang)
}

// Render sends the difference from the previous render.
func (c *WebSocketClient) Render(complaints []models.Complaint) {
	patch := c.state.Apply(c.Formatter.Rows(complaints))
	if patch.IsEmpty() {
		return
	}
	c.enqueue(models.ScreenFrame{Type: models.FrameRender, Patch: &patch})
}

// Notify sends a toast.
func (c *WebSocketClient) Notify(n models.Notice) {
	c.enqueue(models.ScreenFrame{Type: models.FrameNotice, Notice: &n})
}

func (c *WebSocketClient) enqueue(frame models.ScreenFrame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- frame:
	default:
		// Never drop a render: the client's keyed list would desync.
		log.Printf("WARNING: screen %s is not draining, disconnecting", c.ID)
		go c.Hub.Unregister(c)
	}
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error reading from screen %s: %v", c.ID, err)
			}
			return
		}

		action, ok := c.decode(message)
		if !ok {
			continue
		}

		select {
		case c.actions <- action:
		case <-c.quit:
			return
		}
	}
}

// decode turns a client frame into a feedback action. Frames that are not
// submits, or that fail validation, are logged and dropped.
func (c *WebSocketClient) decode(message []byte) (models.FeedbackAction, bool) {
	var frame models.ClientFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		log.Printf("Error decoding JSON from screen %s: %v", c.ID, err)
		return models.FeedbackAction{}, false
	}
	if frame.Type != models.FrameSubmitFeedback {
		log.Printf("WARNING: screen %s sent unsupported frame %q", c.ID, frame.Type)
		return models.FeedbackAction{}, false
	}

	action := models.FeedbackAction{
		ComplaintID: frame.ComplaintID,
		Text:        view.NormalizeFeedback(frame.Text),
	}
	if err := models.Validate(action); err != nil {
		log.Printf("WARNING: screen %s sent invalid submit: %v", c.ID, err)
		return models.FeedbackAction{}, false
	}
	return action, true
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(frame); err != nil {
				log.Printf("Error writing to screen %s: %v", c.ID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
