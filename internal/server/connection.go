package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/raydebug/puretexaspoker-sub007/internal/game"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var ErrConnectionClosed = websocket.ErrCloseSent

// Connection wraps one WebSocket client. Outbound messages go through a
// buffered send channel; a client that cannot keep up is dropped.
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	playerID  string
	token     string
	tableID   string
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once
	service   *Service
}

// NewConnection wraps an upgraded websocket connection.
func NewConnection(conn *websocket.Conn, logger *log.Logger, service *Service) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:    conn,
		send:    make(chan *Message, 256),
		logger:  logger.WithPrefix("conn"),
		ctx:     ctx,
		cancel:  cancel,
		service: service,
	}
}

// Start begins handling the connection.
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection and starts the session's disconnect grace
// window if one was bound.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()

		token, tableID := c.GetToken(), c.GetTable()
		if token != "" && tableID != "" {
			if loop, resolveErr := c.service.Resolve(tableID); resolveErr == nil {
				_ = loop.Disconnect(token)
			}
		}
	})
	return err
}

// SendMessage queues a message for the client.
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed during shutdown.
			c.logger.Debug("send on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("send buffer full, closing connection", "player", c.GetPlayer())
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// SetPlayer associates this connection with a player.
func (c *Connection) SetPlayer(playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
}

// GetPlayer returns the associated player ID.
func (c *Connection) GetPlayer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// SetSession binds this connection to a table session.
func (c *Connection) SetSession(tableID, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tableID = tableID
	c.token = token
}

// GetToken returns the bound session token.
func (c *Connection) GetToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// GetTable returns the associated table ID.
func (c *Connection) GetTable() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tableID
}

// readPump handles incoming messages from the client.
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage dispatches an incoming client message.
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("received message", "type", msg.Type, "player", c.GetPlayer())

	switch msg.Type {
	case MessageTypeAuth:
		var data AuthData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse auth data")
			return
		}
		c.handleAuth(data)

	case MessageTypeJoinTable:
		var data JoinTableData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse join table data")
			return
		}
		c.handleJoinTable(data)

	case MessageTypeLeaveTable:
		var data LeaveTableData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse leave table data")
			return
		}
		c.handleLeaveTable(data)

	case MessageTypeListTables:
		c.handleListTables()

	case MessageTypeAction:
		var data ActionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse action data")
			return
		}
		c.handleAction(data)

	case MessageTypeRebuy:
		var data RebuyData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse rebuy data")
			return
		}
		c.handleRebuy(data)

	case MessageTypeSetAway:
		var data SetAwayData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse away data")
			return
		}
		c.handleSetAway(data)

	case MessageTypeReconnect:
		var data ReconnectData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse reconnect data")
			return
		}
		c.handleReconnect(data)

	case MessageTypeHistory:
		var data HistoryData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse history data")
			return
		}
		c.handleHistory(data)

	default:
		c.sendError("unknown_message_type", "unknown message type: "+msg.Type.String())
	}
}

func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("failed to create error message", "error", err)
		return
	}

	_ = c.SendMessage(errorMsg)
}

func (c *Connection) handleAuth(data AuthData) {
	c.logger.Info("auth request", "playerName", data.PlayerName)

	if data.PlayerName == "" {
		c.sendError("invalid_auth", "player name required")
		return
	}

	c.SetPlayer(data.PlayerName)

	response, _ := NewMessage(MessageTypeAuthResponse, AuthResponseData{
		Success:  true,
		PlayerID: data.PlayerName,
	})
	_ = c.SendMessage(response)
}

// resolveAuthed returns the loop for the named table after checking that the
// client has authenticated.
func (c *Connection) resolveAuthed(table string) (*game.Loop, string, bool) {
	playerID := c.GetPlayer()
	if playerID == "" {
		c.sendError("not_authenticated", "must authenticate first")
		return nil, "", false
	}
	loop, err := c.service.Resolve(table)
	if err != nil {
		c.sendError("table_not_found", err.Error())
		return nil, "", false
	}
	return loop, playerID, true
}

func (c *Connection) handleJoinTable(data JoinTableData) {
	c.logger.Info("join table request", "table", data.Table, "player", c.GetPlayer())

	loop, playerID, ok := c.resolveAuthed(data.Table)
	if !ok {
		return
	}

	token, err := loop.Connect(playerID, playerID)
	if err != nil {
		c.sendError("join_failed", err.Error())
		return
	}

	seatIdx := -1
	if data.Seat != nil {
		seatIdx = *data.Seat
	}
	seat, err := loop.Seat(token, seatIdx, data.BuyIn)
	if err != nil {
		c.sendError("join_failed", err.Error())
		return
	}

	c.SetSession(loop.Table().ID, token)

	snap, err := loop.Snapshot()
	if err != nil {
		c.sendError("join_failed", err.Error())
		return
	}
	response, _ := NewMessage(MessageTypeTableJoined, TableJoinedData{
		TableID: loop.Table().ID,
		Seat:    seat,
		Token:   token,
		State:   snap,
	})
	_ = c.SendMessage(response)
}

func (c *Connection) handleLeaveTable(data LeaveTableData) {
	c.logger.Info("leave table request", "table", data.Table, "player", c.GetPlayer())

	loop, _, ok := c.resolveAuthed(data.Table)
	if !ok {
		return
	}

	returned, err := loop.StandUp(c.GetToken())
	if err != nil {
		c.sendError("leave_failed", err.Error())
		return
	}

	tableID := loop.Table().ID
	c.SetSession("", "")

	response, _ := NewMessage(MessageTypeTableLeft, TableLeftData{
		TableID:  tableID,
		Returned: returned,
	})
	_ = c.SendMessage(response)
}

func (c *Connection) handleListTables() {
	response, _ := NewMessage(MessageTypeTableList, TableListData{
		Tables: c.service.ListTables(),
	})
	_ = c.SendMessage(response)
}

func (c *Connection) handleAction(data ActionData) {
	loop, _, ok := c.resolveAuthed(data.Table)
	if !ok {
		return
	}

	action, ok := game.ParseAction(data.Action)
	if !ok {
		c.sendError("invalid_action", "unknown action: "+data.Action)
		return
	}

	if err := loop.Act(c.GetToken(), action, data.Amount, data.Seq); err != nil {
		c.sendError("action_rejected", err.Error())
		return
	}
	// The table broadcasts the resulting events.
}

func (c *Connection) handleRebuy(data RebuyData) {
	loop, _, ok := c.resolveAuthed(data.Table)
	if !ok {
		return
	}

	if err := loop.Rebuy(c.GetToken(), data.Amount); err != nil {
		c.sendError("rebuy_rejected", err.Error())
	}
}

func (c *Connection) handleSetAway(data SetAwayData) {
	loop, _, ok := c.resolveAuthed(data.Table)
	if !ok {
		return
	}

	if err := loop.SetAway(c.GetToken(), data.Away); err != nil {
		c.sendError("away_rejected", err.Error())
	}
}

func (c *Connection) handleReconnect(data ReconnectData) {
	loop, _, ok := c.resolveAuthed(data.Table)
	if !ok {
		return
	}

	state, err := loop.Reconnect(data.Token)
	if err != nil {
		c.sendError("reconnect_failed", err.Error())
		return
	}

	c.SetSession(loop.Table().ID, data.Token)

	response, _ := NewMessage(MessageTypeReconnectState, state)
	_ = c.SendMessage(response)
}

func (c *Connection) handleHistory(data HistoryData) {
	loop, _, ok := c.resolveAuthed(data.Table)
	if !ok {
		return
	}

	entries, err := loop.History()
	if err != nil {
		c.sendError("history_failed", err.Error())
		return
	}

	response, _ := NewMessage(MessageTypeHistoryState, HistoryStateData{
		TableID: loop.Table().ID,
		Entries: entries,
	})
	_ = c.SendMessage(response)
}
