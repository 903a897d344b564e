package server

import (
	"encoding/json"
	"time"

	"github.com/raydebug/puretexaspoker-sub007/internal/game"
)

// MessageType identifies a WebSocket message.
type MessageType string

const (
	// Client to server messages
	MessageTypeAuth       MessageType = "auth"
	MessageTypeJoinTable  MessageType = "join_table"
	MessageTypeLeaveTable MessageType = "leave_table"
	MessageTypeListTables MessageType = "list_tables"
	MessageTypeAction     MessageType = "action"
	MessageTypeRebuy      MessageType = "rebuy"
	MessageTypeSetAway    MessageType = "set_away"
	MessageTypeReconnect  MessageType = "reconnect"
	MessageTypeHistory    MessageType = "history"

	// Server to client messages
	MessageTypeAuthResponse   MessageType = "auth_response"
	MessageTypeError          MessageType = "error"
	MessageTypeTableJoined    MessageType = "table_joined"
	MessageTypeTableLeft      MessageType = "table_left"
	MessageTypeTableList      MessageType = "table_list"
	MessageTypeHistoryState   MessageType = "history_state"
	MessageTypeReconnectState MessageType = "reconnect_state"
)

func (mt MessageType) String() string {
	return string(mt)
}

// Message is the wire envelope. Game events are forwarded with their event
// type as the message type and the event itself as data.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage wraps a payload with the current timestamp.
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type AuthData struct {
	PlayerName string `json:"playerName"`
}

type JoinTableData struct {
	Table string `json:"table"` // table ID or name
	Seat  *int   `json:"seat,omitempty"`
	BuyIn int    `json:"buyIn"`
}

type LeaveTableData struct {
	Table string `json:"table"`
}

type ActionData struct {
	Table  string `json:"table"`
	Action string `json:"action"`
	Amount int    `json:"amount,omitempty"`
	Seq    int    `json:"seq"` // last history seq seen, -1 to skip the race check
}

type RebuyData struct {
	Table  string `json:"table"`
	Amount int    `json:"amount"`
}

type SetAwayData struct {
	Table string `json:"table"`
	Away  bool   `json:"away"`
}

type ReconnectData struct {
	Table string `json:"table"`
	Token string `json:"token"`
}

type HistoryData struct {
	Table string `json:"table"`
}

// Server → Client Messages

type AuthResponseData struct {
	Success  bool   `json:"success"`
	PlayerID string `json:"playerId,omitempty"`
	Error    string `json:"error,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type TableInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
	Stakes      string `json:"stakes"`
	Phase       string `json:"phase"`
}

type TableListData struct {
	Tables []TableInfo `json:"tables"`
}

type TableJoinedData struct {
	TableID string             `json:"tableId"`
	Seat    int                `json:"seat"`
	Token   string             `json:"token"`
	State   game.TableSnapshot `json:"state"`
}

type TableLeftData struct {
	TableID  string `json:"tableId"`
	Returned int    `json:"returned"`
}

type HistoryStateData struct {
	TableID string                    `json:"tableId"`
	Entries []game.ActionHistoryEntry `json:"entries"`
}
