package main

import (
	"encoding/binary"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 60
	maxNameLen        = 16
	maxColorLen       = 16
)

// binaryInputLen is the fixed layout of a compact input frame:
// [0x01, seq uint32 BE, mx int16 BE, my int16 BE, flags]
// mx/my carry the move vector scaled by 1000.
const binaryInputLen = 10

// Client represents a WebSocket connection. The engine never sees a
// message this layer has not validated and typed.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	playerID   string
	roomID     string
	remoteAddr string
	msgCount   int
	msgResetAt time.Time
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		remoteAddr: remoteAddr,
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws error: %v", err)
			}
			break
		}

		// Rate limiting: inputs beyond the allowed rate are simply not
		// forwarded; a flooding connection is dropped.
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			log.Printf("rate limit exceeded for %s, disconnecting", c.remoteAddr)
			break
		}

		if msgType == websocket.BinaryMessage && len(message) == binaryInputLen && message[0] == 0x01 {
			c.handleBinaryInput(message)
		} else {
			c.handleMessage(message)
		}
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// 0xFF prefix marks a binary frame queued by SendBinary
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("marshal error: %v", err)
		return
	}
	c.sendRaw(data)
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message
func (c *Client) SendBinary(data []byte) {
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF
	copy(msg[1:], data)
	c.sendRaw(msg)
}

func (c *Client) sendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope)
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return
	}

	switch env.T {
	case MsgJoin:
		c.handleJoin(env.D)
	case MsgReady:
		c.handleReady(env.D)
	case MsgInput:
		c.handleInput(env.D)
	case MsgLeave:
		c.handleLeave()
	case MsgBoard:
		c.handleBoard()
	}
}

func (c *Client) handleJoin(data json.RawMessage) {
	if c.roomID != "" {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "already joined"}})
		return
	}
	var msg JoinMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	name := msg.Name
	if name == "" {
		name = "Player"
	}
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}
	color := msg.Color
	if len(color) > maxColorLen {
		color = color[:maxColorLen]
	}

	room := c.hub.rooms.GetOrCreate(msg.Room)
	if room == nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "too many active rooms"}})
		return
	}

	player := room.Game.AddPlayer(name, color)
	if player == nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "room full"}})
		return
	}
	c.playerID = player.ID
	c.roomID = room.ID
	room.Game.SetClient(player.ID, c)

	c.SendJSON(Envelope{T: MsgWelcome, Data: WelcomeMsg{
		ID:     player.ID,
		Room:   room.ID,
		Seed:   room.Game.Seed(),
		GridW:  GridWidth,
		GridH:  GridHeight,
		Tuning: DefaultTuning(),
	}})
	c.SendJSON(Envelope{T: MsgBoardData, Data: room.Game.BoardView()})
	room.Game.BroadcastLobby(time.Now().UnixMilli())
}

func (c *Client) handleReady(data json.RawMessage) {
	if c.roomID == "" || c.playerID == "" {
		return
	}
	var msg ReadyMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	room := c.hub.rooms.Get(c.roomID)
	if room == nil {
		return
	}
	room.Game.HandleReady(c.playerID, msg.Ready, time.Now().UnixMilli())
}

func (c *Client) handleInput(data json.RawMessage) {
	if c.roomID == "" || c.playerID == "" {
		return
	}
	var msg InputMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	c.forwardInput(msg.Seq, msg.MX, msg.MY, msg.Dash)
}

// handleBinaryInput decodes a compact fixed-layout input frame
func (c *Client) handleBinaryInput(msg []byte) {
	if c.roomID == "" || c.playerID == "" {
		return
	}
	seq := binary.BigEndian.Uint32(msg[1:5])
	mx := float64(int16(binary.BigEndian.Uint16(msg[5:7]))) / 1000
	my := float64(int16(binary.BigEndian.Uint16(msg[7:9]))) / 1000
	dash := msg[9]&0x01 != 0
	c.forwardInput(seq, mx, my, dash)
}

// forwardInput clamps the move vector so the engine only ever sees a
// typed, pre-validated input.
func (c *Client) forwardInput(seq uint32, mx, my float64, dash bool) {
	room := c.hub.rooms.Get(c.roomID)
	if room == nil {
		return
	}
	move := Vec2{Clamp(mx, -1, 1), Clamp(my, -1, 1)}
	room.Game.HandleInput(c.playerID, seq, move, dash)
}

func (c *Client) handleLeave() {
	if c.roomID == "" {
		return
	}
	c.hub.rooms.RemovePlayer(c.roomID, c.playerID)
	c.roomID = ""
	c.playerID = ""
}

func (c *Client) handleBoard() {
	if c.roomID == "" {
		return
	}
	room := c.hub.rooms.Get(c.roomID)
	if room == nil {
		return
	}
	c.SendJSON(Envelope{T: MsgBoardData, Data: room.Game.BoardView()})
}
