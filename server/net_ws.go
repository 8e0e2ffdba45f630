package server

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"kurve/game"
	"kurve/protocol"
)

const (
	writeWait    = 5 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 25 * time.Second
	maxNameLen   = 24
)

var ErrSendQueueFull = errors.New("send queue full")

// ClientConn 一个 WebSocket 连接：读协程解析请求，写协程按序发送。
// 同一时刻最多属于一个房间。
type ClientConn struct {
	id    string
	ws    *websocket.Conn
	codec protocol.Codec
	reg   *Registry

	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	// 以下字段仅由读协程访问
	session  *Session
	playerID string
}

func NewClientConn(ws *websocket.Conn, codec protocol.Codec, reg *Registry) *ClientConn {
	return &ClientConn{
		id:     uuid.NewString(),
		ws:     ws,
		codec:  codec,
		reg:    reg,
		send:   make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (c *ClientConn) Codec() protocol.Codec { return c.codec }

// Send 将要发送的消息压入队列（非阻塞，满则丢弃）
func (c *ClientConn) Send(b []byte) error {
	select {
	case <-c.closed:
		return websocket.ErrCloseSent
	default:
	}
	select {
	case c.send <- b:
		return nil
	default:
		// 为了实时性，丢弃本条（防止阻塞 Tick）
		return ErrSendQueueFull
	}
}

// Close 通知写协程退出并关闭底层连接；send 通道不关闭，避免并发写入 panic
func (c *ClientConn) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.ws.Close()
	})
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定期发送 ping
func (c *ClientConn) writePump() {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		c.Close()
	}()
	frame := websocket.TextMessage
	if c.codec.Binary() {
		frame = websocket.BinaryMessage
	}
	for {
		select {
		case <-c.closed:
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(frame, msg); err != nil {
				return
			}
		case <-ping.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取客户端请求并分发；退出即视为离开房间
func (c *ClientConn) readPump() {
	defer c.Close()
	defer c.leaveCurrent()
	c.ws.SetReadLimit(1 << 20) // 1MB
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				Log.Debugw("read failed", "conn", c.id, "err", err)
			}
			return
		}
		env, err := c.codec.DecodeEnvelope(payload)
		if err != nil {
			Log.Debugw("bad envelope", "conn", c.id, "err", err)
			continue
		}
		c.dispatch(env)
	}
}

func (c *ClientConn) dispatch(env protocol.Envelope) {
	switch env.T {
	case protocol.MsgCreateLobby:
		c.handleCreate(env)
	case protocol.MsgJoinLobby:
		c.handleJoin(env)
	case protocol.MsgLeaveLobby:
		c.leaveCurrent()
	case protocol.MsgSetReady:
		req, err := protocol.DecodePayload[protocol.SetReady](c.codec, env)
		if err != nil || c.session == nil {
			return
		}
		_ = c.session.SetReady(c.playerID, req.Ready)
	case protocol.MsgStartGame:
		if c.session != nil {
			_ = c.session.StartGame(c.playerID)
		}
	case protocol.MsgStartNextRound:
		if c.session != nil {
			_ = c.session.StartNextRound(c.playerID)
		}
	case protocol.MsgReturnToLobby:
		if c.session != nil {
			_ = c.session.ReturnToLobby(c.playerID)
		}
	case protocol.MsgPlayerInput:
		req, err := protocol.DecodePayload[protocol.PlayerInput](c.codec, env)
		if err != nil || c.session == nil {
			return
		}
		c.session.Input(c.playerID, game.Intent{Left: req.Left, Right: req.Right})
	case protocol.MsgPing:
		req, _ := protocol.DecodePayload[protocol.Ping](c.codec, env)
		c.reply(protocol.MsgPong, env.Ack, protocol.Pong{
			ClientTime:      req.ClientTime,
			ServerTimestamp: time.Now().UnixMilli(),
		})
	default:
		Log.Debugw("unknown message type", "conn", c.id, "type", env.T)
	}
}

func (c *ClientConn) handleCreate(env protocol.Envelope) {
	req, err := protocol.DecodePayload[protocol.CreateLobby](c.codec, env)
	name := cleanName(req.PlayerName)
	if err != nil || name == "" {
		c.replyLobby(env, protocol.LobbyReply{Error: protocol.ErrTextBadRequest})
		return
	}
	c.leaveCurrent()
	s, err := c.reg.Create()
	if err != nil {
		Log.Errorw("create lobby failed", "conn", c.id, "err", err)
		c.replyLobby(env, protocol.LobbyReply{Error: protocol.ErrTextUnavailable})
		return
	}
	res, err := s.Join(name, req.Color, c)
	if err != nil {
		s.Close()
		c.replyLobby(env, protocol.LobbyReply{Error: joinErrorText(err)})
		return
	}
	c.session, c.playerID = s, res.PlayerID
	c.replyLobby(env, protocol.LobbyReply{
		Success:   true,
		LobbyCode: s.Code,
		PlayerID:  res.PlayerID,
		LobbyData: &res.Lobby,
	})
}

func (c *ClientConn) handleJoin(env protocol.Envelope) {
	req, err := protocol.DecodePayload[protocol.JoinLobby](c.codec, env)
	name := cleanName(req.PlayerName)
	if err != nil || name == "" || req.LobbyCode == "" {
		c.replyLobby(env, protocol.LobbyReply{Error: protocol.ErrTextBadRequest})
		return
	}
	c.leaveCurrent()
	s := c.reg.Get(req.LobbyCode)
	if s == nil {
		c.replyLobby(env, protocol.LobbyReply{Error: protocol.ErrTextLobbyNotFound})
		return
	}
	res, err := s.Join(name, req.Color, c)
	if err != nil {
		Log.Debugw("join rejected", "conn", c.id, "lobby", s.Code, "err", err)
		c.replyLobby(env, protocol.LobbyReply{Error: joinErrorText(err)})
		return
	}
	c.session, c.playerID = s, res.PlayerID
	c.replyLobby(env, protocol.LobbyReply{
		Success:   true,
		LobbyCode: s.Code,
		PlayerID:  res.PlayerID,
		LobbyData: &res.Lobby,
	})
}

// leaveCurrent 离开当前房间（若有）
func (c *ClientConn) leaveCurrent() {
	if c.session == nil {
		return
	}
	_ = c.session.Leave(c.playerID)
	c.session, c.playerID = nil, ""
}

func (c *ClientConn) replyLobby(env protocol.Envelope, r protocol.LobbyReply) {
	c.reply(env.T, env.Ack, r)
}

// reply 直接回复请求者，不经过房间广播
func (c *ClientConn) reply(t string, ack uint64, payload any) {
	b, err := c.codec.Encode(t, ack, payload)
	if err != nil {
		Log.Errorw("encode reply failed", "conn", c.id, "type", t, "err", err)
		return
	}
	_ = c.Send(b)
}

func joinErrorText(err error) string {
	switch {
	case errors.Is(err, game.ErrLobbyFull):
		return protocol.ErrTextLobbyFull
	case errors.Is(err, game.ErrInvalidPhase):
		return protocol.ErrTextInProgress
	case errors.Is(err, ErrSessionClosed):
		return protocol.ErrTextLobbyNotFound
	default:
		return protocol.ErrTextUnavailable
	}
}

func cleanName(name string) string {
	name = strings.TrimSpace(name)
	if r := []rune(name); len(r) > maxNameLen {
		name = string(r[:maxNameLen])
	}
	return name
}

// WSHandler WebSocket 接入：/ws?codec=msgpack 使用二进制帧
type WSHandler struct {
	reg      *Registry
	upgrader websocket.Upgrader
}

// NewWSHandler allowedOrigins 为空时允许所有来源
func NewWSHandler(reg *Registry, allowedOrigins []string) *WSHandler {
	h := &WSHandler{reg: reg}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, o := range allowedOrigins {
				if strings.EqualFold(o, origin) {
					return true
				}
			}
			return false
		},
	}
	return h
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnw("upgrade error", "remote", r.RemoteAddr, "err", err)
		return
	}
	codec := protocol.CodecByName(r.URL.Query().Get("codec"))
	client := NewClientConn(ws, codec, h.reg)
	Log.Debugw("client connected", "conn", client.id, "remote", r.RemoteAddr, "codec", codec.Name())

	go client.writePump()
	go client.readPump()
}
