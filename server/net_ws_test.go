package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"kurve/game"
	"kurve/protocol"
)

func newTestServer(t *testing.T, reg *Registry) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.Handle("/ws", NewWSHandler(reg, nil))
	mux.HandleFunc("/admin/config", HandleAdminConfig(reg))
	mux.HandleFunc("/metrics", HandleMetrics(reg))
	mux.HandleFunc("/lobbies", HandleLobbies(reg))
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

type wsClient struct {
	conn  *websocket.Conn
	codec protocol.Codec
	ack   uint64
}

func dial(t *testing.T, ts *httptest.Server, codec protocol.Codec) *wsClient {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?codec=" + codec.Name()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &wsClient{conn: conn, codec: codec}
}

func (c *wsClient) send(t *testing.T, typ string, payload any) uint64 {
	t.Helper()
	c.ack++
	b, err := c.codec.Encode(typ, c.ack, payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	frame := websocket.TextMessage
	if c.codec.Binary() {
		frame = websocket.BinaryMessage
	}
	if err := c.conn.WriteMessage(frame, b); err != nil {
		t.Fatalf("write: %v", err)
	}
	return c.ack
}

// readUntil skips messages until one of the given type arrives.
func (c *wsClient) readUntil(t *testing.T, typ string) protocol.Envelope {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		_ = c.conn.SetReadDeadline(deadline)
		frame, b, err := c.conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		if c.codec.Binary() != (frame == websocket.BinaryMessage) {
			t.Fatalf("frame type %d does not match codec %s", frame, c.codec.Name())
		}
		env, err := c.codec.DecodeEnvelope(b)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if env.T == typ {
			return env
		}
	}
}

func (c *wsClient) lobbyReply(t *testing.T, typ string, ack uint64) protocol.LobbyReply {
	t.Helper()
	env := c.readUntil(t, typ)
	if env.Ack != ack {
		t.Fatalf("ack = %d, want %d", env.Ack, ack)
	}
	r, err := protocol.DecodePayload[protocol.LobbyReply](c.codec, env)
	if err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	return r
}

func TestWebsocketCreateAndJoin(t *testing.T) {
	reg := newTestRegistry(t, game.DefaultTuning())
	ts := newTestServer(t, reg)

	host := dial(t, ts, protocol.JSON)
	ack := host.send(t, protocol.MsgCreateLobby, protocol.CreateLobby{PlayerName: "ada"})
	created := host.lobbyReply(t, protocol.MsgCreateLobby, ack)
	if !created.Success || len(created.LobbyCode) != codeLength || created.LobbyData == nil {
		t.Fatalf("unexpected create reply: %+v", created)
	}
	if !created.LobbyData.Players[0].IsHost || created.LobbyData.Players[0].LeftKeyLabel == "" {
		t.Fatalf("creator should be host with a key binding: %+v", created.LobbyData.Players[0])
	}

	guest := dial(t, ts, protocol.Msgpack)
	ack = guest.send(t, protocol.MsgJoinLobby, protocol.JoinLobby{
		LobbyCode:  strings.ToLower(created.LobbyCode),
		PlayerName: "bob",
	})
	joined := guest.lobbyReply(t, protocol.MsgJoinLobby, ack)
	if !joined.Success || joined.LobbyData.PlayerCount != 2 {
		t.Fatalf("unexpected join reply: %+v", joined)
	}

	env := host.readUntil(t, protocol.MsgPlayerJoined)
	pj, _ := protocol.DecodePayload[protocol.PlayerJoined](host.codec, env)
	if pj.Player.ID != joined.PlayerID {
		t.Fatalf("playerJoined = %+v", pj.Player)
	}

	guest.conn.Close()
	env = host.readUntil(t, protocol.MsgPlayerLeft)
	pl, _ := protocol.DecodePayload[protocol.PlayerLeft](host.codec, env)
	if pl.PlayerID != joined.PlayerID {
		t.Fatalf("disconnect should be an implicit leave, got %+v", pl)
	}
}

func TestWebsocketJoinErrors(t *testing.T) {
	tun := game.DefaultTuning()
	tun.MaxPlayers = 2
	reg := newTestRegistry(t, tun)
	ts := newTestServer(t, reg)

	c := dial(t, ts, protocol.JSON)
	ack := c.send(t, protocol.MsgJoinLobby, protocol.JoinLobby{LobbyCode: "ZZZZZZ", PlayerName: "ada"})
	if r := c.lobbyReply(t, protocol.MsgJoinLobby, ack); r.Success || r.Error != protocol.ErrTextLobbyNotFound {
		t.Fatalf("expected not found, got %+v", r)
	}
	ack = c.send(t, protocol.MsgCreateLobby, protocol.CreateLobby{PlayerName: "   "})
	if r := c.lobbyReply(t, protocol.MsgCreateLobby, ack); r.Success || r.Error != protocol.ErrTextBadRequest {
		t.Fatalf("expected invalid request, got %+v", r)
	}

	ack = c.send(t, protocol.MsgCreateLobby, protocol.CreateLobby{PlayerName: "ada"})
	code := c.lobbyReply(t, protocol.MsgCreateLobby, ack).LobbyCode

	second := dial(t, ts, protocol.JSON)
	ack = second.send(t, protocol.MsgJoinLobby, protocol.JoinLobby{LobbyCode: code, PlayerName: "bob"})
	if r := second.lobbyReply(t, protocol.MsgJoinLobby, ack); !r.Success {
		t.Fatalf("second join failed: %+v", r)
	}
	third := dial(t, ts, protocol.JSON)
	ack = third.send(t, protocol.MsgJoinLobby, protocol.JoinLobby{LobbyCode: code, PlayerName: "cy"})
	if r := third.lobbyReply(t, protocol.MsgJoinLobby, ack); r.Success || r.Error != protocol.ErrTextLobbyFull {
		t.Fatalf("expected lobby full, got %+v", r)
	}
}

func TestWebsocketCreateLeavesPreviousLobby(t *testing.T) {
	reg := newTestRegistry(t, game.DefaultTuning())
	ts := newTestServer(t, reg)

	c := dial(t, ts, protocol.JSON)
	ack := c.send(t, protocol.MsgCreateLobby, protocol.CreateLobby{PlayerName: "ada"})
	first := c.lobbyReply(t, protocol.MsgCreateLobby, ack).LobbyCode
	ack = c.send(t, protocol.MsgCreateLobby, protocol.CreateLobby{PlayerName: "ada"})
	second := c.lobbyReply(t, protocol.MsgCreateLobby, ack).LobbyCode
	if first == second {
		t.Fatalf("expected a fresh lobby")
	}
	waitFor(t, "old lobby removed", func() bool { return reg.Get(first) == nil })
	if reg.Len() != 1 {
		t.Fatalf("registry has %d lobbies, want 1", reg.Len())
	}
}

func TestWebsocketPingPong(t *testing.T) {
	reg := newTestRegistry(t, game.DefaultTuning())
	ts := newTestServer(t, reg)

	c := dial(t, ts, protocol.Msgpack)
	c.send(t, protocol.MsgPing, protocol.Ping{ClientTime: 12345})
	env := c.readUntil(t, protocol.MsgPong)
	pong, err := protocol.DecodePayload[protocol.Pong](c.codec, env)
	if err != nil {
		t.Fatalf("decode pong: %v", err)
	}
	if pong.ClientTime != 12345 || pong.ServerTimestamp == 0 {
		t.Fatalf("unexpected pong: %+v", pong)
	}
}

func TestWebsocketGameFlow(t *testing.T) {
	tun := game.DefaultTuning()
	tun.RoundsToWin = 1
	reg := newTestRegistry(t, tun)
	reg.tickEvery = 2 * time.Millisecond
	ts := newTestServer(t, reg)

	host := dial(t, ts, protocol.JSON)
	ack := host.send(t, protocol.MsgCreateLobby, protocol.CreateLobby{PlayerName: "ada"})
	code := host.lobbyReply(t, protocol.MsgCreateLobby, ack).LobbyCode
	guest := dial(t, ts, protocol.JSON)
	ack = guest.send(t, protocol.MsgJoinLobby, protocol.JoinLobby{LobbyCode: code, PlayerName: "bob"})
	guest.lobbyReply(t, protocol.MsgJoinLobby, ack)

	guest.send(t, protocol.MsgPlayerInput, protocol.PlayerInput{Left: true})
	host.send(t, protocol.MsgSetReady, protocol.SetReady{Ready: true})
	guest.send(t, protocol.MsgSetReady, protocol.SetReady{Ready: true})
	host.readUntil(t, protocol.MsgGameCanStart)

	// 非房主的开始请求被静默忽略
	guest.send(t, protocol.MsgStartGame, nil)
	host.send(t, protocol.MsgStartGame, nil)
	env := guest.readUntil(t, protocol.MsgGameStarted)
	gs, err := protocol.DecodePayload[protocol.GameStarted](guest.codec, env)
	if err != nil {
		t.Fatalf("decode gameStarted: %v", err)
	}
	if gs.SimulationState.Phase != "playing" || len(gs.Players) != 2 {
		t.Fatalf("unexpected gameStarted: %+v", gs)
	}

	env = host.readUntil(t, protocol.MsgGameStateUpdate)
	state, _ := protocol.DecodePayload[protocol.GameState](host.codec, env)
	if state.TickCount < 1 || len(state.Players) != 2 {
		t.Fatalf("unexpected state: %+v", state)
	}

	env = host.readUntil(t, protocol.MsgRoundEnded)
	re, _ := protocol.DecodePayload[protocol.RoundEnded](host.codec, env)
	if !re.GameOver {
		t.Fatalf("expected game over with roundsToWin=1: %+v", re)
	}

	host.send(t, protocol.MsgReturnToLobby, nil)
	env = host.readUntil(t, protocol.MsgLobbyUpdated)
	lu, _ := protocol.DecodePayload[protocol.LobbyUpdated](host.codec, env)
	if lu.LobbyData.Phase != "lobby" {
		t.Fatalf("phase after return = %s", lu.LobbyData.Phase)
	}
}

func TestAdminConfigEndpoint(t *testing.T) {
	reg := newTestRegistry(t, game.DefaultTuning())
	ts := newTestServer(t, reg)
	s, _ := reg.Create()
	ids, _ := joinN(t, s, 2)

	res, err := http.Get(ts.URL + "/admin/config?lobby=" + s.Code)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var cur adminConfig
	json.NewDecoder(res.Body).Decode(&cur)
	res.Body.Close()
	if res.StatusCode != http.StatusOK || cur.RoundsToWin == nil || *cur.RoundsToWin != 5 {
		t.Fatalf("unexpected config: %d %+v", res.StatusCode, cur)
	}

	post := func(body string) *http.Response {
		t.Helper()
		res, err := http.Post(ts.URL+"/admin/config?lobby="+s.Code, "application/json", bytes.NewBufferString(body))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		return res
	}
	res = post(`{"roundsToWin":3,"speed":2.5}`)
	json.NewDecoder(res.Body).Decode(&cur)
	res.Body.Close()
	if res.StatusCode != http.StatusOK || *cur.RoundsToWin != 3 || *cur.Speed != 2.5 {
		t.Fatalf("update failed: %d %+v", res.StatusCode, cur)
	}
	res = post(`{"speed":-1}`)
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid settings status = %d", res.StatusCode)
	}

	for _, id := range ids {
		s.SetReady(id, true)
	}
	s.StartGame(ids[0])
	res = post(`{"roundsToWin":2}`)
	res.Body.Close()
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("status outside lobby = %d, want 409", res.StatusCode)
	}

	res, _ = http.Get(ts.URL + "/admin/config?lobby=NOPE00")
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown lobby status = %d", res.StatusCode)
	}
}

func TestLobbiesAndMetricsEndpoints(t *testing.T) {
	reg := newTestRegistry(t, game.DefaultTuning())
	ts := newTestServer(t, reg)
	s, _ := reg.Create()
	joinN(t, s, 1)

	res, err := http.Get(ts.URL + "/lobbies")
	if err != nil {
		t.Fatalf("get lobbies: %v", err)
	}
	var list []LobbyInfo
	json.NewDecoder(res.Body).Decode(&list)
	res.Body.Close()
	if len(list) != 1 || list[0].Code != s.Code || list[0].Players != 1 {
		t.Fatalf("unexpected lobbies: %+v", list)
	}

	res, err = http.Get(ts.URL + "/metrics?lobby=" + s.Code)
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	var payload map[string]any
	json.NewDecoder(res.Body).Decode(&payload)
	res.Body.Close()
	metrics, ok := payload["metrics"].(map[string]any)
	if !ok {
		t.Fatalf("missing metrics: %v", payload)
	}
	if _, ok := metrics["broadcasts"]; !ok {
		t.Fatalf("metrics missing broadcasts: %v", metrics)
	}
}
