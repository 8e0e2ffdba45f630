package protocol

// 客户端 → 服务端
const (
	MsgCreateLobby    = "createLobby"
	MsgJoinLobby      = "joinLobby"
	MsgLeaveLobby     = "leaveLobby"
	MsgSetReady       = "setReady"
	MsgStartGame      = "startGame"
	MsgStartNextRound = "startNextRound"
	MsgReturnToLobby  = "returnToLobby"
	MsgPlayerInput    = "playerInput"
	MsgPing           = "ping"
)

// 服务端 → 客户端
const (
	MsgGameStateUpdate = "gameStateUpdate"
	MsgGameStarted     = "gameStarted"
	MsgCountdownUpdate = "countdownUpdate"
	MsgGameCanStart    = "gameCanStart"
	MsgPlayerJoined    = "playerJoined"
	MsgPlayerLeft      = "playerLeft"
	MsgLobbyUpdated    = "lobbyUpdated"
	MsgRoundEnded      = "roundEnded"
	MsgPong            = "pong"
	MsgError           = "error"
)

// 面向请求者的错误文案（仅回复给请求者，从不广播）
const (
	ErrTextLobbyFull     = "Lobby is full"
	ErrTextLobbyNotFound = "Lobby not found"
	ErrTextInProgress    = "Game already in progress"
	ErrTextBadRequest    = "Invalid request"
	ErrTextUnavailable   = "Failed to join lobby"
)

type CreateLobby struct {
	PlayerName string `json:"playerName"`
	Color      string `json:"color,omitempty"`
}

type JoinLobby struct {
	LobbyCode  string `json:"lobbyCode"`
	PlayerName string `json:"playerName"`
	Color      string `json:"color,omitempty"`
}

type SetReady struct {
	Ready bool `json:"ready"`
}

type PlayerInput struct {
	Left  bool `json:"left"`
	Right bool `json:"right"`
}

type Ping struct {
	ClientTime int64 `json:"clientTime"`
}

// LobbyReply createLobby / joinLobby 的应答，携带请求的 ack
type LobbyReply struct {
	Success   bool        `json:"success"`
	LobbyCode string      `json:"lobbyCode,omitempty"`
	PlayerID  string      `json:"playerId,omitempty"`
	LobbyData *LobbyState `json:"lobbyData,omitempty"`
	Error     string      `json:"error,omitempty"`
}

type LobbyState struct {
	ID          string        `json:"id"`
	PlayerCount int           `json:"playerCount"`
	MaxPlayers  int           `json:"maxPlayers"`
	Phase       string        `json:"phase"`
	Players     []LobbyPlayer `json:"players"`
}

type LobbyPlayer struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Color         string `json:"color"`
	IsReady       bool   `json:"isReady"`
	IsHost        bool   `json:"isHost"`
	LeftKeyLabel  string `json:"leftKeyLabel"`
	RightKeyLabel string `json:"rightKeyLabel"`
}

type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Point 轨迹点；Gap 为缺口后的第一个点
type Point struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Gap bool    `json:"gap,omitempty"`
}

type Score struct {
	PlayerID string `json:"playerId"`
	Rounds   int    `json:"rounds"`
}

type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type PlayerState struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	Position    Vec     `json:"position"`
	Rotation    float64 `json:"rotation"`
	Alive       bool    `json:"alive"`
	TrailPoints []Point `json:"trailPoints"`
}

// GameState 每个 Tick 广播的权威快照
type GameState struct {
	Phase           string        `json:"phase"`
	CurrentRound    int           `json:"currentRound"`
	RoundsToWin     int           `json:"roundsToWin"`
	Scores          []Score       `json:"scores"`
	ArenaDimensions Dimensions    `json:"arenaDimensions"`
	Players         []PlayerState `json:"players"`
	ServerTimestamp int64         `json:"serverTimestamp"`
	TickCount       int           `json:"tickCount"`
}

type GameStarted struct {
	SimulationState GameState     `json:"simulationState"`
	Players         []LobbyPlayer `json:"players"`
}

type CountdownUpdate struct {
	Count int `json:"count"`
}

type PlayerJoined struct {
	Player LobbyPlayer `json:"player"`
}

type PlayerLeft struct {
	PlayerID string `json:"playerId"`
}

type LobbyUpdated struct {
	LobbyData LobbyState `json:"lobbyData"`
}

type RoundEnded struct {
	WinnerID string `json:"winnerId,omitempty"`
	Round    int    `json:"round"`
	GameOver bool   `json:"gameOver"`
}

type Pong struct {
	ClientTime      int64 `json:"clientTime"`
	ServerTimestamp int64 `json:"serverTimestamp"`
}

type Error struct {
	Message string `json:"message"`
}
