package server

import "kurve/protocol"

// Conn 房间向玩家下发消息的出口。
// Send 不得阻塞房间协程：队列满时返回错误并丢弃本条。
type Conn interface {
	Codec() protocol.Codec
	Send(b []byte) error
}
