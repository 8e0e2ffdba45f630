package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Envelope 解码后的消息外壳；P 为尚未解码的载荷（由同一 Codec 编码）
type Envelope struct {
	T   string
	Ack uint64
	P   []byte
}

// Codec 线上编码。JSON 走文本帧，msgpack 走二进制帧；两者字段名一致。
type Codec interface {
	Name() string
	Binary() bool
	Encode(t string, ack uint64, payload any) ([]byte, error)
	DecodeEnvelope(b []byte) (Envelope, error)
	Unmarshal(p []byte, out any) error
}

var (
	JSON    Codec = jsonCodec{}
	Msgpack Codec = msgpackCodec{}
)

// CodecByName 未识别的名字回退到 JSON
func CodecByName(name string) Codec {
	if strings.EqualFold(name, Msgpack.Name()) {
		return Msgpack
	}
	return JSON
}

func DecodePayload[T any](c Codec, env Envelope) (T, error) {
	var out T
	if len(env.P) == 0 {
		return out, fmt.Errorf("empty payload for type %q", env.T)
	}
	err := c.Unmarshal(env.P, &out)
	return out, err
}

type jsonCodec struct{}

type jsonEnvelope struct {
	T   string          `json:"t"`
	Ack uint64          `json:"ack,omitempty"`
	P   json.RawMessage `json:"p,omitempty"`
}

func (jsonCodec) Name() string { return "json" }
func (jsonCodec) Binary() bool { return false }

func (jsonCodec) Encode(t string, ack uint64, payload any) ([]byte, error) {
	if t == "" {
		return nil, fmt.Errorf("trying to encode envelope with empty type")
	}
	e := jsonEnvelope{T: t, Ack: ack}
	if payload != nil {
		pb, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		e.P = pb
	}
	return json.Marshal(e)
}

func (jsonCodec) DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, fmt.Errorf("decode envelope: empty message")
	}
	var e jsonEnvelope
	if err := json.Unmarshal(b, &e); err != nil {
		return Envelope{}, err
	}
	if e.T == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing type")
	}
	return Envelope{T: e.T, Ack: e.Ack, P: e.P}, nil
}

func (jsonCodec) Unmarshal(p []byte, out any) error {
	return json.Unmarshal(p, out)
}

type msgpackCodec struct{}

type msgpackEnvelope struct {
	T   string             `msgpack:"t"`
	Ack uint64             `msgpack:"ack,omitempty"`
	P   msgpack.RawMessage `msgpack:"p,omitempty"`
}

func (msgpackCodec) Name() string { return "msgpack" }
func (msgpackCodec) Binary() bool { return true }

func (c msgpackCodec) Encode(t string, ack uint64, payload any) ([]byte, error) {
	if t == "" {
		return nil, fmt.Errorf("trying to encode envelope with empty type")
	}
	e := msgpackEnvelope{T: t, Ack: ack}
	if payload != nil {
		pb, err := c.marshal(payload)
		if err != nil {
			return nil, err
		}
		e.P = pb
	}
	return msgpack.Marshal(&e)
}

// marshal 复用载荷上的 json 标签，保证两种编码字段名一致
func (msgpackCodec) marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (msgpackCodec) DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, fmt.Errorf("decode envelope: empty message")
	}
	var e msgpackEnvelope
	if err := msgpack.Unmarshal(b, &e); err != nil {
		return Envelope{}, err
	}
	if e.T == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing type")
	}
	return Envelope{T: e.T, Ack: e.Ack, P: e.P}, nil
}

func (msgpackCodec) Unmarshal(p []byte, out any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(p))
	dec.SetCustomStructTag("json")
	return dec.Decode(out)
}
