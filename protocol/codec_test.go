package protocol

import (
	"encoding/json"
	"testing"
)

func TestCodecsCarryAckAndPayload(t *testing.T) {
	for _, c := range []Codec{JSON, Msgpack} {
		t.Run(c.Name(), func(t *testing.T) {
			b, err := c.Encode(MsgJoinLobby, 42, JoinLobby{LobbyCode: "ABC234", PlayerName: "ada", Color: "#ff0000"})
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			env, err := c.DecodeEnvelope(b)
			if err != nil {
				t.Fatalf("decode envelope: %v", err)
			}
			if env.T != MsgJoinLobby || env.Ack != 42 {
				t.Fatalf("envelope = (%q,%d), want (%q,42)", env.T, env.Ack, MsgJoinLobby)
			}
			req, err := DecodePayload[JoinLobby](c, env)
			if err != nil {
				t.Fatalf("decode payload: %v", err)
			}
			if req.LobbyCode != "ABC234" || req.PlayerName != "ada" || req.Color != "#ff0000" {
				t.Fatalf("payload mismatch: %+v", req)
			}
		})
	}
}

func TestEncodeWithoutPayload(t *testing.T) {
	for _, c := range []Codec{JSON, Msgpack} {
		b, err := c.Encode(MsgGameCanStart, 0, nil)
		if err != nil {
			t.Fatalf("%s encode: %v", c.Name(), err)
		}
		env, err := c.DecodeEnvelope(b)
		if err != nil {
			t.Fatalf("%s decode: %v", c.Name(), err)
		}
		if env.T != MsgGameCanStart || len(env.P) != 0 {
			t.Fatalf("%s: unexpected envelope %+v", c.Name(), env)
		}
		if _, err := DecodePayload[SetReady](c, env); err == nil {
			t.Fatalf("%s: expected error decoding empty payload", c.Name())
		}
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := JSON.DecodeEnvelope(nil); err == nil {
		t.Fatalf("expected error for empty message")
	}
	if _, err := JSON.DecodeEnvelope([]byte(`{"p":{}}`)); err == nil {
		t.Fatalf("expected error for missing type")
	}
	if _, err := JSON.Encode("", 0, nil); err == nil {
		t.Fatalf("expected error for empty type")
	}
	if _, err := Msgpack.DecodeEnvelope([]byte{0xc1}); err == nil {
		t.Fatalf("expected error for invalid msgpack")
	}
}

func TestJSONEnvelopeShape(t *testing.T) {
	b, err := JSON.Encode(MsgCountdownUpdate, 0, CountdownUpdate{Count: 3})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(raw["t"]) != `"countdownUpdate"` {
		t.Fatalf("t = %s", raw["t"])
	}
	if _, ok := raw["ack"]; ok {
		t.Fatalf("zero ack should be omitted")
	}
	if string(raw["p"]) != `{"count":3}` {
		t.Fatalf("p = %s", raw["p"])
	}
}

func TestCodecByName(t *testing.T) {
	if CodecByName("MsgPack") != Msgpack {
		t.Fatalf("expected msgpack codec")
	}
	if CodecByName("") != JSON || CodecByName("xml") != JSON {
		t.Fatalf("expected json fallback")
	}
}
