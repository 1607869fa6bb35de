package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrEmptyFrame = errors.New("empty frame")
	ErrMalformed  = errors.New("malformed message")
)

// emptyPayload 载荷缺失：JSON 中没有 data 或为 null，msgpack 中为 nil
func emptyPayload(raw []byte) bool {
	return len(raw) == 0 || (len(raw) == 1 && raw[0] == 0xc0)
}

// Frame 一帧待写出的数据，MessageType 为 websocket.TextMessage 或 BinaryMessage
type Frame struct {
	MessageType int
	Data        []byte
}

// Codec 消息信封编解码：{type, data}
type Codec interface {
	Name() string
	Encode(kind string, payload any) (Frame, error)
	// Decode 只解出类型与原始载荷，载荷按类型再交给 Unmarshal
	Decode(b []byte) (kind string, raw []byte, err error)
	Unmarshal(raw []byte, v any) error
}

// CodecByName 按名称选择编解码；空名称为 JSON
func CodecByName(name string) (Codec, bool) {
	switch name {
	case "", "json":
		return JSONCodec{}, true
	case "msgpack":
		return MsgpackCodec{}, true
	default:
		return nil, false
	}
}

// JSONCodec 文本帧
type JSONCodec struct{}

type jsonEnvelopeOut struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type jsonEnvelopeIn struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Encode(kind string, payload any) (Frame, error) {
	if kind == "" {
		return Frame{}, errors.New("encode: empty message type")
	}
	b, err := json.Marshal(jsonEnvelopeOut{Type: kind, Data: payload})
	if err != nil {
		return Frame{}, fmt.Errorf("encode %s: %w", kind, err)
	}
	return Frame{MessageType: websocket.TextMessage, Data: b}, nil
}

func (JSONCodec) Decode(b []byte) (string, []byte, error) {
	if len(b) == 0 {
		return "", nil, ErrEmptyFrame
	}
	var env jsonEnvelopeIn
	if err := json.Unmarshal(b, &env); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return "", nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	if string(env.Data) == "null" {
		env.Data = nil
	}
	return env.Type, env.Data, nil
}

func (JSONCodec) Unmarshal(raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// MsgpackCodec 二进制帧，连接时通过 ?codec=msgpack 选择
type MsgpackCodec struct{}

type msgpackEnvelopeOut struct {
	Type string `msgpack:"type"`
	Data any    `msgpack:"data"`
}

type msgpackEnvelopeIn struct {
	Type string             `msgpack:"type"`
	Data msgpack.RawMessage `msgpack:"data"`
}

func (MsgpackCodec) Name() string { return "msgpack" }

func (MsgpackCodec) Encode(kind string, payload any) (Frame, error) {
	if kind == "" {
		return Frame{}, errors.New("encode: empty message type")
	}
	b, err := msgpack.Marshal(&msgpackEnvelopeOut{Type: kind, Data: payload})
	if err != nil {
		return Frame{}, fmt.Errorf("encode %s: %w", kind, err)
	}
	return Frame{MessageType: websocket.BinaryMessage, Data: b}, nil
}

func (MsgpackCodec) Decode(b []byte) (string, []byte, error) {
	if len(b) == 0 {
		return "", nil, ErrEmptyFrame
	}
	var env msgpackEnvelopeIn
	if err := msgpack.Unmarshal(b, &env); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return "", nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return env.Type, env.Data, nil
}

func (MsgpackCodec) Unmarshal(raw []byte, v any) error {
	if emptyPayload(raw) {
		return nil
	}
	if err := msgpack.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
