package codec

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	NameMsgpack = "msgpack"
	NameJSON    = "json"
)

// Codec serializes notification frames on the wire.
type Codec interface {
	Name() string
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string { return NameMsgpack }

func (msgpackCodec) Marshal(v interface{}) ([]byte, error) { return msgpack.Marshal(v) }

func (msgpackCodec) Unmarshal(data []byte, v interface{}) error { return msgpack.Unmarshal(data, v) }

type jsonCodec struct{}

func (jsonCodec) Name() string { return NameJSON }

func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

// Msgpack returns the default codec.
func Msgpack() Codec { return msgpackCodec{} }

// JSON returns a codec producing human-readable frames.
func JSON() Codec { return jsonCodec{} }

// ByName resolves a codec name. Empty selects msgpack.
func ByName(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameMsgpack:
		return Msgpack(), nil
	case NameJSON:
		return JSON(), nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}
