package codec

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

// JSON returns the default codec: indented JSON in ".json" files
func JSON() *Codec {
	return &Codec{name: FormatJSON, ext: ".json", f: jsonFormat{}}
}

// Msgpack returns the compact binary codec: MessagePack in ".mpk" files
func Msgpack() *Codec {
	return &Codec{name: FormatMsgpack, ext: ".mpk", f: msgpackFormat{}}
}

type jsonFormat struct{}

func (jsonFormat) marshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func (jsonFormat) unmarshal(b []byte, v any) error {
	return json.Unmarshal(b, v)
}

func (jsonFormat) envelope(b []byte, kind string) (int, []byte, error) {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(b, &env); err != nil {
		return 0, nil, err
	}
	rawVersion, ok := env["version"]
	if !ok {
		return 0, nil, errMissingVersion
	}
	var version int
	if err := json.Unmarshal(rawVersion, &version); err != nil {
		return 0, nil, fmt.Errorf("version tag: %w", err)
	}
	payload, ok := env[kind]
	if !ok {
		return version, nil, fmt.Errorf("record has no %s payload", kind)
	}
	return version, payload, nil
}

type msgpackFormat struct{}

func (msgpackFormat) marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (msgpackFormat) unmarshal(b []byte, v any) error {
	return msgpack.Unmarshal(b, v)
}

func (msgpackFormat) envelope(b []byte, kind string) (int, []byte, error) {
	var env map[string]msgpack.RawMessage
	if err := msgpack.Unmarshal(b, &env); err != nil {
		return 0, nil, err
	}
	rawVersion, ok := env["version"]
	if !ok {
		return 0, nil, errMissingVersion
	}
	var version int
	if err := msgpack.Unmarshal(rawVersion, &version); err != nil {
		return 0, nil, fmt.Errorf("version tag: %w", err)
	}
	payload, ok := env[kind]
	if !ok {
		return version, nil, fmt.Errorf("record has no %s payload", kind)
	}
	return version, payload, nil
}
