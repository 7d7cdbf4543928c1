package transport

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

const (
	frameRaw  byte = 0
	frameZstd byte = 1
)

// Codec serializes envelopes with gob, optionally compressing the payload
// with zstd. The first byte of every encoded message records which, so
// decoders accept both forms regardless of their own setting.
type Codec struct {
	Compress bool
}

var zstdEncPool = sync.Pool{
	New: func() any {
		enc, _ := zstd.NewWriter(nil)
		return enc
	},
}

var zstdDecPool = sync.Pool{
	New: func() any {
		dec, _ := zstd.NewReader(nil)
		return dec
	},
}

// Encode returns the wire form of env.
func (c Codec) Encode(env Envelope) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(frameRaw)
	if err := gob.NewEncoder(&buf).Encode(&env); err != nil {
		return nil, fmt.Errorf("gob encode: %w", err)
	}
	if !c.Compress {
		return buf.Bytes(), nil
	}
	enc := zstdEncPool.Get().(*zstd.Encoder)
	defer zstdEncPool.Put(enc)
	out := enc.EncodeAll(buf.Bytes()[1:], []byte{frameZstd})
	return out, nil
}

// Decode parses a message produced by Encode.
func (c Codec) Decode(data []byte) (Envelope, error) {
	var env Envelope
	if len(data) == 0 {
		return env, fmt.Errorf("empty message")
	}
	payload := data[1:]
	switch data[0] {
	case frameRaw:
	case frameZstd:
		dec := zstdDecPool.Get().(*zstd.Decoder)
		raw, err := dec.DecodeAll(payload, nil)
		zstdDecPool.Put(dec)
		if err != nil {
			return env, fmt.Errorf("zstd decode: %w", err)
		}
		payload = raw
	default:
		return env, fmt.Errorf("unknown frame type %d", data[0])
	}
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&env); err != nil {
		return env, fmt.Errorf("gob decode: %w", err)
	}
	if err := env.Validate(); err != nil {
		return env, err
	}
	return env, nil
}
