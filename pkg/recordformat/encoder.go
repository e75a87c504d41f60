package recordformat

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Format selects the record encoding
type Format string

const (
	JSON    Format = "json"
	MsgPack Format = "msgpack"
)

// ParseFormat resolves a format name; the empty name is JSON
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case "", JSON:
		return JSON, nil
	case MsgPack:
		return MsgPack, nil
	}
	return "", fmt.Errorf("unknown record format %q (want json or msgpack)", name)
}

// Encoder writes records to a stream. JSON records are newline delimited;
// MessagePack records are concatenated.
type Encoder struct {
	json *json.Encoder
	mp   *msgpack.Encoder
}

// NewEncoder creates an encoder writing format to w
func NewEncoder(w io.Writer, format Format) *Encoder {
	e := &Encoder{}
	if format == MsgPack {
		e.mp = msgpack.NewEncoder(w)
		e.mp.SetCustomStructTag("json") // Use json tags for MessagePack
		e.mp.SetSortMapKeys(true)
	} else {
		e.json = json.NewEncoder(w)
	}
	return e
}

// Encode writes one record
func (e *Encoder) Encode(r *Record) error {
	if e.mp != nil {
		return e.mp.Encode(r)
	}
	return e.json.Encode(r)
}

// Decoder reads a record stream written by Encoder
type Decoder struct {
	json *json.Decoder
	mp   *msgpack.Decoder
}

// NewDecoder creates a decoder reading format from r
func NewDecoder(r io.Reader, format Format) *Decoder {
	d := &Decoder{}
	if format == MsgPack {
		d.mp = msgpack.NewDecoder(r)
		d.mp.SetCustomStructTag("json")
	} else {
		d.json = json.NewDecoder(r)
	}
	return d
}

// Decode reads the next record. It returns io.EOF at the end of the stream.
func (d *Decoder) Decode() (*Record, error) {
	var r Record
	var err error
	if d.mp != nil {
		err = d.mp.Decode(&r)
	} else {
		err = d.json.Decode(&r)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
