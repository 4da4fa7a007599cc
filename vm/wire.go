package vm

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Chunk wire encoding (CBOR)
// ---------------------------------------------------------------------------

// Canonical mode keeps the encoding deterministic, so the same chunk
// always serializes to the same bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// wireFormatVersion guards against decoding snapshots from incompatible
// builds.
const wireFormatVersion = 1

// Constant kind tags on the wire.
const (
	wireKindNumber byte = iota
	wireKindBool
	wireKindNil
	wireKindString
)

// wireConstant is the serialized form of one constant-pool Value. String
// constants travel by content and are re-interned on decode, so handles
// never cross process boundaries.
type wireConstant struct {
	Kind   byte    `cbor:"k"`
	Number float64 `cbor:"n,omitempty"`
	Bool   bool    `cbor:"b,omitempty"`
	Str    string  `cbor:"s,omitempty"`
}

// wireChunk is the serialized form of a Chunk.
type wireChunk struct {
	Version   int            `cbor:"v"`
	Code      []byte         `cbor:"c"`
	Lines     []int          `cbor:"l"`
	Constants []wireConstant `cbor:"k"`
}

// MarshalChunk serializes a chunk to canonical CBOR bytes, resolving
// string constants through the given table.
func MarshalChunk(c *Chunk, table *StringTable) ([]byte, error) {
	w := wireChunk{
		Version: wireFormatVersion,
		Code:    c.Code,
		Lines:   c.Lines,
	}

	for i, v := range c.Constants {
		switch {
		case v == Nil:
			w.Constants = append(w.Constants, wireConstant{Kind: wireKindNil})
		case v.IsBool():
			w.Constants = append(w.Constants, wireConstant{Kind: wireKindBool, Bool: v.Bool()})
		case v.IsString():
			w.Constants = append(w.Constants, wireConstant{Kind: wireKindString, Str: table.Contents(v.StringID())})
		case v.IsNumber():
			w.Constants = append(w.Constants, wireConstant{Kind: wireKindNumber, Number: v.Number()})
		default:
			return nil, fmt.Errorf("vm: constant %d has unknown value kind", i)
		}
	}

	return cborEncMode.Marshal(&w)
}

// UnmarshalChunk deserializes a chunk from CBOR bytes, interning string
// constants into the given table.
func UnmarshalChunk(data []byte, table *StringTable) (*Chunk, error) {
	var w wireChunk
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("vm: unmarshal chunk: %w", err)
	}
	if w.Version != wireFormatVersion {
		return nil, fmt.Errorf("vm: unsupported chunk format version %d", w.Version)
	}
	if len(w.Code) != len(w.Lines) {
		return nil, fmt.Errorf("vm: chunk line map length %d does not match code length %d", len(w.Lines), len(w.Code))
	}
	if len(w.Constants) > MaxConstants {
		return nil, fmt.Errorf("vm: chunk has %d constants, limit is %d", len(w.Constants), MaxConstants)
	}

	c := &Chunk{Code: w.Code, Lines: w.Lines}
	for i, wc := range w.Constants {
		switch wc.Kind {
		case wireKindNumber:
			c.Constants = append(c.Constants, FromNumber(wc.Number))
		case wireKindBool:
			c.Constants = append(c.Constants, FromBool(wc.Bool))
		case wireKindNil:
			c.Constants = append(c.Constants, Nil)
		case wireKindString:
			c.Constants = append(c.Constants, FromStringID(table.Intern(wc.Str)))
		default:
			return nil, fmt.Errorf("vm: constant %d has unknown wire kind %d", i, wc.Kind)
		}
	}
	return c, nil
}
