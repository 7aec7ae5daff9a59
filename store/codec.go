package store

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"liveboard-sync-server/domain"
)

// Records are CBOR with deterministic encoding, compressed with zstd. A full
// record carries up to 100 snapshots of the board, so compression matters
// more than encode speed.
var (
	encMode     cbor.EncMode
	decMode     cbor.DecMode
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("store: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("store: CBOR decoder initialization failed: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("store: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("store: zstd decoder initialization failed: " + err.Error())
	}
}

// Encode serializes a board state into the record format shared by all
// backends.
func Encode(state *domain.BoardState) ([]byte, error) {
	raw, err := encMode.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode board %s: %w", state.RoomCode, err)
	}
	return zstdEncoder.EncodeAll(raw, nil), nil
}

func Decode(data []byte) (*domain.BoardState, error) {
	raw, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	var state domain.BoardState
	if err := decMode.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode board: %w", err)
	}
	state.Normalize()
	return &state, nil
}
