package poll

import (
	"fmt"
	"roverchat/internal/poll/interfaces"

	"github.com/klauspost/compress/zstd"
)

// archiveMaxMemory bounds what a corrupt or hostile archive can make the decoder allocate.
const archiveMaxMemory = 64 << 20

// zstdCodec compresses archive snapshots with stateless EncodeAll/DecodeAll calls,
// so one instance serves concurrent saves.
type zstdCodec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func NewZstdCompressor() (interfaces.CompressorInterface, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(archiveMaxMemory),
	)
	if err != nil {
		_ = encoder.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &zstdCodec{encoder: encoder, decoder: decoder}, nil
}

func (c *zstdCodec) Compress(val []byte) ([]byte, error) {
	return c.encoder.EncodeAll(val, nil), nil
}

func (c *zstdCodec) Decompress(val []byte) ([]byte, error) {
	out, err := c.decoder.DecodeAll(val, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return out, nil
}

func (c *zstdCodec) Close() {
	_ = c.encoder.Close()
	c.decoder.Close()
}

// ProvideCompressor wraps NewZstdCompressor with a cleanup for the injector.
func ProvideCompressor() (interfaces.CompressorInterface, func(), error) {
	c, err := NewZstdCompressor()
	if err != nil {
		return nil, nil, err
	}
	return c, c.Close, nil
}
