package audioio

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// SaveFloat32 writes samples to path as raw little-endian float32, the
// on-disk format queued jobs hand off between the HTTP submit handler and
// the worker that later decodes them.
func SaveFloat32(path string, samples []float32) error {
	buf := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("write raw audio %s: %w", path, err)
	}
	return nil
}

// LoadFloat32 reads samples previously written by SaveFloat32.
func LoadFloat32(path string) ([]float32, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read raw audio %s: %w", path, err)
	}
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("raw audio %s: length %d not a multiple of 4", path, len(buf))
	}

	samples := make([]float32, len(buf)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return samples, nil
}
