// Package audioio shells out to ffmpeg/ffprobe to turn arbitrary audio or
// video containers into the raw 16kHz mono float32 PCM the ASR core expects.
package audioio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const (
	sampleRate     = 16000
	bytesPerSample = 2 // ffmpeg emits 16-bit signed PCM; we upconvert to float32
)

// DecodeToFloat32 runs path through ffmpeg, producing 16kHz mono float32
// samples in [-1, 1].
func DecodeToFloat32(path string) ([]float32, error) {
	cmd := exec.Command("ffmpeg",
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", "1",
		"-loglevel", "error",
		"pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg decode %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}

	return bytesToFloat32(stdout.Bytes()), nil
}

// Duration reports a file's duration in seconds via ffprobe.
func Duration(path string) (float64, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration %s: %w", path, err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration: %w", err)
	}
	return duration, nil
}

func bytesToFloat32(data []byte) []float32 {
	samples := make([]float32, len(data)/bytesPerSample)
	for i := range samples {
		sample := int16(binary.LittleEndian.Uint16(data[i*bytesPerSample:]))
		samples[i] = float32(sample) / 32768.0
	}
	return samples
}
