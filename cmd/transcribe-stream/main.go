// Streaming transcription demo: pipes a file through ffmpeg into 16kHz
// mono float32 and feeds it to the ASR manager one chunk at a time. With
// -dual-source it alternates mic/system source tags across chunks to
// demonstrate per-source decoder isolation; otherwise every chunk uses the
// microphone source.
//
// Usage:
//
//	go run ./cmd/transcribe-stream -input audio.mp4
//	go run ./cmd/transcribe-stream -input audio.wav -chunk 30
package main

import (
	"bufio"
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"fluidasr/internal/asr"
	"fluidasr/internal/audioio"
)

const (
	sampleRate     = 16000
	bytesPerSample = 2 // 16-bit PCM from ffmpeg, upconverted to float32
)

func main() {
	inputPath := flag.String("input", "", "Input audio/video file")
	chunkSec := flag.Float64("chunk", 30, "Chunk duration in seconds")
	modelDir := flag.String("model", "models/fluidaudio-tdt", "Model directory")
	dualSource := flag.Bool("dual-source", false, "Alternate mic/system source tags across chunks")
	flag.Parse()

	if *inputPath == "" {
		log.Fatal("Usage: go run ./cmd/transcribe-stream -input <file>")
	}

	duration, err := audioio.Duration(*inputPath)
	if err != nil {
		log.Fatalf("Failed to get duration: %v", err)
	}
	fmt.Printf("Audio duration: %.1f seconds\n", duration)
	fmt.Printf("Chunk size: %.1f seconds\n", *chunkSec)

	totalChunks := int(duration/ *chunkSec) + 1
	fmt.Printf("Expected chunks: %d\n\n", totalChunks)

	adapter, err := asr.NewModelAdapter(asr.ModelPaths{
		Mel:     filepath.Join(*modelDir, "mel.onnx"),
		Encoder: filepath.Join(*modelDir, "encoder.onnx"),
		Decoder: filepath.Join(*modelDir, "decoder.onnx"),
		Joint:   filepath.Join(*modelDir, "joint.onnx"),
	}, asr.DefaultTDTConfig().Durations, os.Getenv("FLUIDASR_ONNXRUNTIME_LIB"))
	if err != nil {
		log.Fatalf("Failed to load model: %v", err)
	}
	defer adapter.Close()

	vocab, err := asr.LoadVocab(filepath.Join(*modelDir, "vocab.json"))
	if err != nil {
		log.Fatalf("Failed to load vocabulary: %v", err)
	}

	manager := asr.NewManager()
	if err := manager.Initialize(adapter, vocab, asr.DefaultTDTConfig(), nil); err != nil {
		log.Fatalf("Failed to initialize ASR manager: %v", err)
	}
	defer manager.Cleanup()

	cmd := exec.Command("ffmpeg",
		"-i", *inputPath,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-ac", "1",
		"-loglevel", "error",
		"pipe:1",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		log.Fatalf("Failed to get stdout pipe: %v", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		log.Fatalf("Failed to start ffmpeg: %v", err)
	}

	reader := bufio.NewReader(stdout)
	chunkSamples := int(*chunkSec * float64(sampleRate))
	chunkBytes := chunkSamples * bytesPerSample

	sources := []asr.Source{asr.SourceMicrophone}
	if *dualSource {
		sources = []asr.Source{asr.SourceMicrophone, asr.SourceSystem}
	}

	var allText string
	chunkIndex := 0
	startTime := time.Now()

	for {
		buffer := make([]byte, chunkBytes)
		n, err := io.ReadFull(reader, buffer)
		if n == 0 {
			break
		}

		samples := bytesToFloat32(buffer[:n])
		source := sources[chunkIndex%len(sources)]

		fmt.Printf("\n--- Chunk %d (source=%s, %.1f-%.1f sec) ---\n",
			chunkIndex, source,
			float64(chunkIndex)**chunkSec,
			float64(chunkIndex)**chunkSec+float64(n)/float64(bytesPerSample)/float64(sampleRate))

		result, tErr := manager.TranscribeSource(samples, source)
		if tErr != nil {
			log.Printf("Warning: transcription failed for chunk %d: %v", chunkIndex, tErr)
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			chunkIndex++
			continue
		}

		fmt.Printf("Text: %s\n", result.Text)
		fmt.Printf("Tokens: %d, Confidence: %.2f\n", len(result.TokenTimings), result.Confidence)

		allText += result.Text

		progress := float64(chunkIndex+1) / float64(totalChunks) * 100
		elapsed := time.Since(startTime).Seconds()
		fmt.Printf("Progress: %.1f%% (elapsed: %.1fs)\n", progress, elapsed)

		chunkIndex++

		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
	}

	cmd.Wait()

	fmt.Printf("\n=== Final Result ===\n")
	fmt.Printf("Total chunks: %d\n", chunkIndex)
	fmt.Printf("Total time: %.1fs\n", time.Since(startTime).Seconds())
	fmt.Printf("\nFull text:\n%s\n", allText)
}

func bytesToFloat32(data []byte) []float32 {
	samples := make([]float32, len(data)/bytesPerSample)
	for i := range samples {
		sample := int16(binary.LittleEndian.Uint16(data[i*bytesPerSample:]))
		samples[i] = float32(sample) / 32768.0
	}
	return samples
}
