// compare-engines runs the hand-rolled TDT core (internal/asr) and the
// Sherpa-ONNX reference backend (internal/refasr) over the same audio file
// and prints both transcripts side by side, grounded in the teacher's own
// cross-model comparison tests (its internal/asr/comparison_test.go). It is
// a regression aid, not part of the decode path.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"fluidasr/internal/asr"
	"fluidasr/internal/audioio"
	"fluidasr/internal/refasr"
)

func main() {
	inputFile := flag.String("i", "", "Input audio file")
	tdtModelDir := flag.String("tdt-model", "models/fluidaudio-tdt", "Directory of the TDT mel/encoder/decoder/joint ONNX graphs")
	refModelDir := flag.String("ref-model", "models/sherpa-onnx-zipformer-ja-reazonspeech-2024-08-01", "Sherpa-ONNX reference model directory")
	flag.Parse()

	if *inputFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: compare-engines -i audio.wav [-tdt-model dir] [-ref-model dir]")
		os.Exit(1)
	}

	tdtText, err := runTDT(*inputFile, *tdtModelDir)
	if err != nil {
		log.Printf("TDT engine failed: %v", err)
		tdtText = ""
	}

	refText, err := runReference(*inputFile, *refModelDir)
	if err != nil {
		log.Printf("reference engine failed: %v", err)
		refText = ""
	}

	fmt.Printf("=== TDT engine (internal/asr) ===\n%s\n\n", tdtText)
	fmt.Printf("=== Reference engine (internal/refasr, Sherpa-ONNX) ===\n%s\n\n", refText)

	reportDivergence(tdtText, refText)
}

func runTDT(inputFile, modelDir string) (string, error) {
	adapter, err := asr.NewModelAdapter(asr.ModelPaths{
		Mel:     filepath.Join(modelDir, "mel.onnx"),
		Encoder: filepath.Join(modelDir, "encoder.onnx"),
		Decoder: filepath.Join(modelDir, "decoder.onnx"),
		Joint:   filepath.Join(modelDir, "joint.onnx"),
	}, asr.DefaultTDTConfig().Durations, os.Getenv("FLUIDASR_ONNXRUNTIME_LIB"))
	if err != nil {
		return "", fmt.Errorf("load TDT model: %w", err)
	}
	defer adapter.Close()

	vocab, err := asr.LoadVocab(filepath.Join(modelDir, "vocab.json"))
	if err != nil {
		return "", fmt.Errorf("load TDT vocab: %w", err)
	}

	manager := asr.NewManager()
	if err := manager.Initialize(adapter, vocab, asr.DefaultTDTConfig(), nil); err != nil {
		return "", fmt.Errorf("initialize TDT manager: %w", err)
	}
	defer manager.Cleanup()

	samples, err := audioio.DecodeToFloat32(inputFile)
	if err != nil {
		return "", fmt.Errorf("decode audio: %w", err)
	}

	result, err := manager.Transcribe(samples)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return result.Text, nil
}

func runReference(inputFile, modelDir string) (string, error) {
	config, err := refasr.NewConfig(modelDir)
	if err != nil {
		return "", fmt.Errorf("load reference config: %w", err)
	}

	recognizer, err := refasr.NewRecognizer(config)
	if err != nil {
		return "", fmt.Errorf("create reference recognizer: %w", err)
	}
	defer recognizer.Close()

	result, err := recognizer.TranscribeFile(inputFile)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return result.Text, nil
}

// reportDivergence prints a coarse word-level diff between the two
// transcripts. It is a sanity aid for spotting large disagreements, not a
// scored alignment metric.
func reportDivergence(a, b string) {
	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)

	if len(wordsA) == 0 && len(wordsB) == 0 {
		fmt.Println("Both engines produced empty transcripts.")
		return
	}

	common := 0
	seen := make(map[string]int)
	for _, w := range wordsA {
		seen[w]++
	}
	for _, w := range wordsB {
		if seen[w] > 0 {
			common++
			seen[w]--
		}
	}

	total := len(wordsA) + len(wordsB)
	var overlap float64
	if total > 0 {
		overlap = float64(2*common) / float64(total) * 100
	}
	fmt.Printf("Token overlap (TDT vs reference): %.1f%% (%d/%d words in TDT, %d/%d in reference)\n",
		overlap, common, len(wordsA), common, len(wordsB))
}
