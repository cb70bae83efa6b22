package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"fluidasr/internal/asr"
	"fluidasr/internal/audioio"
)

func main() {
	var (
		inputFile  = flag.String("i", "", "Input audio file (any format ffmpeg can decode)")
		outputFile = flag.String("o", "", "Output file (default: stdout)")
		format     = flag.String("format", "text", "Output format: text, json, srt")
		modelDir   = flag.String("model", "models/fluidaudio-tdt", "Model directory path")
		numThreads = flag.Int("threads", 2, "Number of ONNX Runtime intra-op threads (ignored: sessions use ONNX Runtime's default threading)")
		verbose    = flag.Bool("v", false, "Verbose output")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -i audio.wav\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i audio.wav -o output.txt\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i audio.wav -format json -o output.json\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i audio.wav -format srt -o subtitles.srt\n", os.Args[0])
	}

	flag.Parse()

	if *inputFile == "" {
		fmt.Fprintf(os.Stderr, "Error: Input file is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	if _, err := os.Stat(*inputFile); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: Input file not found: %s\n", *inputFile)
		os.Exit(1)
	}

	if *format != "text" && *format != "json" && *format != "srt" {
		fmt.Fprintf(os.Stderr, "Error: Invalid format '%s'. Must be: text, json, or srt\n", *format)
		os.Exit(1)
	}

	_ = *numThreads // kept for CLI parity; ONNX Runtime session threading is fixed by NewModelAdapter today

	if *verbose {
		fmt.Fprintf(os.Stderr, "Loading model from: %s\n", *modelDir)
	}

	adapter, err := asr.NewModelAdapter(asr.ModelPaths{
		Mel:     filepath.Join(*modelDir, "mel.onnx"),
		Encoder: filepath.Join(*modelDir, "encoder.onnx"),
		Decoder: filepath.Join(*modelDir, "decoder.onnx"),
		Joint:   filepath.Join(*modelDir, "joint.onnx"),
	}, asr.DefaultTDTConfig().Durations, os.Getenv("FLUIDASR_ONNXRUNTIME_LIB"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to load model: %v\n", err)
		os.Exit(1)
	}
	defer adapter.Close()

	vocab, err := asr.LoadVocab(filepath.Join(*modelDir, "vocab.json"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to load vocabulary: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "Creating ASR manager...\n")
	}

	manager := asr.NewManager()
	if err := manager.Initialize(adapter, vocab, asr.DefaultTDTConfig(), nil); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to initialize ASR manager: %v\n", err)
		os.Exit(1)
	}
	defer manager.Cleanup()

	if *verbose {
		fmt.Fprintf(os.Stderr, "Decoding audio: %s\n", *inputFile)
	}

	samples, err := audioio.DecodeToFloat32(*inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to decode audio: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "Transcribing %d samples\n", len(samples))
	}

	result, err := manager.Transcribe(samples)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Transcription failed: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "Transcription completed in %.2f seconds\n", result.ProcessingTime)
	}

	var output string
	switch *format {
	case "json":
		output, err = result.FormatAsJSON()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to format JSON: %v\n", err)
			os.Exit(1)
		}
	case "srt":
		output = result.FormatAsSRT()
	default:
		output = result.FormatAsText()
	}

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, []byte(output), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to write output file: %v\n", err)
			os.Exit(1)
		}
		if *verbose {
			fmt.Fprintf(os.Stderr, "Output written to: %s\n", *outputFile)
		}
	} else {
		fmt.Println(output)
	}
}
