package refasr

import (
	"path/filepath"
	"testing"
)

func TestNewConfigMissingModelDir(t *testing.T) {
	if _, err := NewConfig(filepath.Join(t.TempDir(), "does-not-exist")); err == nil {
		t.Fatal("expected error for missing model directory")
	}
}

func TestDefaultReazonSpeechConfigFields(t *testing.T) {
	config := DefaultReazonSpeechConfig()

	if config.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", config.SampleRate)
	}
	if config.DecodingMethod != "greedy_search" {
		t.Errorf("DecodingMethod = %q, want greedy_search", config.DecodingMethod)
	}
	if config.NumThreads <= 0 {
		t.Errorf("NumThreads = %d, want positive", config.NumThreads)
	}
}

func TestConfigValidateMissingFiles(t *testing.T) {
	config := &Config{
		EncoderPath: filepath.Join(t.TempDir(), "encoder.onnx"),
		DecoderPath: filepath.Join(t.TempDir(), "decoder.onnx"),
		JoinerPath:  filepath.Join(t.TempDir(), "joiner.onnx"),
		TokensPath:  filepath.Join(t.TempDir(), "tokens.txt"),
	}
	if err := config.Validate(); err == nil {
		t.Fatal("expected validation error for nonexistent model files")
	}
}

func TestResultFormatAsText(t *testing.T) {
	result := &Result{Text: "今回は珍しい話です"}
	if got := result.FormatAsText(); got != result.Text {
		t.Errorf("FormatAsText() = %q, want %q", got, result.Text)
	}
}

func TestResultFormatAsSRTNoSegments(t *testing.T) {
	result := &Result{Text: "hello"}
	srt := result.FormatAsSRT()
	if srt == "" {
		t.Fatal("expected non-empty SRT output for a single-segment fallback")
	}
}

func TestResultFormatAsJSONRoundTrips(t *testing.T) {
	result := &Result{
		Text:          "hello",
		Tokens:        []Token{{Text: "he", StartTime: 0, Duration: 0.2}, {Text: "llo", StartTime: 0.2, Duration: 0.3}},
		Segments:      []Segment{{Text: "hello", StartTime: 0, EndTime: 0.5}},
		TotalDuration: 0.5,
	}
	data, err := result.FormatAsJSON()
	if err != nil {
		t.Fatalf("FormatAsJSON() error: %v", err)
	}
	if data == "" {
		t.Fatal("expected non-empty JSON output")
	}
}
