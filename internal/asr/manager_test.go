package asr

import (
	"errors"
	"testing"
)

// silentFakeModel always predicts blank with duration 0, so it never
// emits a token; it exercises the "audio with nothing to say" path
// (scenario 1) without needing real model weights.
type silentFakeModel struct{ decoderCalls int }

func (m *silentFakeModel) RunMel(samples []float32) (MelOutput, error) {
	frames := FramesForSamples(len(samples))
	return MelOutput{Features: make([]float32, frames*8), Dim: 8, Frames: frames, Length: int32(frames)}, nil
}

func (m *silentFakeModel) RunEncoder(mel MelOutput, encoderDim int) (EncoderOutput, error) {
	return EncoderOutput{Output: make([]float32, mel.Frames*encoderDim), Dim: encoderDim, Length: mel.Frames}, nil
}

func (m *silentFakeModel) RunDecoder(targetToken int, state *DecoderState) (DecoderOutput, error) {
	m.decoderCalls++
	h := make([]float32, len(state.H))
	c := make([]float32, len(state.C))
	for i := range h {
		h[i] = float32(m.decoderCalls)
		c[i] = float32(m.decoderCalls)
	}
	return DecoderOutput{Feature: make([]float32, DecoderStateDim), H: h, C: c}, nil
}

func (m *silentFakeModel) RunJoint(encStep, decStep []float32) (JointOutput, error) {
	logits := make([]float32, VocabSize+len(DefaultTDTConfig().Durations))
	logits[BlankID] = 10
	logits[VocabSize] = 10 // duration index 0 -> duration 0
	return JointOutput{Logits: logits}, nil
}

func (m *silentFakeModel) Close() {}

func newTestManager(t *testing.T, model ModelRunner) *Manager {
	t.Helper()
	mgr := NewManager()
	if err := mgr.Initialize(model, testVocab(), DefaultTDTConfig(), []int{3}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return mgr
}

func TestTranscribeSilentSecond(t *testing.T) {
	// Scenario 1: 16000 zero samples -> empty text, confidence 0.1, no error.
	mgr := newTestManager(t, &silentFakeModel{})
	samples := make([]float32, MinInputSamples)

	result, err := mgr.Transcribe(samples)
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if result.Text != "" {
		t.Errorf("Text = %q, want empty", result.Text)
	}
	if result.Confidence != emptyTranscriptConfidence {
		t.Errorf("Confidence = %v, want %v", result.Confidence, emptyTranscriptConfidence)
	}
}

func TestTranscribeSubSecondRejected(t *testing.T) {
	// Scenario 2: 15999 zero samples -> invalid_audio_data.
	mgr := newTestManager(t, &silentFakeModel{})
	samples := make([]float32, MinInputSamples-1)

	_, err := mgr.Transcribe(samples)
	if err == nil {
		t.Fatal("expected invalid_audio_data error, got nil")
	}
	var asrErr *Error
	if !errors.As(err, &asrErr) || asrErr.Kind != KindInvalidAudioData {
		t.Fatalf("expected invalid_audio_data, got %v", err)
	}
}

func TestTranscribeBeforeInitialize(t *testing.T) {
	mgr := NewManager()
	_, err := mgr.Transcribe(make([]float32, MinInputSamples))
	var asrErr *Error
	if !errors.As(err, &asrErr) || asrErr.Kind != KindNotInitialized {
		t.Fatalf("expected not_initialized, got %v", err)
	}
}

func TestPerSourceIsolation(t *testing.T) {
	// Scenario 6: transcribing on one source must not perturb another
	// source's decoder state.
	model := &silentFakeModel{}
	mgr := newTestManager(t, model)
	samples := make([]float32, MinInputSamples)

	if _, err := mgr.Transcribe(samples); err != nil { // mic
		t.Fatalf("mic transcribe: %v", err)
	}
	micAfterFirst := mgr.sources[SourceMicrophone].decoder.snapshot()
	micTokenAfterFirst := mgr.sources[SourceMicrophone].lastToken

	if _, err := mgr.TranscribeSource(samples, SourceSystem); err != nil {
		t.Fatalf("sys transcribe: %v", err)
	}

	if mgr.sources[SourceMicrophone].lastToken != micTokenAfterFirst {
		t.Errorf("mic lastToken changed after sys transcribe: %d != %d",
			mgr.sources[SourceMicrophone].lastToken, micTokenAfterFirst)
	}
	if !floatSlicesEqual(mgr.sources[SourceMicrophone].decoder.H, micAfterFirst.H) {
		t.Errorf("mic decoder state mutated by a sys-source transcribe call")
	}
}

func TestResetDecoderState(t *testing.T) {
	model := &silentFakeModel{}
	mgr := newTestManager(t, model)
	samples := make([]float32, MinInputSamples)

	if _, err := mgr.Transcribe(samples); err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if err := mgr.ResetDecoderState(SourceMicrophone); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if mgr.sources[SourceMicrophone].lastToken != BlankID {
		t.Errorf("lastToken after reset = %d, want BlankID", mgr.sources[SourceMicrophone].lastToken)
	}
}

func floatSlicesEqual(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
