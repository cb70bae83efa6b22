package asr

import (
	"errors"
	"testing"
)

// fakeStep scripts one joint-network response: which vocabulary id wins
// the argmax and which duration index wins it, so tests can drive the
// TDT loop without ONNX Runtime or real model weights.
type fakeStep struct {
	token       int
	durationIdx int
}

type fakeModel struct {
	durations []int
	script    []fakeStep
	calls     int
}

func (f *fakeModel) RunMel(samples []float32) (MelOutput, error) {
	return MelOutput{Features: make([]float32, len(samples)), Dim: 1, Frames: len(samples), Length: int32(len(samples))}, nil
}

func (f *fakeModel) RunEncoder(mel MelOutput, encoderDim int) (EncoderOutput, error) {
	return EncoderOutput{Output: make([]float32, mel.Frames*encoderDim), Dim: encoderDim, Length: mel.Frames}, nil
}

func (f *fakeModel) RunDecoder(targetToken int, state *DecoderState) (DecoderOutput, error) {
	return DecoderOutput{Feature: make([]float32, DecoderStateDim), H: state.H, C: state.C}, nil
}

func (f *fakeModel) RunJoint(encStep, decStep []float32) (JointOutput, error) {
	step := f.script[f.calls%len(f.script)]
	f.calls++

	logits := make([]float32, VocabSize+len(f.durations))
	logits[step.token] = 10
	logits[VocabSize+step.durationIdx] = 10
	return JointOutput{Logits: logits}, nil
}

func (f *fakeModel) Close() {}

func TestTDTDecodeEmitsScriptedTokens(t *testing.T) {
	model := &fakeModel{
		durations: DefaultTDTConfig().Durations,
		script: []fakeStep{
			{token: 5, durationIdx: 1}, // emit 5, duration 1
			{token: BlankID, durationIdx: 2}, // blank, duration 2
			{token: 7, durationIdx: 2}, // emit 7, duration 2
		},
	}
	decoder := NewTDTDecoder(model, DefaultTDTConfig())
	state := newDecoderState()

	enc := EncoderOutput{Output: make([]float32, 5), Dim: 1, Length: 5}
	hyps, err := decoder.Decode(enc, 5, state, 0, 0, BlankID)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}

	if len(hyps) != 2 {
		t.Fatalf("got %d hypotheses, want 2: %+v", len(hyps), hyps)
	}
	if hyps[0].TokenID != 5 || hyps[0].FrameTimestamp != 0 {
		t.Errorf("hyps[0] = %+v, want token 5 at frame 0", hyps[0])
	}
	if hyps[1].TokenID != 7 || hyps[1].FrameTimestamp != 3 {
		t.Errorf("hyps[1] = %+v, want token 7 at frame 3", hyps[1])
	}
}

func TestTDTDecodeNeverEmitsBlank(t *testing.T) {
	model := &fakeModel{
		durations: DefaultTDTConfig().Durations,
		script:    []fakeStep{{token: 5, durationIdx: 4}},
	}
	decoder := NewTDTDecoder(model, DefaultTDTConfig())
	state := newDecoderState()

	enc := EncoderOutput{Output: make([]float32, 3), Dim: 1, Length: 3}
	hyps, err := decoder.Decode(enc, 3, state, 0, 0, BlankID)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	for _, h := range hyps {
		if h.TokenID == BlankID {
			t.Fatalf("blank id emitted as a token: %+v", h)
		}
	}
}

func TestTDTDecodeSafetyBound(t *testing.T) {
	// P7: a model that never advances the time pointer (duration 0 on
	// every emitted, non-blank step) must hit the safety bound rather
	// than loop forever.
	model := &fakeModel{
		durations: DefaultTDTConfig().Durations,
		script:    []fakeStep{{token: 9, durationIdx: 0}},
	}
	decoder := NewTDTDecoder(model, DefaultTDTConfig())
	state := newDecoderState()

	enc := EncoderOutput{Output: make([]float32, 2), Dim: 1, Length: 2}
	_, err := decoder.Decode(enc, 2, state, 0, 0, BlankID)
	if err == nil {
		t.Fatal("expected processing_failed error from safety bound, got nil")
	}
	var asrErr *Error
	if !errors.As(err, &asrErr) || asrErr.Kind != KindProcessingFailed {
		t.Fatalf("expected processing_failed, got %v", err)
	}
	if model.calls != tdtSafetyMultiplier*2 {
		t.Errorf("joint called %d times, want %d (the safety bound)", model.calls, tdtSafetyMultiplier*2)
	}
}
