package asr

import (
	"fmt"
	"math"
)

// TDTConfig is the TDT configuration surface (§6): the allowed duration
// set and the knobs that tune dedup and confidence reporting. It is fixed
// at construction and never mutated afterward.
type TDTConfig struct {
	Durations                 []int
	IncludeDurationConfidence bool
	BoundarySearchFrames      int
	EnableDebug               bool
}

// DefaultTDTConfig returns the durations set used throughout this engine
// unless a caller overrides it.
func DefaultTDTConfig() TDTConfig {
	return TDTConfig{
		Durations:                 []int{0, 1, 2, 3, 4},
		IncludeDurationConfidence: false,
		BoundarySearchFrames:      4,
	}
}

// Hypothesis is one emitted token: its id, the absolute encoder frame it
// was emitted at, its confidence, and the duration the model predicted at
// that step.
type Hypothesis struct {
	TokenID            int
	FrameTimestamp     int
	Confidence         float32
	DurationFrames     int
	DurationConfidence float32
}

// TDTDecoder runs the greedy Token-and-Duration Transducer loop described
// in §4.5. It consumes the model adapter and vocabulary (via blank id
// only) but owns no state of its own beyond its fixed configuration.
type TDTDecoder struct {
	model  ModelRunner
	config TDTConfig
}

// NewTDTDecoder builds a decoder bound to model, configured by config.
func NewTDTDecoder(model ModelRunner, config TDTConfig) *TDTDecoder {
	return &TDTDecoder{model: model, config: config}
}

// Decode runs the TDT loop over one encoder output tensor, starting the
// time pointer at max(0, contextFrameAdjustment) and the decoder input at
// lastToken (BlankID for a fresh source). It mutates state in place as
// tokens are emitted; on error the caller is responsible for rolling
// state back to a prior snapshot (state mutation here is not undone).
//
// The loop always consumes frames up to actualAudioFrames, whether or not
// this is the chunk processor's last window: per §4.5 invariant 2 the loop
// terminates only when the time pointer reaches actualAudioFrames, and the
// last-chunk policy forbids an early exit on blank-only trailing frames on
// any chunk, not just the last one. There is therefore no decoder-level
// distinction between last and non-last chunks; the chunk processor (C6)
// is where last-chunk handling actually differs, in how it sizes the
// window and computes context_frame_adjustment.
func (d *TDTDecoder) Decode(
	enc EncoderOutput,
	actualAudioFrames int,
	state *DecoderState,
	contextFrameAdjustment int,
	globalFrameOffset int,
	lastToken int,
) ([]Hypothesis, error) {
	timePointer := contextFrameAdjustment
	if timePointer < 0 {
		timePointer = 0
	}
	prevToken := lastToken

	var hyps []Hypothesis
	safetyBound := tdtSafetyMultiplier * actualAudioFrames
	iterations := 0

	for timePointer < actualAudioFrames {
		iterations++
		if iterations > safetyBound {
			return hyps, errProcessingFailed("tdt", fmt.Errorf("exceeded safety bound of %d iterations", safetyBound))
		}

		encStep, err := encoderStepAt(enc, timePointer)
		if err != nil {
			return hyps, err
		}

		decOut, err := d.model.RunDecoder(prevToken, state)
		if err != nil {
			return hyps, err
		}

		jointOut, err := d.model.RunJoint(encStep, decOut.Feature)
		if err != nil {
			return hyps, err
		}
		if len(jointOut.Logits) < VocabSize+len(d.config.Durations) {
			return hyps, errProcessingFailed("joint", fmt.Errorf("logits length %d too short for vocab %d + durations %d",
				len(jointOut.Logits), VocabSize, len(d.config.Durations)))
		}

		vocabLogits := jointOut.Logits[:VocabSize]
		durationLogits := jointOut.Logits[VocabSize : VocabSize+len(d.config.Durations)]

		symbol := argmax(vocabLogits)
		durationIdx := argmax(durationLogits)
		duration := 0
		if durationIdx < len(d.config.Durations) {
			duration = d.config.Durations[durationIdx]
		}

		if symbol != BlankID {
			// Commit decoder state only on emission, keeping it in
			// lockstep with prevToken: a blank step must not move the
			// prediction network forward, since prevToken does not
			// change on blank (§4.5 invariant 9).
			state.update(decOut.H, decOut.C)

			hyp := Hypothesis{
				TokenID:        symbol,
				FrameTimestamp: globalFrameOffset + timePointer,
				Confidence:     softmaxAt(vocabLogits, symbol),
				DurationFrames: duration,
			}
			if d.config.IncludeDurationConfidence {
				hyp.DurationConfidence = softmaxAt(durationLogits, durationIdx)
			}
			hyps = append(hyps, hyp)
			prevToken = symbol
			timePointer += max(duration, 0)
		} else {
			timePointer += max(duration, 1)
		}
	}

	return hyps, nil
}

// encoderStepAt extracts the [H]-length feature vector for absolute
// encoder frame t out of a [1,T,H] tensor flattened time-major.
func encoderStepAt(enc EncoderOutput, t int) ([]float32, error) {
	start := t * enc.Dim
	end := start + enc.Dim
	if start < 0 || end > len(enc.Output) {
		return nil, errProcessingFailed("tdt", fmt.Errorf("encoder frame %d out of range (dim=%d, len=%d)", t, enc.Dim, len(enc.Output)))
	}
	return enc.Output[start:end], nil
}

func argmax(data []float32) int {
	best := 0
	bestVal := data[0]
	for i, v := range data {
		if v > bestVal {
			bestVal = v
			best = i
		}
	}
	return best
}

// softmaxAt computes the softmax probability of index idx within logits,
// numerically stabilized against the maximum logit.
func softmaxAt(logits []float32, idx int) float32 {
	maxLogit := logits[0]
	for _, v := range logits {
		if v > maxLogit {
			maxLogit = v
		}
	}
	var sum float64
	for _, v := range logits {
		sum += math.Exp(float64(v - maxLogit))
	}
	if sum == 0 {
		return 0
	}
	return float32(math.Exp(float64(logits[idx]-maxLogit)) / sum)
}
