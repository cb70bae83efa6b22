package asr

// Frame math (C1). hop=160 samples per raw frame, subsampling=8 in the
// encoder, so one encoder frame covers 1280 input samples (80ms at 16kHz).
// These are the only permitted conversions between samples, frames and
// seconds; no other file in this package computes its own.
const (
	SampleRate        = 16000
	SamplesPerFrame   = 1280 // hop(160) * subsampling(8)
	FrameSeconds      = 0.08
	ModelWindowFrames = 187    // 15s at 80ms/frame
	ModelWindowPadded = 188    // padded for compute
	ModelWindowSamples = 240000 // 15s * 16000

	// MinInputSamples is the shortest input transcribe() accepts; shorter
	// audio is rejected with invalid_audio_data rather than padded.
	MinInputSamples = SampleRate // 1 second

	// BlankID is the reserved token-id used both as the transducer blank
	// symbol and the decoder's start-of-sequence input.
	BlankID = 1024

	// VocabSize is the vocabulary logits block size (V = 1025 including
	// blank) emitted by the joint network.
	VocabSize = BlankID + 1

	// DecoderStateDim / DecoderStateLayers describe the hidden/cell
	// tensor shape [2,1,640] the decoder carries across steps.
	DecoderStateDim    = 640
	DecoderStateLayers = 2

	// ChunkCenterFrames / ChunkLeftContextFrames / ChunkRightContextFrames
	// are the sliding-window parameters for audio longer than one model
	// window (C6).
	ChunkCenterFrames       = 140 // 11.2s
	ChunkLeftContextFrames  = 20  // 1.6s
	ChunkRightContextFrames = 20  // 1.6s

	// lastChunkSafetyFrames / lastChunkNudgeFrames tune the
	// context_frame_adjustment passed for the final chunk (§4.6).
	lastChunkSafetyFrames = 15
	lastChunkNudgeFrames  = 5

	// boundaryMaxOverlapTokens bounds how far back into the accumulated
	// token history dedup is willing to look for a suffix/prefix match.
	boundaryMaxOverlapTokens = 15

	// tdtSafetyMultiplier caps total inner TDT iterations at
	// tdtSafetyMultiplier * actual_audio_frames (§4.5 invariant 8).
	tdtSafetyMultiplier = 10
)

// FramesForSamples returns ceil(n/SamplesPerFrame), the number of encoder
// frames needed to cover n input samples.
func FramesForSamples(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + SamplesPerFrame - 1) / SamplesPerFrame
}

// SamplesForFrames is the inverse of FramesForSamples at frame
// granularity: the sample count spanned by f frames.
func SamplesForFrames(f int) int {
	return f * SamplesPerFrame
}

// FrameToSeconds converts an (absolute or relative) frame index to
// seconds.
func FrameToSeconds(f int) float64 {
	return float64(SamplesForFrames(f)) / SampleRate
}
