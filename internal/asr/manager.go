package asr

import (
	"log"
	"sync"
	"time"
)

// Source names an audio origin. The manager keeps one decoder state per
// source so two callers can transcribe concurrently without
// cross-contaminating each other's recurrent state.
type Source string

const (
	SourceMicrophone Source = "microphone"
	SourceSystem     Source = "system"
)

// defaultTerminalPunctuationIDs are the vocabulary ids the teacher's own
// token sets use for period/question mark/exclamation mark in the
// ReazonSpeech/Sherpa vocabularies this engine was validated against.
// Callers with a different vocabulary should pass their own ids to
// Initialize.
var defaultTerminalPunctuationIDs = []int{7, 8, 9}

// sourceState bundles a source's mutable decoder state with the last
// token it emitted, which becomes the next call's decoder seed input.
type sourceState struct {
	decoder   *DecoderState
	lastToken int
}

// Manager is the ASR manager (C7): it orchestrates the model adapter, the
// TDT decoder and, for long audio, the chunk processor, while keeping
// per-source decoder state isolated.
type Manager struct {
	mu      sync.Mutex
	model   ModelRunner
	vocab   *Vocab
	decoder *TDTDecoder
	punct   terminalPunctuation

	sources map[Source]*sourceState
}

// NewManager constructs a manager that is not yet initialized; call
// Initialize before any transcribe call.
func NewManager() *Manager {
	return &Manager{sources: make(map[Source]*sourceState)}
}

// Initialize adopts the four model handles and vocabulary, and pre-warms
// a deterministic initial decoder state for the two known sources. Both
// sources share model handles; only their decoder state is distinct.
func (m *Manager) Initialize(model ModelRunner, vocab *Vocab, config TDTConfig, terminalPunctuationIDs []int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if terminalPunctuationIDs == nil {
		terminalPunctuationIDs = defaultTerminalPunctuationIDs
	}

	m.model = model
	m.vocab = vocab
	m.decoder = NewTDTDecoder(model, config)
	m.punct = newTerminalPunctuation(terminalPunctuationIDs)

	for _, src := range []Source{SourceMicrophone, SourceSystem} {
		state, err := m.prewarmState()
		if err != nil {
			return err
		}
		m.sources[src] = state
	}
	return nil
}

// prewarmState produces the deterministic post-SOS state: a zeroed state
// run through one decoder step with input token BlankID.
func (m *Manager) prewarmState() (*sourceState, error) {
	state := newDecoderState()
	out, err := m.model.RunDecoder(BlankID, state)
	if err != nil {
		return nil, errModelLoadFailed(err)
	}
	state.update(out.H, out.C)
	return &sourceState{decoder: state, lastToken: BlankID}, nil
}

// Transcribe runs transcription for SourceMicrophone, the default source
// for callers that don't distinguish audio origins.
func (m *Manager) Transcribe(samples []float32) (*Result, error) {
	return m.TranscribeSource(samples, SourceMicrophone)
}

// TranscribeSource runs transcription for a named source. Per-source
// isolation (§4.7, §5) is enforced by routing through that source's own
// state slot while holding the manager lock only long enough to look up
// (or lazily create) that slot; snapshot, model invocations and commit
// all run without the lock,
// matching the spec's "concurrent calls to different sources" allowance.
// Concurrent calls to the *same* source are not supported and must be
// serialized by the caller, exactly as §5 requires.
func (m *Manager) TranscribeSource(samples []float32, source Source) (*Result, error) {
	start := time.Now()

	if err := m.checkInitialized(); err != nil {
		return nil, err
	}
	if len(samples) < MinInputSamples {
		return nil, errInvalidAudio("audio shorter than 1 second")
	}
	for _, s := range samples {
		if isNonFinite(s) {
			return nil, errInvalidAudio("audio contains non-finite samples")
		}
	}

	st, err := m.acquireSourceState(source)
	if err != nil {
		return nil, err
	}
	snapshot := st.decoder.snapshot()
	prevToken := st.lastToken

	var (
		tokens      []int
		timestamps  []int
		confidences []float32
		durations   []int
	)

	if len(samples) <= ModelWindowSamples {
		tokens, timestamps, confidences, durations, err = m.transcribeWindow(samples, st.decoder, 0, 0, prevToken)
	} else {
		tokens, timestamps, confidences, durations, err = m.transcribeChunked(samples, st)
	}

	if err != nil {
		// No partial commit: restore the pre-call state (§7, §5
		// cancellation/failure discipline).
		st.decoder.restore(snapshot)
		st.lastToken = prevToken
		return nil, err
	}

	if len(tokens) > 0 {
		st.lastToken = tokens[len(tokens)-1]
	}

	processingTime := time.Since(start).Seconds()
	audioDuration := float64(len(samples)) / float64(SampleRate)
	result := assembleResult(m.vocab, tokens, timestamps, confidences, durations, audioDuration, processingTime)
	if result.Text == "" {
		log.Printf("asr: empty transcription for %.2fs of audio on source %q", audioDuration, source)
	}
	return result, nil
}

// transcribeWindow runs one model window (mel -> encoder -> TDT) over
// samples, which must fit within ModelWindowSamples. Samples shorter than
// the window are zero-padded at the tail; actualAudioFrames reflects only
// the caller's real samples.
func (m *Manager) transcribeWindow(samples []float32, state *DecoderState, contextFrameAdjustment int, globalFrameOffset int, lastToken int) ([]int, []int, []float32, []int, error) {
	actualAudioFrames := FramesForSamples(len(samples))

	padded := samples
	if len(samples) < ModelWindowSamples {
		padded = make([]float32, ModelWindowSamples)
		copy(padded, samples)
	}

	melOut, err := m.model.RunMel(padded)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	encOut, err := m.model.RunEncoder(melOut, m.encoderDim())
	if err != nil {
		return nil, nil, nil, nil, err
	}

	if encOut.Length < actualAudioFrames {
		actualAudioFrames = encOut.Length
	}

	hyps, err := m.decoder.Decode(encOut, actualAudioFrames, state, contextFrameAdjustment, globalFrameOffset, lastToken)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	tokens := make([]int, len(hyps))
	timestamps := make([]int, len(hyps))
	confidences := make([]float32, len(hyps))
	durations := make([]int, len(hyps))
	for i, h := range hyps {
		tokens[i] = h.TokenID
		timestamps[i] = h.FrameTimestamp
		confidences[i] = h.Confidence
		durations[i] = h.DurationFrames
	}
	return tokens, timestamps, confidences, durations, nil
}

// encoderDim is the acoustic encoder's hidden dimension H. It is fixed by
// the model architecture this engine targets (Parakeet-TDT-sized
// Conformer encoders all report 1024).
func (m *Manager) encoderDim() int {
	return 1024
}

// transcribeChunked implements C6: it slides a window over samples,
// decodes each, and deduplicates/sorts the accumulated tokens.
func (m *Manager) transcribeChunked(samples []float32, st *sourceState) ([]int, []int, []float32, []int, error) {
	windows := planWindows(len(samples))

	var (
		allTokens      []int
		allTimestamps  []int
		allConfidences []float32
		allDurations   []int
	)

	prevLastProcessedFrame := 0
	for _, w := range windows {
		globalFrameOffset := FramesForSamples(w.LeftStart)
		adjustment := contextFrameAdjustmentFor(w, globalFrameOffset, prevLastProcessedFrame)

		chunkSamples := samples[w.LeftStart:w.RightEnd]
		tokens, timestamps, confidences, durations, err := m.transcribeWindow(
			chunkSamples, st.decoder, adjustment, globalFrameOffset, st.lastToken)
		if err != nil {
			return nil, nil, nil, nil, err
		}

		dedup := DedupTokens(allTokens, tokens, timestamps, confidences, m.punct, m.decoder.config.BoundarySearchFrames)

		allTokens = append(allTokens, dedup.Tokens...)
		allTimestamps = append(allTimestamps, dedup.Timestamps...)
		allConfidences = append(allConfidences, dedup.Confidences...)
		allDurations = append(allDurations, durations[dedup.RemovedCount:]...)

		if len(tokens) > 0 {
			st.lastToken = tokens[len(tokens)-1]
		}
		prevLastProcessedFrame = globalFrameOffset + FramesForSamples(len(chunkSamples))
	}

	SortByTimestamp(allTokens, allTimestamps, allConfidences, allDurations)
	return allTokens, allTimestamps, allConfidences, allDurations, nil
}

// acquireSourceState returns the state slot for source, briefly holding
// the manager lock. The slot pointer itself is then used lock-free by the
// caller, which is safe because distinct sources never share a slot and
// the same source is never called concurrently (§5).
func (m *Manager) acquireSourceState(source Source) (*sourceState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.sources[source]
	if !ok {
		warmed, err := m.prewarmState()
		if err != nil {
			return nil, err
		}
		m.sources[source] = warmed
		st = warmed
	}
	return st, nil
}

// ResetDecoderState restores source's state to the deterministic
// post-SOS state, discarding any history accumulated on that source.
func (m *Manager) ResetDecoderState(source Source) error {
	if err := m.checkInitialized(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	warmed, err := m.prewarmState()
	if err != nil {
		return err
	}
	m.sources[source] = warmed
	return nil
}

// Cleanup drops the manager's reference to the model and all per-source
// state. It does not close the model handle: the caller constructed it
// and owns its lifecycle, since the same ModelRunner may back more than
// one Manager. The manager must not be used afterward.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.model = nil
	m.sources = make(map[Source]*sourceState)
}

func (m *Manager) checkInitialized() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.model == nil || m.vocab == nil || m.decoder == nil {
		return errNotInitialized()
	}
	return nil
}

func isNonFinite(f float32) bool {
	return f != f || f > 3.4e38 || f < -3.4e38
}
