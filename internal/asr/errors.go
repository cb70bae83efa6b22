package asr

import "fmt"

// Kind classifies an error returned by the engine into one of the four
// kinds the core is allowed to produce. No other kind is ever surfaced.
type Kind int

const (
	// KindNotInitialized is returned when an operation runs before
	// Initialize adopted model handles and a vocabulary.
	KindNotInitialized Kind = iota
	// KindInvalidAudioData is returned for input shorter than one second
	// or containing non-finite samples.
	KindInvalidAudioData
	// KindModelLoadFailed is returned when model adoption could not
	// construct a valid prediction callable.
	KindModelLoadFailed
	// KindProcessingFailed is returned when a model stage returns an
	// unexpected shape, a missing output, or the TDT safety bound fires.
	KindProcessingFailed
)

func (k Kind) String() string {
	switch k {
	case KindNotInitialized:
		return "not_initialized"
	case KindInvalidAudioData:
		return "invalid_audio_data"
	case KindModelLoadFailed:
		return "model_load_failed"
	case KindProcessingFailed:
		return "processing_failed"
	default:
		return "unknown"
	}
}

// Error is the single error type the core produces. Stage is only
// meaningful for KindProcessingFailed and names the pipeline stage that
// failed (mel, encoder, decoder, joint, tdt).
type Error struct {
	Kind  Kind
	Stage string
	Err   error
}

func (e *Error) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s(%s): %v", e.Kind, e.Stage, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets callers do errors.Is(err, asr.ErrNotInitialized) and friends
// without caring about the wrapped cause.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

func errNotInitialized() error {
	return &Error{Kind: KindNotInitialized, Err: fmt.Errorf("models not adopted")}
}

func errInvalidAudio(reason string) error {
	return &Error{Kind: KindInvalidAudioData, Err: fmt.Errorf("%s", reason)}
}

func errModelLoadFailed(cause error) error {
	return &Error{Kind: KindModelLoadFailed, Err: cause}
}

func errProcessingFailed(stage string, cause error) error {
	return &Error{Kind: KindProcessingFailed, Stage: stage, Err: cause}
}

// Sentinels for errors.Is comparisons against a bare kind, e.g.
// errors.Is(err, asr.ErrNotInitialized).
var (
	ErrNotInitialized   = &Error{Kind: KindNotInitialized}
	ErrInvalidAudioData = &Error{Kind: KindInvalidAudioData}
	ErrModelLoadFailed  = &Error{Kind: KindModelLoadFailed}
	ErrProcessingFailed = &Error{Kind: KindProcessingFailed}
)
