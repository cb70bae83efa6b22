package asr

import (
	"encoding/json"
	"fmt"
	"time"
)

// TokenTiming is one token's place in the final transcript: its text,
// id, time span and confidence (§4.8, §6 Result object).
type TokenTiming struct {
	Token      string  `json:"token"`
	TokenID    int     `json:"token_id"`
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`
	Confidence float32 `json:"confidence"`
}

// Result is the engine's external result object.
type Result struct {
	Text           string        `json:"text"`
	Confidence     float32       `json:"confidence"`
	Duration       float64       `json:"duration"`
	ProcessingTime float64       `json:"processing_time"`
	TokenTimings   []TokenTiming `json:"token_timings"`
}

const (
	minAggregateConfidence = 0.1
	maxAggregateConfidence = 1.0
	emptyTranscriptConfidence = 0.1
)

// assembleResult implements C8: detokenize, build per-token timings, and
// aggregate one overall confidence. durations may be shorter than tokens
// (or nil) if a stage upstream didn't report them, in which case each
// token's end_time falls back to the next token's start_time.
func assembleResult(vocab *Vocab, tokens []int, timestamps []int, confidences []float32, durations []int, audioDurationSeconds, processingSeconds float64) *Result {
	text := vocab.Detokenize(tokens)

	timings := make([]TokenTiming, len(tokens))
	for i, id := range tokens {
		start := FrameToSeconds(timestamps[i])
		var end float64
		if i < len(durations) && durations[i] > 0 {
			end = start + float64(durations[i])*FrameSeconds
		} else if i+1 < len(tokens) {
			end = FrameToSeconds(timestamps[i+1])
		} else {
			end = start + FrameSeconds
		}
		if end < start+FrameSeconds {
			end = start + FrameSeconds
		}
		timings[i] = TokenTiming{
			Token:      vocab.Lookup(id),
			TokenID:    id,
			StartTime:  start,
			EndTime:    end,
			Confidence: confidences[i],
		}
	}

	confidence := float32(emptyTranscriptConfidence)
	if len(confidences) > 0 {
		var sum float32
		for _, c := range confidences {
			sum += c
		}
		confidence = sum / float32(len(confidences))
		if confidence < minAggregateConfidence {
			confidence = minAggregateConfidence
		}
		if confidence > maxAggregateConfidence {
			confidence = maxAggregateConfidence
		}
	}

	return &Result{
		Text:           text,
		Confidence:     confidence,
		Duration:       audioDurationSeconds,
		ProcessingTime: processingSeconds,
		TokenTimings:   timings,
	}
}

// FormatAsText returns the transcription as plain text.
func (r *Result) FormatAsText() string {
	return r.Text
}

// FormatAsJSON returns the transcription as formatted JSON.
func (r *Result) FormatAsJSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// FormatAsSRT returns the transcription as SRT subtitle format, one
// subtitle entry per recognized token.
func (r *Result) FormatAsSRT() string {
	if len(r.TokenTimings) == 0 {
		return formatSRTSegment(1, 0, 0, r.Text)
	}

	var srt string
	for i, t := range r.TokenTimings {
		srt += formatSRTSegment(i+1, t.StartTime, t.EndTime, t.Token)
		if i < len(r.TokenTimings)-1 {
			srt += "\n"
		}
	}
	return srt
}

func formatSRTSegment(index int, startSec, endSec float64, text string) string {
	return fmt.Sprintf("%d\n%s --> %s\n%s\n", index, formatSRTTime(startSec), formatSRTTime(endSec), text)
}

func formatSRTTime(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	ms := int(d.Milliseconds()) % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
