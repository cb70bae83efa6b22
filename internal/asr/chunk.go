package asr

import "sort"

// terminalPunctuation is the set of vocabulary ids treated specially by
// dedup rule 1 (§4.6). The manager builds it in Initialize from the ids
// its caller passes, or from defaultTerminalPunctuationIDs when none are
// passed; it is not derived from the loaded vocabulary.
type terminalPunctuation struct {
	ids map[int]bool
}

// newTerminalPunctuation builds the lookup set dedup rule 1 consults. ids
// are model-specific vocabulary ids (period/question mark/exclamation
// mark), supplied by the manager in Initialize.
func newTerminalPunctuation(ids []int) terminalPunctuation {
	m := make(map[int]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return terminalPunctuation{ids: m}
}

func (t terminalPunctuation) has(id int) bool {
	return t.ids[id]
}

// window is one sliding-window chunk's sample range, half-open
// [LeftStart, RightEnd).
type window struct {
	LeftStart int
	RightEnd  int
	IsFirst   bool
	IsLast    bool
}

// planWindows lays out the sliding windows over n samples per the
// windowing rule in §4.6. Manager.TranscribeSource only calls it when n
// exceeds ModelWindowSamples, but it does not special-case shorter n: any
// n beyond the first window's center + right context (204800 samples),
// including n == ModelWindowSamples, yields at least two windows.
func planWindows(n int) []window {
	center := SamplesForFrames(ChunkCenterFrames)
	leftCtx := SamplesForFrames(ChunkLeftContextFrames)
	rightCtx := SamplesForFrames(ChunkRightContextFrames)

	var windows []window
	centerStart := 0
	for centerStart < n {
		remaining := n - centerStart
		isLast := remaining < center

		var w window
		switch {
		case centerStart == 0:
			w = window{LeftStart: 0, RightEnd: min(n, center+rightCtx), IsFirst: true}
		case isLast:
			// Extend left context so the tail chunk spans up to a
			// full model window, maximizing useful signal, never
			// crossing sample 0.
			leftStart := n - ModelWindowSamples
			if leftStart < 0 {
				leftStart = 0
			}
			w = window{LeftStart: leftStart, RightEnd: n, IsLast: true}
		default:
			leftStart := centerStart - leftCtx
			if leftStart < 0 {
				leftStart = 0
			}
			w = window{LeftStart: leftStart, RightEnd: min(n, centerStart+center+rightCtx)}
		}

		windows = append(windows, w)
		if w.RightEnd >= n {
			break
		}
		centerStart += center
	}
	return windows
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// contextFrameAdjustmentFor computes the context_frame_adjustment for a
// chunk given the previous chunk's last-processed absolute frame and this
// chunk's starting absolute frame (§4.6). First and middle chunks always
// pass 0; only the last chunk computes a real adjustment.
func contextFrameAdjustmentFor(w window, globalFrameOffset int, prevLastProcessedFrame int) int {
	if !w.IsLast {
		return 0
	}
	overlap := prevLastProcessedFrame - globalFrameOffset
	if overlap > 0 {
		adjustment := overlap - lastChunkSafetyFrames
		if adjustment < 0 {
			adjustment = 0
		}
		return adjustment
	}
	return lastChunkNudgeFrames
}

// DedupResult is the outcome of deduplicating current against previous.
type DedupResult struct {
	Tokens       []int
	Timestamps   []int
	Confidences  []float32
	RemovedCount int
}

// DedupTokens implements the four dedup rules of §4.6, in order. previous
// is the full accumulated token history; current/timestamps/confidences
// describe the newly decoded chunk, in lockstep.
func DedupTokens(previous []int, current []int, timestamps []int, confidences []float32, punctuation terminalPunctuation, boundarySearchFrames int) DedupResult {
	drop := 0

	// Rule 1: matching terminal punctuation at the seam.
	if len(previous) > 0 && len(current) > 0 && previous[len(previous)-1] == current[0] && punctuation.has(current[0]) {
		drop = 1
	} else {
		maxOverlap := min(boundaryMaxOverlapTokens, min(len(previous), len(current)))

		// Rule 2: longest exact suffix/prefix match.
		for k := maxOverlap; k >= 2; k-- {
			if equalSlices(previous[len(previous)-k:], current[:k]) {
				drop = k
				break
			}
		}

		// Rule 3: boundary search within bounded windows.
		if drop == 0 {
			drop = boundarySearch(previous, current, maxOverlap, boundarySearchFrames)
		}
	}

	if drop > len(current) {
		drop = len(current)
	}

	return DedupResult{
		Tokens:       append([]int{}, current[drop:]...),
		Timestamps:   append([]int{}, timestamps[drop:]...),
		Confidences:  append([]float32{}, confidences[drop:]...),
		RemovedCount: drop,
	}
}

func boundarySearch(previous, current []int, maxOverlap, boundarySearchFrames int) int {
	tail := previous
	if len(tail) > boundaryMaxOverlapTokens {
		tail = tail[len(tail)-boundaryMaxOverlapTokens:]
	}
	head := current
	if len(head) > boundarySearchFrames {
		head = head[:boundarySearchFrames]
	}

	for k := maxOverlap; k >= 2; k-- {
		for currentStart := 0; currentStart+k <= len(head); currentStart++ {
			for tailStart := 0; tailStart+k <= len(tail); tailStart++ {
				if equalSlices(tail[tailStart:tailStart+k], head[currentStart:currentStart+k]) {
					return currentStart + k
				}
			}
		}
	}
	return 0
}

func equalSlices(a, b []int) bool {
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

// SortByTimestamp sorts accumulated (token, timestamp, confidence)
// triples into chronological order, stably, as the final step of C6.
func SortByTimestamp(tokens []int, timestamps []int, confidences []float32, durations []int) {
	idx := make([]int, len(tokens))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return timestamps[idx[i]] < timestamps[idx[j]]
	})

	sortedTokens := make([]int, len(tokens))
	sortedTimestamps := make([]int, len(timestamps))
	sortedConfidences := make([]float32, len(confidences))
	sortedDurations := make([]int, len(durations))
	for newPos, oldPos := range idx {
		sortedTokens[newPos] = tokens[oldPos]
		sortedTimestamps[newPos] = timestamps[oldPos]
		sortedConfidences[newPos] = confidences[oldPos]
		if oldPos < len(durations) {
			sortedDurations[newPos] = durations[oldPos]
		}
	}
	copy(tokens, sortedTokens)
	copy(timestamps, sortedTimestamps)
	copy(confidences, sortedConfidences)
	copy(durations, sortedDurations)
}
