package asr

import "testing"

func TestDedupTerminalPunctuation(t *testing.T) {
	// Scenario 5: previous ends in a terminal-punctuation id that also
	// starts current -> drop exactly one token.
	const periodID = 3
	punct := newTerminalPunctuation([]int{periodID})

	previous := []int{10, 11, periodID}
	current := []int{periodID, 20, 21}
	timestamps := []int{100, 101, 102}
	confidences := []float32{0.9, 0.8, 0.7}

	result := DedupTokens(previous, current, timestamps, confidences, punct, 4)
	if result.RemovedCount != 1 {
		t.Fatalf("RemovedCount = %d, want 1", result.RemovedCount)
	}
	want := []int{20, 21}
	if !equalSlices(result.Tokens, want) {
		t.Fatalf("Tokens = %v, want %v", result.Tokens, want)
	}
}

func TestDedupLongestSuffixPrefix(t *testing.T) {
	punct := newTerminalPunctuation(nil)

	previous := []int{1, 2, 3, 4, 5}
	current := []int{4, 5, 6, 7}
	timestamps := []int{10, 11, 12, 13}
	confidences := []float32{1, 1, 1, 1}

	result := DedupTokens(previous, current, timestamps, confidences, punct, 4)
	if result.RemovedCount != 2 {
		t.Fatalf("RemovedCount = %d, want 2", result.RemovedCount)
	}
	want := []int{6, 7}
	if !equalSlices(result.Tokens, want) {
		t.Fatalf("Tokens = %v, want %v", result.Tokens, want)
	}
}

func TestDedupNoOverlapDropsNothing(t *testing.T) {
	punct := newTerminalPunctuation(nil)

	previous := []int{1, 2, 3}
	current := []int{8, 9, 10}
	timestamps := []int{10, 11, 12}
	confidences := []float32{1, 1, 1}

	result := DedupTokens(previous, current, timestamps, confidences, punct, 4)
	if result.RemovedCount != 0 {
		t.Fatalf("RemovedCount = %d, want 0", result.RemovedCount)
	}
	if !equalSlices(result.Tokens, current) {
		t.Fatalf("Tokens = %v, want %v (unchanged)", result.Tokens, current)
	}
}

func TestSortByTimestamp(t *testing.T) {
	tokens := []int{3, 1, 2}
	timestamps := []int{30, 10, 20}
	confidences := []float32{0.3, 0.1, 0.2}
	durations := []int{3, 1, 2}

	SortByTimestamp(tokens, timestamps, confidences, durations)

	wantTokens := []int{1, 2, 3}
	wantTimestamps := []int{10, 20, 30}
	if !equalSlices(tokens, wantTokens) {
		t.Errorf("tokens = %v, want %v", tokens, wantTokens)
	}
	if !equalSlices(timestamps, wantTimestamps) {
		t.Errorf("timestamps = %v, want %v", timestamps, wantTimestamps)
	}
}

func TestPlanWindowsSingleChunkNotNeeded(t *testing.T) {
	// Audio fitting in one model window is split by planWindows like any
	// other input (here into two windows, the first marked IsFirst);
	// callers with <= ModelWindowSamples skip calling this entirely
	// (Manager handles that case directly).
	windows := planWindows(ModelWindowSamples)
	if len(windows) == 0 {
		t.Fatal("expected at least one window")
	}
	if !windows[0].IsFirst {
		t.Errorf("first window should have IsFirst=true")
	}
}

func TestPlanWindowsLongAudioProducesMultipleChunks(t *testing.T) {
	n := ModelWindowSamples*2 + SamplesPerFrame*100
	windows := planWindows(n)
	if len(windows) < 2 {
		t.Fatalf("expected multiple windows for long audio, got %d", len(windows))
	}
	if !windows[0].IsFirst {
		t.Errorf("first window missing IsFirst")
	}
	if !windows[len(windows)-1].IsLast {
		t.Errorf("last window missing IsLast")
	}
	if windows[len(windows)-1].RightEnd != n {
		t.Errorf("last window RightEnd = %d, want %d", windows[len(windows)-1].RightEnd, n)
	}
}
