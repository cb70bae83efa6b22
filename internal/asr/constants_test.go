package asr

import "testing"

func TestFramesForSamplesRoundTrip(t *testing.T) {
	// P1: frames_for_samples(samples_for_frames(f)) == f for f >= 0.
	for f := 0; f <= 300; f++ {
		got := FramesForSamples(SamplesForFrames(f))
		if got != f {
			t.Fatalf("f=%d: FramesForSamples(SamplesForFrames(f))=%d, want %d", f, got, f)
		}
	}
}

func TestFramesForSamples(t *testing.T) {
	cases := []struct {
		samples int
		frames  int
	}{
		{0, 0},
		{1, 1},
		{SamplesPerFrame, 1},
		{SamplesPerFrame + 1, 2},
		{ModelWindowSamples, ModelWindowPadded}, // 240000/1280 = 187.5 -> 188
	}
	for _, c := range cases {
		if got := FramesForSamples(c.samples); got != c.frames {
			t.Errorf("FramesForSamples(%d) = %d, want %d", c.samples, got, c.frames)
		}
	}
}

func TestFrameToSeconds(t *testing.T) {
	if got := FrameToSeconds(140); got != 11.2 {
		t.Errorf("FrameToSeconds(140) = %v, want 11.2", got)
	}
}
