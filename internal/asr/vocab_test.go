package asr

import (
	"errors"
	"testing"
)

func testVocab() *Vocab {
	return NewVocabFromMap(map[int]string{
		1:    "▁hello",
		2:    "▁world",
		3:    ".",
		1024: "<blk>",
	})
}

func TestVocabLookup(t *testing.T) {
	v := testVocab()
	if got := v.Lookup(1); got != "▁hello" {
		t.Errorf("Lookup(1) = %q, want %q", got, "▁hello")
	}
	if got := v.Lookup(999); got != "" {
		t.Errorf("Lookup(999) = %q, want empty", got)
	}
}

func TestDetokenize(t *testing.T) {
	v := testVocab()
	cases := []struct {
		ids  []int
		want string
	}{
		{[]int{1, 2}, "hello world"},
		{[]int{1, 2, 3}, "hello world."},
		{nil, ""},
	}
	for _, c := range cases {
		if got := v.Detokenize(c.ids); got != c.want {
			t.Errorf("Detokenize(%v) = %q, want %q", c.ids, got, c.want)
		}
	}
}

func TestDetokenizeIdempotentAndPure(t *testing.T) {
	// P2: detokenization is idempotent and injective on ids that don't
	// mix blank ids; same ids always produce the same text.
	v := testVocab()
	ids := []int{1, 2, 3}
	first := v.Detokenize(ids)
	second := v.Detokenize(ids)
	if first != second {
		t.Fatalf("Detokenize not pure: %q != %q", first, second)
	}
	if v.Detokenize([]int{1}) == v.Detokenize([]int{2}) {
		t.Fatalf("distinct token sequences produced identical text")
	}
}

func TestLoadVocabMissingFile(t *testing.T) {
	_, err := LoadVocab("/nonexistent/vocab.json")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	var asrErr *Error
	if !errors.As(err, &asrErr) || asrErr.Kind != KindModelLoadFailed {
		t.Fatalf("expected model_load_failed, got %v", err)
	}
}
