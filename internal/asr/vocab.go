package asr

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// sentencePieceUnderline is the SentencePiece word-boundary marker (U+2581)
// that detokenize() turns back into a plain space.
const sentencePieceUnderline = "▁"

// Vocab is a dense token-id -> string mapping loaded once at
// initialization. It is read-only after construction.
type Vocab struct {
	tokens map[int]string
}

// LoadVocab reads a JSON object whose keys are decimal integer strings and
// whose values are token strings, as produced alongside the joint network's
// weights. Presence of id BlankID is required.
func LoadVocab(path string) (*Vocab, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errModelLoadFailed(fmt.Errorf("read vocab: %w", err))
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errModelLoadFailed(fmt.Errorf("parse vocab: %w", err))
	}

	tokens := make(map[int]string, len(raw))
	for key, text := range raw {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, errModelLoadFailed(fmt.Errorf("vocab key %q is not an integer", key))
		}
		tokens[id] = text
	}

	if _, ok := tokens[BlankID]; !ok {
		return nil, errModelLoadFailed(fmt.Errorf("vocab missing blank/sos id %d", BlankID))
	}

	return &Vocab{tokens: tokens}, nil
}

// NewVocabFromMap builds a Vocab directly from an in-memory mapping,
// primarily for tests and for callers that already parsed the file.
func NewVocabFromMap(tokens map[int]string) *Vocab {
	cp := make(map[int]string, len(tokens))
	for k, v := range tokens {
		cp[k] = v
	}
	return &Vocab{tokens: cp}
}

// Lookup returns the string for id, or "" if absent.
func (v *Vocab) Lookup(id int) string {
	return v.tokens[id]
}

// Detokenize concatenates the strings for ids, replaces the SentencePiece
// underline with a space, and trims leading/trailing whitespace. It is
// pure: the same ids always produce the same text, and the empty string is
// never a visible character on its own.
func (v *Vocab) Detokenize(ids []int) string {
	var b strings.Builder
	for _, id := range ids {
		b.WriteString(v.Lookup(id))
	}
	text := strings.ReplaceAll(b.String(), sentencePieceUnderline, " ")
	return strings.TrimSpace(text)
}
