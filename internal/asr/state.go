package asr

// DecoderState holds the hidden/cell recurrent tensor pair the decoder
// carries across TDT steps and across chunks within one source. Both
// tensors are Float32 and shaped [DecoderStateLayers, 1, DecoderStateDim],
// flattened row-major.
type DecoderState struct {
	H []float32
	C []float32
}

func stateTensorLen() int {
	return DecoderStateLayers * 1 * DecoderStateDim
}

// newDecoderState allocates a zeroed state pair. Go slice allocation
// cannot fail short of OOM, so there is no fallback path to a
// non-aligned allocation here; the shape invariant is guaranteed by
// construction.
func newDecoderState() *DecoderState {
	return &DecoderState{
		H: make([]float32, stateTensorLen()),
		C: make([]float32, stateTensorLen()),
	}
}

// update copies the decoder's h_out/c_out feature values into the stored
// tensors in place, overwriting the previous step's state.
func (s *DecoderState) update(hOut, cOut []float32) {
	copy(s.H, hOut)
	copy(s.C, cOut)
}

// snapshot returns an independent copy of the current state, used by the
// manager to roll back a source's state if a transcribe call fails
// partway through (no partial commit).
func (s *DecoderState) snapshot() *DecoderState {
	cp := &DecoderState{
		H: make([]float32, len(s.H)),
		C: make([]float32, len(s.C)),
	}
	copy(cp.H, s.H)
	copy(cp.C, s.C)
	return cp
}

// restore overwrites s in place with a previously taken snapshot.
func (s *DecoderState) restore(snap *DecoderState) {
	copy(s.H, snap.H)
	copy(s.C, snap.C)
}
