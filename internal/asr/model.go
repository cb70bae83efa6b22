package asr

import (
	"fmt"
	"os"

	ort "github.com/yalue/onnxruntime_go"
)

// MelOutput is the mel-spectrogram model's output: a [1, F, T] feature
// tensor plus the unpadded frame count.
type MelOutput struct {
	Features []float32
	Dim      int
	Frames   int
	Length   int32
}

// EncoderOutput is the acoustic encoder's output: a [1, T, H] tensor plus
// the unpadded encoded length.
type EncoderOutput struct {
	Output []float32
	Dim    int
	Length int
}

// DecoderOutput is one decoder step's output: the [1,1,H'] feature vector
// plus updated hidden/cell state.
type DecoderOutput struct {
	Feature []float32
	H       []float32
	C       []float32
}

// JointOutput is the joint network's output for one step: V vocabulary
// logits followed by D duration logits, concatenated.
type JointOutput struct {
	Logits []float32
}

// ModelPaths names the four ONNX graphs the adapter loads. Weights
// themselves are opaque; the adapter only relies on the declared
// input/output names below.
type ModelPaths struct {
	Mel     string
	Encoder string
	Decoder string
	Joint   string
}

// ModelRunner is the only polymorphism the engine needs (§9 design
// notes): one small interface over the four prediction stages. The TDT
// decoder and manager depend on this interface, not on *ModelAdapter
// directly, so tests can substitute a fake runner without ONNX Runtime or
// real model weights.
type ModelRunner interface {
	RunMel(samples []float32) (MelOutput, error)
	RunEncoder(mel MelOutput, encoderDim int) (EncoderOutput, error)
	RunDecoder(targetToken int, state *DecoderState) (DecoderOutput, error)
	RunJoint(encStep, decStep []float32) (JointOutput, error)
	Close()
}

// ModelAdapter wraps the four neural models behind one interface, hiding
// ONNX Runtime session plumbing and input-buffer chaining from the rest
// of the engine (C4). The four models are treated strictly as black-box
// tensor functions; the adapter never introspects their weights.
type ModelAdapter struct {
	mel     *ort.DynamicAdvancedSession
	encoder *ort.DynamicAdvancedSession
	decoder *ort.DynamicAdvancedSession
	joint   *ort.DynamicAdvancedSession

	durations []int
}

// NewModelAdapter loads all four models and initializes the ONNX Runtime
// environment. durations is the ordered allowed-duration list from the
// TDT configuration surface (default {0,1,2,3,4}); the adapter needs it
// only to size the joint network's duration logits block.
func NewModelAdapter(paths ModelPaths, durations []int, sharedLibPath string) (*ModelAdapter, error) {
	if !ort.IsInitialized() {
		if sharedLibPath == "" {
			sharedLibPath = os.Getenv("ONNXRUNTIME_LIB")
		}
		if sharedLibPath != "" {
			ort.SetSharedLibraryPath(sharedLibPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, errModelLoadFailed(fmt.Errorf("initialize onnx runtime: %w", err))
		}
	}

	mel, err := ort.NewDynamicAdvancedSession(paths.Mel,
		[]string{"audio_signal", "audio_length"},
		[]string{"melspectrogram", "melspectrogram_length"}, nil)
	if err != nil {
		return nil, errModelLoadFailed(fmt.Errorf("load mel model: %w", err))
	}

	encoder, err := ort.NewDynamicAdvancedSession(paths.Encoder,
		[]string{"audio_signal", "length"},
		[]string{"encoder_output", "encoder_output_length"}, nil)
	if err != nil {
		mel.Destroy()
		return nil, errModelLoadFailed(fmt.Errorf("load encoder model: %w", err))
	}

	decoder, err := ort.NewDynamicAdvancedSession(paths.Decoder,
		[]string{"targets", "target_lengths", "h_in", "c_in"},
		[]string{"decoder", "h_out", "c_out"}, nil)
	if err != nil {
		mel.Destroy()
		encoder.Destroy()
		return nil, errModelLoadFailed(fmt.Errorf("load decoder model: %w", err))
	}

	joint, err := ort.NewDynamicAdvancedSession(paths.Joint,
		[]string{"encoder_step", "decoder_step"},
		[]string{"logits"}, nil)
	if err != nil {
		mel.Destroy()
		encoder.Destroy()
		decoder.Destroy()
		return nil, errModelLoadFailed(fmt.Errorf("load joint model: %w", err))
	}

	return &ModelAdapter{
		mel:       mel,
		encoder:   encoder,
		decoder:   decoder,
		joint:     joint,
		durations: durations,
	}, nil
}

// Close releases all four sessions. It does not tear down the shared ONNX
// Runtime environment, which may be used by other adapters in-process.
func (m *ModelAdapter) Close() {
	if m.mel != nil {
		m.mel.Destroy()
	}
	if m.encoder != nil {
		m.encoder.Destroy()
	}
	if m.decoder != nil {
		m.decoder.Destroy()
	}
	if m.joint != nil {
		m.joint.Destroy()
	}
}

// RunMel runs the mel-spectrogram model over a batch of raw audio samples.
func (m *ModelAdapter) RunMel(samples []float32) (MelOutput, error) {
	audioTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(samples))), samples)
	if err != nil {
		return MelOutput{}, errProcessingFailed("mel", err)
	}
	defer audioTensor.Destroy()

	lengthTensor, err := ort.NewTensor(ort.NewShape(1), []int32{int32(len(samples))})
	if err != nil {
		return MelOutput{}, errProcessingFailed("mel", err)
	}
	defer lengthTensor.Destroy()

	// Output shapes depend on the model's own feature size and frame
	// count; the mel model reports its length output, so size the feature
	// tensor generously and hand the untrimmed buffer on together with the
	// reported length, which the encoder receives as its length input.
	maxFrames := FramesForSamples(len(samples))*10 + 16
	const melFeatureDim = 128
	featShape := ort.NewShape(1, int64(melFeatureDim), int64(maxFrames))
	featTensor, err := ort.NewEmptyTensor[float32](featShape)
	if err != nil {
		return MelOutput{}, errProcessingFailed("mel", err)
	}
	defer featTensor.Destroy()

	lenOutTensor, err := ort.NewEmptyTensor[int32](ort.NewShape(1))
	if err != nil {
		return MelOutput{}, errProcessingFailed("mel", err)
	}
	defer lenOutTensor.Destroy()

	if err := m.mel.Run(
		[]ort.ArbitraryTensor{audioTensor, lengthTensor},
		[]ort.ArbitraryTensor{featTensor, lenOutTensor},
	); err != nil {
		return MelOutput{}, errProcessingFailed("mel", err)
	}

	length := lenOutTensor.GetData()[0]
	return MelOutput{
		Features: featTensor.GetData(),
		Dim:      melFeatureDim,
		Frames:   maxFrames,
		Length:   length,
	}, nil
}

// RunEncoder runs the acoustic encoder over mel features. When the
// encoder's input shape matches mel's output shape exactly, the same
// backing slice is handed to the encoder's input tensor without copying;
// this is always the case here since the encoder consumes mel's output
// verbatim (zero-copy chaining, §4.4).
func (m *ModelAdapter) RunEncoder(mel MelOutput, encoderDim int) (EncoderOutput, error) {
	featShape := ort.NewShape(1, int64(mel.Dim), int64(mel.Frames))
	featTensor, err := ort.NewTensor(featShape, mel.Features)
	if err != nil {
		return EncoderOutput{}, errProcessingFailed("encoder", err)
	}
	defer featTensor.Destroy()

	lengthTensor, err := ort.NewTensor(ort.NewShape(1), []int32{mel.Length})
	if err != nil {
		return EncoderOutput{}, errProcessingFailed("encoder", err)
	}
	defer lengthTensor.Destroy()

	outFrames := mel.Frames/8 + 1
	outShape := ort.NewShape(1, int64(outFrames), int64(encoderDim))
	outTensor, err := ort.NewEmptyTensor[float32](outShape)
	if err != nil {
		return EncoderOutput{}, errProcessingFailed("encoder", err)
	}
	defer outTensor.Destroy()

	outLenTensor, err := ort.NewEmptyTensor[int32](ort.NewShape(1))
	if err != nil {
		return EncoderOutput{}, errProcessingFailed("encoder", err)
	}
	defer outLenTensor.Destroy()

	if err := m.encoder.Run(
		[]ort.ArbitraryTensor{featTensor, lengthTensor},
		[]ort.ArbitraryTensor{outTensor, outLenTensor},
	); err != nil {
		return EncoderOutput{}, errProcessingFailed("encoder", err)
	}

	return EncoderOutput{
		Output: outTensor.GetData(),
		Dim:    encoderDim,
		Length: int(outLenTensor.GetData()[0]),
	}, nil
}

// RunDecoder runs a single decoder step for targetToken against the given
// state, without mutating state itself — the caller (C5) decides whether
// to commit the returned h/c via DecoderState.update.
func (m *ModelAdapter) RunDecoder(targetToken int, state *DecoderState) (DecoderOutput, error) {
	targetsTensor, err := ort.NewTensor(ort.NewShape(1, 1), []int32{int32(targetToken)})
	if err != nil {
		return DecoderOutput{}, errProcessingFailed("decoder", err)
	}
	defer targetsTensor.Destroy()

	targetLenTensor, err := ort.NewTensor(ort.NewShape(1), []int32{1})
	if err != nil {
		return DecoderOutput{}, errProcessingFailed("decoder", err)
	}
	defer targetLenTensor.Destroy()

	stateShape := ort.NewShape(DecoderStateLayers, 1, DecoderStateDim)
	hTensor, err := ort.NewTensor(stateShape, state.H)
	if err != nil {
		return DecoderOutput{}, errProcessingFailed("decoder", err)
	}
	defer hTensor.Destroy()

	cTensor, err := ort.NewTensor(stateShape, state.C)
	if err != nil {
		return DecoderOutput{}, errProcessingFailed("decoder", err)
	}
	defer cTensor.Destroy()

	featTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1, DecoderStateDim))
	if err != nil {
		return DecoderOutput{}, errProcessingFailed("decoder", err)
	}
	defer featTensor.Destroy()

	hOutTensor, err := ort.NewEmptyTensor[float32](stateShape)
	if err != nil {
		return DecoderOutput{}, errProcessingFailed("decoder", err)
	}
	defer hOutTensor.Destroy()

	cOutTensor, err := ort.NewEmptyTensor[float32](stateShape)
	if err != nil {
		return DecoderOutput{}, errProcessingFailed("decoder", err)
	}
	defer cOutTensor.Destroy()

	if err := m.decoder.Run(
		[]ort.ArbitraryTensor{targetsTensor, targetLenTensor, hTensor, cTensor},
		[]ort.ArbitraryTensor{featTensor, hOutTensor, cOutTensor},
	); err != nil {
		return DecoderOutput{}, errProcessingFailed("decoder", err)
	}

	return DecoderOutput{
		Feature: featTensor.GetData(),
		H:       hOutTensor.GetData(),
		C:       cOutTensor.GetData(),
	}, nil
}

// RunJoint runs the joint network over one encoder step and one decoder
// step. Both inputs are handed in as-is (zero-copy): the joint network
// consumes the encoder/decoder feature vectors directly, with no
// intervening transform.
func (m *ModelAdapter) RunJoint(encStep, decStep []float32) (JointOutput, error) {
	encTensor, err := ort.NewTensor(ort.NewShape(1, 1, int64(len(encStep))), encStep)
	if err != nil {
		return JointOutput{}, errProcessingFailed("joint", err)
	}
	defer encTensor.Destroy()

	decTensor, err := ort.NewTensor(ort.NewShape(1, 1, int64(len(decStep))), decStep)
	if err != nil {
		return JointOutput{}, errProcessingFailed("joint", err)
	}
	defer decTensor.Destroy()

	outDim := VocabSize + len(m.durations)
	outTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(outDim)))
	if err != nil {
		return JointOutput{}, errProcessingFailed("joint", err)
	}
	defer outTensor.Destroy()

	if err := m.joint.Run(
		[]ort.ArbitraryTensor{encTensor, decTensor},
		[]ort.ArbitraryTensor{outTensor},
	); err != nil {
		return JointOutput{}, errProcessingFailed("joint", err)
	}

	return JointOutput{Logits: outTensor.GetData()}, nil
}
