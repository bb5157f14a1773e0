package modelpkg

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dentalai/dentalsynth/pkg/conditions"
)

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

// valueInfoBytes encodes a ValueInfoProto. Negative dims become symbolic.
func valueInfoBytes(name string, dims ...int64) []byte {
	var shape []byte
	for _, d := range dims {
		var dim []byte
		if d < 0 {
			dim = appendString(dim, dimParam, "batch")
		} else {
			dim = protowire.AppendTag(dim, dimValue, protowire.VarintType)
			dim = protowire.AppendVarint(dim, uint64(d))
		}
		shape = appendMessage(shape, shapeDim, dim)
	}
	var tensor []byte
	tensor = protowire.AppendTag(tensor, 1, protowire.VarintType) // elem_type FLOAT
	tensor = protowire.AppendVarint(tensor, 1)
	tensor = appendMessage(tensor, tensorShape, shape)

	var vi []byte
	vi = appendString(vi, valueInfoName, name)
	vi = appendMessage(vi, valueInfoType, appendMessage(nil, typeTensor, tensor))
	return vi
}

func nodeBytes(name, op string) []byte {
	var n []byte
	n = appendString(n, 1, "x") // input
	n = appendString(n, nodeName, name)
	n = appendString(n, nodeOpType, op)
	return n
}

func writeModel(t *testing.T, nodes [][2]string, outputs ...[]byte) string {
	t.Helper()
	var g []byte
	for _, n := range nodes {
		g = appendMessage(g, graphNode, nodeBytes(n[0], n[1]))
	}
	g = appendString(g, 2, "main_graph")
	g = appendMessage(g, graphInput, valueInfoBytes("images", 1, 3, 416, 416))
	for _, o := range outputs {
		g = appendMessage(g, graphOutput, o)
	}

	var m []byte
	m = protowire.AppendTag(m, 1, protowire.VarintType) // ir_version
	m = protowire.AppendVarint(m, 8)
	m = appendString(m, 2, "pytorch")
	m = appendMessage(m, modelGraph, g)

	path := filepath.Join(t.TempDir(), "model.onnx")
	require.NoError(t, os.WriteFile(path, m, 0o644))
	return path
}

func TestInspectONNXYOLO(t *testing.T) {
	path := writeModel(t,
		[][2]string{{"/model.0/conv/Conv", "Conv"}, {"/model.22/Sigmoid", "Sigmoid"}, {"/model.22/Concat", "Concat"}, {"/model.1/conv/Conv", "Conv"}},
		valueInfoBytes("output0", -1, 3549, 14),
	)

	r, err := InspectONNX(path)
	require.NoError(t, err)
	assert.True(t, r.OK)
	assert.Equal(t, []string{"images"}, r.Inputs)
	assert.Equal(t, []string{"output0"}, r.Outputs)
	assert.Equal(t, 3, r.UniqueOpsCount)
	assert.Equal(t, []string{"Concat", "Conv", "Sigmoid"}, r.Ops)
	assert.True(t, r.IsProbablyYOLO)

	require.Len(t, r.OutputShapes, 1)
	s := r.OutputShapes[0]
	require.Len(t, s, 3)
	assert.Nil(t, s[0])
	assert.Equal(t, int64(3549), *s[1])

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"output_shapes_inferred":[[null,3549,14]]`)
}

func TestInspectONNXClassifier(t *testing.T) {
	// Large last dim but neither YOLO naming nor a [1, N, D] output.
	path := writeModel(t,
		[][2]string{{"fc", "Gemm"}, {"prob", "Softmax"}},
		valueInfoBytes("logits", 1, 1000),
	)
	r, err := InspectONNX(path)
	require.NoError(t, err)
	assert.False(t, r.IsProbablyYOLO)

	// Shape alone is enough once the last dim qualifies.
	path = writeModel(t, [][2]string{{"fc", "Gemm"}}, valueInfoBytes("out", 1, 8400, 84))
	r, err = InspectONNX(path)
	require.NoError(t, err)
	assert.True(t, r.IsProbablyYOLO)
}

func TestInspectONNXErrors(t *testing.T) {
	r, err := InspectONNX(filepath.Join(t.TempDir(), "missing.onnx"))
	assert.Error(t, err)
	assert.False(t, r.OK)
	assert.NotEmpty(t, r.Error)

	bad := filepath.Join(t.TempDir(), "bad.onnx")
	require.NoError(t, os.WriteFile(bad, []byte{0x3a, 0xff}, 0o644))
	_, err = InspectONNX(bad)
	assert.Error(t, err)

	nograph := filepath.Join(t.TempDir(), "nograph.onnx")
	require.NoError(t, os.WriteFile(nograph, appendString(nil, 2, "pytorch"), 0o644))
	_, err = InspectONNX(nograph)
	assert.ErrorContains(t, err, "no graph")
}

func TestAnchors(t *testing.T) {
	assert.Equal(t, 3549, Anchors(416))
	assert.Equal(t, 8400, Anchors(640))
}

func TestWritePlaceholder(t *testing.T) {
	out := filepath.Join(t.TempDir(), "Models", DefaultPlaceholderName)
	size, err := WritePlaceholder(out, DefaultPlaceholderOptions())
	require.NoError(t, err)
	assert.Positive(t, size)

	for _, f := range []string{"manifest.json", "Data/model_info.json", "Data/weights.bin"} {
		assert.FileExists(t, filepath.Join(out, f))
	}

	info, err := ReadModelInfo(out)
	require.NoError(t, err)
	assert.Equal(t, "DentalDetectionModel", info.ModelName)
	assert.Equal(t, []int{1, 3, 416, 416}, info.InputShape)
	assert.Equal(t, []int{1, 4 + conditions.Count(), 3549}, info.OutputShape)
	assert.Equal(t, conditions.Names(), info.Classes)
	assert.Equal(t, 0.45, info.IoUThreshold)
}

func TestWritePlaceholderRejectsBadOptions(t *testing.T) {
	opts := DefaultPlaceholderOptions()
	opts.ImgSize = 400
	_, err := WritePlaceholder(filepath.Join(t.TempDir(), "m.mlpackage"), opts)
	assert.Error(t, err)

	opts = DefaultPlaceholderOptions()
	opts.Confidence = 2
	_, err = WritePlaceholder(filepath.Join(t.TempDir(), "m.mlpackage"), opts)
	assert.Error(t, err)
}
