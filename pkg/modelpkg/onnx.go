package modelpkg

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

// ONNX field numbers from onnx.proto.
const (
	modelGraph = 7

	graphNode   = 1
	graphInput  = 11
	graphOutput = 12

	nodeName   = 3
	nodeOpType = 4

	valueInfoName = 1
	valueInfoType = 2

	typeTensor = 1

	tensorShape = 2

	shapeDim = 1

	dimValue = 1
	dimParam = 2
)

var yoloTerms = []string{"yolo", "detect", "focus", "sigmoid", "nms", "grid", "anchor"}

// Shape is a tensor shape. Symbolic or missing dimensions are nil.
type Shape []*int64

// Report summarizes an ONNX model.
type Report struct {
	OK             bool     `json:"ok"`
	Path           string   `json:"path"`
	Error          string   `json:"error,omitempty"`
	Inputs         []string `json:"inputs"`
	Outputs        []string `json:"outputs"`
	OutputShapes   []Shape  `json:"output_shapes_inferred"`
	UniqueOpsCount int      `json:"unique_ops_count"`
	Ops            []string `json:"-"`
	IsProbablyYOLO bool     `json:"is_probably_yolo"`
}

type node struct {
	name, opType string
}

type valueInfo struct {
	name     string
	shape    Shape
	hasShape bool
}

type graph struct {
	nodes   []node
	inputs  []valueInfo
	outputs []valueInfo
}

// InspectONNX reads the model at path. A file that cannot be read or parsed
// yields an error and a Report with OK false.
func InspectONNX(path string) (*Report, error) {
	r := &Report{Path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		r.Error = fmt.Sprintf("Failed to load ONNX: %v", err)
		return r, fmt.Errorf("failed to read model: %w", err)
	}
	g, err := parseModel(data)
	if err != nil {
		r.Error = fmt.Sprintf("Failed to load ONNX: %v", err)
		return r, fmt.Errorf("failed to parse model: %w", err)
	}

	r.OK = true
	r.Inputs = []string{}
	r.Outputs = []string{}
	r.OutputShapes = []Shape{}
	for _, in := range g.inputs {
		r.Inputs = append(r.Inputs, in.name)
	}
	ops := map[string]struct{}{}
	for _, n := range g.nodes {
		ops[n.opType] = struct{}{}
	}
	for op := range ops {
		r.Ops = append(r.Ops, op)
	}
	sort.Strings(r.Ops)
	r.UniqueOpsCount = len(r.Ops)

	for _, out := range g.outputs {
		r.Outputs = append(r.Outputs, out.name)
		if out.hasShape {
			r.OutputShapes = append(r.OutputShapes, out.shape)
		}
	}
	r.IsProbablyYOLO = isProbablyYOLO(g.nodes, r.OutputShapes)
	return r, nil
}

// isProbablyYOLO wants a prediction-sized last dimension and either YOLO-like
// node naming or a [1, N, D] output with many rows.
func isProbablyYOLO(nodes []node, shapes []Shape) bool {
	bigLastDim := false
	yoloShape := false
	for _, s := range shapes {
		if len(s) == 0 {
			continue
		}
		last := s[len(s)-1]
		if last != nil && *last >= 5 {
			bigLastDim = true
		}
		if len(s) == 3 && (s[0] == nil || *s[0] == 1) && s[1] != nil && *s[1] >= 100 && last != nil && *last >= 5 {
			yoloShape = true
		}
	}

	var names, types strings.Builder
	for _, n := range nodes {
		names.WriteString(strings.ToLower(n.name))
		names.WriteByte(' ')
		types.WriteString(strings.ToLower(n.opType))
		types.WriteByte(' ')
	}
	hasTerms := false
	for _, t := range yoloTerms {
		if strings.Contains(names.String(), t) || strings.Contains(types.String(), t) {
			hasTerms = true
			break
		}
	}
	return bigLastDim && (hasTerms || yoloShape)
}

// eachField calls fn for every field in a serialized message. v holds the
// payload for length-delimited fields and is nil otherwise.
func eachField(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte, u uint64) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		var (
			v []byte
			u uint64
		)
		switch typ {
		case protowire.BytesType:
			v, n = protowire.ConsumeBytes(b)
		case protowire.VarintType:
			u, n = protowire.ConsumeVarint(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		if err := fn(num, typ, v, u); err != nil {
			return err
		}
	}
	return nil
}

func parseModel(b []byte) (*graph, error) {
	var g *graph
	err := eachField(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if num != modelGraph || typ != protowire.BytesType {
			return nil
		}
		parsed, err := parseGraph(v)
		if err != nil {
			return fmt.Errorf("graph: %w", err)
		}
		g = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("model has no graph")
	}
	return g, nil
}

func parseGraph(b []byte) (*graph, error) {
	g := &graph{}
	err := eachField(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case graphNode:
			n, err := parseNode(v)
			if err != nil {
				return err
			}
			g.nodes = append(g.nodes, n)
		case graphInput, graphOutput:
			vi, err := parseValueInfo(v)
			if err != nil {
				return err
			}
			if num == graphInput {
				g.inputs = append(g.inputs, vi)
			} else {
				g.outputs = append(g.outputs, vi)
			}
		}
		return nil
	})
	return g, err
}

func parseNode(b []byte) (node, error) {
	var n node
	err := eachField(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case nodeName:
			n.name = string(v)
		case nodeOpType:
			n.opType = string(v)
		}
		return nil
	})
	return n, err
}

func parseValueInfo(b []byte) (valueInfo, error) {
	var vi valueInfo
	err := eachField(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case valueInfoName:
			vi.name = string(v)
		case valueInfoType:
			return eachField(v, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
				if num != typeTensor || typ != protowire.BytesType {
					return nil
				}
				return eachField(v, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
					if num != tensorShape || typ != protowire.BytesType {
						return nil
					}
					shape, err := parseShape(v)
					if err != nil {
						return err
					}
					vi.shape, vi.hasShape = shape, true
					return nil
				})
			})
		}
		return nil
	})
	return vi, err
}

func parseShape(b []byte) (Shape, error) {
	shape := Shape{}
	err := eachField(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if num != shapeDim || typ != protowire.BytesType {
			return nil
		}
		var dim *int64
		err := eachField(v, func(num protowire.Number, typ protowire.Type, _ []byte, u uint64) error {
			switch {
			case num == dimValue && typ == protowire.VarintType:
				d := int64(u)
				dim = &d
			case num == dimParam:
				dim = nil
			}
			return nil
		})
		if err != nil {
			return err
		}
		shape = append(shape, dim)
		return nil
	})
	return shape, err
}
