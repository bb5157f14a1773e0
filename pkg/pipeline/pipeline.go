// Package pipeline drives the external YOLO command line tool for training and
// model export. Nothing here trains or converts a model itself; the tool's
// failures come back as a Result with OK set to false.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
)

// DefaultBinary is the Ultralytics command line entry point.
const DefaultBinary = "yolo"

// Runner executes an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner runs commands with os/exec. Output is also streamed to Stream when set.
type ExecRunner struct {
	Stream io.Writer
}

// Run executes name with args and waits for it to finish.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	if _, err := exec.LookPath(name); err != nil {
		return "", fmt.Errorf("%s not found in PATH (install ultralytics): %w", name, err)
	}

	var buf bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	var w io.Writer = &buf
	if r.Stream != nil {
		w = io.MultiWriter(&buf, r.Stream)
	}
	cmd.Stdout = w
	cmd.Stderr = w

	if err := cmd.Run(); err != nil {
		return buf.String(), fmt.Errorf("%s %s failed: %w", name, strings.Join(args, " "), err)
	}
	return buf.String(), nil
}

// Result reports the outcome of a train or export run.
type Result struct {
	OK       bool   `json:"ok"`
	Message  string `json:"message"`
	Artifact string `json:"artifact,omitempty"`
	Output   string `json:"-"`
}

func failed(format string, args ...interface{}) Result {
	return Result{OK: false, Message: fmt.Sprintf(format, args...)}
}

// kv renders one key=value argument in the tool's syntax.
func kv(key string, value interface{}) string {
	switch v := value.(type) {
	case bool:
		if v {
			return key + "=True"
		}
		return key + "=False"
	case float64:
		return key + "=" + strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprintf("%s=%v", key, v)
	}
}

// lastLines returns at most n trailing non-empty lines of s.
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
