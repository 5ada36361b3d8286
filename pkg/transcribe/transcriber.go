// Package transcribe stages hosted media into scratch storage and runs a
// local speech-to-text command over it. Scratch artifacts are private per
// invocation and removed on every exit path.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RunError is returned when the speech-to-text command fails.
type RunError struct {
	Cmd      string
	Args     []string
	ExitCode int
	Output   string
	Cause    error
}

func (e *RunError) Error() string {
	cmdline := strings.TrimSpace(e.Cmd + " " + strings.Join(e.Args, " "))
	if e.ExitCode != 0 {
		return fmt.Sprintf("transcribe: command failed (exit %d): %s", e.ExitCode, cmdline)
	}
	return fmt.Sprintf("transcribe: command failed: %s", cmdline)
}

func (e *RunError) Unwrap() error { return e.Cause }

// Segment is one timestamped slice of a verbose transcript.
type Segment struct {
	StartSeconds float64 `json:"start"`
	EndSeconds   float64 `json:"end"`
	Text         string  `json:"text"`
}

// Transcript is the result of a verbose transcription. Segments is empty when
// the upstream output omits them.
type Transcript struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

type Transcriber struct {
	// Cmd is the speech-to-text executable. Defaults to "whisper" (PATH lookup).
	Cmd string

	// Model, Device and Language are passed through to the command. Empty
	// Language lets the model auto-detect.
	Model    string
	Device   string
	Language string

	// ScratchDir is the base directory for per-call scratch directories.
	// Defaults to the OS temp dir.
	ScratchDir string

	execFn func(ctx context.Context, name string, args ...string) ([]byte, error)
	http   *http.Client
}

func New() *Transcriber {
	return &Transcriber{
		Cmd:    "whisper",
		Model:  "small",
		Device: "cpu",
		http: &http.Client{
			Timeout: 30 * time.Minute,
		},
	}
}

// TranscribeFromURL downloads mediaURL to a scratch file, transcribes it and
// returns the plain transcript text.
func (t *Transcriber) TranscribeFromURL(ctx context.Context, mediaURL string) (string, error) {
	tr, err := t.run(ctx, mediaURL, "txt")
	if err != nil {
		return "", err
	}
	return tr.Text, nil
}

// TranscribeFromURLVerbose is TranscribeFromURL with segment-level timestamps.
func (t *Transcriber) TranscribeFromURLVerbose(ctx context.Context, mediaURL string) (*Transcript, error) {
	return t.run(ctx, mediaURL, "json")
}

func (t *Transcriber) run(ctx context.Context, mediaURL string, format string) (*Transcript, error) {
	mediaURL = strings.TrimSpace(mediaURL)
	if mediaURL == "" {
		return nil, fmt.Errorf("transcribe: media url is required")
	}

	base := t.ScratchDir
	if strings.TrimSpace(base) == "" {
		base = os.TempDir()
	}
	scratch := filepath.Join(base, "transcribe-"+uuid.NewString())
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return nil, fmt.Errorf("transcribe: create scratch dir: %w", err)
	}
	// Scratch cleanup must run on every exit path, success or failure.
	defer os.RemoveAll(scratch)

	mediaPath := filepath.Join(scratch, "media"+mediaExt(mediaURL))
	if err := t.download(ctx, mediaURL, mediaPath); err != nil {
		return nil, fmt.Errorf("transcribe: stage media: %w", err)
	}

	args := []string{
		mediaPath,
		"--model", t.model(),
		"--output_format", format,
		"--output_dir", scratch,
		"--device", t.device(),
		"--task", "transcribe",
	}
	if lang := strings.TrimSpace(t.Language); lang != "" && !strings.EqualFold(lang, "auto") {
		args = append(args, "--language", lang)
	}

	output, err := t.exec(ctx, args...)
	if err != nil {
		return nil, wrapRunError(t.cmd(), args, output, err)
	}

	outPath, err := findOutput(scratch, mediaPath, format)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: read output: %w", err)
	}

	if format == "txt" {
		return &Transcript{Text: strings.TrimSpace(string(data))}, nil
	}

	tr := &Transcript{}
	if err := json.Unmarshal(data, tr); err != nil {
		return nil, fmt.Errorf("transcribe: parse json output: %w", err)
	}
	tr.Text = strings.TrimSpace(tr.Text)
	if tr.Segments == nil {
		tr.Segments = []Segment{}
	}
	return tr, nil
}

// EstimateCost returns the expected transcription cost for a media duration
// at ratePerMinute dollars, rounded up to cents. Reporting only, never used
// for gating.
func EstimateCost(durationSeconds float64, ratePerMinute float64) float64 {
	minutes := durationSeconds / 60.0
	return math.Ceil(minutes*ratePerMinute*100) / 100
}

func (t *Transcriber) exec(ctx context.Context, args ...string) ([]byte, error) {
	if t.execFn != nil {
		return t.execFn(ctx, t.cmd(), args...)
	}

	cmdPath, err := exec.LookPath(t.cmd())
	if err != nil {
		return nil, fmt.Errorf("command not found: %w", err)
	}

	var buf bytes.Buffer
	cmd := exec.CommandContext(ctx, cmdPath, args...)
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err = cmd.Run()
	return buf.Bytes(), err
}

func (t *Transcriber) cmd() string {
	if strings.TrimSpace(t.Cmd) == "" {
		return "whisper"
	}
	return t.Cmd
}

func (t *Transcriber) model() string {
	if strings.TrimSpace(t.Model) == "" {
		return "small"
	}
	return t.Model
}

func (t *Transcriber) device() string {
	if strings.TrimSpace(t.Device) == "" {
		return "cpu"
	}
	return t.Device
}

func (t *Transcriber) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	client := t.http
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(f, resp.Body)
	return err
}

func findOutput(dir, mediaPath, format string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(mediaPath), filepath.Ext(mediaPath))
	cand := filepath.Join(dir, base+"."+format)
	if _, err := os.Stat(cand); err == nil {
		return cand, nil
	}
	matches, _ := filepath.Glob(filepath.Join(dir, base+"*."+format))
	if len(matches) == 0 {
		return "", fmt.Errorf("transcribe: output not found in %s", dir)
	}
	return matches[0], nil
}

func mediaExt(mediaURL string) string {
	trimmed := mediaURL
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	ext := filepath.Ext(trimmed)
	if ext == "" || len(ext) > 5 {
		return ".mp4"
	}
	return ext
}

func wrapRunError(cmd string, args []string, output []byte, cause error) error {
	exitCode := 0
	var ee *exec.ExitError
	if errors.As(cause, &ee) {
		exitCode = ee.ExitCode()
	}
	return &RunError{
		Cmd:      cmd,
		Args:     args,
		ExitCode: exitCode,
		Output:   strings.TrimSpace(string(output)),
		Cause:    cause,
	}
}
