package transcribe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func mediaServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("fake media bytes"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// argValue extracts the value following a flag in an args slice.
func argValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func TestTranscribeFromURL_ReadsOutputAndCleansUp(t *testing.T) {
	srv := mediaServer(t)
	scratch := t.TempDir()

	tr := New()
	tr.ScratchDir = scratch
	tr.execFn = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		outDir := argValue(args, "--output_dir")
		require.NotEmpty(t, outDir)
		// Staged media must exist while the command runs.
		media := args[0]
		_, err := os.Stat(media)
		require.NoError(t, err)
		return nil, os.WriteFile(filepath.Join(outDir, "media.txt"), []byte("hello world\n"), 0o644)
	}

	text, err := tr.TranscribeFromURL(context.Background(), srv.URL+"/clip.mp4")
	require.NoError(t, err)
	require.Equal(t, "hello world", text)

	entries, err := os.ReadDir(scratch)
	require.NoError(t, err)
	require.Empty(t, entries, "scratch directory must be cleaned up after success")
}

func TestTranscribeFromURL_CleansUpOnCommandFailure(t *testing.T) {
	srv := mediaServer(t)
	scratch := t.TempDir()

	tr := New()
	tr.ScratchDir = scratch
	tr.execFn = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("cuda out of memory"), errors.New("boom")
	}

	_, err := tr.TranscribeFromURL(context.Background(), srv.URL+"/clip.mp4")
	var re *RunError
	require.ErrorAs(t, err, &re)
	require.Equal(t, "cuda out of memory", re.Output)

	entries, err := os.ReadDir(scratch)
	require.NoError(t, err)
	require.Empty(t, entries, "scratch directory must be cleaned up after failure")
}

func TestTranscribeFromURL_CleansUpOnDownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	scratch := t.TempDir()

	tr := New()
	tr.ScratchDir = scratch
	tr.execFn = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		t.Fatal("command must not run when staging fails")
		return nil, nil
	}

	_, err := tr.TranscribeFromURL(context.Background(), srv.URL+"/clip.mp4")
	require.Error(t, err)

	entries, err := os.ReadDir(scratch)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestTranscribeFromURLVerbose_ParsesSegments(t *testing.T) {
	srv := mediaServer(t)

	tr := New()
	tr.ScratchDir = t.TempDir()
	tr.execFn = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		require.Equal(t, "json", argValue(args, "--output_format"))
		outDir := argValue(args, "--output_dir")
		payload := `{"text": " two segments ", "segments": [{"start": 0, "end": 2.5, "text": "two"}, {"start": 2.5, "end": 4, "text": "segments"}]}`
		return nil, os.WriteFile(filepath.Join(outDir, "media.json"), []byte(payload), 0o644)
	}

	result, err := tr.TranscribeFromURLVerbose(context.Background(), srv.URL+"/clip.mp4")
	require.NoError(t, err)
	require.Equal(t, "two segments", result.Text)
	require.Len(t, result.Segments, 2)
	require.Equal(t, 2.5, result.Segments[0].EndSeconds)
	require.Equal(t, "segments", result.Segments[1].Text)
}

func TestTranscribeFromURLVerbose_MissingSegmentsDefaultsEmpty(t *testing.T) {
	srv := mediaServer(t)

	tr := New()
	tr.ScratchDir = t.TempDir()
	tr.execFn = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		outDir := argValue(args, "--output_dir")
		return nil, os.WriteFile(filepath.Join(outDir, "media.json"), []byte(`{"text": "plain"}`), 0o644)
	}

	result, err := tr.TranscribeFromURLVerbose(context.Background(), srv.URL+"/clip.mp4")
	require.NoError(t, err)
	require.Equal(t, "plain", result.Text)
	require.NotNil(t, result.Segments)
	require.Empty(t, result.Segments)
}

func TestEstimateCost(t *testing.T) {
	require.Equal(t, 0.06, EstimateCost(600, 0.006))
	require.Equal(t, 0.01, EstimateCost(30, 0.006))
	require.Equal(t, 0.0, EstimateCost(0, 0.006))
	require.Equal(t, 0.37, EstimateCost(3661, 0.006))
}
