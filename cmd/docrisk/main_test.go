package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-risk-eval/internal/view"
)

// fakeAnalysisServer answers /analyze with a fixed payload, or a 500 for
// files whose name contains "broken".
func fakeAnalysisServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/analyze", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, `{"detail":"missing file"}`, http.StatusBadRequest)
			return
		}
		defer file.Close()
		_, _ = io.Copy(io.Discard, file)

		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(header.Filename, "broken") {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"detail":"could not parse document"}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"risk_score": 64,
			"risky_clauses": ["Indemnity - Unlimited indemnification", "Governing law"],
			"risk_categories": ["Liability"],
			"clause_severity": ["High"]
		}`))
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeTempFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("This agreement is made between the parties."), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DOCRISK_CONFIG", "")
	t.Setenv("DOCRISK_HISTORY_PATH", "")
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestAnalyzeSingleFile(t *testing.T) {
	var calls atomic.Int32
	srv := fakeAnalysisServer(t, &calls)
	path := writeTempFile(t, t.TempDir(), "msa.pdf")

	out, err := execute(t, "analyze", "--server", srv.URL, path)
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load())
	assert.Contains(t, out, "Analyzed: msa.pdf")
	assert.Contains(t, out, "Risk Score: 64%")
	assert.Contains(t, out, "Unlimited indemnification")
	assert.Contains(t, out, "Governing law")
}

func TestAnalyzeJSONKeepsArgumentOrder(t *testing.T) {
	var calls atomic.Int32
	srv := fakeAnalysisServer(t, &calls)
	dir := t.TempDir()
	paths := []string{
		writeTempFile(t, dir, "a.pdf"),
		writeTempFile(t, dir, "broken.pdf"),
		writeTempFile(t, dir, "c.pdf"),
	}

	args := append([]string{"analyze", "--json", "--parallel", "3", "--server", srv.URL}, paths...)
	out, err := execute(t, args...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 analyses failed")
	assert.EqualValues(t, 3, calls.Load())

	var results []view.Result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 3)
	for i, res := range results {
		assert.Equal(t, paths[i], res.File)
	}
	assert.Equal(t, "64%", results[0].State.Score)
	assert.Equal(t, "Error", results[1].State.Score)
	require.NotNil(t, results[1].State.Error)
	assert.Equal(t, "API request failed: 500 could not parse document", results[1].State.Error.Text)
	assert.Equal(t, "c.pdf", results[2].State.Filename)
}

func TestAnalyzeWithoutFiles(t *testing.T) {
	var calls atomic.Int32
	srv := fakeAnalysisServer(t, &calls)

	out, err := execute(t, "analyze", "--server", srv.URL)
	require.Error(t, err)
	assert.Zero(t, calls.Load())
	assert.Contains(t, out, "Please select a file to analyze")
}

func TestAnalyzeRecordsHistory(t *testing.T) {
	var calls atomic.Int32
	srv := fakeAnalysisServer(t, &calls)
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "history.db")
	path := writeTempFile(t, dir, "lease.docx")

	_, err := execute(t, "analyze", "--server", srv.URL, "--history", dbPath, path)
	require.NoError(t, err)

	out, err := execute(t, "history", "--history", dbPath, "--json")
	require.NoError(t, err)
	var rows []struct {
		Filename    string `json:"Filename"`
		Status      string `json:"Status"`
		ClauseCount int    `json:"ClauseCount"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "lease.docx", rows[0].Filename)
	assert.Equal(t, "completed", rows[0].Status)
	assert.Equal(t, 2, rows[0].ClauseCount)

	out, err = execute(t, "history", "--history", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "lease.docx")
	assert.Contains(t, out, "1 of 1 analyses")

	out, err = execute(t, "history", "--history", dbPath, "--clear")
	require.NoError(t, err)
	assert.Contains(t, out, "analysis history cleared")

	out, err = execute(t, "history", "--history", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "0 of 0 analyses")
}

func TestHistoryDisabled(t *testing.T) {
	_, err := execute(t, "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history is disabled")
}

func TestHealth(t *testing.T) {
	var calls atomic.Int32
	srv := fakeAnalysisServer(t, &calls)

	out, err := execute(t, "health", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "healthy")

	srv.Close()
	_, err = execute(t, "health", "--server", srv.URL)
	require.Error(t, err)
}
