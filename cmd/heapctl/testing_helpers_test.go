package main

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/internal/testutil"
)

const sampleTrace = testutil.SampleTrace

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	return testutil.WriteTemp(t, name, content)
}

// resetGlobals restores every package-level flag after the test.
func resetGlobals(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		verbose, quiet, jsonOut, configPath = false, false, false, ""
		cfg = defaultConfig()
		runImage, runMaxOps = "", 0
		dumpTags, dumpMaxBlocks, dumpNoBlocks, dumpNoFreeList = false, 0, false, false
		dumpNoCheck, dumpSummary, dumpLang = false, false, "en"
	})
}

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	done := make(chan []byte)
	go func() {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		done <- buf.Bytes()
	}()

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout
	return string(<-done), fnErr
}
