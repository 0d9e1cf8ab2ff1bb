package results

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// FileName is the results document name inside a run's output directory.
const FileName = "results.json"

// Writer accumulates trial results and persists the run document. It is
// safe for concurrent use: trials running in parallel append results as
// they finish, and the document on disk is rewritten after each append
// so a crashed run still leaves its completed results behind.
type Writer struct {
	mu  sync.Mutex
	doc RunDocument

	outputDir string
}

// NewWriter creates a writer for the given run, recording host metadata
// immediately.
func NewWriter(runID, outputDir string) *Writer {
	return &Writer{
		doc: RunDocument{
			RunID: runID,
			Host:  CollectHostInfo(),
		},
		outputDir: outputDir,
	}
}

// Append records one trial result and rewrites the document.
func (w *Writer) Append(result TrialResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.doc.Results = append(w.doc.Results, result)
	return w.flushLocked()
}

// Document returns a copy of the run document accumulated so far.
func (w *Writer) Document() RunDocument {
	w.mu.Lock()
	defer w.mu.Unlock()

	doc := w.doc
	doc.Results = append([]TrialResult(nil), w.doc.Results...)
	return doc
}

func (w *Writer) flushLocked() error {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return errors.Wrap(err, "creating output directory")
	}

	data, err := json.MarshalIndent(w.doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshalling results")
	}

	path := filepath.Join(w.outputDir, FileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "writing results")
	}
	return errors.Wrap(os.Rename(tmp, path), "replacing results")
}

// ReadDocument loads a run document from an output directory.
func ReadDocument(outputDir string) (RunDocument, error) {
	data, err := os.ReadFile(filepath.Join(outputDir, FileName))
	if err != nil {
		return RunDocument{}, errors.Wrap(err, "reading results")
	}

	var doc RunDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return RunDocument{}, errors.Wrap(err, "parsing results")
	}
	return doc, nil
}
