// Package writer persists pipeline results to the output directory.
package writer

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"doc-distill/internal/graph"
	"doc-distill/internal/parser"

	"github.com/gofrs/flock"
	"github.com/pkg/browser"
)

const (
	TriplesFile = "knowledge_graph.json"
	GraphFile   = "knowledge_graph.png"
)

// LockRoot holds the output directory lock files, keeping them out of the output directories.
var LockRoot = filepath.Join(os.TempDir(), "doc-distill-locks")

// ErrOutputLocked is returned when another run holds the output directory.
var ErrOutputLocked = errors.New("output directory is locked by another run")

// EnsureDir creates dir and any missing parents.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return nil
}

// WriteTriplesJSON writes triples as a pretty-printed JSON array of 3-element arrays
// to dir/knowledge_graph.json and returns the file path.
func WriteTriplesJSON(dir string, triples []parser.Triple) (string, error) {
	if err := EnsureDir(dir); err != nil {
		return "", err
	}
	if triples == nil {
		triples = []parser.Triple{}
	}
	data, err := json.MarshalIndent(triples, "", "    ")
	if err != nil {
		return "", fmt.Errorf("encode triples: %w", err)
	}
	path := filepath.Join(dir, TriplesFile)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write triples: %w", err)
	}
	return path, nil
}

// ReadTriplesJSON loads a file written by WriteTriplesJSON.
func ReadTriplesJSON(path string) ([]parser.Triple, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read triples: %w", err)
	}
	var triples []parser.Triple
	if err := json.Unmarshal(data, &triples); err != nil {
		return nil, fmt.Errorf("decode triples: %w", err)
	}
	return triples, nil
}

// WriteGraphPNG renders kg to dir/knowledge_graph.png and returns the file path.
func WriteGraphPNG(dir string, kg *graph.KnowledgeGraph, opts graph.RenderOptions) (string, error) {
	if err := EnsureDir(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, GraphFile)
	if err := graph.RenderPNG(kg, path, opts); err != nil {
		return "", err
	}
	return path, nil
}

// Display opens path in the desktop's default viewer. It does not block.
func Display(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := browser.OpenFile(abs); err != nil {
		return fmt.Errorf("display %s: %w", abs, err)
	}
	return nil
}

// LockDir takes an exclusive advisory lock on dir so concurrent runs do not interleave
// their writes. The lock file lives under LockRoot, named after dir's resolved path.
// The returned func releases it.
func LockDir(dir string) (func(), error) {
	if err := EnsureDir(dir); err != nil {
		return nil, err
	}
	path, err := lockPath(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(LockRoot, 0o700); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring output lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrOutputLocked, dir)
	}
	return func() { _ = lock.Unlock() }, nil
}

func lockPath(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve output dir: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	sum := sha256.Sum256([]byte(abs))
	return filepath.Join(LockRoot, hex.EncodeToString(sum[:8])+".lock"), nil
}
