// Package codec encodes wrapped cluster records as JSON or YAML documents and
// computes content digests for them.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mattjoyce/msgcluster/internal/cluster"
)

// Version is the document version written by Encode.
const Version = 1

// Format selects the document encoding.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

var (
	ErrUnsupportedVersion = errors.New("unsupported document version")
	ErrUnknownFormat      = errors.New("unknown document format")
)

// Document is the on-disk envelope around a wrapped tree.
type Document struct {
	Version int             `json:"version" yaml:"version"`
	Root    cluster.Wrapped `json:"root" yaml:"root"`
}

// ParseFormat maps a name ("json", "yaml", "yml") to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// FormatFromPath picks a Format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Encode writes w as a versioned document.
func Encode(out io.Writer, f Format, w cluster.Wrapped) error {
	doc := Document{Version: Version, Root: w}
	switch f {
	case JSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode document: %w", err)
		}
	case YAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode document: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to encode document: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	return nil
}

// Decode reads a versioned document. JSON numbers that are whole become int,
// everything else float64, so integer payloads survive a round trip.
func Decode(in io.Reader, f Format) (cluster.Wrapped, error) {
	var doc Document
	switch f {
	case JSON:
		dec := json.NewDecoder(in)
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return cluster.Wrapped{}, fmt.Errorf("failed to decode document: %w", err)
		}
	case YAML:
		if err := yaml.NewDecoder(in).Decode(&doc); err != nil {
			return cluster.Wrapped{}, fmt.Errorf("failed to decode document: %w", err)
		}
	default:
		return cluster.Wrapped{}, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}

	if doc.Version != Version {
		return cluster.Wrapped{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}
	normalize(&doc.Root)
	return doc.Root, nil
}

// Marshal encodes w to bytes.
func Marshal(f Format, w cluster.Wrapped) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, f, w); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a document from bytes.
func Unmarshal(data []byte, f Format) (cluster.Wrapped, error) {
	return Decode(bytes.NewReader(data), f)
}

// ReadFile decodes the document at path, picking the format by extension.
func ReadFile(path string) (cluster.Wrapped, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return cluster.Wrapped{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cluster.Wrapped{}, fmt.Errorf("failed to read file: %w", err)
	}
	return Unmarshal(data, f)
}

// WriteFile encodes w to path, picking the format by extension.
func WriteFile(path string, w cluster.Wrapped) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := Marshal(f, w)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// Normalize applies the same clean-up as Decode to a record decoded
// elsewhere (for example from an HTTP response).
func Normalize(w cluster.Wrapped) cluster.Wrapped {
	normalize(&w)
	return w
}

// normalize gives every record a non-nil child map and converts decoded
// numbers, matching what Wrap produces.
func normalize(w *cluster.Wrapped) {
	w.Payload = NormalizeValue(w.Payload)
	if w.Children == nil {
		w.Children = map[string]cluster.Wrapped{}
	}
	for id, child := range w.Children {
		normalize(&child)
		w.Children[id] = child
	}
}

// NormalizeValue converts json.Number values inside v (including nested maps
// and slices) to int when whole and float64 otherwise.
func NormalizeValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil && i >= math.MinInt && i <= math.MaxInt {
			return int(i)
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		for k, e := range t {
			t[k] = NormalizeValue(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = NormalizeValue(e)
		}
		return t
	default:
		return v
	}
}
