package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/matzehuels/rigstash/pkg/errors"
)

// Document is an ordered list of node records in creation-safe order.
type Document struct {
	Nodes []*Node `json:"nodes"`
}

// Find returns the record with the given name, or nil.
func (d *Document) Find(name string) *Node {
	for _, n := range d.Nodes {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// Names returns the record names in document order.
func (d *Document) Names() []string {
	out := make([]string, len(d.Nodes))
	for i, n := range d.Nodes {
		out[i] = n.Name
	}
	return out
}

// Validate validates every record and rejects duplicate names.
func (d *Document) Validate() error {
	seen := make(map[string]bool, len(d.Nodes))
	for i, n := range d.Nodes {
		if n == nil {
			return errors.New(errors.ErrCodeInvalidRecord, "record %d is null", i)
		}
		if err := n.Validate(); err != nil {
			return err
		}
		if seen[n.Name] {
			return errors.New(errors.ErrCodeInvalidRecord, "record %q appears twice", n.Name)
		}
		seen[n.Name] = true
	}
	return nil
}

// =============================================================================
// Document Serialization API
// =============================================================================

// Marshal converts a document to indented JSON bytes.
func Marshal(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeTo(doc, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes and validates a document from JSON bytes.
func Unmarshal(data []byte) (*Document, error) {
	return readFrom(bytes.NewReader(data))
}

// Write writes a document as JSON to an io.Writer.
func Write(doc *Document, w io.Writer) error {
	return writeTo(doc, w)
}

// WriteFile writes a document to path atomically: the data goes to a
// temporary file in the same directory which is then renamed into place.
func WriteFile(doc *Document, path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*.json")
	if err != nil {
		return fmt.Errorf("create temp in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if err := writeTo(doc, tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

// Read decodes and validates a document from an io.Reader.
func Read(r io.Reader) (*Document, error) {
	return readFrom(r)
}

// ReadFile reads and validates a document file.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return readFrom(f)
}

// =============================================================================
// Internal Implementation
// =============================================================================

func writeTo(doc *Document, w io.Writer) error {
	if doc.Nodes == nil {
		doc = &Document{Nodes: []*Node{}}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func readFrom(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}
