package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	// Indent is the indentation used when rewriting the manifest.
	Indent = "    "

	// defaultFileMode applies only when a manifest is created from scratch.
	defaultFileMode os.FileMode = 0o644
)

var (
	// ErrNotFound is returned when the manifest file does not exist.
	ErrNotFound = errors.New("manifest not found")
	// errNotAnObject is returned when the manifest top level is not a JSON object.
	errNotAnObject = errors.New("manifest is not a JSON object")
)

// Manifest is an ordered JSON object.
type Manifest struct {
	fields *orderedmap.OrderedMap[string, json.RawMessage]
}

// New returns an empty manifest.
func New() *Manifest {
	return &Manifest{
		fields: orderedmap.New[string, json.RawMessage](),
	}
}

// Parse decodes a JSON object preserving key order.
func Parse(data []byte) (*Manifest, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errNotAnObject
	}

	m := New()
	if err := json.Unmarshal(trimmed, m.fields); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	return m, nil
}

// Set stores value under key. Existing keys keep their position; new keys are appended.
func (m *Manifest) Set(key string, value any) error {
	raw, err := encode(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	m.fields.Set(key, raw)

	return nil
}

// GetString returns the string stored under key.
func (m *Manifest) GetString(key string) (string, bool) {
	raw, ok := m.fields.Get(key)
	if !ok {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}

	return s, true
}

// Keys returns the keys in document order.
func (m *Manifest) Keys() []string {
	keys := make([]string, 0, m.fields.Len())
	for pair := m.fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}

	return keys
}

// Bytes renders the manifest with Indent and a trailing newline.
// HTML-sensitive characters are written verbatim.
func (m *Manifest) Bytes() ([]byte, error) {
	var compact bytes.Buffer

	compact.WriteByte('{')

	for pair, first := m.fields.Oldest(), true; pair != nil; pair = pair.Next() {
		if !first {
			compact.WriteByte(',')
		}

		first = false

		key, err := encode(pair.Key)
		if err != nil {
			return nil, err
		}

		compact.Write(key)
		compact.WriteByte(':')

		if err = json.Compact(&compact, pair.Value); err != nil {
			return nil, fmt.Errorf("value of %s: %w", pair.Key, err)
		}
	}

	compact.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", Indent); err != nil {
		return nil, err
	}

	out.WriteByte('\n')

	return out.Bytes(), nil
}

// FileRepository reads and writes a manifest at a fixed path.
type FileRepository struct {
	// path is the filesystem location of the manifest.
	path string
}

// NewFileRepository creates a repository for the manifest at path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the manifest location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the manifest from disk.
func (r *FileRepository) Load(_ context.Context) (*Manifest, error) {
	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", r.path, ErrNotFound)
		}

		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return Parse(contents)
}

// Save rewrites the whole manifest file.
func (r *FileRepository) Save(_ context.Context, m *Manifest) error {
	data, err := m.Bytes()
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	if err = os.WriteFile(r.path, data, defaultFileMode); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

// Stamp loads the manifest, sets key to value and saves it.
// It returns the string previously stored under key, if any.
func (r *FileRepository) Stamp(ctx context.Context, key, value string) (string, error) {
	m, err := r.Load(ctx)
	if err != nil {
		return "", err
	}

	previous, _ := m.GetString(key)

	if err = m.Set(key, value); err != nil {
		return "", err
	}

	if err = r.Save(ctx, m); err != nil {
		return "", err
	}

	return previous, nil
}

// encode marshals v without HTML escaping and without the encoder's trailing newline.
func encode(v any) (json.RawMessage, error) {
	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(v); err != nil {
		return nil, err
	}

	return json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
