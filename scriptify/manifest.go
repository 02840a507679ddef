package scriptify

import (
	"bytes"
	"fmt"
	"log"

	"github.com/go-analyze/bulk"
	"github.com/vmihailenco/msgpack/v5"
)

// Manifest is a named, persistable set of declarations describing the native objects of a script
// environment.
type Manifest struct {
	Name         string        `msgpack:"name"`
	Declarations []Declaration `msgpack:"decls"`
}

// Manifest exports the current declaration table of the registry.
func (r *Registry) Manifest(name string) *Manifest {
	return &Manifest{Name: name, Declarations: r.Declarations()}
}

// Marshal encodes the manifest as zstd compressed msgpack.
func (m *Manifest) Marshal() ([]byte, error) {
	enc := msgpack.GetEncoder()
	defer msgpack.PutEncoder(enc)

	var buf bytes.Buffer
	enc.Reset(&buf)
	enc.UseCompactInts(true)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encode manifest %s: %w", m.Name, err)
	}
	return ZstdCompress(nil, buf.Bytes()), nil
}

// UnmarshalManifest decodes a manifest produced by Manifest.Marshal.
func UnmarshalManifest(data []byte) (*Manifest, error) {
	raw, err := ZstdDecompress(nil, data)
	if err != nil {
		return nil, fmt.Errorf("decompress manifest: %w", err)
	}
	var m Manifest
	if err := msgpack.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

// Fingerprint identifies the manifest content.
func (m *Manifest) Fingerprint() (string, error) {
	b, err := msgpack.Marshal(m)
	if err != nil {
		return "", err
	}
	return bytesKey(b), nil
}

// DeclareManifest merges the declarations of m into the registry. Declaring the same manifest content again
// is a no-op.
func (r *Registry) DeclareManifest(m *Manifest) error {
	fingerprint, err := m.Fingerprint()
	if err != nil {
		return err
	}
	r.mu.Lock()
	seen := r.applied[fingerprint]
	r.applied[fingerprint] = true
	r.mu.Unlock()
	if seen {
		return nil
	}

	symbols := make([]Symbol, len(m.Declarations))
	for i, d := range m.Declarations {
		symbols[i] = d.Symbol
	}
	for sym, count := range bulk.SliceToCounts(symbols) {
		if count > 1 {
			log.Printf("%smanifest %s declares %s %d times", ErrorLogPrefix, m.Name, sym, count)
		}
	}
	r.Declare(m.Declarations...)
	return nil
}

// SaveManifest stores m under its name.
func SaveManifest(store Storage, m *Manifest) error {
	blob, err := m.Marshal()
	if err != nil {
		return err
	}
	return store.Save(m.Name, blob)
}

// LoadManifest reads the manifest stored under name.
func LoadManifest(store Storage, name string) (*Manifest, bool, error) {
	blob, found, err := store.Load(name)
	if err != nil || !found {
		return nil, found, err
	}
	m, err := UnmarshalManifest(blob)
	if err != nil {
		return nil, true, fmt.Errorf("manifest %s: %w", name, err)
	}
	return m, true, nil
}

// DeclareStored loads every manifest in store and declares it into the registry, in the key order of
// Storage.ListKeys so later keys win conflicting names and formats.
func (r *Registry) DeclareStored(store Storage) error {
	names, err := store.ListKeys()
	if err != nil {
		return err
	}
	for _, name := range names {
		m, found, err := LoadManifest(store, name)
		if err != nil {
			return err
		} else if !found {
			continue // removed while listing
		}
		if err := r.DeclareManifest(m); err != nil {
			return err
		}
	}
	return nil
}
