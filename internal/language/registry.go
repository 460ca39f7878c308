package language

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	xlang "golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedLanguage is returned when a language key is not present in
// a [Registry]. Callers either fall back to a generic analyzer or accept the
// placeholder transliteration.
var ErrUnsupportedLanguage = errors.New("unsupported language")

//go:embed languages.yaml
var defaultTable []byte

// table is the YAML document shape of a language configuration table.
type table struct {
	Languages []Profile `yaml:"languages"`
}

// Registry is an immutable set of language profiles keyed by code.
// It is safe for concurrent use.
type Registry struct {
	byCode map[string]Profile
	byName map[string]string
	sorted []Profile
}

// NewRegistry builds a Registry from profiles. Codes must be unique and every
// profile must carry a code, a name, a known script type and a direction.
func NewRegistry(profiles []Profile) (*Registry, error) {
	r := &Registry{
		byCode: make(map[string]Profile, len(profiles)),
		byName: make(map[string]string, len(profiles)),
	}

	var errs []error
	for i, p := range profiles {
		p.Code = normalizeKey(p.Code)
		if p.Code == "" {
			errs = append(errs, fmt.Errorf("languages[%d]: code is required", i))
			continue
		}
		if _, dup := r.byCode[p.Code]; dup {
			errs = append(errs, fmt.Errorf("languages[%d]: duplicate code %q", i, p.Code))
			continue
		}
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("languages[%d] (%s): name is required", i, p.Code))
		}
		if !p.ScriptType.IsValid() {
			errs = append(errs, fmt.Errorf("languages[%d] (%s): script_type %q is invalid", i, p.Code, p.ScriptType))
		}
		if p.Direction == "" {
			p.Direction = LTR
		}
		if !p.Direction.IsValid() {
			errs = append(errs, fmt.Errorf("languages[%d] (%s): script_direction %q is invalid; valid values: ltr, rtl", i, p.Code, p.Direction))
		}
		r.byCode[p.Code] = p
		if p.Name != "" {
			r.byName[strings.ToLower(p.Name)] = p.Code
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("language: %w", err)
	}

	r.sorted = make([]Profile, 0, len(r.byCode))
	for _, p := range r.byCode {
		r.sorted = append(r.sorted, p)
	}
	slices.SortFunc(r.sorted, func(a, b Profile) int { return strings.Compare(a.Code, b.Code) })
	return r, nil
}

// Load decodes a language configuration table from r.
func Load(r io.Reader) (*Registry, error) {
	var t table
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("language: decode table: %w", err)
	}
	return NewRegistry(t.Languages)
}

// LoadFile reads the language configuration table at path.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("language: open %q: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Default returns a Registry built from the embedded language table.
func Default() (*Registry, error) {
	return Load(bytes.NewReader(defaultTable))
}

// Profile returns the profile for key. Keys match case-insensitively against
// codes, then as BCP 47 tags reduced to their base language ("en-US" → "en",
// "zh-Hans-CN" → "zh"), then against English display names.
func (r *Registry) Profile(key string) (Profile, error) {
	k := normalizeKey(key)
	if k == "" {
		return Profile{}, fmt.Errorf("language: %w: empty key", ErrUnsupportedLanguage)
	}
	if p, ok := r.byCode[k]; ok {
		return p, nil
	}
	if tag, err := xlang.All.Parse(k); err == nil {
		base, _ := tag.Base()
		if p, ok := r.byCode[base.String()]; ok {
			return p, nil
		}
	}
	if code, ok := r.byName[strings.ToLower(strings.TrimSpace(key))]; ok {
		return r.byCode[code], nil
	}
	return Profile{}, fmt.Errorf("language: %w: %q", ErrUnsupportedLanguage, key)
}

// All returns every profile sorted by code. The returned slice is a copy.
func (r *Registry) All() []Profile {
	return slices.Clone(r.sorted)
}

// Len returns the number of profiles in the registry.
func (r *Registry) Len() int {
	return len(r.sorted)
}
