package directory

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/zatekoja/caretriage/internal/domain/entities"
	apperrors "github.com/zatekoja/caretriage/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed providers.yaml
var defaultDirectoryYAML []byte

type directoryFile struct {
	Providers []entities.Provider `yaml:"providers"`
}

// Directory is an immutable, in-memory provider directory. It is safe for concurrent use.
type Directory struct {
	providers   []entities.Provider
	bySpecialty map[string][]entities.Provider
	def         *entities.Provider
}

// New builds a directory from providers, keeping their order. Provider IDs must be unique.
func New(providers []entities.Provider) (*Directory, error) {
	d := &Directory{
		providers:   make([]entities.Provider, 0, len(providers)),
		bySpecialty: make(map[string][]entities.Provider),
	}
	seen := make(map[string]struct{}, len(providers))
	for i, p := range providers {
		p.ID = strings.TrimSpace(p.ID)
		p.Specialty = strings.TrimSpace(p.Specialty)
		if p.ID == "" {
			return nil, apperrors.NewValidationError(fmt.Sprintf("provider %d has no id", i))
		}
		if p.Specialty == "" {
			return nil, apperrors.NewValidationError(fmt.Sprintf("provider %s has no specialty", p.ID))
		}
		if _, dup := seen[p.ID]; dup {
			return nil, apperrors.NewValidationError(fmt.Sprintf("duplicate provider id %s", p.ID))
		}
		seen[p.ID] = struct{}{}
		p.Languages = append([]string(nil), p.Languages...)

		d.providers = append(d.providers, p)
		key := specialtyKey(p.Specialty)
		d.bySpecialty[key] = append(d.bySpecialty[key], p)
		if p.Default && d.def == nil {
			def := p
			d.def = &def
		}
	}
	return d, nil
}

// Load reads the directory at path, or the embedded default directory when path is empty.
func Load(path string) (*Directory, error) {
	if path == "" {
		return Parse(defaultDirectoryYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to read provider directory", err)
	}
	return Parse(data)
}

// Parse decodes a YAML provider directory.
func Parse(data []byte) (*Directory, error) {
	var file directoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, apperrors.NewValidationError("invalid provider directory: " + err.Error())
	}
	return New(file.Providers)
}

// All returns every provider in directory order.
func (d *Directory) All() []entities.Provider {
	return cloneProviders(d.providers)
}

// BySpecialty returns providers whose specialty matches, ignoring case.
func (d *Directory) BySpecialty(specialty string) []entities.Provider {
	return cloneProviders(d.bySpecialty[specialtyKey(specialty)])
}

// Default returns the designated default provider.
func (d *Directory) Default() (entities.Provider, bool) {
	if d.def == nil {
		return entities.Provider{}, false
	}
	p := *d.def
	p.Languages = append([]string(nil), d.def.Languages...)
	return p, true
}

func specialtyKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func cloneProviders(in []entities.Provider) []entities.Provider {
	out := make([]entities.Provider, len(in))
	for i, p := range in {
		p.Languages = append([]string(nil), p.Languages...)
		out[i] = p
	}
	return out
}
