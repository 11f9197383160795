package providers

import "github.com/zatekoja/caretriage/internal/domain/entities"

// ProviderDirectory is a read-only, concurrency-safe list of care providers.
type ProviderDirectory interface {
	// All returns every provider in directory order
	All() []entities.Provider

	// BySpecialty returns providers whose specialty matches, case-insensitively
	BySpecialty(specialty string) []entities.Provider

	// Default returns the designated generalist entry, if any
	Default() (entities.Provider, bool)
}

// CaseIDGenerator produces unique, human-shareable case identifiers.
type CaseIDGenerator interface {
	NewCaseID() (string, error)
}
