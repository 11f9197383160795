package directory

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/caretriage/internal/domain/entities"
	apperrors "github.com/zatekoja/caretriage/pkg/errors"
)

func TestLoad_EmbeddedDefault(t *testing.T) {
	dir, err := Load("")
	require.NoError(t, err)

	all := dir.All()
	require.NotEmpty(t, all)

	def, ok := dir.Default()
	require.True(t, ok)
	assert.Equal(t, entities.GeneralPracticeSpecialty, def.Specialty)

	cardio := dir.BySpecialty("Cardiology")
	require.Len(t, cardio, 1)
	assert.Equal(t, 48*time.Hour, cardio[0].Availability.Std())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
providers:
  - id: a
    name: Clinic A
    specialty: dermatology
    availability: 90m
  - id: b
    name: Clinic B
    specialty: Dermatology
    availability: 2h
`), 0o600))

	dir, err := Load(path)
	require.NoError(t, err)

	derm := dir.BySpecialty("dermatology")
	require.Len(t, derm, 2)
	assert.Equal(t, "a", derm[0].ID)
	assert.Equal(t, 90*time.Minute, derm[0].Availability.Std())

	_, ok := dir.Default()
	assert.False(t, ok)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}

func TestNew_RejectsInvalidEntries(t *testing.T) {
	_, err := New([]entities.Provider{{ID: "x", Specialty: "a"}, {ID: "x", Specialty: "b"}})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = New([]entities.Provider{{ID: "", Specialty: "a"}})
	assert.Error(t, err)

	_, err = New([]entities.Provider{{ID: "y"}})
	assert.Error(t, err)

	_, err = Parse([]byte("providers: [this is: not: valid"))
	assert.Error(t, err)
}

func TestDirectory_ReturnsCopies(t *testing.T) {
	dir, err := New([]entities.Provider{{ID: "a", Specialty: "x", Languages: []string{"en"}}})
	require.NoError(t, err)

	all := dir.All()
	all[0].Name = "mutated"
	all[0].Languages[0] = "fr"

	again := dir.All()
	assert.Equal(t, "", again[0].Name)
	assert.Equal(t, []string{"en"}, again[0].Languages)

	empty, err := New(nil)
	require.NoError(t, err)
	assert.Empty(t, empty.All())
	assert.Empty(t, empty.BySpecialty("x"))
}
