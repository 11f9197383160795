package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/caretriage/internal/application/services"
)

func TestExtractPatientRecord(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantName     string
		wantAge      int
		wantDuration string
	}{
		{
			name:         "full introduction",
			input:        "Hi, I'm Sarah Jones, 45 years old, headache for 3 days",
			wantName:     "Sarah Jones",
			wantAge:      45,
			wantDuration: "3 days",
		},
		{
			name:     "my name is",
			input:    "My name is Tom and I have a cough, age 62",
			wantName: "Tom",
			wantAge:  62,
		},
		{
			name:         "verb after I'm is not a name",
			input:        "I'm having chest pain for about 2 hours",
			wantDuration: "about 2 hours",
		},
		{
			name:  "implausible age is dropped",
			input: "age 200 and dizzy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := services.ExtractPatientRecord(tt.input)
			require.NoError(t, err)

			assert.Equal(t, tt.wantName, record.Name)
			assert.Equal(t, tt.wantDuration, record.Duration)
			if tt.wantAge == 0 {
				assert.Nil(t, record.Age)
			} else {
				require.NotNil(t, record.Age)
				assert.Equal(t, tt.wantAge, *record.Age)
			}
			assert.True(t, record.FallbackUsed)
			assert.Empty(t, record.Symptoms)
			assert.NotEmpty(t, record.ChiefComplaint)
		})
	}
}

func TestExtractPatientRecord_EmptyInput(t *testing.T) {
	_, err := services.ExtractPatientRecord("   ")
	assert.Error(t, err)
}
