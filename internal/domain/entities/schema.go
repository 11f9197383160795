package entities

import (
	"fmt"
	"strings"
)

// SchemaField describes one field the reasoning engine must return.
type SchemaField struct {
	Name       string
	Type       string
	Required   bool
	Constraint string
}

// Schema describes the structured output expected from a reasoning call.
type Schema struct {
	Name   string
	Fields []SchemaField
}

// RequiredFields lists the names of required fields.
func (s Schema) RequiredFields() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// Describe renders the structural contract for inclusion in a prompt.
func (s Schema) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Respond with ONLY a JSON object (%s) with these fields:\n", s.Name)
	for _, f := range s.Fields {
		req := "optional"
		if f.Required {
			req = "required"
		}
		fmt.Fprintf(&b, "- %q: %s, %s", f.Name, f.Type, req)
		if f.Constraint != "" {
			fmt.Fprintf(&b, ", %s", f.Constraint)
		}
		b.WriteByte('\n')
	}
	b.WriteString("No markdown, no explanations outside the JSON object.")
	return b.String()
}

// PatientRecordSchema is the contract for the intake stage.
var PatientRecordSchema = Schema{
	Name: "PatientRecord",
	Fields: []SchemaField{
		{Name: "name", Type: "string or null"},
		{Name: "age", Type: "integer or null", Constraint: "1-150, null when not stated"},
		{Name: "chief_complaint", Type: "string", Required: true, Constraint: "non-empty"},
		{Name: "duration", Type: "string or null"},
		{Name: "symptoms", Type: "array of strings", Required: true},
		{Name: "confidence", Type: "number", Required: true, Constraint: "0.0-1.0"},
	},
}

// TriageResultSchema is the contract for the triage stage.
var TriageResultSchema = Schema{
	Name: "TriageResult",
	Fields: []SchemaField{
		{Name: "urgency_level", Type: "integer", Required: true, Constraint: "1 (most urgent) to 5"},
		{Name: "specialty", Type: "string", Required: true, Constraint: "snake_case medical specialty"},
		{Name: "care_type", Type: "string", Required: true, Constraint: `one of "emergency", "urgent", "routine"`},
		{Name: "red_flags", Type: "array of strings", Required: true},
		{Name: "confidence", Type: "number", Required: true, Constraint: "0.0-1.0"},
		{Name: "reasoning", Type: "string"},
	},
}

// ProviderMatchSchema is the contract for the routing stage.
var ProviderMatchSchema = Schema{
	Name: "ProviderMatch",
	Fields: []SchemaField{
		{Name: "provider_id", Type: "string", Required: true, Constraint: "id of a provider from the list"},
		{Name: "rationale", Type: "string", Required: true},
		{Name: "confidence", Type: "number", Required: true, Constraint: "0.0-1.0"},
	},
}
