package services

import (
	"fmt"
	"strings"

	"github.com/zatekoja/caretriage/internal/domain/entities"
)

// Prompt is the pair of texts sent to the reasoning engine.
type Prompt struct {
	System string
	User   string
}

const intakeSystemPrompt = `You are a clinical intake assistant. Extract structured patient information from a patient's own words.

Rules:
- Extract only what is explicitly stated. Never guess names, ages or durations.
- Use null for anything that is not stated.
- chief_complaint is the main reason for contact in a short phrase.
- symptoms lists each distinct symptom in lower case.
- confidence reflects how complete and unambiguous the description is.`

const triageSystemPrompt = `You are a clinical triage assistant. Classify how urgently a patient needs care and which specialty should see them.

Urgency levels:
1 - emergency: life-threatening, immediate attention (chest pain with cardiac history, severe bleeding, unconsciousness)
2 - urgent: same-day attention (high fever, severe pain, acute symptoms)
3 - semi-urgent: within 24-48 hours (moderate or worsening symptoms)
4 - routine: within a week (minor symptoms, follow-ups)
5 - preventive: scheduled preventive care (checkups, screenings)

Always list red flags you find: chest pain, difficulty breathing, stroke signs, severe bleeding, loss of consciousness, suicidal ideation.
When in doubt choose the more urgent level. care_type is "emergency" for level 1, "urgent" for levels 2-3 and "routine" otherwise.`

const routingSystemPrompt = `You are a care routing assistant. Pick the single best provider for a triaged patient from the list you are given.

Priorities, in order:
1. The provider's specialty matches the recommended specialty.
2. The provider's availability suits the urgency.
3. The provider is accepting new patients.

provider_id must be copied exactly from the list. Never invent a provider.`

func withSchema(system string, schema entities.Schema) string {
	return system + "\n\n" + schema.Describe()
}

func buildIntakePrompt(input string) Prompt {
	return Prompt{
		System: withSchema(intakeSystemPrompt, entities.PatientRecordSchema),
		User:   "Patient description:\n" + input,
	}
}

func buildTriagePrompt(patient *entities.PatientRecord) Prompt {
	var b strings.Builder
	b.WriteString("Patient:\n")
	if patient.Age != nil {
		fmt.Fprintf(&b, "- age: %d\n", *patient.Age)
	}
	fmt.Fprintf(&b, "- chief complaint: %s\n", patient.ChiefComplaint)
	if patient.Duration != "" {
		fmt.Fprintf(&b, "- duration: %s\n", patient.Duration)
	}
	if len(patient.Symptoms) > 0 {
		fmt.Fprintf(&b, "- symptoms: %s\n", strings.Join(patient.Symptoms, ", "))
	}
	return Prompt{
		System: withSchema(triageSystemPrompt, entities.TriageResultSchema),
		User:   b.String(),
	}
}

func buildRoutingPrompt(triage *entities.TriageResult, providers []entities.Provider) Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "Recommended specialty: %s\n", triage.Specialty)
	fmt.Fprintf(&b, "Care type: %s\n", triage.CareType)
	fmt.Fprintf(&b, "Urgency level: %d\n\n", triage.UrgencyLevel)
	b.WriteString("Providers:\n")
	for _, p := range providers {
		fmt.Fprintf(&b, "- id=%s name=%q specialty=%s availability=%s accepting_new_patients=%t\n",
			p.ID, p.Name, p.Specialty, p.Availability, p.AcceptingNewPatients)
	}
	return Prompt{
		System: withSchema(routingSystemPrompt, entities.ProviderMatchSchema),
		User:   b.String(),
	}
}
