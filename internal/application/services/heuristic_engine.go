package services

import (
	"regexp"
	"strings"

	"github.com/zatekoja/caretriage/internal/domain/entities"
)

// KeywordRule maps a symptom phrase to the care it calls for.
type KeywordRule struct {
	Keyword   string
	Level     entities.UrgencyLevel
	CareType  entities.CareType
	Specialty string
	RedFlag   bool
}

// Rules are evaluated in order; order decides ties and the order of reported red flags.
var defaultKeywordRules = []KeywordRule{
	{Keyword: "chest pain", Level: entities.UrgencyEmergency, CareType: entities.CareTypeEmergency, Specialty: "cardiology", RedFlag: true},
	{Keyword: "heart attack", Level: entities.UrgencyEmergency, CareType: entities.CareTypeEmergency, Specialty: "cardiology", RedFlag: true},
	{Keyword: "can't breathe", Level: entities.UrgencyEmergency, CareType: entities.CareTypeEmergency, Specialty: "pulmonology", RedFlag: true},
	{Keyword: "cannot breathe", Level: entities.UrgencyEmergency, CareType: entities.CareTypeEmergency, Specialty: "pulmonology", RedFlag: true},
	{Keyword: "difficulty breathing", Level: entities.UrgencyEmergency, CareType: entities.CareTypeEmergency, Specialty: "pulmonology", RedFlag: true},
	{Keyword: "unconscious", Level: entities.UrgencyEmergency, CareType: entities.CareTypeEmergency, Specialty: "emergency_medicine", RedFlag: true},
	{Keyword: "loss of consciousness", Level: entities.UrgencyEmergency, CareType: entities.CareTypeEmergency, Specialty: "emergency_medicine", RedFlag: true},
	{Keyword: "severe bleeding", Level: entities.UrgencyEmergency, CareType: entities.CareTypeEmergency, Specialty: "emergency_medicine", RedFlag: true},
	{Keyword: "stroke", Level: entities.UrgencyEmergency, CareType: entities.CareTypeEmergency, Specialty: "neurology", RedFlag: true},
	{Keyword: "paralysis", Level: entities.UrgencyEmergency, CareType: entities.CareTypeEmergency, Specialty: "neurology", RedFlag: true},
	{Keyword: "suicidal", Level: entities.UrgencyEmergency, CareType: entities.CareTypeEmergency, Specialty: "psychiatry", RedFlag: true},
	{Keyword: "overdose", Level: entities.UrgencyEmergency, CareType: entities.CareTypeEmergency, Specialty: "emergency_medicine", RedFlag: true},
	{Keyword: "poisoning", Level: entities.UrgencyEmergency, CareType: entities.CareTypeEmergency, Specialty: "emergency_medicine", RedFlag: true},

	{Keyword: "high fever", Level: entities.UrgencyUrgent, CareType: entities.CareTypeUrgent, Specialty: entities.GeneralPracticeSpecialty, RedFlag: true},
	{Keyword: "severe pain", Level: entities.UrgencyUrgent, CareType: entities.CareTypeUrgent, Specialty: entities.GeneralPracticeSpecialty, RedFlag: true},
	{Keyword: "vomiting blood", Level: entities.UrgencyUrgent, CareType: entities.CareTypeUrgent, Specialty: "gastroenterology", RedFlag: true},
	{Keyword: "broken bone", Level: entities.UrgencyUrgent, CareType: entities.CareTypeUrgent, Specialty: "orthopedics", RedFlag: true},
	{Keyword: "deep cut", Level: entities.UrgencyUrgent, CareType: entities.CareTypeUrgent, Specialty: entities.GeneralPracticeSpecialty, RedFlag: true},
	{Keyword: "head injury", Level: entities.UrgencyUrgent, CareType: entities.CareTypeUrgent, Specialty: "neurology", RedFlag: true},
	{Keyword: "allergic reaction", Level: entities.UrgencyUrgent, CareType: entities.CareTypeUrgent, Specialty: entities.GeneralPracticeSpecialty, RedFlag: true},

	{Keyword: "prescription refill", Level: entities.UrgencyRoutine, CareType: entities.CareTypeRoutine, Specialty: entities.GeneralPracticeSpecialty},
	{Keyword: "follow-up", Level: entities.UrgencyRoutine, CareType: entities.CareTypeRoutine, Specialty: entities.GeneralPracticeSpecialty},

	{Keyword: "annual checkup", Level: entities.UrgencyPreventive, CareType: entities.CareTypeRoutine, Specialty: entities.GeneralPracticeSpecialty},
	{Keyword: "annual check-up", Level: entities.UrgencyPreventive, CareType: entities.CareTypeRoutine, Specialty: entities.GeneralPracticeSpecialty},
	{Keyword: "annual physical", Level: entities.UrgencyPreventive, CareType: entities.CareTypeRoutine, Specialty: entities.GeneralPracticeSpecialty},
	{Keyword: "routine checkup", Level: entities.UrgencyPreventive, CareType: entities.CareTypeRoutine, Specialty: entities.GeneralPracticeSpecialty},
	{Keyword: "screening", Level: entities.UrgencyPreventive, CareType: entities.CareTypeRoutine, Specialty: entities.GeneralPracticeSpecialty},
	{Keyword: "vaccination", Level: entities.UrgencyPreventive, CareType: entities.CareTypeRoutine, Specialty: entities.GeneralPracticeSpecialty},
	{Keyword: "flu shot", Level: entities.UrgencyPreventive, CareType: entities.CareTypeRoutine, Specialty: entities.GeneralPracticeSpecialty},
}

type bodySystem struct {
	term      string
	specialty string
}

var defaultBodySystems = []bodySystem{
	{"chest", "cardiology"},
	{"heart", "cardiology"},
	{"breathing", "pulmonology"},
	{"lung", "pulmonology"},
	{"cough", "pulmonology"},
	{"stomach", "gastroenterology"},
	{"digestive", "gastroenterology"},
	{"skin", "dermatology"},
	{"rash", "dermatology"},
	{"bone", "orthopedics"},
	{"joint", "orthopedics"},
	{"knee", "orthopedics"},
	{"head", "neurology"},
	{"headache", "neurology"},
	{"mental", "psychiatry"},
	{"anxiety", "psychiatry"},
	{"depression", "psychiatry"},
}

const (
	heuristicConfidenceRedFlag = 0.5
	heuristicConfidenceMatched = 0.6
	heuristicConfidenceDefault = 0.4
)

type compiledRule struct {
	KeywordRule
	pattern *regexp.Regexp
}

type compiledSystem struct {
	bodySystem
	pattern *regexp.Regexp
}

// HeuristicEngine is the deterministic keyword triage used as fallback and cross-check.
// It holds no mutable state and is safe for concurrent use.
type HeuristicEngine struct {
	rules   []compiledRule
	systems []compiledSystem
}

// NewHeuristicEngine compiles the built-in keyword table.
func NewHeuristicEngine() *HeuristicEngine {
	e := &HeuristicEngine{
		rules:   make([]compiledRule, 0, len(defaultKeywordRules)),
		systems: make([]compiledSystem, 0, len(defaultBodySystems)),
	}
	for _, r := range defaultKeywordRules {
		e.rules = append(e.rules, compiledRule{KeywordRule: r, pattern: phrasePattern(r.Keyword)})
	}
	for _, s := range defaultBodySystems {
		e.systems = append(e.systems, compiledSystem{bodySystem: s, pattern: phrasePattern(s.term)})
	}
	return e
}

// phrasePattern matches the phrase case-insensitively on word boundaries,
// allowing any run of whitespace between its words.
func phrasePattern(phrase string) *regexp.Regexp {
	words := strings.Fields(phrase)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b` + strings.Join(words, `\s+`) + `\b`)
}

// Assess classifies the case from raw text and extracted symptoms.
func (e *HeuristicEngine) Assess(rawText string, symptoms []string) entities.HeuristicAssessment {
	text := normalizeApostrophes(rawText + " " + strings.Join(symptoms, " "))

	var (
		deciding *compiledRule
		matched  []string
		redFlags []string
	)
	for i := range e.rules {
		rule := &e.rules[i]
		if !rule.pattern.MatchString(text) {
			continue
		}
		matched = append(matched, rule.Keyword)
		if rule.RedFlag {
			redFlags = append(redFlags, rule.Keyword)
		}
		if deciding == nil || rule.Level.MoreUrgentThan(deciding.Level) {
			deciding = rule
		}
	}

	if deciding == nil {
		return entities.HeuristicAssessment{
			UrgencyLevel:    entities.UrgencySemiUrgent,
			CareType:        entities.CareTypeUrgent,
			Specialty:       e.specialtyFor(text),
			RedFlags:        []string{},
			MatchedKeywords: []string{},
			Confidence:      heuristicConfidenceDefault,
		}
	}

	confidence := heuristicConfidenceMatched
	if len(redFlags) > 0 {
		confidence = heuristicConfidenceRedFlag
	} else {
		redFlags = []string{}
	}

	return entities.HeuristicAssessment{
		UrgencyLevel:    deciding.Level,
		CareType:        deciding.CareType,
		Specialty:       deciding.Specialty,
		RedFlags:        redFlags,
		MatchedKeywords: matched,
		Confidence:      confidence,
		Matched:         true,
	}
}

func (e *HeuristicEngine) specialtyFor(text string) string {
	for _, s := range e.systems {
		if s.pattern.MatchString(text) {
			return s.specialty
		}
	}
	return entities.GeneralPracticeSpecialty
}

func normalizeApostrophes(s string) string {
	return strings.NewReplacer("’", "'", "‘", "'").Replace(s)
}
