package services

import (
	"strings"

	"github.com/google/uuid"
)

// UUIDCaseIDGenerator issues identifiers like CASE-1A2B3C4D from random UUIDs.
type UUIDCaseIDGenerator struct{}

// NewCaseID implements providers.CaseIDGenerator.
func (UUIDCaseIDGenerator) NewCaseID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return "CASE-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8]), nil
}
