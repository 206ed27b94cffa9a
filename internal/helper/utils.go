package helper

import (
	"fmt"

	"github.com/google/uuid"
)

// GenerateUUID creates a random unique UUID string, used as the run id tying
// log lines, reports and audit records together.
func GenerateUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID: %v", err)
	}
	return id.String(), nil
}
