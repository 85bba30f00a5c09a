package webhook

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Verifier handles webhook verification
type Verifier struct {
	verifyToken string
	logger      *zap.Logger
}

// NewVerifier creates a new webhook verifier
func NewVerifier(verifyToken string, logger *zap.Logger) *Verifier {
	return &Verifier{
		verifyToken: verifyToken,
		logger:      logger,
	}
}

// VerifyChallenge handles the initial webhook challenge verification
func (v *Verifier) VerifyChallenge(body []byte) (string, error) {
	var challenge struct {
		Challenge string `json:"challenge"`
		Token     string `json:"token"`
		Type      string `json:"type"`
	}

	if err := json.Unmarshal(body, &challenge); err != nil {
		return "", fmt.Errorf("failed to unmarshal challenge: %w", err)
	}

	if challenge.Type != "url_verification" {
		return "", fmt.Errorf("invalid challenge type: %s", challenge.Type)
	}

	if v.verifyToken != "" && challenge.Token != v.verifyToken {
		return "", fmt.Errorf("invalid verification token")
	}

	return challenge.Challenge, nil
}
