package actions

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ResultsScope identifies the workflow run inside the artifact exchange.
// The backend IDs are not exposed through any documented environment
// variable; they only exist inside the runtime token's scope claim.
type ResultsScope struct {
	WorkflowRunBackendID    string
	WorkflowJobRunBackendID string
}

// ParseResultsScope extracts the artifact-service scope identifiers from
// the ACTIONS_RUNTIME_TOKEN. The token is consumed, not verified: the
// runner minted it and the exchange verifies it on every request.
func ParseResultsScope(runtimeToken string) (*ResultsScope, error) {
	if runtimeToken == "" {
		return nil, fmt.Errorf("runtime token is empty")
	}

	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(runtimeToken, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse runtime token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected runtime token claims type")
	}

	scp, ok := claims["scp"].(string)
	if !ok {
		return nil, fmt.Errorf("runtime token has no scp claim")
	}

	// scp is a space-separated scope list; the artifact exchange scope is
	// "Actions.Results:<run backend id>:<job run backend id>"
	for _, scope := range strings.Fields(scp) {
		parts := strings.Split(scope, ":")
		if len(parts) == 3 && parts[0] == "Actions.Results" {
			return &ResultsScope{
				WorkflowRunBackendID:    parts[1],
				WorkflowJobRunBackendID: parts[2],
			}, nil
		}
	}

	return nil, fmt.Errorf("runtime token carries no Actions.Results scope")
}
