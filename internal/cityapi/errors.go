package cityapi

import (
	"fmt"
	"strings"
)

// APIError reports an HTTP level failure from the GraphQL endpoint.
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// GraphQLError carries the messages of a response's errors array.
type GraphQLError struct {
	Operation string
	Messages  []string
}

func (e *GraphQLError) Error() string {
	return fmt.Sprintf("%s: graphql errors: %s", e.Operation, strings.Join(e.Messages, "; "))
}
