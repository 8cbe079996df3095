package auth

import (
	"context"
	"fmt"
	"strings"
)

type TokenValidator interface {
	Validate(ctx context.Context, token string) bool
}

// StaticTokenValidator checks bearer tokens against a fixed set parsed from
// configuration: a comma-separated list.
type StaticTokenValidator struct {
	tokens map[string]struct{}
}

func NewStaticTokenValidator(spec string) (*StaticTokenValidator, error) {
	validator := &StaticTokenValidator{tokens: map[string]struct{}{}}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return validator, nil
	}

	for _, entry := range strings.Split(spec, ",") {
		token := strings.TrimSpace(entry)
		if token == "" {
			return nil, fmt.Errorf("invalid static token list: empty entry")
		}
		validator.tokens[token] = struct{}{}
	}
	return validator, nil
}

func (v *StaticTokenValidator) Validate(_ context.Context, token string) bool {
	_, ok := v.tokens[token]
	return ok
}

func (v *StaticTokenValidator) Empty() bool {
	return len(v.tokens) == 0
}
