package gateway

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var namedPlaceholderPattern = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)

// Bind resolves the placeholders of a query template against the supplied
// parameter values and returns an execution-ready statement. Named $name
// placeholders draw from params, positional ? placeholders draw from args;
// the two styles cannot be mixed. Values travel to the driver as bind
// arguments, never as interpolated text.
func Bind(sqlText string, params map[string]any, args []any) (Statement, error) {
	masked := maskQuotedAndComments(sqlText)
	names := referencedNames(masked)
	positional := strings.Count(masked, "?")

	if len(names) > 0 && positional > 0 {
		return Statement{}, &BindError{Message: "cannot mix named and positional placeholders"}
	}
	if len(params) > 0 && len(args) > 0 {
		return Statement{}, &BindError{Message: "cannot supply both named and positional values"}
	}

	if positional > 0 || len(args) > 0 {
		if positional != len(args) {
			return Statement{}, &BindError{Message: fmt.Sprintf(
				"statement references %d positional parameters, %d values supplied", positional, len(args))}
		}
		bound := make([]any, 0, len(args))
		for i, value := range args {
			coerced, err := coerceScalar(value)
			if err != nil {
				return Statement{}, &BindError{Name: fmt.Sprintf("%d", i+1), Message: err.Error()}
			}
			bound = append(bound, coerced)
		}
		return Statement{SQL: sqlText, Args: bound}, nil
	}

	if len(names) == 0 {
		if len(params) > 0 {
			return Statement{}, &BindError{Message: "parameters supplied but statement has no placeholders"}
		}
		return Statement{SQL: sqlText}, nil
	}

	bound := make([]any, 0, len(names))
	for _, name := range names {
		value, ok := params[name]
		if !ok {
			return Statement{}, &BindError{Name: name, Message: "no value supplied"}
		}
		coerced, err := coerceScalar(value)
		if err != nil {
			return Statement{}, &BindError{Name: name, Message: err.Error()}
		}
		bound = append(bound, sql.Named(name, coerced))
	}
	for name := range params {
		if !containsName(names, name) {
			return Statement{}, &BindError{Name: name, Message: "parameter is not referenced by the statement"}
		}
	}
	return Statement{SQL: sqlText, Args: bound}, nil
}

func referencedNames(masked string) []string {
	matches := namedPlaceholderPattern.FindAllStringSubmatch(masked, -1)
	names := make([]string, 0, len(matches))
	for _, match := range matches {
		if !containsName(names, match[1]) {
			names = append(names, match[1])
		}
	}
	return names
}

func containsName(names []string, name string) bool {
	for _, candidate := range names {
		if candidate == name {
			return true
		}
	}
	return false
}

// coerceScalar admits the small fixed set of scalar kinds the gateway is
// willing to bind. JSON-decoded numbers arrive as float64.
func coerceScalar(value any) (any, error) {
	switch typed := value.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		time.Time:
		return typed, nil
	default:
		return nil, fmt.Errorf("unsupported parameter type %T", value)
	}
}
