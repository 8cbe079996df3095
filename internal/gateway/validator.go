package gateway

import (
	"regexp"
	"strings"
)

// Validator is a conservative lexical guard over incoming SQL text. It does
// not parse SQL grammar; it masks quoted literals and comments, then applies
// a fixed rule set. The approach cannot catch every injection vector
// expressible through database-specific extensions, and it may reject some
// benign constructs. The read-only connection is the backstop for anything
// that slips through.
type Validator struct{}

var (
	denylistPattern = regexp.MustCompile(
		`(?i)\b(DROP|DELETE|UPDATE|INSERT|ALTER|CREATE|TRUNCATE|ATTACH|DETACH|COPY|EXPORT|PRAGMA|CALL|INSTALL|LOAD)\b`)
	bareWildcardPattern = regexp.MustCompile(`(?i)\bSELECT\s+(?:DISTINCT\s+)?\*`)
	limitPattern        = regexp.MustCompile(`(?i)\bLIMIT\s+[1-9][0-9]*\b`)
)

// Validate applies the policy rules in order; the first failing rule wins.
// It is a pure function of the SQL text and never touches the database.
func (Validator) Validate(sqlText string) Verdict {
	masked := maskPlaceholderNames(maskQuotedAndComments(sqlText))

	if idx := strings.IndexByte(masked, ';'); idx >= 0 {
		if trailing := strings.TrimSpace(masked[idx+1:]); trailing != "" {
			return reject(ReasonMultiStatement, firstWord(trailing),
				"statement delimiter followed by additional content")
		}
	}

	trimmed := strings.TrimSpace(masked)
	if trimmed == "" {
		return reject(ReasonNonReadOnly, "", "statement is empty")
	}
	leading := strings.ToUpper(firstWord(trimmed))
	if leading != "SELECT" && leading != "WITH" {
		return reject(ReasonNonReadOnly, firstWord(trimmed),
			"statement must begin with SELECT or WITH")
	}

	if match := denylistPattern.FindString(masked); match != "" {
		return reject(ReasonDenylisted, strings.ToUpper(match),
			"statement contains a forbidden operation")
	}

	if bareWildcardPattern.MatchString(masked) && !limitPattern.MatchString(masked) {
		return reject(ReasonUnboundedWildcard, "SELECT *",
			"wildcard projection requires an explicit LIMIT clause")
	}

	return Verdict{Accepted: true}
}

func reject(reason Reason, token, message string) Verdict {
	return Verdict{Reason: reason, Token: token, Message: message}
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// maskPlaceholderNames blanks $name placeholder references so that the
// denylist never fires on a parameter named after a forbidden operation
// (for example $load or $update). Offsets are preserved.
func maskPlaceholderNames(s string) string {
	return namedPlaceholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		return strings.Repeat(" ", len(match))
	})
}

// maskQuotedAndComments blanks the contents of single-quoted strings,
// double-quoted identifiers, line comments and block comments so that the
// policy rules only ever see structural SQL text. Offsets are preserved.
func maskQuotedAndComments(s string) string {
	const (
		stateNormal = iota
		stateSingle
		stateDouble
		stateLine
		stateBlock
	)

	b := []byte(s)
	out := make([]byte, len(b))
	copy(out, b)

	state := stateNormal
	for i := 0; i < len(b); i++ {
		c := b[i]
		switch state {
		case stateNormal:
			switch {
			case c == '\'':
				state = stateSingle
				out[i] = ' '
			case c == '"':
				state = stateDouble
				out[i] = ' '
			case c == '-' && i+1 < len(b) && b[i+1] == '-':
				state = stateLine
				out[i] = ' '
			case c == '/' && i+1 < len(b) && b[i+1] == '*':
				state = stateBlock
				out[i] = ' '
			}
		case stateSingle:
			out[i] = ' '
			if c == '\'' {
				state = stateNormal
			}
		case stateDouble:
			out[i] = ' '
			if c == '"' {
				state = stateNormal
			}
		case stateLine:
			if c == '\n' {
				state = stateNormal
			} else {
				out[i] = ' '
			}
		case stateBlock:
			out[i] = ' '
			if c == '/' && b[i-1] == '*' {
				state = stateNormal
			}
		}
	}
	return string(out)
}
