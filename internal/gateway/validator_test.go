package gateway

import "testing"

func TestValidateAcceptsReadOnlyQueries(t *testing.T) {
	queries := []string{
		"SELECT complaint_type, COUNT(*) FROM service_requests GROUP BY complaint_type",
		"select unique_key, status from service_requests where borough = $borough",
		"WITH recent AS (SELECT * FROM service_requests LIMIT 100) SELECT COUNT(*) FROM recent",
		"SELECT * FROM service_requests LIMIT 10",
		"SELECT updated_at, created_date FROM service_requests WHERE agency = ?",
		"SELECT descriptor FROM service_requests WHERE complaint_type = 'Noise - Residential';",
		"SELECT 1 -- trailing comment",
	}
	var v Validator
	for _, q := range queries {
		verdict := v.Validate(q)
		if !verdict.Accepted {
			t.Fatalf("query %q rejected: %s (%s)", q, verdict.Reason, verdict.Message)
		}
		if verdict.Err() != nil {
			t.Fatalf("accepting verdict returned error for %q", q)
		}
	}
}

func TestValidateRejectionReasons(t *testing.T) {
	cases := []struct {
		name   string
		sql    string
		reason Reason
	}{
		{"two statements", "SELECT 1; SELECT 2", ReasonMultiStatement},
		{"piggybacked write", "SELECT unique_key FROM service_requests LIMIT 5; DELETE FROM service_requests", ReasonMultiStatement},
		{"update statement", "UPDATE service_requests SET status = 'Closed'", ReasonNonReadOnly},
		{"insert statement", "INSERT INTO service_requests VALUES (1)", ReasonNonReadOnly},
		{"empty statement", "   ", ReasonNonReadOnly},
		{"comment only", "-- nothing here", ReasonNonReadOnly},
		{"drop in subexpression", "SELECT * FROM service_requests LIMIT 5 UNION ALL SELECT 1 WHERE EXISTS (SELECT 1) OR 0 = (DROP TABLE x)", ReasonDenylisted},
		{"attach database", "SELECT 1 WHERE ATTACH", ReasonDenylisted},
		{"bare wildcard", "SELECT * FROM service_requests", ReasonUnboundedWildcard},
		{"distinct wildcard", "SELECT DISTINCT * FROM service_requests", ReasonUnboundedWildcard},
		{"wildcard zero limit", "SELECT * FROM service_requests LIMIT 0", ReasonUnboundedWildcard},
	}

	var v Validator
	for _, tc := range cases {
		verdict := v.Validate(tc.sql)
		if verdict.Accepted {
			t.Fatalf("%s: query %q accepted, want rejection %s", tc.name, tc.sql, tc.reason)
		}
		if verdict.Reason != tc.reason {
			t.Fatalf("%s: reason = %s, want %s", tc.name, verdict.Reason, tc.reason)
		}
		if verdict.Err() == nil {
			t.Fatalf("%s: rejecting verdict returned nil error", tc.name)
		}
	}
}

func TestValidateIgnoresQuotedAndCommentedText(t *testing.T) {
	var v Validator

	accepted := []string{
		"SELECT descriptor FROM service_requests WHERE descriptor = 'please DROP this; thanks' LIMIT 5",
		`SELECT "select" FROM service_requests LIMIT 5`,
		"SELECT unique_key FROM service_requests /* DELETE is just a word here */ LIMIT 5",
		"SELECT unique_key FROM service_requests -- UPDATE nothing\nLIMIT 5",
	}
	for _, q := range accepted {
		if verdict := v.Validate(q); !verdict.Accepted {
			t.Fatalf("query %q rejected: %s (%s)", q, verdict.Reason, verdict.Message)
		}
	}

	// Masking must not hide real structure outside literals.
	verdict := v.Validate("SELECT 'fine'; DROP TABLE service_requests")
	if verdict.Accepted || verdict.Reason != ReasonMultiStatement {
		t.Fatalf("verdict = %+v, want multi-statement rejection", verdict)
	}
}

func TestValidateRuleOrdering(t *testing.T) {
	var v Validator

	// A statement that is both non-read-only and denylisted fails the
	// shape rule first.
	verdict := v.Validate("DROP TABLE service_requests")
	if verdict.Reason != ReasonNonReadOnly {
		t.Fatalf("reason = %s, want %s", verdict.Reason, ReasonNonReadOnly)
	}

	// Multi-statement wins over everything downstream.
	verdict = v.Validate("SELECT * FROM service_requests; UPDATE service_requests SET status = 'x'")
	if verdict.Reason != ReasonMultiStatement {
		t.Fatalf("reason = %s, want %s", verdict.Reason, ReasonMultiStatement)
	}
}

func TestValidateIgnoresPlaceholderNames(t *testing.T) {
	var v Validator

	// A placeholder named after a denylisted word is still just a
	// placeholder; the denylist sees structural SQL only.
	queries := []string{
		"SELECT unique_key FROM service_requests WHERE agency = $load LIMIT 5",
		"SELECT unique_key FROM service_requests WHERE status = $update AND borough = $copy LIMIT 5",
	}
	for _, q := range queries {
		if verdict := v.Validate(q); !verdict.Accepted {
			t.Fatalf("query %q rejected: %s (%s)", q, verdict.Reason, verdict.Message)
		}
	}

	// The same words outside a placeholder still reject.
	verdict := v.Validate("SELECT unique_key FROM service_requests WHERE LOAD LIMIT 5")
	if verdict.Accepted || verdict.Reason != ReasonDenylisted {
		t.Fatalf("verdict = %+v, want denylisted-operation", verdict)
	}
}

func TestValidateDenylistMatchesWholeTokens(t *testing.T) {
	var v Validator

	// Identifiers that merely contain a denylisted word stay accepted.
	verdict := v.Validate("SELECT updated_at, pragma_version FROM service_requests LIMIT 5")
	if !verdict.Accepted {
		t.Fatalf("identifier containing a denylisted substring was rejected: %+v", verdict)
	}

	verdict = v.Validate("SELECT unique_key FROM service_requests WHERE 1 = 1 AND CALL LIMIT 5")
	if verdict.Accepted {
		t.Fatalf("standalone denylisted token was accepted")
	}
	if verdict.Reason != ReasonDenylisted || verdict.Token != "CALL" {
		t.Fatalf("verdict = %+v, want denylisted-operation on CALL", verdict)
	}
}
