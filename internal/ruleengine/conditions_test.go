package ruleengine

import "testing"

func TestEvaluateEmptyGroupIsFalse(t *testing.T) {
	n := Node{Type: NodeGroup, Operator: OperatorAND}
	if Evaluate(n, EvalContext{}) {
		t.Error("an empty condition group must evaluate false")
	}
}

func TestEvaluateAndOr(t *testing.T) {
	leafTrue := Node{Type: NodeCondition, Field: "sender_email", MatchType: MatchExact, Value: "a@example.com"}
	leafFalse := Node{Type: NodeCondition, Field: "sender_email", MatchType: MatchExact, Value: "b@example.com"}
	ctx := EvalContext{SenderEmail: "a@example.com"}

	and := Node{Type: NodeGroup, Operator: OperatorAND, Children: []Node{leafTrue, leafFalse}}
	if Evaluate(and, ctx) {
		t.Error("AND with one false child should be false")
	}

	or := Node{Type: NodeGroup, Operator: OperatorOR, Children: []Node{leafTrue, leafFalse}}
	if !Evaluate(or, ctx) {
		t.Error("OR with one true child should be true")
	}
}

func TestEvaluateNegate(t *testing.T) {
	leaf := Node{Type: NodeCondition, Field: "sender_email", MatchType: MatchExact, Value: "a@example.com", Negate: true}
	if Evaluate(leaf, EvalContext{SenderEmail: "a@example.com"}) {
		t.Error("negated matching leaf should evaluate false")
	}
	if !Evaluate(leaf, EvalContext{SenderEmail: "b@example.com"}) {
		t.Error("negated non-matching leaf should evaluate true")
	}
}

func TestMatchTypes(t *testing.T) {
	ctx := EvalContext{EmailSubject: "Invoice #42 is due"}

	exact := Node{Type: NodeCondition, Field: "email_subject", MatchType: MatchExact, Value: "Invoice #42 is due"}
	if !Evaluate(exact, ctx) {
		t.Error("exact match should succeed on identical subject")
	}

	contains := Node{Type: NodeCondition, Field: "email_subject", MatchType: MatchContains, Value: "invoice"}
	if !Evaluate(contains, ctx) {
		t.Error("contains match should be case-insensitive substring")
	}

	regex := Node{Type: NodeCondition, Field: "email_subject", MatchType: MatchRegex, Value: `#\d+`}
	if !Evaluate(regex, ctx) {
		t.Error("regex match should find the invoice number pattern")
	}

	invalidRegex := Node{Type: NodeCondition, Field: "email_subject", MatchType: MatchRegex, Value: `(unterminated`}
	if Evaluate(invalidRegex, ctx) {
		t.Error("an invalid regex must never match, not panic")
	}
}

func TestMatchHeaderField(t *testing.T) {
	ctx := EvalContext{Headers: map[string]string{"X-Mailer": "Acme Sender 1.0"}}
	n := Node{Type: NodeCondition, Field: "header:x-mailer", MatchType: MatchContains, Value: "acme"}
	if !Evaluate(n, ctx) {
		t.Error("header field match should be case-insensitive on both key and value")
	}

	missing := Node{Type: NodeCondition, Field: "header:x-spam-flag", MatchType: MatchContains, Value: "yes"}
	if Evaluate(missing, ctx) {
		t.Error("missing header should never match")
	}
}

func TestMatchSenderInContacts(t *testing.T) {
	n := Node{Type: NodeCondition, Field: "sender_in_contacts", Value: `["a@example.com","b@example.com"]`}
	if !Evaluate(n, EvalContext{SenderEmail: "B@Example.com"}) {
		t.Error("sender_in_contacts should match case-insensitively")
	}
	if Evaluate(n, EvalContext{SenderEmail: "c@example.com"}) {
		t.Error("sender not in the list should not match")
	}
}

func TestMatchMultiValueField(t *testing.T) {
	n := Node{Type: NodeCondition, Field: "to_email", MatchType: MatchExact, Value: "x@example.com"}
	ctx := EvalContext{ToEmails: []string{"a@example.com", "x@example.com"}}
	if !Evaluate(n, ctx) {
		t.Error("multi-value field should match if any value matches")
	}
}

func TestEncodeParseRoundTrip(t *testing.T) {
	n := Node{
		Type:     NodeGroup,
		Operator: OperatorOR,
		Children: []Node{
			{Type: NodeCondition, Field: "sender_email", MatchType: MatchExact, Value: "a@example.com"},
		},
	}
	encoded, err := n.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoded, err := ParseConditions(encoded)
	if err != nil {
		t.Fatalf("ParseConditions failed: %v", err)
	}
	if decoded.Operator != OperatorOR || len(decoded.Children) != 1 {
		t.Errorf("round-trip mismatch: %+v", decoded)
	}
}

func TestParseConditionsEmptyDefaultsToEmptyAndGroup(t *testing.T) {
	n, err := ParseConditions("")
	if err != nil {
		t.Fatalf("ParseConditions(\"\") failed: %v", err)
	}
	if n.Type != NodeGroup || n.Operator != OperatorAND || len(n.Children) != 0 {
		t.Errorf("empty conditions should default to an empty AND group, got %+v", n)
	}
}
