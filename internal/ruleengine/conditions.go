// Package ruleengine implements the Rule Engine component (spec §4.D): a
// recursive boolean-tree matcher over message fields, used both at import
// time and in retroactive batch jobs.
package ruleengine

import (
	"encoding/json"
	"regexp"
	"strings"
)

// NodeType discriminates the two variants of the recursive condition tree
// (spec §9 design note: "Dynamic condition trees → tagged variants").
type NodeType string

const (
	NodeGroup     NodeType = "group"
	NodeCondition NodeType = "condition"
)

// Operator is a ConditionGroup's boolean combinator (spec §4.D).
type Operator string

const (
	OperatorAND Operator = "AND"
	OperatorOR  Operator = "OR"
)

// MatchType is a leaf Condition's comparison mode (spec §4.D).
type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchContains MatchType = "contains"
	MatchRegex    MatchType = "regex"
)

// Node is either a ConditionGroup (Type == NodeGroup, Operator + Children
// populated) or a leaf Condition (Type == NodeCondition, Field/MatchType/
// Value/Negate populated). The engine recurses structurally; no runtime
// type introspection is required beyond the Type tag.
type Node struct {
	Type NodeType `json:"type"`

	// Group fields.
	Operator Operator `json:"operator,omitempty"`
	Children []Node   `json:"children,omitempty"`

	// Leaf fields.
	Field     string    `json:"field,omitempty"`
	MatchType MatchType `json:"matchType,omitempty"`
	Value     string    `json:"value,omitempty"`
	Negate    bool      `json:"negate,omitempty"`
}

// ParseConditions decodes the JSON-encoded ConditionGroup stored on a Rule
// row.
func ParseConditions(raw string) (Node, error) {
	var n Node
	if strings.TrimSpace(raw) == "" {
		return Node{Type: NodeGroup, Operator: OperatorAND}, nil
	}
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		return Node{}, err
	}
	return n, nil
}

func (n Node) Encode() (string, error) {
	b, err := json.Marshal(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// EvalContext carries the fields a leaf Condition can reference
// (spec §4.D "Leaf fields").
type EvalContext struct {
	ThreadSubject       string
	EmailSubject        string
	SenderName          string
	SenderEmail         string
	ToNames             []string
	ToEmails            []string
	CCNames             []string
	CCEmails            []string
	Content             string
	AttachmentFilenames []string
	Headers             map[string]string
}

// Evaluate recurses over the condition tree. An empty group yields false
// (spec §4.D, §8 boundary behavior).
func Evaluate(n Node, ctx EvalContext) bool {
	if n.Type == NodeGroup {
		if len(n.Children) == 0 {
			return false
		}
		switch n.Operator {
		case OperatorOR:
			for _, c := range n.Children {
				if Evaluate(c, ctx) {
					return true
				}
			}
			return false
		default: // AND
			for _, c := range n.Children {
				if !Evaluate(c, ctx) {
					return false
				}
			}
			return true
		}
	}
	return evaluateLeaf(n, ctx)
}

func evaluateLeaf(n Node, ctx EvalContext) bool {
	result := matchLeaf(n, ctx)
	if n.Negate {
		return !result
	}
	return result
}

func matchLeaf(n Node, ctx EvalContext) bool {
	if n.Field == "sender_in_contacts" {
		var addrs []string
		if err := json.Unmarshal([]byte(n.Value), &addrs); err != nil {
			return false
		}
		for _, a := range addrs {
			if strings.EqualFold(strings.TrimSpace(a), ctx.SenderEmail) {
				return true
			}
		}
		return false
	}

	if strings.HasPrefix(n.Field, "header:") {
		headerName := strings.TrimPrefix(n.Field, "header:")
		for k, v := range ctx.Headers {
			if strings.EqualFold(k, headerName) {
				return matchOne(n.MatchType, n.Value, v)
			}
		}
		return false
	}

	values := fieldValues(n.Field, ctx)
	for _, v := range values {
		if matchOne(n.MatchType, n.Value, v) {
			return true
		}
	}
	return false
}

func fieldValues(field string, ctx EvalContext) []string {
	switch field {
	case "thread_subject":
		return []string{ctx.ThreadSubject}
	case "email_subject":
		return []string{ctx.EmailSubject}
	case "sender_name":
		return []string{ctx.SenderName}
	case "sender_email":
		return []string{ctx.SenderEmail}
	case "to_name":
		return ctx.ToNames
	case "to_email":
		return ctx.ToEmails
	case "cc_name":
		return ctx.CCNames
	case "cc_email":
		return ctx.CCEmails
	case "content":
		return []string{ctx.Content}
	case "attachment_filename":
		return ctx.AttachmentFilenames
	default:
		return nil
	}
}

// matchOne applies a single match type. An invalid regex never matches and
// never panics (spec §4.D, §8 boundary behavior).
func matchOne(matchType MatchType, pattern, value string) bool {
	switch matchType {
	case MatchExact:
		return strings.EqualFold(strings.TrimSpace(value), strings.TrimSpace(pattern))
	case MatchRegex:
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return false
		}
		return re.MatchString(value)
	default: // contains
		return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
	}
}
