package parser

import (
	"reflect"
	"testing"
)

func TestParseExecute(t *testing.T) {
	sig := Parse(`I need to look up the customer first.
EXECUTE crm_lookup PARAMETERS {"id": "42", "fields": ["name", "email"]}
Then I can answer.`)

	if sig.Kind != KindExecute {
		t.Fatalf("Kind = %v, want execute", sig.Kind)
	}
	if sig.Name != "crm_lookup" {
		t.Errorf("Name = %q, want crm_lookup", sig.Name)
	}
	want := map[string]any{"id": "42", "fields": []any{"name", "email"}}
	if !reflect.DeepEqual(sig.Params, want) {
		t.Errorf("Params = %v, want %v", sig.Params, want)
	}
}

func TestParseExecuteMultilineParams(t *testing.T) {
	sig := Parse(`EXECUTE send_email PARAMETERS {
  "to": "ada@example.com",
  "subject": "Q3 report",
  "body": "Numbers attached; note the {placeholder} stays literal."
}`)

	if sig.Kind != KindExecute {
		t.Fatalf("Kind = %v, want execute", sig.Kind)
	}
	if sig.Params["subject"] != "Q3 report" {
		t.Errorf("subject = %v", sig.Params["subject"])
	}
}

func TestParseExecuteWithoutParameters(t *testing.T) {
	sig := Parse("EXECUTE list_accounts")
	if sig.Kind != KindExecute {
		t.Fatalf("Kind = %v, want execute", sig.Kind)
	}
	if sig.Name != "list_accounts" {
		t.Errorf("Name = %q", sig.Name)
	}
	if len(sig.Params) != 0 {
		t.Errorf("Params = %v, want empty", sig.Params)
	}
}

func TestParseExecuteMalformedJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unclosed object", `EXECUTE crm_lookup PARAMETERS {"id": "42"`},
		{"not an object", `EXECUTE crm_lookup PARAMETERS [1, 2, 3]`},
		{"garbage", `EXECUTE crm_lookup PARAMETERS {id: forty-two,}`},
		{"bare marker", `EXECUTE`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := Parse(tt.input)
			if sig.Kind != KindNone {
				t.Errorf("Kind = %v, want none", sig.Kind)
			}
		})
	}
}

func TestParseStop(t *testing.T) {
	sig := Parse("CLASSIFY record_lookup\nSTOP all required data gathered")
	if sig.Kind != KindStop {
		t.Fatalf("Kind = %v, want stop", sig.Kind)
	}
	if sig.Reason != "all required data gathered" {
		t.Errorf("Reason = %q", sig.Reason)
	}
	if sig.Intent != "record_lookup" {
		t.Errorf("Intent = %q, want record_lookup", sig.Intent)
	}
}

func TestParseClassifyOnly(t *testing.T) {
	sig := Parse("CLASSIFY smalltalk")
	if sig.Kind != KindClassify {
		t.Fatalf("Kind = %v, want classify", sig.Kind)
	}
	if sig.Intent != "smalltalk" {
		t.Errorf("Intent = %q", sig.Intent)
	}
}

func TestParseImplicitAnswer(t *testing.T) {
	sig := Parse("  The weather in Paris is sunny today.  ")
	if sig.Kind != KindAnswer {
		t.Fatalf("Kind = %v, want answer", sig.Kind)
	}
	if sig.Answer != "The weather in Paris is sunny today." {
		t.Errorf("Answer = %q", sig.Answer)
	}
}

func TestParseFirstActionMarkerWins(t *testing.T) {
	sig := Parse("STOP done\nEXECUTE crm_lookup PARAMETERS {}")
	if sig.Kind != KindStop {
		t.Errorf("Kind = %v, want stop (first marker)", sig.Kind)
	}
}

func TestParseDecoratedMarkers(t *testing.T) {
	tests := []struct {
		name string
		in   string
		kind Kind
	}{
		{"bullet", `- EXECUTE crm_lookup PARAMETERS {"id": "1"}`, KindExecute},
		{"bold", `**EXECUTE crm_lookup PARAMETERS {"id": "1"}`, KindExecute},
		{"blockquote stop", "> STOP nothing left to do", KindStop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if sig := Parse(tt.in); sig.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", sig.Kind, tt.kind)
			}
		})
	}
}

func TestParseMarkerMidProseIgnored(t *testing.T) {
	// Marker words inside a sentence are prose, not signals.
	sig := Parse("You could EXECUTE that plan tomorrow if you wish.")
	if sig.Kind != KindAnswer {
		t.Errorf("Kind = %v, want answer", sig.Kind)
	}
}

func TestFindJSONCandidates(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"single", `before {"a": 1} after`, []string{`{"a": 1}`}},
		{"nested", `{"a": {"b": 2}}`, []string{`{"a": {"b": 2}}`}},
		{"brace in string", `{"s": "}{"}`, []string{`{"s": "}{"}`}},
		{"escaped quote", `{"s": "say \"hi\""}`, []string{`{"s": "say \"hi\""}`}},
		{"multiple", `{"a":1} and {"b":2}`, []string{`{"a":1}`, `{"b":2}`}},
		{"none", "plain prose only", nil},
		{"unbalanced", `{"a": 1`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := findJSONCandidates(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("findJSONCandidates(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
