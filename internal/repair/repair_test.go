package repair

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestRepairEscapesEmbeddedQuotes(t *testing.T) {
	in := []byte(`{"a":"he said "hi""}`)
	if json.Valid(in) {
		t.Fatalf("fixture must fail strict parsing")
	}

	out, err := Repair(in)
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if string(out) != `{"a":"he said \"hi\""}` {
		t.Fatalf("unexpected repaired buffer %s", out)
	}

	var doc map[string]string
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("repaired buffer does not parse: %v", err)
	}
	if doc["a"] != `he said "hi"` {
		t.Fatalf("quote not preserved as text: %q", doc["a"])
	}
}

func TestRepairSingleEmbeddedQuote(t *testing.T) {
	cases := []struct {
		name string
		in   string
		key  string
		want string
	}{
		{name: "inch mark", in: `{"lane":"12" wide","id":"s1"}`, key: "lane", want: `12" wide`},
		{name: "apostrophe style", in: `{"name":"O"Brien","id":"s1"}`, key: "name", want: `O"Brien`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if json.Valid([]byte(tc.in)) {
				t.Fatalf("fixture must fail strict parsing")
			}
			out, err := Repair([]byte(tc.in))
			if err != nil {
				t.Fatalf("repair: %v", err)
			}
			var doc map[string]any
			if err := json.Unmarshal(out, &doc); err != nil {
				t.Fatalf("unmarshal repaired: %v", err)
			}
			if doc[tc.key] != tc.want {
				t.Fatalf("expected %q, got %v", tc.want, doc[tc.key])
			}
			if doc["id"] != "s1" {
				t.Fatalf("sibling field lost: %v", doc)
			}
		})
	}
}

func TestRepairNestedObject(t *testing.T) {
	out, err := Repair([]byte(`{"sale":{"notes":"ask for "Sam"},"id":"s1"}`))
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	var doc struct {
		Sale struct {
			Notes string `json:"notes"`
		} `json:"sale"`
		ID string `json:"id"`
	}
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Sale.Notes != `ask for "Sam` || doc.ID != "s1" {
		t.Fatalf("unexpected doc %+v", doc)
	}
}

func TestRepairEmbeddedQuoteBeforeCommaIsNotRecovered(t *testing.T) {
	if _, err := Repair([]byte(`{"a":"one "two", three"}`)); !errors.Is(err, ErrUnrepairable) {
		t.Fatalf("expected ErrUnrepairable, got %v", err)
	}
}

func TestRepairKeepsEscapedQuotes(t *testing.T) {
	in := []byte(`{"a":"already \"fine\" but "this" is not"}`)
	out, err := Repair(in)
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	var doc map[string]string
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc["a"] != `already "fine" but "this" is not` {
		t.Fatalf("unexpected value %q", doc["a"])
	}
}

func TestEscapeNeverRemovesBytes(t *testing.T) {
	in := []byte(`{"a":"x"y"z","b":[1,2]}`)
	out := Escape(in)
	if len(out) < len(in) {
		t.Fatalf("escape shortened input")
	}
	j := 0
	for _, b := range out {
		if j < len(in) && b == in[j] {
			j++
		}
	}
	if j != len(in) {
		t.Fatalf("input is not a subsequence of output: %s", out)
	}
}

func TestRepairFailureIsClean(t *testing.T) {
	if _, err := Repair([]byte(`{"a": tru`)); !errors.Is(err, ErrUnrepairable) {
		t.Fatalf("expected ErrUnrepairable, got %v", err)
	}
	if _, err := Repair(nil); !errors.Is(err, ErrUnrepairable) {
		t.Fatalf("expected ErrUnrepairable for empty input, got %v", err)
	}
}

func TestDecodeReturnsOriginalError(t *testing.T) {
	in := []byte(`{"a":"x" "y"`)
	var strictTarget map[string]any
	original := json.Unmarshal(in, &strictTarget)
	if original == nil {
		t.Fatalf("fixture must fail strict parsing")
	}

	var doc map[string]any
	repaired, err := Decode(in, &doc)
	if repaired {
		t.Fatalf("unexpected repair success")
	}
	if err == nil || err.Error() != original.Error() {
		t.Fatalf("expected original error %q, got %v", original, err)
	}
	var syntax *json.SyntaxError
	if !errors.As(err, &syntax) {
		t.Fatalf("expected a json syntax error, got %T", err)
	}
}

func TestDecodeStrictAndRepaired(t *testing.T) {
	var doc struct {
		ID    string `json:"id"`
		Notes string `json:"notes"`
	}
	repaired, err := Decode([]byte(`{"id":"s1","notes":"plain"}`), &doc)
	if err != nil || repaired {
		t.Fatalf("valid payload should decode strictly, repaired=%v err=%v", repaired, err)
	}

	repaired, err = Decode([]byte(`{"id":"s2","notes":"lane "7" please"}`), &doc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !repaired {
		t.Fatalf("expected repair to be reported")
	}
	if doc.ID != "s2" || doc.Notes != `lane "7" please` {
		t.Fatalf("unexpected decoded doc %+v", doc)
	}
}

func TestDecodeTypeErrorsSkipRepair(t *testing.T) {
	var doc struct {
		ID int `json:"id"`
	}
	repaired, err := Decode([]byte(`{"id":"s1"}`), &doc)
	if repaired {
		t.Fatalf("type errors are not repairable")
	}
	var typeErr *json.UnmarshalTypeError
	if !errors.As(err, &typeErr) {
		t.Fatalf("expected unmarshal type error, got %v", err)
	}
}

func TestNormalizeCompactsAndRepairs(t *testing.T) {
	out, repaired, err := Normalize([]byte("  {\n  \"id\": \"s1\",\n  \"n\": 2\n}\n"))
	if err != nil || repaired {
		t.Fatalf("normalize valid: repaired=%v err=%v", repaired, err)
	}
	if string(out) != `{"id":"s1","n":2}` {
		t.Fatalf("expected compact output, got %s", out)
	}

	out, repaired, err = Normalize([]byte(`{"id":"s1","notes":"say "hi""}`))
	if err != nil || !repaired {
		t.Fatalf("normalize repairable: repaired=%v err=%v", repaired, err)
	}
	if string(out) != `{"id":"s1","notes":"say \"hi\""}` {
		t.Fatalf("unexpected output %s", out)
	}

	if _, _, err := Normalize([]byte(`{"id":`)); err == nil {
		t.Fatalf("expected error for truncated input")
	}
}
