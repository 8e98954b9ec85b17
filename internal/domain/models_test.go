package domain

import "testing"

func TestTableNames(t *testing.T) {
	if got := (Rule{}).TableName(); got != "rules" {
		t.Fatalf("Rule table = %q; want rules", got)
	}
	if got := (Response{}).TableName(); got != "responses" {
		t.Fatalf("Response table = %q; want responses", got)
	}
}

func TestResponseTexts_PreservesOrder(t *testing.T) {
	r := Rule{Responses: []Response{
		{Text: "a", Position: 0},
		{Text: "b", Position: 1},
		{Text: "c", Position: 2},
	}}
	got := r.ResponseTexts()
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("len = %d; want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("texts[%d] = %q; want %q", i, got[i], want[i])
		}
	}
}

func TestClone_IsDeep(t *testing.T) {
	orig := Rule{
		ID:        "r1",
		Trigger:   "kpop time",
		Responses: []Response{{ID: "a", Text: "https://youtu.be/x"}},
	}
	cp := orig.Clone()
	cp.Responses[0].Text = "mutated"
	cp.Responses = append(cp.Responses, Response{ID: "b", Text: "extra"})

	if orig.Responses[0].Text != "https://youtu.be/x" {
		t.Fatalf("clone shares backing array with original")
	}
	if len(orig.Responses) != 1 {
		t.Fatalf("original grew after clone append: %d", len(orig.Responses))
	}
}
