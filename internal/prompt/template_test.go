package prompt

import (
	"strings"
	"testing"
)

func TestRender_SimpleVars(t *testing.T) {
	tmpl := "Hello {{name}}, you are working on issue #{{issue_number}}."
	vars := Vars{
		"name":         "Alice",
		"issue_number": "42",
	}

	result, err := Render(tmpl, vars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "Hello Alice, you are working on issue #42."
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestRender_MissingVar(t *testing.T) {
	tmpl := "Hello {{name}}, issue {{issue_number}}."
	vars := Vars{
		"name": "Alice",
	}

	_, err := Render(tmpl, vars)
	if err == nil {
		t.Fatal("expected error for missing variable")
	}
	if !strings.Contains(err.Error(), "issue_number") {
		t.Errorf("error should mention missing variable, got: %v", err)
	}
}

func TestRender_MultipleMissing(t *testing.T) {
	tmpl := "{{a}} and {{b}} and {{c}}"
	vars := Vars{}

	_, err := Render(tmpl, vars)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "a") || !strings.Contains(err.Error(), "b") || !strings.Contains(err.Error(), "c") {
		t.Errorf("error should mention all missing vars, got: %v", err)
	}
}

func TestRender_ConditionalBlock_Present(t *testing.T) {
	tmpl := "Start.{{#if git_diff}}\nDiff: {{git_diff}}\n{{/if}}End."
	vars := Vars{
		"git_diff": "some changes",
	}

	result, err := Render(tmpl, vars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "Diff: some changes") {
		t.Errorf("expected conditional block to be included, got: %q", result)
	}
}

func TestRender_ConditionalBlock_Absent(t *testing.T) {
	tmpl := "Start.{{#if git_diff}}\nDiff: {{git_diff}}\n{{/if}}End."
	vars := Vars{}

	result, err := Render(tmpl, vars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(result, "Diff:") {
		t.Errorf("expected conditional block to be excluded, got: %q", result)
	}
	if result != "Start.End." {
		t.Errorf("expected 'Start.End.', got: %q", result)
	}
}

func TestRender_ConditionalBlock_EmptyString(t *testing.T) {
	tmpl := "{{#if git_diff}}has diff{{/if}}"
	vars := Vars{
		"git_diff": "",
	}

	result, err := Render(tmpl, vars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "" {
		t.Errorf("expected empty string for empty var, got: %q", result)
	}
}

func TestRender_MultipleConditionals(t *testing.T) {
	tmpl := "{{#if a}}A={{a}}{{/if}} {{#if b}}B={{b}}{{/if}}"
	vars := Vars{
		"a": "yes",
	}

	result, err := Render(tmpl, vars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "A=yes") {
		t.Errorf("expected A block, got: %q", result)
	}
	if strings.Contains(result, "B=") {
		t.Errorf("expected B block excluded, got: %q", result)
	}
}

func TestRender_NoVars(t *testing.T) {
	tmpl := "No variables here."
	result, err := Render(tmpl, Vars{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != tmpl {
		t.Errorf("expected %q, got %q", tmpl, result)
	}
}

func TestRender_VarInConditional(t *testing.T) {
	tmpl := "{{#if check_failures}}Failures:\n{{check_failures}}{{/if}}"
	vars := Vars{
		"check_failures": "lint: 3 errors\ntest: 2 failures",
	}

	result, err := Render(tmpl, vars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "lint: 3 errors") {
		t.Errorf("expected check failures content, got: %q", result)
	}
}

