package condition

import (
	"testing"

	"github.com/stakflo/policystore/internal/model"
)

func TestEngineValidate(t *testing.T) {
	engine, err := NewEngine()
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{name: "empty is valid", expr: "", wantErr: false},
		{name: "simple boolean", expr: "true", wantErr: false},
		{name: "department comparison", expr: `department == "legal"`, wantErr: false},
		{name: "version comparison", expr: "version_major >= 2", wantErr: false},
		{name: "invalid syntax", expr: "this is not valid CEL", wantErr: true},
		{name: "unknown variable", expr: "nonexistent_field == 1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := engine.Validate(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
		})
	}
}

func TestEngineEvaluate(t *testing.T) {
	engine, err := NewEngine()
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	facts := model.PolicyFacts{
		Department:   "legal",
		Category:     "compliance",
		PolicyType:   "orgpolicy",
		VersionMajor: 2,
		VersionMinor: 1,
	}

	tests := []struct {
		name    string
		expr    string
		want    bool
		wantErr bool
	}{
		{name: "no condition always required", expr: "", want: true},
		{name: "department match", expr: `department == "legal"`, want: true},
		{name: "department mismatch", expr: `department == "finance"`, want: false},
		{name: "major version gate", expr: "version_major >= 2", want: true},
		{name: "minor version gate fails", expr: "version_minor > 5", want: false},
		{name: "combined condition", expr: `department == "legal" && category == "compliance"`, want: true},
		{name: "non-bool result errors", expr: "version_major", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Evaluate(tt.expr, facts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Evaluate(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEngineCachesCompiledPrograms(t *testing.T) {
	engine, err := NewEngine()
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	expr := `department == "legal"`
	if err := engine.Validate(expr); err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	if _, ok := engine.programs.Load(expr); !ok {
		t.Fatal("expected compiled program to be cached")
	}
}
