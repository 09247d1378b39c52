package main

import (
	"reflect"
	"testing"
)

func TestParsePairs(t *testing.T) {
	tests := []struct {
		name  string
		pairs []string
		want  map[string]interface{}
	}{
		{
			name:  "empty input yields nil map",
			pairs: nil,
			want:  nil,
		},
		{
			name:  "strings and typed values",
			pairs: []string{"environment=production", "replicas=3", "dry_run=true", "ratio=0.5"},
			want: map[string]interface{}{
				"environment": "production",
				"replicas":    3,
				"dry_run":     true,
				"ratio":       0.5,
			},
		},
		{
			name:  "dotted keys build nested maps",
			pairs: []string{"metadata.region=us-east-1", "metadata.zone=a"},
			want: map[string]interface{}{
				"metadata": map[string]interface{}{
					"region": "us-east-1",
					"zone":   "a",
				},
			},
		},
		{
			name:  "later value wins",
			pairs: []string{"env=staging", "env=production"},
			want:  map[string]interface{}{"env": "production"},
		},
		{
			name:  "empty value is kept",
			pairs: []string{"note="},
			want:  map[string]interface{}{"note": ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePairs(tt.pairs)
			if err != nil {
				t.Fatalf("parsePairs(%v): %v", tt.pairs, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parsePairs(%v) = %v, want %v", tt.pairs, got, tt.want)
			}
		})
	}
}

func TestParsePairsInvalid(t *testing.T) {
	for _, pair := range []string{"no-separator", "=value"} {
		if _, err := parsePairs([]string{pair}); err == nil {
			t.Errorf("parsePairs(%q) should return error", pair)
		}
	}
}

func TestCoerceValue(t *testing.T) {
	tests := []struct {
		raw  string
		want interface{}
	}{
		{"true", true},
		{"false", false},
		{"42", 42},
		{"-7", -7},
		{"3.14", 3.14},
		{"production", "production"},
		{"us-east-1", "us-east-1"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := coerceValue(tt.raw); got != tt.want {
			t.Errorf("coerceValue(%q) = %v (%T), want %v (%T)", tt.raw, got, got, tt.want, tt.want)
		}
	}
}

func TestEvaluateActionEndToEnd(t *testing.T) {
	evaluateFlags.rulesPath = writeCatalog(t, validCatalog)
	evaluateFlags.action = "deploy_service"
	evaluateFlags.category = "deployment"
	evaluateFlags.fields = []string{"environment=production", "agent_id=deploy-bot"}
	evaluateFlags.bag = nil
	evaluateFlags.format = "text"

	if err := evaluateAction(nil, nil); err != nil {
		t.Errorf("evaluateAction() returned error: %v", err)
	}
}

func TestEvaluateActionJSONFormat(t *testing.T) {
	evaluateFlags.rulesPath = writeCatalog(t, validCatalog)
	evaluateFlags.action = "restart_pod"
	evaluateFlags.category = ""
	evaluateFlags.fields = nil
	evaluateFlags.bag = []string{"agent_id=ops-bot"}
	evaluateFlags.format = "json"

	if err := evaluateAction(nil, nil); err != nil {
		t.Errorf("evaluateAction() returned error: %v", err)
	}
}

func TestEvaluateActionMissingCatalog(t *testing.T) {
	evaluateFlags.rulesPath = "does-not-exist.yaml"
	evaluateFlags.action = "deploy_service"
	evaluateFlags.fields = nil
	evaluateFlags.bag = nil
	evaluateFlags.format = "text"

	if err := evaluateAction(nil, nil); err == nil {
		t.Error("evaluateAction() with missing catalog should return error")
	}
}
