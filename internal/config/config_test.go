package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"orgline/internal/config"
)

func TestDefault(t *testing.T) {
	cfg := config.Default("acme")
	if cfg.Company.ID != "acme" {
		t.Fatalf("company id = %q", cfg.Company.ID)
	}
	if cfg.Codes.DepartmentPrefix != "DEP-" {
		t.Fatalf("department prefix = %q", cfg.Codes.DepartmentPrefix)
	}
	if cfg.Defaults.SalaryCurrency != "USD" || cfg.Defaults.SalaryFrequency != "monthly" {
		t.Fatalf("salary defaults = %q/%q", cfg.Defaults.SalaryCurrency, cfg.Defaults.SalaryFrequency)
	}
	if cfg.Defaults.Headcount != 1 {
		t.Fatalf("default headcount = %d", cfg.Defaults.Headcount)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestGenerateDefaultRoundTrips(t *testing.T) {
	cfg, err := config.FromYAML([]byte(config.GenerateDefault("globex")))
	if err != nil {
		t.Fatalf("parse generated config: %v", err)
	}
	if cfg.Company.ID != "globex" || cfg.Company.Name != "globex" {
		t.Fatalf("unexpected company: %+v", cfg.Company)
	}
}

func TestFromYAMLValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing company id",
			yaml: "company:\n  name: Acme\n",
			want: "company.id",
		},
		{
			name: "bad frequency",
			yaml: "company:\n  id: acme\ndefaults:\n  salary_frequency: fortnightly\n",
			want: "salary_frequency",
		},
		{
			name: "negative headcount",
			yaml: "company:\n  id: acme\ndefaults:\n  headcount: -2\n",
			want: "headcount",
		},
		{
			name: "head title without placeholder",
			yaml: "company:\n  id: acme\ndefaults:\n  head_position_title: Department Head\n",
			want: "head_position_title",
		},
		{
			name: "malformed yaml",
			yaml: "company: [unclosed",
			want: "invalid config yaml",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.FromYAML([]byte(tc.yaml))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestHeadTitle(t *testing.T) {
	cfg := config.Default("acme")
	if got := cfg.HeadTitle("Finance"); got != "Head of Finance" {
		t.Fatalf("head title = %q", got)
	}
	cfg.Defaults.HeadPositionTitle = "%s Lead"
	if got := cfg.HeadTitle("Finance"); got != "Finance Lead" {
		t.Fatalf("custom head title = %q", got)
	}
	cfg.Defaults.HeadPositionTitle = ""
	if got := cfg.HeadTitle("Ops"); got != "Head of Ops" {
		t.Fatalf("fallback head title = %q", got)
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()

	cfg, err := config.LoadOptional(dir)
	if err != nil {
		t.Fatalf("load without file: %v", err)
	}
	if cfg == nil || cfg.Company.ID == "" {
		t.Fatalf("expected fallback config, got %+v", cfg)
	}

	if err := os.WriteFile(filepath.Join(dir, "orgline.yml"), []byte(config.GenerateDefault("globex")), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = config.LoadOptional(dir)
	if err != nil {
		t.Fatalf("load with file: %v", err)
	}
	if cfg.Company.ID != "globex" {
		t.Fatalf("company id = %q, want globex", cfg.Company.ID)
	}
}

func TestLoadMissingFileError(t *testing.T) {
	_, err := config.Load(t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "oc config init") {
		t.Fatalf("expected hint about oc config init, got %v", err)
	}
}
