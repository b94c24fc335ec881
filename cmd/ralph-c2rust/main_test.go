package main

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const pointUnit = `file: point.c
types:
  - {id: 1, kind: int, name: int}
  - {id: 2, kind: int, name: unsigned int}
  - {id: 3, kind: struct, decl: 10}
decls:
  - {id: 11, kind: field, name: x, type: 1}
  - {id: 12, kind: field, name: y, type: 1}
  - {id: 10, kind: struct, name: point, fields: [11, 12]}
  - {id: 20, kind: var, name: n, type: 2}
exprs:
  - {id: 1, kind: ref, decl: 20, type: 2}
  - {id: 2, kind: int, value: 1, type: 2}
  - {id: 3, kind: binary, op: "+=", lhs: 1, rhs: 2, type: 2, compute_lhs: 2, compute_result: 2}
roots:
  - {expr: 3, discarded: true}
`

func writeUnit(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return path
}

func resetFlags() {
	dTypes = false
	dExprs = false
	dFeatures = false
	configPath = ""
	logLevel = ""
	failOnError = false
	emitNoStd = false
	invalidCode = ""
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersion(t *testing.T) {
	if version == "" {
		t.Error("version should not be empty")
	}
}

func TestFlagsExist(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)

	expectedFlags := []string{"dtypes", "dexprs", "dfeatures", "config", "log-level", "fail-on-error", "emit-no-std", "invalid-code"}
	for _, flagName := range expectedFlags {
		if cmd.Flags().Lookup(flagName) == nil {
			t.Errorf("expected flag --%s to exist", flagName)
		}
	}
}

func TestNoArgsPrintsHelp(t *testing.T) {
	out, _, err := execute(t)
	if err != nil {
		t.Fatalf("expected no error without arguments, got %v", err)
	}
	if !strings.Contains(out, "ralph-c2rust [file.yaml]") {
		t.Errorf("expected usage in output, got %q", out)
	}
}

func TestTranslateWritesRustFile(t *testing.T) {
	input := writeUnit(t, "point.yaml", pointUnit)

	out, errOut, err := execute(t, input)
	if err != nil {
		t.Fatalf("unexpected error: %v\nstderr: %s", err, errOut)
	}
	for _, want := range []string{"pub struct point {", "n = n.wrapping_add(1);"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got %q", want, out)
		}
	}

	written, err := os.ReadFile(rustOutputFilename(input))
	if err != nil {
		t.Fatalf("expected %s to be written: %v", rustOutputFilename(input), err)
	}
	if string(written) != out {
		t.Errorf("file content differs from stdout\n--- file ---\n%s\n--- stdout ---\n%s", written, out)
	}
}

func TestDebugFlagsSelectSections(t *testing.T) {
	input := writeUnit(t, "point.yaml", pointUnit)

	out, _, err := execute(t, "--dtypes", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "pub struct point {") || strings.Contains(out, "wrapping_add") {
		t.Errorf("-dtypes output = %q", out)
	}

	out, _, err = execute(t, "--dexprs", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "n = n.wrapping_add(1);" {
		t.Errorf("-dexprs output = %q", out)
	}

	if _, err := os.Stat(rustOutputFilename(input)); !os.IsNotExist(err) {
		t.Errorf("debug dumps should not write %s", rustOutputFilename(input))
	}
}

func TestMissingFile(t *testing.T) {
	_, errOut, err := execute(t, filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for a missing file")
	}
	if !strings.Contains(errOut, "error reading") {
		t.Errorf("expected read error on stderr, got %q", errOut)
	}
}

func TestMalformedUnit(t *testing.T) {
	input := writeUnit(t, "bad.yaml", "types:\n  - {id: 1, kind: quaternion}\n")
	_, errOut, err := execute(t, "--dtypes", input)
	if err == nil {
		t.Fatal("expected error for an unknown type kind")
	}
	if !strings.Contains(errOut, "quaternion") {
		t.Errorf("expected the bad kind on stderr, got %q", errOut)
	}
}

func TestConfigFileAndFlagOverride(t *testing.T) {
	const volatileUnit = `types:
  - {id: 1, kind: int, name: int}
decls:
  - {id: 20, kind: var, name: reg, type: {type: 1, volatile: true}}
exprs:
  - {id: 1, kind: ref, decl: 20, type: {type: 1, volatile: true}}
  - {id: 2, kind: int, value: 7, type: 1}
  - {id: 3, kind: binary, op: "=", lhs: 1, rhs: 2, type: 1}
roots:
  - {expr: 3, discarded: true}
`
	input := writeUnit(t, "reg.yaml", volatileUnit)
	config := writeUnit(t, "c2rust.yaml", "emit_no_std: true\nlog_level: off\n")

	out, _, err := execute(t, "--dexprs", "--config", config, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "::core::ptr::write_volatile") {
		t.Errorf("expected no_std paths from the config file, got %q", out)
	}

	out, _, err = execute(t, "--dexprs", "--config", config, "--emit-no-std=false", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "::std::ptr::write_volatile") {
		t.Errorf("expected the flag to override the config file, got %q", out)
	}
}

func TestInvalidOptions(t *testing.T) {
	input := writeUnit(t, "point.yaml", pointUnit)
	tests := [][]string{
		{"--invalid-code", "abort", input},
		{"--log-level", "loud", input},
		{"--config", filepath.Join(t.TempDir(), "missing.yaml"), input},
	}
	for _, args := range tests {
		_, errOut, err := execute(t, args...)
		if err == nil {
			t.Errorf("expected error for %v", args)
		}
		if !strings.HasPrefix(errOut, "ralph-c2rust: ") {
			t.Errorf("expected a diagnostic for %v, got %q", args, errOut)
		}
	}
}

func TestRustOutputFilename(t *testing.T) {
	tests := map[string]string{
		"unit.yaml":    "unit.rs",
		"dir/unit.yml": "dir/unit.rs",
		"unit.ast":     "unit.ast.rs",
	}
	for in, want := range tests {
		if got := rustOutputFilename(in); got != want {
			t.Errorf("rustOutputFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeFlags(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "single-dash dtypes",
			input:    []string{"-dtypes", "unit.yaml"},
			expected: []string{"--dtypes", "unit.yaml"},
		},
		{
			name:     "several debug flags",
			input:    []string{"-dexprs", "-dfeatures", "unit.yaml"},
			expected: []string{"--dexprs", "--dfeatures", "unit.yaml"},
		},
		{
			name:     "double-dash unchanged",
			input:    []string{"--dtypes", "unit.yaml"},
			expected: []string{"--dtypes", "unit.yaml"},
		},
		{
			name:     "other flags unchanged",
			input:    []string{"-c", "cfg.yaml", "--log-level", "debug", "unit.yaml"},
			expected: []string{"-c", "cfg.yaml", "--log-level", "debug", "unit.yaml"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeFlags(tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("normalizeFlags(%v) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}
