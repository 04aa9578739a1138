package driver_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mica/internal/diag"
	"mica/internal/driver"
	"mica/internal/objfile"
	"mica/internal/project"
	"mica/internal/source"
)

const counterJSON = `{
  "name": "Counter",
  "functions": [{
    "name": "seven",
    "returns": [{"name": "", "type": {"kind": "int", "bits": 8}}],
    "body": [{
      "stmt": "return",
      "value": {"expr": "literal", "type": {"kind": "rational", "bits": 8}, "text": "7", "span": [10, 11]}
    }]
  }]
}`

// TestCompileMidText checks the mid-level dump: the contract container is
// still present and no entry synthesis has happened.
func TestCompileMidText(t *testing.T) {
	job := driver.Job{Stage: driver.StageMid}
	res, err := driver.CompileSource(source.NewFileSet(), "counter.json", []byte(counterJSON), job)
	if err != nil {
		t.Fatalf("CompileSource: %v", err)
	}
	out := string(res.Output)
	if !strings.Contains(out, "module @Counter") {
		t.Errorf("dump lacks module header:\n%s", out)
	}
	if !strings.Contains(out, "contract @Counter") {
		t.Errorf("mid-level dump lacks the contract container:\n%s", out)
	}
	if !strings.Contains(out, "func @seven") {
		t.Errorf("dump lacks the lowered function:\n%s", out)
	}
}

// TestCompileLoweredText checks the full pipeline: the contract container
// is gone and its function sits at module scope.
func TestCompileLoweredText(t *testing.T) {
	res, err := driver.CompileSource(source.NewFileSet(), "counter.json", []byte(counterJSON), driver.Job{})
	if err != nil {
		t.Fatalf("CompileSource: %v", err)
	}
	out := string(res.Output)
	if strings.Contains(out, "contract @") {
		t.Errorf("lowered dump still holds a contract container:\n%s", out)
	}
	if !strings.Contains(out, "func @seven") {
		t.Errorf("lowered dump lacks the flattened function:\n%s", out)
	}
}

// TestCompileDebugInfo checks that locations appear only when asked for.
func TestCompileDebugInfo(t *testing.T) {
	fset := source.NewFileSet()
	plain, err := driver.CompileSource(fset, "counter.json", []byte(counterJSON), driver.Job{})
	if err != nil {
		t.Fatalf("CompileSource: %v", err)
	}
	if strings.Contains(string(plain.Output), "loc(") {
		t.Errorf("locations emitted without debug info:\n%s", plain.Output)
	}

	dbg, err := driver.CompileSource(fset, "counter2.json", []byte(counterJSON), driver.Job{DebugInfo: true})
	if err != nil {
		t.Fatalf("CompileSource: %v", err)
	}
	if !strings.Contains(string(dbg.Output), "loc(") {
		t.Errorf("debug info requested but no locations emitted:\n%s", dbg.Output)
	}
}

// TestCompileBinary checks that binary output decodes back to a module.
func TestCompileBinary(t *testing.T) {
	job := driver.Job{Format: driver.FormatBinary}
	res, err := driver.CompileSource(source.NewFileSet(), "counter.json", []byte(counterJSON), job)
	if err != nil {
		t.Fatalf("CompileSource: %v", err)
	}
	m, _, err := objfile.Decode(bytes.NewReader(res.Output))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if m.Name != "Counter" {
		t.Errorf("decoded module name = %q, want Counter", m.Name)
	}
	if m.FindFunc("seven") == nil {
		t.Error("decoded module lacks function seven")
	}
}

// TestCompileUnimplemented checks that an unsupported construct fails with
// the unimplemented-feature code and produces no output.
func TestCompileUnimplemented(t *testing.T) {
	src := `{
  "name": "Bad",
  "functions": [{
    "name": "f",
    "returns": [
      {"name": "", "type": {"kind": "int", "bits": 8}},
      {"name": "", "type": {"kind": "int", "bits": 8}}
    ]
  }]
}`
	res, err := driver.CompileSource(source.NewFileSet(), "bad.json", []byte(src), driver.Job{})
	if err == nil {
		t.Fatal("expected an error for a multi-value return")
	}
	if res != nil {
		t.Errorf("failed compile produced output")
	}
	if diag.CodeOf(err) != diag.CodeUnimplemented {
		t.Errorf("error code = %d, want %d", diag.CodeOf(err), diag.CodeUnimplemented)
	}
}

// TestJobFromConfig checks manifest settings and their validation.
func TestJobFromConfig(t *testing.T) {
	job, err := driver.JobFromConfig(project.BuildConfig{Target: "eravm", Stage: "mid", Format: "text"})
	if err != nil {
		t.Fatalf("JobFromConfig: %v", err)
	}
	if job.Stage != driver.StageMid || job.Format != driver.FormatText {
		t.Errorf("job = %+v", job)
	}

	bad := []project.BuildConfig{
		{Target: "evm"},
		{Stage: "hir"},
		{Format: "json"},
		{Stage: "mid", Format: "binary"},
		{Format: "binary", DebugInfo: true},
	}
	for _, cfg := range bad {
		if _, err := driver.JobFromConfig(cfg); err == nil {
			t.Errorf("config %+v accepted, want error", cfg)
		}
	}
}

// TestCompileFilesDeterministic checks that concurrent compilation returns
// results in sorted input order.
func TestCompileFilesDeterministic(t *testing.T) {
	dir := t.TempDir()
	names := []string{"c.json", "a.json", "b.json"}
	for _, name := range names {
		body := strings.Replace(counterJSON, "Counter", strings.TrimSuffix(name, ".json"), 1)
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	var paths []string
	for _, name := range names {
		paths = append(paths, filepath.Join(dir, name))
	}

	results, err := driver.CompileFiles(context.Background(), source.NewFileSet(), paths, driver.Job{}, 2)
	if err != nil {
		t.Fatalf("CompileFiles: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i, want := range []string{"a.json", "b.json", "c.json"} {
		if filepath.Base(results[i].Path) != want {
			t.Errorf("result %d is %s, want %s", i, results[i].Path, want)
		}
	}
}
