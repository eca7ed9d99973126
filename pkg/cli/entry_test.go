package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseArgs(t *testing.T) {
	opts, err := parseArgs([]string{"-config", "custom.yaml", "-e", "return 1", "-log-debug"})
	if err != nil {
		t.Fatal(err)
	}
	if opts.configPath != "custom.yaml" {
		t.Errorf("configPath = %q", opts.configPath)
	}
	if opts.evalCode != "return 1" {
		t.Errorf("evalCode = %q", opts.evalCode)
	}

	opts, err = parseArgs([]string{"script.lum", "one", "two"})
	if err != nil {
		t.Fatal(err)
	}
	if opts.scriptPath != "script.lum" {
		t.Errorf("scriptPath = %q", opts.scriptPath)
	}
	if len(opts.scriptArgs) != 2 || opts.scriptArgs[0] != "one" || opts.scriptArgs[1] != "two" {
		t.Errorf("scriptArgs = %v", opts.scriptArgs)
	}

	if opts, _ := parseArgs([]string{"-help"}); opts != nil {
		t.Error("-help must return nil options")
	}
	if _, err := parseArgs([]string{"-e"}); err == nil {
		t.Error("-e without code must be rejected")
	}
}

func TestMainEval(t *testing.T) {
	if code := Main([]string{"-e", "x = 1 + 1"}); code != 0 {
		t.Errorf("exit code = %d for a valid chunk", code)
	}
	if code := Main([]string{"-e", "error('boom')"}); code != 1 {
		t.Errorf("exit code = %d for a failing chunk, want 1", code)
	}
	if code := Main([]string{"-e", "1 ++ 2"}); code != 1 {
		t.Errorf("exit code = %d for a syntax error, want 1", code)
	}
}

func TestMainScriptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.lum")
	script := "assert(type(arg) == \"table\")\nassert(arg[1] == \"one\")\n"
	if err := os.WriteFile(path, []byte(script), 0644); err != nil {
		t.Fatal(err)
	}
	if code := Main([]string{path, "one"}); code != 0 {
		t.Errorf("exit code = %d running a script file", code)
	}
	if code := Main([]string{filepath.Join(dir, "absent.lum")}); code != 1 {
		t.Errorf("exit code = %d for a missing file, want 1", code)
	}
}

func TestMainRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lumen.yaml")
	if err := os.WriteFile(path, []byte("libraries: [nosuch]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if code := Main([]string{"-config", path, "-e", "x = 1"}); code != 1 {
		t.Errorf("exit code = %d for a bad config, want 1", code)
	}
}
