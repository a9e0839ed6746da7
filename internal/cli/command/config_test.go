package command

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runAppWithConfig(t *testing.T, path string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := NewApp(Options{In: strings.NewReader(""), Out: &out, Err: &errOut})
	err := app.Run(append([]string{"kvs-client", "--config", path}, args...))
	return out.String(), err
}

// unsetenv clears key for the test and restores it afterwards.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}

func TestConfig_InitAndShow(t *testing.T) {
	unsetenv(t, "KVS_ADMIN_ADDR")
	unsetenv(t, "KVS_PIPE_DIR")
	path := filepath.Join(t.TempDir(), "client.yaml")

	out, err := runAppWithConfig(t, path, "--pipe-dir", "/run/kvs", "config", "init")
	if err != nil {
		t.Fatalf("config init error = %v", err)
	}
	if !strings.Contains(out, "wrote "+path) {
		t.Errorf("output = %q", out)
	}

	out, err = runAppWithConfig(t, path, "config", "show")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if !strings.Contains(out, "pipe_dir: /run/kvs") || !strings.Contains(out, "output: table") {
		t.Errorf("config show =\n%s", out)
	}
}

func TestConfig_InitRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	if err := os.WriteFile(path, []byte("output: json\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := runAppWithConfig(t, path, "config", "init"); err == nil {
		t.Error("config init over existing file succeeded")
	}
	if _, err := runAppWithConfig(t, path, "config", "init", "--force"); err != nil {
		t.Errorf("config init --force error = %v", err)
	}
}

func TestConfig_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	if err := os.WriteFile(path, []byte("output: xml\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := runAppWithConfig(t, path, "config", "show"); err == nil {
		t.Error("config show with invalid file succeeded")
	}
}

func TestStats_AdminFromConfig(t *testing.T) {
	unsetenv(t, "KVS_ADMIN_ADDR")
	srv, _ := newAdminServer(t)
	path := filepath.Join(t.TempDir(), "client.yaml")
	data := "admin: " + srv.URL + "\noutput: json\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := runAppWithConfig(t, path, "stats")
	if err != nil {
		t.Fatalf("stats error = %v", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("output = %q, want JSON from config", out)
	}
}
