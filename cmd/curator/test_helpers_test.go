package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	libraryDir string
	configPath string
}

func setupCLITestEnv(t *testing.T, llmURL string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("CURATOR_LLM_API_KEY", "")
	env := &cliTestEnv{
		baseDir:    base,
		libraryDir: filepath.Join(base, "library"),
		configPath: filepath.Join(base, "curator.toml"),
	}
	if llmURL == "" {
		llmURL = "http://127.0.0.1:1/v1/chat/completions"
	}
	content := fmt.Sprintf(`[paths]
data_dir = %q
library_dir = %q
log_dir = %q

[llm]
base_url = %q
model = "test-model"
timeout_seconds = 5
max_retries = 0

[logging]
level = "error"
`, filepath.Join(base, "data"), env.libraryDir, filepath.Join(base, "logs"), llmURL)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

// newLLMServer answers the model listing and replies to every completion
// with the content returned by reply.
func newLLMServer(t *testing.T, reply func() string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/models":
			_, _ = w.Write([]byte(`{"data":[{"id":"test-model"}]}`))
		case "/v1/chat/completions":
			payload := map[string]any{
				"choices": []any{
					map[string]any{"message": map[string]any{"content": reply()}},
				},
			}
			if err := json.NewEncoder(w).Encode(payload); err != nil {
				t.Errorf("encode response: %v", err)
			}
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func mustRunCLI(t *testing.T, env *cliTestEnv, args ...string) string {
	t.Helper()
	out, stderr, err := runCLI(t, args, env.configPath)
	if err != nil {
		t.Fatalf("curator %s: %v\nstderr: %s", strings.Join(args, " "), err, stderr)
	}
	return out
}

func writeMedia(t *testing.T, dir string, names ...string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("image-bytes"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
