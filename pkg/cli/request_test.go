package cli

import (
	"os"
	"path/filepath"
	"testing"
)

type sampleRequest struct {
	Message string         `yaml:"message" json:"message"`
	Context map[string]any `yaml:"context" json:"context"`
}

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     string
	}{
		{"yaml extension", "req.yaml", "message: hello\ncontext:\n  channel_id: api_test\n"},
		{"yml extension", "req.yml", "message: hello\ncontext:\n  channel_id: api_test\n"},
		{"json extension", "req.json", `{"message":"hello","context":{"channel_id":"api_test"}}`},
		{"no extension, yaml content", "req", "message: hello\ncontext:\n  channel_id: api_test\n"},
		{"no extension, json content", "req", `{"message":"hello","context":{"channel_id":"api_test"}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var req sampleRequest
			if err := ParseRequest([]byte(tc.data), tc.filename, &req); err != nil {
				t.Fatalf("ParseRequest: %v", err)
			}
			if req.Message != "hello" {
				t.Errorf("message = %q; want %q", req.Message, "hello")
			}
			if req.Context["channel_id"] != "api_test" {
				t.Errorf("context = %v", req.Context)
			}
		})
	}
}

func TestParseRequestRejectsMalformedInput(t *testing.T) {
	var req sampleRequest
	if err := ParseRequest([]byte(`{"message": unterminated`), "req.json", &req); err == nil {
		t.Error("malformed JSON accepted")
	}
	if err := ParseRequest([]byte("\t{not: yaml: or: json"), "req", &req); err == nil {
		t.Error("unparseable content accepted")
	}
}

func TestLoadRequest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "req.yaml")
	if err := os.WriteFile(path, []byte("message: from file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	var req sampleRequest
	if err := LoadRequest(path, &req); err != nil {
		t.Fatalf("LoadRequest: %v", err)
	}
	if req.Message != "from file" {
		t.Errorf("message = %q; want %q", req.Message, "from file")
	}

	if err := LoadRequest(filepath.Join(t.TempDir(), "missing.yaml"), &req); err == nil {
		t.Error("missing file accepted")
	}
}
