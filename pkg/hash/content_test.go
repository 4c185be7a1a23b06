package hash

import (
	"strings"
	"testing"
)

func TestContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "simple text",
			content: "hello",
		},
		{
			name:    "empty content",
			content: "",
		},
		{
			name:    "multiline",
			content: "line one\nline two\n",
		},
		{
			name:    "unicode",
			content: "notas 📝 ñ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			digest := Content(tt.content)

			if len(digest) != 64 {
				t.Errorf("Content() digest length = %d, want 64", len(digest))
			}

			if strings.ToLower(digest) != digest {
				t.Errorf("Content() digest should be lowercase hex, got %s", digest)
			}

			if !Equal(digest, tt.content) {
				t.Error("Equal() should match the digest it was built from")
			}
		})
	}
}

func TestContentDistinguishesInputs(t *testing.T) {
	if Content("hello v2") == Content("hello v3") {
		t.Error("Content() should differ for different inputs")
	}

	if Equal(Content("hello"), "hello ") {
		t.Error("Equal() should be sensitive to trailing whitespace")
	}
}

func BenchmarkContent(b *testing.B) {
	body := strings.Repeat("note body ", 1024)

	for i := 0; i < b.N; i++ {
		_ = Content(body)
	}
}
