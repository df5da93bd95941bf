package hash

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestSHA256(t *testing.T) {
	tests := []struct {
		input []byte
		want  string
	}{
		{
			[]byte("hello"),
			"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		},
		{
			[]byte(""),
			"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			got := SHA256(tt.input)
			if got != tt.want {
				t.Errorf("SHA256(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestSHA256String(t *testing.T) {
	got := SHA256String("hello")
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

	if got != want {
		t.Errorf("SHA256String(hello) = %s, want %s", got, want)
	}
}

func TestSHA256Short(t *testing.T) {
	hash := SHA256([]byte("hello"))

	tests := []struct {
		n    int
		want string
	}{
		{8, hash[:8]},
		{16, hash[:16]},
		{100, hash},
	}

	for _, tt := range tests {
		got := SHA256Short([]byte("hello"), tt.n)
		if got != tt.want {
			t.Errorf("SHA256Short(hello, %d) = %s, want %s", tt.n, got, tt.want)
		}
	}
}

func TestEmbeddingKey(t *testing.T) {
	a := EmbeddingKey("parse config", "go")
	b := EmbeddingKey("parse config", "GO")
	c := EmbeddingKey("parse config", "python")

	if a != b {
		t.Error("language hint should be case-insensitive")
	}
	if a == c {
		t.Error("different language hints should produce different keys")
	}
}

func TestChunkID(t *testing.T) {
	id1 := ChunkID("snap-1", "internal/auth/login.go", 10, 42)
	id2 := ChunkID("snap-1", "internal/auth/login.go", 10, 42)
	id3 := ChunkID("snap-2", "internal/auth/login.go", 10, 42)

	if id1 != id2 {
		t.Errorf("ChunkID not deterministic: %s != %s", id1, id2)
	}
	if id1 == id3 {
		t.Error("different snapshots should produce different IDs")
	}
	if _, err := uuid.Parse(id1); err != nil {
		t.Errorf("ChunkID should be a UUID, got %s: %v", id1, err)
	}
	if strings.ToLower(id1) != id1 {
		t.Errorf("ChunkID should be lowercase, got %s", id1)
	}
}
