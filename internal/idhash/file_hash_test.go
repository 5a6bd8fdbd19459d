package idhash

import (
	"testing"
)

func TestComputeFileHash(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{
			name: "empty file",
			data: []byte{},
			want: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name: "short text",
			data: []byte("abc"),
			want: "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeFileHash(tt.data)
			if got != tt.want {
				t.Errorf("ComputeFileHash() = %s, want %s", got, tt.want)
			}
			if len(got) != 64 {
				t.Errorf("ComputeFileHash() length = %d, want 64", len(got))
			}
		})
	}
}

func TestSHA256Hasher_Determinism(t *testing.T) {
	var h SHA256Hasher
	data := []byte("deed of trust, page 1")

	// Compute multiple times
	results := make([]string, 10)
	for i := 0; i < 10; i++ {
		results[i] = h.Hash(data)
	}

	// All should be identical
	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Errorf("Determinism failed: results[%d]=%s != results[0]=%s", i, results[i], results[0])
		}
	}

	if h.Hash(nil) != h.Hash([]byte{}) {
		t.Error("nil and empty input should hash the same")
	}
	if h.Hash([]byte("a")) == h.Hash([]byte("b")) {
		t.Error("Different content should produce different hash")
	}
}
