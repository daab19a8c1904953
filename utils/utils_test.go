package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateRequestID(t *testing.T) {
	// Test that request IDs are generated
	id1 := GenerateRequestID()
	id2 := GenerateRequestID()

	assert.NotEmpty(t, id1)
	assert.NotEmpty(t, id2)
	assert.NotEqual(t, id1, id2)

	// Test that IDs are expected length (14 timestamp + 1 dash + 8 random = 23)
	assert.Equal(t, 23, len(id1))
	assert.Equal(t, 23, len(id2))
}

func TestValidateItemURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"https article", "https://example.com/article", false},
		{"http article", "http://example.com/blog/post", false},
		{"public IP", "http://93.184.216.34/page", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"no scheme", "example.com/article", true},
		{"ftp scheme", "ftp://example.com/file", true},
		{"no host", "https:///article", true},
		{"localhost", "http://localhost:8080/admin", true},
		{"localhost uppercase", "http://LOCALHOST/admin", true},
		{"loopback", "http://127.0.0.1/internal", true},
		{"private 10.x", "http://10.0.0.5/service", true},
		{"private 192.168.x", "https://192.168.1.1/router", true},
		{"link local", "http://169.254.169.254/latest/meta-data", true},
		{"unspecified", "http://0.0.0.0/anything", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateItemURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIDGeneratorIsMonotonic(t *testing.T) {
	ids := NewIDGenerator()

	previous := ids.Next()
	for i := 0; i < 100; i++ {
		next := ids.Next()
		assert.Greater(t, next, previous)
		previous = next
	}
}

func TestIDGeneratorConcurrentUniqueness(t *testing.T) {
	ids := NewIDGenerator()

	const workers = 8
	const perWorker = 200
	results := make(chan int64, workers*perWorker)

	for i := 0; i < workers; i++ {
		go func() {
			for j := 0; j < perWorker; j++ {
				results <- ids.Next()
			}
		}()
	}

	seen := make(map[int64]bool)
	for i := 0; i < workers*perWorker; i++ {
		id := <-results
		assert.False(t, seen[id], "duplicate ID %d", id)
		seen[id] = true
	}
}

// Benchmark tests
func BenchmarkGenerateRequestID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		GenerateRequestID()
	}
}

func BenchmarkIDGenerator(b *testing.B) {
	ids := NewIDGenerator()
	for i := 0; i < b.N; i++ {
		ids.Next()
	}
}
