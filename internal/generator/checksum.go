package generator

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// ComputeChecksum computes a SHA256 checksum for the given data
func ComputeChecksum(data []byte) string {
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}

var contentWords = []string{
	"roadmap", "meeting", "notes", "design", "review", "release", "planning",
	"retro", "onboarding", "budget", "incident", "metrics", "goals", "draft",
	"research", "backlog", "launch", "feedback", "summary", "timeline",
}

// GenerateContent generates a short paragraph of page content and returns it with its checksum
func GenerateContent(rng *RNG) (string, string) {
	n := 8 + rng.Intn(24)
	words := make([]string, n)
	for i := range words {
		words[i] = contentWords[rng.Intn(len(contentWords))]
	}
	content := strings.Join(words, " ")
	return content, ComputeChecksum([]byte(content))
}
