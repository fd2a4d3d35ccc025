package crypto

import (
	"strings"
	"testing"
)

func TestGenerateBootstrapPassword(t *testing.T) {
	for i := 0; i < 50; i++ {
		password, err := GenerateBootstrapPassword()
		if err != nil {
			t.Fatalf("GenerateBootstrapPassword() unexpected error: %v", err)
		}
		if len(password) != BootstrapPasswordLength {
			t.Fatalf("length = %d, want %d", len(password), BootstrapPasswordLength)
		}
		for _, class := range bootstrapClasses {
			if !strings.ContainsAny(password, class) {
				t.Errorf("password %q has no character from %q", password, class)
			}
		}
		if strings.ContainsAny(password, "0O1lI!@#$%") {
			t.Errorf("password %q contains an excluded character", password)
		}
	}
}

func TestGenerateBootstrapPasswordUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		password, err := GenerateBootstrapPassword()
		if err != nil {
			t.Fatalf("GenerateBootstrapPassword() unexpected error: %v", err)
		}
		if seen[password] {
			t.Errorf("duplicate password generated: %q", password)
		}
		seen[password] = true
	}
}
