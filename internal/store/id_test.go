package store

import (
	"fmt"
	"regexp"
	"testing"
)

func TestGenerateFileIDFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^fl-[0-9a-z]{10}$`)

	id, err := GenerateFileID(nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !pattern.MatchString(id) {
		t.Fatalf("unexpected id format: %q", id)
	}
}

func TestGenerateFileIDRetriesOnCollision(t *testing.T) {
	calls := 0
	id, err := GenerateFileID(func(string) (bool, error) {
		calls++
		return calls <= 3, nil
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if id == "" || calls != 4 {
		t.Fatalf("expected 4 attempts, got %d (id=%q)", calls, id)
	}
}

func TestGenerateFileIDGivesUp(t *testing.T) {
	_, err := GenerateFileID(func(string) (bool, error) {
		return true, nil
	})
	if err == nil {
		t.Fatal("expected error when all attempts collide")
	}
}

func TestGenerateFileIDPropagatesExistsError(t *testing.T) {
	wantErr := fmt.Errorf("db closed")
	_, err := GenerateFileID(func(string) (bool, error) {
		return false, wantErr
	})
	if err == nil {
		t.Fatal("expected error from exists check")
	}
}
