package main

import (
	"reflect"
	"testing"
)

func TestPoolNames(t *testing.T) {
	got, err := poolNames([]string{"data/main.jsonl", "/tmp/algo-usdc.jsonl"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"main", "algo-usdc"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("names mismatch: %v != %v", got, want)
	}

	if _, err := poolNames([]string{"a/main.jsonl", "b/main.jsonl"}); err == nil {
		t.Fatalf("expected error for colliding pool names")
	}
}
