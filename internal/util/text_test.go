package util

import "testing"

func TestNormalizeWhitespace(t *testing.T) {
	if got := NormalizeWhitespace("  a \n\t b  c  "); got != "a b c" {
		t.Fatalf("got %q", got)
	}
}

func TestContainsAnyFold(t *testing.T) {
	if !ContainsAnyFold("we do NFT drops", []string{"crypto", "nft"}) {
		t.Fatal("expected match")
	}
	if ContainsAnyFold("hiring engineers is hard", []string{"crypto", "nft"}) {
		t.Fatal("unexpected match")
	}
}

func TestHashtagCount(t *testing.T) {
	if got := HashtagCount("#a text #b #c"); got != 3 {
		t.Fatalf("got %d", got)
	}
}

func TestUppercaseRatio(t *testing.T) {
	if got := UppercaseRatio("ABcd"); got != 0.5 {
		t.Fatalf("got %f", got)
	}
	if got := UppercaseRatio("123"); got != 0 {
		t.Fatalf("got %f", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("hello world", 5); got != "hello…" {
		t.Fatalf("got %q", got)
	}
}
