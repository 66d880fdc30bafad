package auth

import "testing"

func TestHashToken_Deterministic(t *testing.T) {
	a := HashToken("tok-1")
	b := HashToken("tok-1")
	if a != b {
		t.Fatalf("same token must hash identically: %q vs %q", a, b)
	}
	if a == "tok-1" {
		t.Fatalf("digest must not equal the raw token")
	}
	if HashToken("tok-2") == a {
		t.Fatalf("different tokens must not collide")
	}
}

func TestTokenDigestEqual(t *testing.T) {
	digest := HashToken("tok-1")

	if !TokenDigestEqual("tok-1", digest) {
		t.Fatalf("matching token must compare equal to its digest")
	}
	if TokenDigestEqual("tok-2", digest) {
		t.Fatalf("non-matching token must not compare equal")
	}
	if TokenDigestEqual("", digest) || TokenDigestEqual("tok-1", "") {
		t.Fatalf("empty inputs must never match")
	}
}
