package digest

import "testing"

func TestCompute(t *testing.T) {
	// echo -n "v1" | sha256sum
	const want = "3bfc269594ef649228e9a74bab00f042efc91d5acc6fbee31a382e80d42388fe"

	got := Compute("v1")
	if got != want {
		t.Fatalf("Compute(\"v1\") = %s, want %s", got, want)
	}
	if len(got) != Size {
		t.Errorf("digest length = %d, want %d", len(got), Size)
	}
}

func TestVerify(t *testing.T) {
	d := Compute("hello world")

	if !Verify("hello world", d) {
		t.Error("Verify should accept the digest of the same value")
	}
	if Verify("hello world!", d) {
		t.Error("Verify should reject a modified value")
	}
	if Verify("hello world", d[:10]) {
		t.Error("Verify should reject a truncated digest")
	}
	if Verify("hello world", "") {
		t.Error("Verify should reject an empty digest")
	}
}
