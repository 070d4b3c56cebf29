package fs

import "testing"

func TestGenerateShortNameFitsNoCollision(t *testing.T) {
	sfn, err := generateShortName("README.TXT", func([11]byte) bool { return false })
	if err != nil {
		t.Fatalf("generateShortName: %v", err)
	}
	if got := sfnToDisplayName(sfn); got != "README.TXT" {
		t.Fatalf("got %q", got)
	}
}

func TestGenerateShortNameFallsBackToNumericSuffix(t *testing.T) {
	taken := map[string]bool{}
	base, err := generateShortName("verylongname.txt", func(sfn [11]byte) bool { return taken[string(sfn[:])] })
	if err != nil {
		t.Fatalf("generateShortName: %v", err)
	}
	taken[string(base[:])] = true
	second, err := generateShortName("verylongname.txt", func(sfn [11]byte) bool { return taken[string(sfn[:])] })
	if err != nil {
		t.Fatalf("generateShortName: %v", err)
	}
	if second == base {
		t.Fatal("second collision candidate should differ from the first")
	}
}

func TestGenerateShortNameChecksumFallback(t *testing.T) {
	taken := map[[11]byte]bool{}
	exists := func(sfn [11]byte) bool { return taken[sfn] }
	// Force the bare form and every numeric-suffix candidate (BASE~1..~4)
	// to collide so the generator must fall through to the checksum form.
	for i := 0; i < 5; i++ {
		cand, err := generateShortName("longname.txt", exists)
		if err != nil {
			t.Fatalf("priming candidate %d: %v", i, err)
		}
		taken[cand] = true
	}
	final, err := generateShortName("longname.txt", exists)
	if err != nil {
		t.Fatalf("generateShortName after exhausting numeric suffixes: %v", err)
	}
	if taken[final] {
		t.Fatal("checksum-form candidate collided with a prior one")
	}
}

func TestLfnChecksumDeterministic(t *testing.T) {
	sfn, _ := buildShortNameCandidate("FOO", "TXT")
	a := lfnChecksum(sfn)
	b := lfnChecksum(sfn)
	if a != b {
		t.Fatal("checksum should be deterministic")
	}
}

func TestUtf16RoundTrip(t *testing.T) {
	units, err := utf16Encode("hello.txt")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := utf16Decode(units)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back != "hello.txt" {
		t.Fatalf("got %q", back)
	}
}
