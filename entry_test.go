// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipstream

import (
	"os"
	"testing"
	"time"
)

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"a/b/c":     "a/b/c",
		`a\b\c`:     "a/b/c",
		"/leading":  "leading",
		`\leading`:  "leading",
		"plain.txt": "plain.txt",
	}
	for in, want := range cases {
		if got := normalizeName(in); got != want {
			t.Errorf("normalizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTimeToMsDosTime(t *testing.T) {
	mdate, mtime := timeToMsDosTime(time.Date(2020, time.March, 15, 13, 45, 32, 0, time.UTC))
	wantDate := uint16(15 + 3<<5 + (2020-1980)<<9)
	wantTime := uint16(32/2 + 45<<5 + 13<<11)
	if mdate != wantDate {
		t.Errorf("mdate = %d, want %d", mdate, wantDate)
	}
	if mtime != wantTime {
		t.Errorf("mtime = %d, want %d", mtime, wantTime)
	}
}

func TestTimeToMsDosTimeClampsPre1980(t *testing.T) {
	mdate, _ := timeToMsDosTime(time.Date(1975, time.January, 1, 0, 0, 0, 0, time.UTC))
	// year field is (year-1980)<<9; clamped to 1980 means that term is 0.
	if mdate>>9 != 0 {
		t.Errorf("year bits = %d, want 0 (clamped to 1980)", mdate>>9)
	}
}

func TestModeRoundTrip(t *testing.T) {
	modes := []os.FileMode{
		0o644,
		0o755 | os.ModeDir,
		0o755 | os.ModeSymlink,
		0o755 | os.ModeSetuid,
		0o755 | os.ModeSetgid,
		0o644 | os.ModeSticky,
	}
	for _, mode := range modes {
		e := &sealedEntry{}
		e.setMode(mode)
		if got := e.Mode(); got != mode {
			t.Errorf("round trip of %v got %v", mode, got)
		}
	}
}

func TestDetectUTF8(t *testing.T) {
	cases := []struct {
		name            string
		valid, required bool
	}{
		{"plain.txt", true, false},
		{"naïve.txt", true, true},
		{"back\\slash", true, false}, // 0x5c forces CP-437 incompatibility check, but is valid ASCII
	}
	for _, c := range cases {
		valid, required := detectUTF8(c.name)
		if valid != c.valid {
			t.Errorf("detectUTF8(%q) valid = %v, want %v", c.name, valid, c.valid)
		}
		if c.name == "naïve.txt" && !required {
			t.Errorf("detectUTF8(%q) require = %v, want true", c.name, required)
		}
	}
}

func TestIsDirectoryName(t *testing.T) {
	if !isDirectoryName("a/b/") {
		t.Error("trailing slash should be a directory")
	}
	if isDirectoryName("a/b") {
		t.Error("no trailing slash should not be a directory")
	}
}
