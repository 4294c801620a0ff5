package storage

import (
	"os"
	"path/filepath"
	"testing"

	"proxy_harvester/proxypool/model"
)

func readLines(t *testing.T, dir, name string) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	if len(data) == 0 {
		return nil
	}
	var lines []string
	start := 0
	for i, b := range data {
		if b == '\n' {
			lines = append(lines, string(data[start:i]))
			start = i + 1
		}
	}
	if start != len(data) {
		t.Fatalf("%s has an unterminated last line", name)
	}
	return lines
}

func TestOpen_CreatesAndTruncatesFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(dir, "socks5.txt")
	if err := os.WriteFile(stale, []byte("9.9.9.9:1080\n"), 0644); err != nil {
		t.Fatal(err)
	}

	rs, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() returned an error: %v", err)
	}
	defer rs.Close()

	for _, name := range []string{"socks4.txt", "socks5.txt", "bad_socks4.txt", "bad_socks5.txt"} {
		if lines := readLines(t, dir, name); len(lines) != 0 {
			t.Errorf("Expected %s to be empty, got %v", name, lines)
		}
	}
	if !filepath.IsAbs(rs.Path()) {
		t.Errorf("Expected absolute path, got %s", rs.Path())
	}
}

func TestAppend_RoutesByProtocolAndVerdict(t *testing.T) {
	dir := t.TempDir()
	rs, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() returned an error: %v", err)
	}
	defer rs.Close()

	writes := []struct {
		c model.Candidate
		v model.Verdict
	}{
		{model.Candidate{Protocol: model.Socks5, Address: "1.1.1.1:1080"}, model.Good},
		{model.Candidate{Protocol: model.Socks4, Address: "2.2.2.2:4145"}, model.Bad},
		{model.Candidate{Protocol: model.Socks5, Address: "3.3.3.3:1080"}, model.Bad},
		{model.Candidate{Protocol: model.Socks5, Address: "4.4.4.4:1080"}, model.Good},
	}
	for _, w := range writes {
		if err := rs.Append(w.c, w.v); err != nil {
			t.Fatalf("Append(%s) returned an error: %v", w.c, err)
		}
	}

	// Lines are visible on disk without closing the store.
	if got := readLines(t, dir, "socks5.txt"); len(got) != 2 || got[0] != "1.1.1.1:1080" || got[1] != "4.4.4.4:1080" {
		t.Errorf("Unexpected socks5.txt: %v", got)
	}
	if got := readLines(t, dir, "bad_socks4.txt"); len(got) != 1 || got[0] != "2.2.2.2:4145" {
		t.Errorf("Unexpected bad_socks4.txt: %v", got)
	}
	if got := readLines(t, dir, "bad_socks5.txt"); len(got) != 1 || got[0] != "3.3.3.3:1080" {
		t.Errorf("Unexpected bad_socks5.txt: %v", got)
	}
	if got := readLines(t, dir, "socks4.txt"); len(got) != 0 {
		t.Errorf("Expected socks4.txt to be empty, got %v", got)
	}
}

func TestAppend_UnknownProtocol(t *testing.T) {
	rs, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() returned an error: %v", err)
	}
	defer rs.Close()

	if err := rs.Append(model.Candidate{Protocol: "http", Address: "5.5.5.5:80"}, model.Good); err == nil {
		t.Error("Expected an error for an unknown protocol, got nil")
	}
}
