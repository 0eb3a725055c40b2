package tool

import "testing"

func TestParseServerURL(t *testing.T) {
	u, err := ParseServerURL("http://127.0.0.1:5000/")
	if err != nil {
		t.Fatalf("ParseServerURL failed: %v", err)
	}
	if u.String() != "http://127.0.0.1:5000" {
		t.Errorf("Expected trailing slash to be trimmed, got %s", u.String())
	}

	for _, bad := range []string{"", "127.0.0.1:5000", "ftp://host", "http://"} {
		if _, err := ParseServerURL(bad); err == nil {
			t.Errorf("Expected %q to be rejected", bad)
		}
	}
}

func TestBuildURLs(t *testing.T) {
	base, _ := ParseServerURL("http://127.0.0.1:5000")
	cases := map[string]string{
		BuildUploadURL(base):                       "http://127.0.0.1:5000/upload",
		BuildProcessURL(base, "abc", "pdf", "ben"): "http://127.0.0.1:5000/process/abc/pdf/ben",
		BuildProgressURL(base, "abc"):              "http://127.0.0.1:5000/progress/abc",
		BuildDownloadURL(base, "abc"):              "http://127.0.0.1:5000/download/abc",
		BuildCleanupURL(base, "abc"):               "http://127.0.0.1:5000/cleanup/abc",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("Expected %s, got %s", want, got)
		}
	}
}

func TestBuildURLsKeepBasePath(t *testing.T) {
	base, _ := ParseServerURL("https://convert.example.com/ocr/")
	if got := BuildProgressURL(base, "abc"); got != "https://convert.example.com/ocr/progress/abc" {
		t.Errorf("Unexpected URL %s", got)
	}
}

func TestBuildURLsEscapeSegments(t *testing.T) {
	base, _ := ParseServerURL("http://127.0.0.1:5000")
	if got := BuildProgressURL(base, "a b/c"); got != "http://127.0.0.1:5000/progress/a%20b%2Fc" {
		t.Errorf("Unexpected URL %s", got)
	}
}
