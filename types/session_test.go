package types

import "testing"

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{"pdf": ModePDF, " PDF ": ModePDF, "Image": ModeImage}
	for in, want := range cases {
		if got, ok := ParseMode(in); !ok || got != want {
			t.Errorf("ParseMode(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := ParseMode("docx"); ok {
		t.Error("Expected docx to be rejected")
	}
}

func TestAllowsFile(t *testing.T) {
	if !ModePDF.AllowsFile("Report.PDF") || ModePDF.AllowsFile("photo.png") {
		t.Error("Unexpected PDF mode filter")
	}
	for _, name := range []string{"a.jpg", "b.JPEG", "c.png", "d.bmp", "e.tiff"} {
		if !ModeImage.AllowsFile(name) {
			t.Errorf("Expected %s to be accepted in image mode", name)
		}
	}
	if ModeImage.AllowsFile("scan.pdf") || ModeImage.AllowsFile("noext") {
		t.Error("Unexpected image mode filter")
	}
}

func TestProgressPercent(t *testing.T) {
	cases := []struct {
		p    Progress
		want float64
	}{
		{Progress{0, 0}, 0},
		{Progress{0, 3}, 0},
		{Progress{1, 3}, 33.3},
		{Progress{2, 3}, 66.7},
		{Progress{3, 3}, 100},
	}
	for _, c := range cases {
		if got := c.p.Percent(); got != c.want {
			t.Errorf("%+v: expected %.1f, got %v", c.p, c.want, got)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusCreated, StatusUploaded, StatusProcessing} {
		if s.Terminal() {
			t.Errorf("%s must not be terminal", s)
		}
	}
	if !StatusCompleted.Terminal() || !StatusFailed.Terminal() {
		t.Error("Expected COMPLETED and FAILED to be terminal")
	}
}
