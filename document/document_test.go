package document

import "testing"

func TestJoin(t *testing.T) {
	pages := []Page{{Number: 1, Content: "first"}, {Number: 2, Content: "second"}}
	if got := Join(pages); got != "first\n\nsecond" {
		t.Fatalf("unexpected join result %q", got)
	}
	if got := Join(nil); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	pages := []Page{{Number: 1, Content: "a"}}
	cp := Clone(pages)
	cp[0].Content = "changed"
	if pages[0].Content != "a" {
		t.Fatal("clone must not share backing array")
	}
	if Clone(nil) != nil {
		t.Fatal("clone of nil should be nil")
	}
}
