package s3

import "testing"

func TestObjectKey(t *testing.T) {
	got := ObjectKey("science-friday", FolderCover, "cover.jpg")
	want := "events/event_science-friday/cover/cover.jpg"
	if got != want {
		t.Errorf("ObjectKey = %q, want %q", got, want)
	}

	// Path components in the filename must not escape the prefix.
	got = ObjectKey("science-friday", FolderMedia, "../../etc/passwd")
	if got != "events/event_science-friday/media/passwd" {
		t.Errorf("traversal not stripped: %q", got)
	}
}

func TestAllowedMediaType(t *testing.T) {
	if ct, ok := AllowedMediaType("photo.JPG"); !ok || ct != "image/jpeg" {
		t.Errorf("jpg: ct=%q ok=%v", ct, ok)
	}
	if _, ok := AllowedMediaType("script.exe"); ok {
		t.Error("exe must be rejected")
	}
}
