package storage

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func uploadHeader(t *testing.T, field, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	w.Close()

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatalf("parse multipart: %v", err)
	}
	return req.MultipartForm.File[field][0]
}

func TestSaveOpenRemove(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	fh := uploadHeader(t, "live_photo", "family photo.JPG", []byte("jpeg-bytes"))

	rel, err := store.Save(BucketPhotos, fh)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(rel, BucketPhotos+string(os.PathSeparator)) {
		t.Fatalf("rel %q not under bucket", rel)
	}
	if !strings.HasSuffix(rel, ".jpg") {
		t.Fatalf("rel %q should keep a lowercased extension", rel)
	}
	if strings.Contains(rel, "family") {
		t.Fatalf("rel %q leaks the client filename", rel)
	}

	f, err := store.Open(rel)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	got, _ := io.ReadAll(f)
	f.Close()
	if string(got) != "jpeg-bytes" {
		t.Fatalf("content %q", got)
	}

	if err := store.Remove(rel); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := store.Open(rel); err == nil {
		t.Fatal("expected open after remove to fail")
	}
	// Removing twice is not an error.
	if err := store.Remove(rel); err != nil {
		t.Fatalf("second remove: %v", err)
	}
}

func TestSafeExt(t *testing.T) {
	cases := map[string]string{
		"photo.JPG":     ".jpg",
		"clip.mp4":      ".mp4",
		"noext":         "",
		"weird.j$g":     "",
		"dotted.tar.gz": ".gz",
		"too.longextsn": "",
	}
	for in, want := range cases {
		if got := safeExt(in); got != want {
			t.Fatalf("safeExt(%q) = %q, want %q", in, got, want)
		}
	}
}
