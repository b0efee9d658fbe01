package model

import (
	"testing"
	"time"
)

func TestFormatReferenceNumber(t *testing.T) {
	day := time.Date(2025, 12, 24, 15, 4, 5, 0, time.UTC)

	cases := []struct {
		seq  uint32
		want string
	}{
		{1, "REG-2025-12-24-001"},
		{7, "REG-2025-12-24-007"},
		{42, "REG-2025-12-24-042"},
		{999, "REG-2025-12-24-999"},
		{1000, "REG-2025-12-24-1000"}, // sequence grows past the padding
	}
	for _, tc := range cases {
		if got := FormatReferenceNumber(day, tc.seq); got != tc.want {
			t.Fatalf("seq %d: got %q, want %q", tc.seq, got, tc.want)
		}
	}
}

func TestFormatReferenceNumberUsesUTCDay(t *testing.T) {
	// 23:30 in UTC+8 is 15:30 UTC the same day; the reference must
	// come from the UTC calendar.
	loc := time.FixedZone("UTC+8", 8*3600)
	day := time.Date(2025, 12, 25, 1, 30, 0, 0, loc)
	if got := FormatReferenceNumber(day, 1); got != "REG-2025-12-24-001" {
		t.Fatalf("got %q, want REG-2025-12-24-001", got)
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{StatusPending, StatusApproved, StatusReleased, StatusRejected} {
		if !ValidStatus(s) {
			t.Fatalf("expected %q valid", s)
		}
	}
	for _, s := range []string{"", "PENDING", "archived"} {
		if ValidStatus(s) {
			t.Fatalf("expected %q invalid", s)
		}
	}
}

func TestFilePath(t *testing.T) {
	photo := "photos/a.jpg"
	r := Registration{LivePhotoPath: &photo}

	p, ok := r.FilePath("live_photo")
	if !ok || p == nil || *p != photo {
		t.Fatalf("live_photo: got %v ok=%v", p, ok)
	}
	p, ok = r.FilePath("video")
	if !ok || p != nil {
		t.Fatalf("video: expected known type with nil path, got %v ok=%v", p, ok)
	}
	if _, ok := r.FilePath("passport"); ok {
		t.Fatal("passport: expected unknown type")
	}
}
