package textutil

import "testing"

func TestDisplayTitle(t *testing.T) {
	cases := map[string]string{
		"my_video_walkthrough":     "My Video Walkthrough",
		"intro-to-go.mp4":          "Intro To Go",
		"Lecture 12 - Concurrency": "Lecture 12 Concurrency",
		"  ":                       "Untitled",
		"---":                      "Untitled",
		"already Titled":           "Already Titled",
		"path/to/deep_dive.en.srt": "Deep Dive En",
	}
	for in, want := range cases {
		if got := DisplayTitle(in); got != want {
			t.Fatalf("DisplayTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("a longer value", 8); got != "a longe…" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("anything", 0); got != "" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("ab", 1); got != "…" {
		t.Fatalf("got %q", got)
	}
}
