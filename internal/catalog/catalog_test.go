package catalog

import (
	"strings"
	"testing"

	"github.com/starford/tonearm/internal/models"
)

func TestStatic(t *testing.T) {
	tracks, err := Static()
	if err != nil {
		t.Fatalf("Static: %v", err)
	}
	if len(tracks) != 24 {
		t.Fatalf("bundled catalog has %d tracks, want 24", len(tracks))
	}
	first := tracks[0]
	if first.Title != "01 Iggy Azalea - Black Widow feat Rita Ora" {
		t.Errorf("first title = %q", first.Title)
	}
	if first.Src != "/music/01 Iggy Azalea - Black Widow feat Rita Ora.mp3" {
		t.Errorf("first src = %q", first.Src)
	}
	if !strings.HasPrefix(first.Image, "/images/") {
		t.Errorf("first image = %q", first.Image)
	}
}

func TestStatic_MarksUndecodableTracks(t *testing.T) {
	tracks, err := Static()
	if err != nil {
		t.Fatal(err)
	}
	unsupported := 0
	for _, tr := range tracks {
		isM4A := strings.HasSuffix(tr.Src, ".m4a")
		if tr.Unsupported != isM4A {
			t.Errorf("%s: unsupported = %v", tr.Src, tr.Unsupported)
		}
		if tr.Unsupported {
			unsupported++
		}
	}
	if unsupported != 3 {
		t.Errorf("unsupported = %d, want 3", unsupported)
	}
}

func TestTracks_SrcCannotEscape(t *testing.T) {
	got := Tracks([]Entry{{Title: "x", Src: "../../etc/passwd"}})
	if got[0].Src != "/music/etc/passwd" {
		t.Errorf("src = %q", got[0].Src)
	}
}

func TestIdentityPrecedence(t *testing.T) {
	tests := []struct {
		in   models.PlayableTrack
		want Key
	}{
		{models.PlayableTrack{ID: "T_1", Fingerprint: "a__1", Src: "/x", Title: "X"}, Key{KindID, "t_1"}},
		{models.PlayableTrack{Fingerprint: " A__1 ", Src: "/x", Title: "X"}, Key{KindFingerprint, "a__1"}},
		{models.PlayableTrack{Src: "/Music/A.mp3", Title: "X"}, Key{KindSrc, "/music/a.mp3"}},
		{models.PlayableTrack{Title: "Only Title"}, Key{KindTitle, "only title"}},
		{models.PlayableTrack{}, Key{}},
	}
	for _, tt := range tests {
		if got := Identity(tt.in); got != tt.want {
			t.Errorf("Identity(%+v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMerge_FirstWins(t *testing.T) {
	static := []models.PlayableTrack{
		{Title: "A", Src: "/music/a.mp3"},
		{Title: "B", Src: "/music/b.mp3"},
	}
	library := []models.PlayableTrack{
		{ID: "t_1", Title: "Imported", Src: "/media/x"},
		{ID: "T_1", Title: "Imported again", Src: "/media/y"},
		{Title: "A dup", Src: "/MUSIC/A.mp3"},
	}
	got := Merge(static, library)
	if len(got) != 3 {
		t.Fatalf("Merge = %d tracks: %+v", len(got), got)
	}
	if got[0].Title != "A" || got[1].Title != "B" || got[2].Title != "Imported" {
		t.Errorf("order = %q %q %q", got[0].Title, got[1].Title, got[2].Title)
	}
}

func TestMerge_KindsDoNotCollide(t *testing.T) {
	got := Merge([]models.PlayableTrack{
		{ID: "same"},
		{Title: "same"},
	})
	if len(got) != 2 {
		t.Errorf("id and title keys collided: %+v", got)
	}
	if Merge() == nil {
		t.Error("Merge of nothing should be empty, not nil")
	}
}
