package sharecard

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/marcelojr/inspireboard/internal/domain"
)

type fakeAvatars struct {
	img         []byte
	contentType string
	err         error
}

func (f *fakeAvatars) Fetch(ctx context.Context, handle string) ([]byte, string, error) {
	return f.img, f.contentType, f.err
}

func person() domain.Person {
	return domain.Person{
		ID:        "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		Name:      "Taylor Swift",
		Handle:    "taylorswift13",
		VoteCount: 1234567,
	}
}

func TestRenderEmbedsFetchedAvatar(t *testing.T) {
	avatars := &fakeAvatars{img: []byte("fake-png-bytes"), contentType: "image/png"}
	r := NewRenderer(avatars, "inspireone.vercel.app")

	card, err := r.Render(context.Background(), person())
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	svg := string(card)
	if !strings.Contains(svg, `width="1080" height="1080"`) {
		t.Fatal("card must be 1080x1080")
	}
	if !strings.Contains(svg, "data:image/png;base64,") {
		t.Fatal("fetched avatar must be inlined as a data uri")
	}
	if !strings.Contains(svg, "WHO INSPIRES YOU?") {
		t.Fatal("header missing")
	}
	if !strings.Contains(svg, "Taylor Swift") || !strings.Contains(svg, "@taylorswift13") {
		t.Fatal("name and handle must appear on the card")
	}
	if !strings.Contains(svg, "1,234,567") {
		t.Fatal("vote count must use thousands separators")
	}
	if !strings.Contains(svg, "PEOPLE INSPIRED") {
		t.Fatal("count label missing")
	}
	if !strings.Contains(svg, "inspireone.vercel.app") {
		t.Fatal("site url pill missing")
	}
}

func TestRenderFallsBackToInitialsWhenFetchFails(t *testing.T) {
	avatars := &fakeAvatars{err: errors.New("404")}
	r := NewRenderer(avatars, "inspireone.vercel.app")

	card, err := r.Render(context.Background(), person())
	if err != nil {
		t.Fatalf("avatar failure must not fail the card: %v", err)
	}

	svg := string(card)
	if strings.Contains(svg, "data:image") {
		t.Fatal("no image may be embedded on fetch failure")
	}
	if !strings.Contains(svg, ">TS<") {
		t.Fatal("initials disc must show the first two letters")
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	r := NewRenderer(&fakeAvatars{img: []byte("x"), contentType: "image/png"}, "site")

	a, err := r.Render(context.Background(), person())
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	b, err := r.Render(context.Background(), person())
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	if string(a) != string(b) {
		t.Fatal("same inputs must yield byte-identical cards")
	}
}

func TestRenderEscapesMarkup(t *testing.T) {
	r := NewRenderer(nil, "site")

	p := person()
	p.Name = `Ada <svg> & "Lovelace"`
	card, err := r.Render(context.Background(), p)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	if strings.Contains(string(card), "<svg> &") {
		t.Fatal("names must be escaped before embedding")
	}
}

func TestInitials(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"Taylor Swift", "TS"},
		{"Beyoncé", "B"},
		{"sam harris altman", "SA"},
		{"", "?"},
		{"  ", "?"},
	}
	for _, tc := range cases {
		if got := Initials(tc.name); got != tc.want {
			t.Errorf("Initials(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}
