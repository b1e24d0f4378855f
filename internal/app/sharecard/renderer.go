// Package sharecard renders the 1080x1080 card a visitor downloads to share
// a person's standing. The output is SVG: deterministic for the same person
// and avatar bytes, no rasterization on the server.
package sharecard

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"strings"
	"text/template"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/marcelojr/inspireboard/internal/domain"
	"github.com/marcelojr/inspireboard/internal/platform/metrics"
)

// CardSize is the square edge in pixels, sized for social feeds.
const CardSize = 1080

// AvatarSource supplies the profile image. A failed fetch is not an error
// for the card; it falls back to initials.
type AvatarSource interface {
	Fetch(ctx context.Context, handle string) ([]byte, string, error)
}

type Renderer struct {
	avatars AvatarSource
	siteURL string
	printer *message.Printer
}

func NewRenderer(avatars AvatarSource, siteURL string) *Renderer {
	return &Renderer{
		avatars: avatars,
		siteURL: siteURL,
		printer: message.NewPrinter(language.English),
	}
}

type cardData struct {
	Size      int
	Name      string
	Handle    string
	VoteCount string
	SiteURL   string
	AvatarURI string
	Initials  string
}

var cardTemplate = template.Must(template.New("card").Parse(`<svg xmlns="http://www.w3.org/2000/svg" width="{{.Size}}" height="{{.Size}}" viewBox="0 0 {{.Size}} {{.Size}}">
  <defs>
    <linearGradient id="bg" x1="0" y1="0" x2="1" y2="1">
      <stop offset="0%" stop-color="#1e1b4b"/>
      <stop offset="100%" stop-color="#0f172a"/>
    </linearGradient>
    <clipPath id="avatar-clip"><circle cx="540" cy="420" r="160"/></clipPath>
  </defs>
  <rect width="{{.Size}}" height="{{.Size}}" fill="url(#bg)"/>
  <text x="540" y="160" text-anchor="middle" font-family="Inter, sans-serif" font-size="56" font-weight="700" letter-spacing="8" fill="#a5b4fc">WHO INSPIRES YOU?</text>
{{if .AvatarURI}}  <image href="{{.AvatarURI}}" x="380" y="260" width="320" height="320" clip-path="url(#avatar-clip)" preserveAspectRatio="xMidYMid slice"/>
{{else}}  <circle cx="540" cy="420" r="160" fill="#4f46e5"/>
  <text x="540" y="470" text-anchor="middle" font-family="Inter, sans-serif" font-size="120" font-weight="700" fill="#eef2ff">{{.Initials}}</text>
{{end}}  <circle cx="540" cy="420" r="164" fill="none" stroke="#818cf8" stroke-width="6"/>
  <text x="540" y="680" text-anchor="middle" font-family="Inter, sans-serif" font-size="72" font-weight="700" fill="#f8fafc">{{.Name}}</text>
  <text x="540" y="740" text-anchor="middle" font-family="Inter, sans-serif" font-size="40" fill="#94a3b8">@{{.Handle}}</text>
  <line x1="390" y1="790" x2="690" y2="790" stroke="#334155" stroke-width="2"/>
  <text x="540" y="880" text-anchor="middle" font-family="Inter, sans-serif" font-size="88" font-weight="700" fill="#facc15">{{.VoteCount}}</text>
  <text x="540" y="930" text-anchor="middle" font-family="Inter, sans-serif" font-size="32" letter-spacing="6" fill="#94a3b8">PEOPLE INSPIRED</text>
  <rect x="390" y="980" width="300" height="56" rx="28" fill="#1e293b"/>
  <text x="540" y="1016" text-anchor="middle" font-family="Inter, sans-serif" font-size="26" fill="#cbd5e1">{{.SiteURL}}</text>
</svg>
`))

// Render produces the card for one person. Avatar bytes are inlined as a
// data URI so the SVG is self-contained.
func (r *Renderer) Render(ctx context.Context, person domain.Person) ([]byte, error) {
	data := cardData{
		Size:      CardSize,
		Name:      html.EscapeString(person.Name),
		Handle:    html.EscapeString(person.Handle),
		VoteCount: r.printer.Sprintf("%d", person.VoteCount),
		SiteURL:   html.EscapeString(r.siteURL),
	}

	if r.avatars != nil {
		if img, contentType, err := r.avatars.Fetch(ctx, person.Handle); err == nil && len(img) > 0 {
			data.AvatarURI = fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(img))
		}
	}
	if data.AvatarURI == "" {
		data.Initials = Initials(person.Name)
		metrics.ObserveShareCard("initials")
	} else {
		metrics.ObserveShareCard("fetched")
	}

	var buf bytes.Buffer
	if err := cardTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("sharecard: render %s: %w", person.Handle, err)
	}
	return buf.Bytes(), nil
}

// Initials takes the first letter of the first two words, uppercased.
func Initials(name string) string {
	var letters []rune
	for _, word := range strings.Fields(name) {
		for _, r := range word {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				letters = append(letters, unicode.ToUpper(r))
				break
			}
		}
		if len(letters) == 2 {
			break
		}
	}
	if len(letters) == 0 {
		return "?"
	}
	return string(letters)
}
