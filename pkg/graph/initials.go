package graph

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const avatarSize = 128

var (
	separators    = regexp.MustCompile(`[_\-]+`)
	camelBoundary = regexp.MustCompile(`([a-z])([A-Z])`)
)

const initialsSVG = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%[1]d" height="%[1]d" viewBox="0 0 %[1]d %[1]d">
  <defs><clipPath id="c"><circle cx="%[2]d" cy="%[2]d" r="%[2]d"/></clipPath></defs>
  <g clip-path="url(#c)">
    <rect width="%[1]d" height="%[1]d" fill="%[3]s"/>
  </g>
  <text x="50%%" y="54%%" text-anchor="middle" dominant-baseline="middle" font-family="Inter,Segoe UI,system-ui,Arial" font-weight="700" font-size="56" fill="#ffffff">%[4]s</text>
</svg>`

// Initials returns up to two upper-case letters for a label. Words are split
// on whitespace, underscores, dashes and camelCase boundaries.
func Initials(label string) string {
	s := strings.TrimSpace(label)
	if s == "" {
		return "?"
	}
	s = separators.ReplaceAllString(s, " ")
	s = camelBoundary.ReplaceAllString(s, "$1 $2")

	var letters []rune
	for _, part := range strings.Fields(s) {
		if len(letters) == 2 {
			break
		}
		r, _ := utf8.DecodeRuneInString(part)
		letters = append(letters, r)
	}
	if len(letters) == 0 {
		r, _ := utf8.DecodeRuneInString(strings.TrimSpace(label))
		letters = append(letters, r)
	}
	return strings.Map(unicode.ToUpper, string(letters))
}

// InitialsAvatar renders a circular SVG with the label's initials on the
// given background colour, as a data URL usable as an image source.
func InitialsAvatar(label, background string) string {
	if background == "" {
		background = "#4e79a7"
	}
	svg := fmt.Sprintf(initialsSVG, avatarSize, avatarSize/2, background, escapeText(Initials(label)))
	return "data:image/svg+xml;utf8," + strings.ReplaceAll(url.QueryEscape(svg), "+", "%20")
}

func escapeText(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
