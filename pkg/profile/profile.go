// Package profile normalises the person-level attributes that exports carry:
// display names and avatar references.
package profile

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	avatarCDN        = "https://cdn.discordapp.com/avatars/%s/%s.png?size=128"
	defaultAvatarCDN = "https://cdn.discordapp.com/embed/avatars/%d.png?size=128"
	defaultAvatars   = 5
)

var (
	zeroDiscriminator = regexp.MustCompile(`(?:#0)+$`)
	discriminator     = regexp.MustCompile(`#(\d{1,4})$`)
	urlPrefix         = regexp.MustCompile(`(?i)^https?://`)
	identityShape     = regexp.MustCompile(`^\d{15,22}$`)
)

// CleanName strips the legacy "#0" discriminator run from a user name
// ("alice#0" -> "alice", "bob#0#0" -> "bob") and trims whitespace.
func CleanName(name string) string {
	return strings.TrimSpace(zeroDiscriminator.ReplaceAllString(name, ""))
}

// Discriminator extracts a trailing "#1234" style discriminator.
func Discriminator(name string) (int, bool) {
	m := discriminator.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// LooksLikeIdentity reports whether s has the shape of a platform account id
// (an all-digit snowflake).
func LooksLikeIdentity(s string) bool {
	return identityShape.MatchString(s)
}

// AvatarURL resolves an explicit avatar reference. Full URLs pass through,
// anything else is treated as an image hash on the platform CDN. An empty
// reference resolves to "".
func AvatarURL(id, ref string) string {
	if ref == "" {
		return ""
	}
	if urlPrefix.MatchString(ref) {
		return ref
	}
	return fmt.Sprintf(avatarCDN, id, ref)
}

// DefaultAvatarURL picks one of the platform's default avatars. The index
// comes from the name's discriminator, falling back to the last two
// characters of the id.
func DefaultAvatarURL(id, name string) string {
	disc, ok := Discriminator(name)
	if !ok {
		disc = leadingInt(tail(id, 2))
	}
	if disc < 0 {
		disc = -disc
	}
	return fmt.Sprintf(defaultAvatarCDN, disc%defaultAvatars)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// leadingInt parses the leading decimal digits of s, 0 if there are none.
func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}
