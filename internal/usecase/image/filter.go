package image

import (
	"path"
	"regexp"
	"strings"

	domimg "github.com/kailas-cloud/lodrag/internal/domain/image"
)

// minDimension rejects images whose declared width or height is smaller.
const minDimension = 50

var excludePattern = regexp.MustCompile(`(?i)(emoticon|sticker|button|icon|logo|badge|avatar|profile|` +
	`thumbnail_small|cafe_meta|blank\.gif|spacer|pixel|loading|spinner)`)

var allowedExt = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// FilterCandidates keeps content images in discovery order, at most maxPerPost of them.
// Decorative assets, duplicates, tiny images and unsupported formats are dropped.
func FilterCandidates(cands []domimg.Candidate, maxPerPost int) []domimg.Candidate {
	seen := make(map[string]struct{}, len(cands))
	out := make([]domimg.Candidate, 0, min(len(cands), max(maxPerPost, 0)))

	for _, c := range cands {
		if maxPerPost > 0 && len(out) >= maxPerPost {
			break
		}
		u := strings.TrimSpace(c.URL)
		if u == "" || strings.HasPrefix(u, "data:") {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}

		if excludePattern.MatchString(u) {
			continue
		}
		if c.Width > 0 && c.Height > 0 && (c.Width < minDimension || c.Height < minDimension) {
			continue
		}
		if ext := ExtFromURL(u); ext != "" {
			if _, ok := allowedExt[ext]; !ok {
				continue
			}
		}

		c.URL = u
		out = append(out, c)
	}
	return out
}

// ExtFromURL returns the lower-cased file extension of the URL path, without the dot.
func ExtFromURL(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return strings.ToLower(strings.TrimPrefix(path.Ext(u), "."))
}

// MimeFromPath guesses an image MIME type from a file extension, defaulting to JPEG.
func MimeFromPath(p string) string {
	if m, ok := allowedExt[ExtFromURL(p)]; ok {
		return m
	}
	return "image/jpeg"
}

// extFromMime maps an image MIME type to a file extension, defaulting to jpg.
func extFromMime(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(strings.SplitN(mime, ";", 2)[0]))
	switch mime {
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "jpg"
	}
}
