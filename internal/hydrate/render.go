package hydrate

import (
	"fmt"
	"strings"

	"github.com/opoerator/drophub/internal/drop"
)

const (
	maxDropLines    = 10
	maxSessionLines = 5
	previewChars    = 200
)

// BuildContext renders hc as compact prompt blocks. Empty categories are
// left out.
func BuildContext(hc *Context) string {
	if hc == nil {
		return ""
	}
	var blocks []string

	if len(hc.Drops) > 0 {
		var b strings.Builder
		b.WriteString("<drops>\n")
		for _, d := range hc.Drops[:min(len(hc.Drops), maxDropLines)] {
			fmt.Fprintf(&b, "[%s] %s\n", d.Source, preview(d.Content))
		}
		b.WriteString("</drops>")
		blocks = append(blocks, b.String())
	}

	if len(hc.Sessions) > 0 {
		var b strings.Builder
		b.WriteString("<sessions>\n")
		for _, s := range hc.Sessions[:min(len(hc.Sessions), maxSessionLines)] {
			fmt.Fprintf(&b, "- %s\n", s.Label())
		}
		b.WriteString("</sessions>")
		blocks = append(blocks, b.String())
	}

	if d, ok := latestDigest(hc.Digests); ok {
		summary := strings.TrimSpace(d.Summary)
		if summary == "" {
			summary = "No summary"
		}
		blocks = append(blocks, fmt.Sprintf("<digest date=%q>\n%s\n</digest>", d.Date, summary))
	}

	return strings.Join(blocks, "\n\n")
}

// RenderPrompt is BuildContext plus the latest checkpoint, when one is
// configured and present.
func (a *Aggregator) RenderPrompt(hc *Context) string {
	out := BuildContext(hc)
	if a.opts.CheckpointPath == "" {
		return out
	}
	cp, ok := drop.LatestCheckpoint(a.opts.CheckpointPath)
	if !ok {
		return out
	}
	block := "<checkpoint>\n" + strings.TrimSpace(cp) + "\n</checkpoint>"
	if out == "" {
		return block
	}
	return out + "\n\n" + block
}

// latestDigest picks the digest with the greatest date. Dates are ISO
// strings, so string order is date order.
func latestDigest(digests []drop.Digest) (drop.Digest, bool) {
	if len(digests) == 0 {
		return drop.Digest{}, false
	}
	best := digests[0]
	for _, d := range digests[1:] {
		if d.Date > best.Date {
			best = d
		}
	}
	return best, true
}

func preview(s string) string {
	flat := strings.Join(strings.Fields(s), " ")
	r := []rune(flat)
	if len(r) > previewChars {
		return string(r[:previewChars]) + "..."
	}
	return flat
}
