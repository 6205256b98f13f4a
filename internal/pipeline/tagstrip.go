package pipeline

import "strings"

// TagFilter incrementally removes one structural tag pair from streamed
// text. In extract mode only the content between the tags is forwarded; in
// strip mode everything except the tag tokens themselves is forwarded. A
// delta that ends mid-tag is held back and split at the tag edge once the
// rest arrives, so markup never leaks through a chunk boundary.
type TagFilter struct {
	open    string
	close   string
	extract bool

	pending string
	inside  bool
	sawTag  bool
}

// NewTagExtractor forwards only text inside <tag>...</tag>.
func NewTagExtractor(tag string) *TagFilter {
	return &TagFilter{open: "<" + tag + ">", close: "</" + tag + ">", extract: true}
}

// NewTagStripper forwards all text, dropping the <tag> and </tag> tokens.
func NewTagStripper(tag string) *TagFilter {
	return &TagFilter{open: "<" + tag + ">", close: "</" + tag + ">"}
}

// Feed consumes one delta and returns the text that may be surfaced now.
func (f *TagFilter) Feed(chunk string) string {
	f.pending += chunk
	var out strings.Builder
	for f.pending != "" {
		i := strings.IndexByte(f.pending, '<')
		if i < 0 {
			f.emit(&out, f.pending)
			f.pending = ""
			break
		}
		f.emit(&out, f.pending[:i])
		f.pending = f.pending[i:]

		switch {
		case strings.HasPrefix(f.pending, f.open):
			f.inside = true
			f.sawTag = true
			f.pending = f.pending[len(f.open):]
		case strings.HasPrefix(f.pending, f.close):
			f.inside = false
			f.pending = f.pending[len(f.close):]
		case strings.HasPrefix(f.open, f.pending) || strings.HasPrefix(f.close, f.pending):
			// Possible tag split across deltas; hold until more arrives.
			return out.String()
		default:
			// A literal '<' that starts no known tag.
			f.emit(&out, "<")
			f.pending = f.pending[1:]
		}
	}
	return out.String()
}

// Flush returns whatever held-back text turned out not to be a tag. Call
// once after the stream ends.
func (f *TagFilter) Flush() string {
	rest := f.pending
	f.pending = ""
	if f.extract && !f.inside {
		return ""
	}
	return rest
}

// SawTag reports whether the opening tag was ever observed.
func (f *TagFilter) SawTag() bool { return f.sawTag }

func (f *TagFilter) emit(out *strings.Builder, text string) {
	if text == "" {
		return
	}
	if !f.extract || f.inside {
		out.WriteString(text)
	}
}

// extractTagged pulls the content of <tag>...</tag> out of a complete
// response. ok is false when the tag is absent; callers fall back to the
// full text.
func extractTagged(text, tag string) (string, bool) {
	open, closing := "<"+tag+">", "</"+tag+">"
	i := strings.Index(text, open)
	if i < 0 {
		return "", false
	}
	rest := text[i+len(open):]
	if j := strings.Index(rest, closing); j >= 0 {
		return strings.TrimSpace(rest[:j]), true
	}
	return strings.TrimSpace(rest), true
}
