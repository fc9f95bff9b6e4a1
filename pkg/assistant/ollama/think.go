package ollama

import "strings"

const (
	openThink  = "<think>"
	closeThink = "</think>"
)

// thinkSplitter separates <think>...</think> sections that reasoning models
// inline into their content when Ollama's think mode is off. Tags may be split
// across chunks; a trailing partial tag is held back until the next feed.
type thinkSplitter struct {
	inThink bool
	pending string
}

func (s *thinkSplitter) feed(text string) (thinking, response string) {
	buf := s.pending + text
	s.pending = ""

	var th, re strings.Builder
	out := func(t string) {
		if s.inThink {
			th.WriteString(t)
		} else {
			re.WriteString(t)
		}
	}

	for buf != "" {
		tag := openThink
		if s.inThink {
			tag = closeThink
		}

		if i := strings.Index(buf, tag); i >= 0 {
			out(buf[:i])
			buf = buf[i+len(tag):]
			s.inThink = !s.inThink
			continue
		}

		k := partialSuffix(buf, tag)
		out(buf[:len(buf)-k])
		s.pending = buf[len(buf)-k:]
		break
	}

	return th.String(), re.String()
}

// flush releases a held back partial tag as plain text.
func (s *thinkSplitter) flush() (thinking, response string) {
	p := s.pending
	s.pending = ""
	if s.inThink {
		return p, ""
	}
	return "", p
}

// partialSuffix returns the length of the longest suffix of s that is a
// proper prefix of tag.
func partialSuffix(s, tag string) int {
	for k := min(len(s), len(tag)-1); k > 0; k-- {
		if strings.HasSuffix(s, tag[:k]) {
			return k
		}
	}
	return 0
}
