package deepgram

import (
	"fmt"
	"strings"
)

// WordsPerCue bounds the length of a single caption line.
const WordsPerCue = 8

// Cue is one timed caption.
type Cue struct {
	Start float64
	End   float64
	Text  string
}

// Cues splits the response into caption cues. Utterances are used when present,
// otherwise the word list of the best alternative.
func Cues(r *Response, wordsPerCue int) []Cue {
	if wordsPerCue <= 0 {
		wordsPerCue = WordsPerCue
	}
	var groups [][]Word
	if len(r.Results.Utterances) > 0 {
		for _, u := range r.Results.Utterances {
			groups = append(groups, u.Words)
		}
	} else if a := r.best(); a != nil {
		groups = append(groups, a.Words)
	}

	var cues []Cue
	for _, words := range groups {
		for i := 0; i < len(words); i += wordsPerCue {
			chunk := words[i:min(i+wordsPerCue, len(words))]
			parts := make([]string, len(chunk))
			for j, w := range chunk {
				parts[j] = w.Text()
			}
			cues = append(cues, Cue{
				Start: chunk[0].Start,
				End:   chunk[len(chunk)-1].End,
				Text:  strings.Join(parts, " "),
			})
		}
	}
	return cues
}

// WebVTT renders the response as a WebVTT document.
func WebVTT(r *Response) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	b.WriteString("NOTE\nTranscription provided by Deepgram\n")
	if r.Metadata.RequestID != "" {
		fmt.Fprintf(&b, "Request Id: %s\n", r.Metadata.RequestID)
	}
	for _, c := range Cues(r, WordsPerCue) {
		fmt.Fprintf(&b, "\n%s --> %s\n%s\n", timestamp(c.Start, "."), timestamp(c.End, "."), c.Text)
	}
	return b.String()
}

// SRT renders the response as a SubRip document.
func SRT(r *Response) string {
	var b strings.Builder
	for i, c := range Cues(r, WordsPerCue) {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n", i+1, timestamp(c.Start, ","), timestamp(c.End, ","), c.Text)
	}
	return b.String()
}

// timestamp formats seconds as HH:MM:SS<sep>mmm.
func timestamp(sec float64, sep string) string {
	ms := int64(sec*1000 + 0.5)
	h := ms / 3_600_000
	ms -= h * 3_600_000
	m := ms / 60_000
	ms -= m * 60_000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d%s%03d", h, m, s, sep, ms)
}
