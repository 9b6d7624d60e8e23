package deepgram

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(n int, start float64) []Word {
	out := make([]Word, n)
	for i := range out {
		s := start + float64(i)*0.5
		out[i] = Word{Word: fmt.Sprintf("w%d", i), PunctuatedWord: fmt.Sprintf("W%d", i), Start: s, End: s + 0.4}
	}
	return out
}

func TestCues_SplitsUtterances(t *testing.T) {
	r := &Response{Results: Results{Utterances: []Utterance{
		{Words: words(10, 0)},
		{Words: words(3, 20)},
	}}}
	cues := Cues(r, 8)
	require.Len(t, cues, 3)
	assert.Equal(t, 0.0, cues[0].Start)
	assert.InDelta(t, 3.9, cues[0].End, 1e-9)
	assert.Equal(t, "W8 W9", cues[1].Text)
	assert.Equal(t, 20.0, cues[2].Start)
}

func TestCues_FallsBackToWords(t *testing.T) {
	r := &Response{Results: Results{Channels: []Channel{{Alternatives: []Alternative{{Words: words(4, 1)}}}}}}
	cues := Cues(r, 0)
	require.Len(t, cues, 1)
	assert.Equal(t, "W0 W1 W2 W3", cues[0].Text)
}

func TestTimestamp(t *testing.T) {
	assert.Equal(t, "00:00:01.500", timestamp(1.5, "."))
	assert.Equal(t, "01:01:01,001", timestamp(3661.001, ","))
}

func TestWebVTT(t *testing.T) {
	r := &Response{
		Metadata: Metadata{RequestID: "req-1"},
		Results:  Results{Utterances: []Utterance{{Words: words(2, 0)}}},
	}
	out := WebVTT(r)
	assert.True(t, strings.HasPrefix(out, "WEBVTT\n"))
	assert.Contains(t, out, "Request Id: req-1")
	assert.Contains(t, out, "00:00:00.000 --> 00:00:00.900\nW0 W1\n")
}

func TestSRT(t *testing.T) {
	r := &Response{Results: Results{Utterances: []Utterance{{Words: words(9, 0)}}}}
	out := SRT(r)
	assert.True(t, strings.HasPrefix(out, "1\n00:00:00,000 --> "))
	assert.Contains(t, out, "\n\n2\n00:00:04,000 --> 00:00:04,400\nW8\n")
}
