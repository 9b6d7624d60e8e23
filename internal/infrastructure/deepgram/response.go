package deepgram

import "strings"

// Response is the subset of the /v1/listen payload the application reads.
type Response struct {
	Metadata Metadata `json:"metadata"`
	Results  Results  `json:"results"`
}

type Metadata struct {
	RequestID string  `json:"request_id"`
	Duration  float64 `json:"duration"`
	Channels  int     `json:"channels"`
}

type Results struct {
	Channels   []Channel   `json:"channels"`
	Utterances []Utterance `json:"utterances,omitempty"`
}

type Channel struct {
	Alternatives []Alternative `json:"alternatives"`
}

type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
	Words      []Word  `json:"words"`
}

type Utterance struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Transcript string  `json:"transcript"`
	Words      []Word  `json:"words"`
}

type Word struct {
	Word           string  `json:"word"`
	PunctuatedWord string  `json:"punctuated_word,omitempty"`
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
	Confidence     float64 `json:"confidence"`
}

// Text prefers the punctuated form.
func (w Word) Text() string {
	if w.PunctuatedWord != "" {
		return w.PunctuatedWord
	}
	return w.Word
}

func (r *Response) best() *Alternative {
	if len(r.Results.Channels) == 0 || len(r.Results.Channels[0].Alternatives) == 0 {
		return nil
	}
	return &r.Results.Channels[0].Alternatives[0]
}

// Transcript is the first channel's best alternative.
func (r *Response) Transcript() string {
	if a := r.best(); a != nil {
		return a.Transcript
	}
	return ""
}

func (r *Response) Confidence() float64 {
	if a := r.best(); a != nil {
		return a.Confidence
	}
	return 0
}

func (r *Response) WordCount() int {
	return len(strings.Fields(r.Transcript()))
}
