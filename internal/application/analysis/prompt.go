package analysis

import (
	"fmt"
	"strings"
)

const promptHeader = `# Video Content Analysis & Thumbnail Generation

You are a videographer, content strategist and social media expert who creates
family-friendly content for YouTube, Instagram, TikTok and Facebook.

## TASK
Given a video transcript and key video frames, produce SEO-optimized titles, an
engaging description, a thumbnail concept and a detailed prompt for an AI image
generator.

## INPUTS
`

const promptBody = `
## REQUIREMENTS
- Avoid violent, harmful or inappropriate content.
- Combine insights from the transcript and the frames.
- "titles": 3-5 options, SEO-optimized, varied in style.
- "description": hook, key takeaways, call to action, 10-15 hashtags.
- "thumbnail_concept": visual_layout, text_overlay (3-6 words), color_scheme,
  key_elements (list), mobile_optimization.
- "thumbnail_ai_prompt": scene, 16:9 high resolution, style, text placement,
  emotional tone and element positioning.

Respond with JSON only, no text outside the object:
{
  "titles": ["..."],
  "description": "...",
  "thumbnail_concept": {
    "visual_layout": "...",
    "text_overlay": "...",
    "color_scheme": "...",
    "key_elements": ["..."],
    "mobile_optimization": "..."
  },
  "thumbnail_ai_prompt": "..."
}
`

func buildPrompt(transcript string, shots []Screenshot) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	fmt.Fprintf(&b, "- Transcript: %s\n", transcript)
	frames := make([]string, len(shots))
	for i, s := range shots {
		frames[i] = fmt.Sprintf("Frame %d at %.1fs", s.FrameNumber, s.Timestamp)
	}
	fmt.Fprintf(&b, "- Frames: %d video frames with timestamps: %s\n", len(shots), strings.Join(frames, ", "))
	b.WriteString(promptBody)
	return b.String()
}

// stripFences removes a surrounding ```json ... ``` markdown block.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
