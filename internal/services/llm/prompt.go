package llm

import (
	"fmt"
	"strings"
)

// Style is a named analysis prompt.
type Style struct {
	Key         string
	Name        string
	Description string
	prompt      string
}

const jsonOnlyRules = `CRITICAL INSTRUCTIONS:
- Your ENTIRE response must be ONLY the JSON object above
- Do NOT add any explanations before or after the JSON
- Do NOT use markdown code blocks
- Do NOT add any commentary or additional text
- Ensure the JSON is valid with no trailing commas or syntax errors`

const analysisFormat = `You must respond with ONLY a valid JSON object in this exact format:
{
  "description": "%s",
  "tags": [%s],
  "suggested_filename": "descriptive_filename_here"
}`

const filenameRules = `- Filename should be descriptive but concise, lowercase, max 50 chars
- Use underscores instead of spaces in filename
- Do NOT include file extension in suggested_filename`

func analysisPrompt(task, descriptionHint, tagsHint, guidelines string) string {
	return task + "\n\n" +
		fmt.Sprintf(analysisFormat, descriptionHint, tagsHint) + "\n\n" +
		jsonOnlyRules + "\n\nGuidelines:\n" + guidelines + "\n" + filenameRules
}

// Prompts are kept here so they can be tuned without touching call sites.
var styles = []Style{
	{
		Key:         "classic",
		Name:        "Classic",
		Description: "Concise and factual (1-3 sentences)",
		prompt: analysisPrompt(`Analyze this image and provide:
1. A concise description (1-3 sentences) describing what you see
2. 5-10 relevant tags (keywords) as a list
3. A suggested filename`,
			"your description here", `"tag1", "tag2", "tag3"`,
			`- Keep description brief and factual
- Keep tags lowercase, prefer single words, ensure they are unique and relevant`),
	},
	{
		Key:         "artistic",
		Name:        "Artistic",
		Description: "Detailed, poetic, and creative description",
		prompt: analysisPrompt(`Analyze this image with artistic detail and provide:
1. A detailed, artistic description (4-6 paragraphs) that captures the mood, atmosphere, colors, composition, and emotional impact
2. 8-15 relevant tags including mood, style, and technical aspects
3. A suggested filename`,
			"your detailed artistic description here", `"tag1", "tag2", "tag3"`,
			`- Include details about lighting, composition, mood, colors
- Use vivid, descriptive language
- Tags should include artistic and technical terms; keep them lowercase and unique`),
	},
	{
		Key:         "spicy",
		Name:        "Spicy",
		Description: "Provocative and attention-grabbing style",
		prompt: analysisPrompt(`Analyze this image with a bold, provocative style and provide:
1. A captivating description (3-5 paragraphs) that is attention-grabbing, bold, and engaging
2. 8-15 tags including mood and aesthetic qualities
3. A suggested filename`,
			"your bold description here", `"tag1", "tag2", "tag3"`,
			`- Emphasize visual appeal and striking elements
- Use confident, engaging language
- Tags should include mood and aesthetics; keep them lowercase and unique`),
	},
	{
		Key:         "social",
		Name:        "Social Media",
		Description: "Optimized for Instagram, Facebook, Twitter",
		prompt: analysisPrompt(`Analyze this image for social media posting and provide:
1. A social media-ready description (2-4 paragraphs) in a conversational, authentic tone
2. 10-15 trending hashtags and relevant keywords (include the # for hashtags)
3. A suggested filename`,
			"your social media description here", `"#hashtag1", "#hashtag2", "keyword1"`,
			`- Write in a friendly, conversational tone
- Tags should include the # for hashtags where appropriate; keep them lowercase and unique`),
	},
	{
		Key:         "tags",
		Name:        "Tags Only",
		Description: "Generate only tags/keywords without description",
		prompt: `Analyze this image and provide ONLY tags/keywords.

You must respond with ONLY a valid JSON object in this exact format:
{
  "description": "",
  "tags": ["tag1", "tag2", "tag3"],
  "suggested_filename": ""
}

` + jsonOnlyRules + `

Guidelines for tags:
- Generate 8-15 relevant, descriptive tags
- Leave description and suggested_filename empty
- Keep tags lowercase, prefer single words
- Include objects, colors, mood, setting, composition style
- No hashtags (#), just plain keywords`,
	},
	{
		Key:         "custom",
		Name:        "Custom",
		Description: "Use your own custom prompt",
	},
}

// Styles lists the available analysis styles in display order.
func Styles() []Style {
	return append([]Style(nil), styles...)
}

// LookupStyle finds a style by key.
func LookupStyle(key string) (Style, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, s := range styles {
		if s.Key == key {
			return s, true
		}
	}
	return Style{}, false
}

// AnalysisPrompt returns the prompt for style. The custom style wraps
// customPrompt with the JSON contract; unknown styles, and custom without a
// prompt, fall back to classic.
func AnalysisPrompt(style, customPrompt string) string {
	key := strings.ToLower(strings.TrimSpace(style))
	if key == "custom" {
		if custom := strings.TrimSpace(customPrompt); custom != "" {
			return custom + "\n\n" +
				fmt.Sprintf(analysisFormat, "your description here", `"tag1", "tag2", "tag3"`) + "\n\n" +
				jsonOnlyRules
		}
		key = "classic"
	}
	if s, ok := LookupStyle(key); ok && s.prompt != "" {
		return s.prompt
	}
	classic, _ := LookupStyle("classic")
	return classic.prompt
}

// BoardSuggestionPrompt is the system prompt for board placement.
const BoardSuggestionPrompt = `You organise a personal image library into boards. Boards form a tree; sub-boards are listed indented under their parent.

Given an image's filename, description, and tags, and the list of existing boards with their ids, decide where the image belongs.

- If one or more existing boards fit, answer with action "add_to_existing" and list their ids in "suggested_boards".
- If nothing fits, answer with action "create_new" and describe the board in "new_board". Set "parent_id" to an existing board id when the new board belongs under it, otherwise null.
- "confidence" is a number between 0 and 1. Use values below 0.7 when unsure.
- "reasoning" is one short sentence.

You must respond ONLY with a JSON object like:
{"action": "add_to_existing", "confidence": 0.9, "reasoning": "short explanation", "suggested_boards": [3], "new_board": null}
or
{"action": "create_new", "confidence": 0.8, "reasoning": "short explanation", "suggested_boards": [], "new_board": {"name": "Board Name", "description": "short description", "parent_id": null}}`

// BoardOption is one existing board offered to the model.
type BoardOption struct {
	ID    int64
	Label string
}

// ImageSummary is what the model sees of an image when placing it.
type ImageSummary struct {
	Filename    string
	Description string
	Tags        []string
}

// BoardSuggestionInput renders the user prompt for a board placement request.
func BoardSuggestionInput(img ImageSummary, options []BoardOption) string {
	var b strings.Builder
	b.WriteString("Image:\n")
	fmt.Fprintf(&b, "- filename: %s\n", img.Filename)
	description := strings.TrimSpace(img.Description)
	if description == "" {
		description = "(none)"
	}
	fmt.Fprintf(&b, "- description: %s\n", description)
	tags := "(none)"
	if len(img.Tags) > 0 {
		tags = strings.Join(img.Tags, ", ")
	}
	fmt.Fprintf(&b, "- tags: %s\n\nBoards:\n", tags)
	if len(options) == 0 {
		b.WriteString("(no boards yet)\n")
	}
	for _, opt := range options {
		fmt.Fprintf(&b, "[%d] %s\n", opt.ID, opt.Label)
	}
	return b.String()
}
