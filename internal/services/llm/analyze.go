package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"strings"

	"curator/internal/boards"
	"curator/internal/services"
	"curator/internal/suggest"
	"curator/internal/textutil"
)

const (
	analysisMaxTokens   = 500
	analysisTemperature = 0.7
)

// Analysis is the model's description of one image.
type Analysis struct {
	Description       string   `json:"description"`
	Tags              []string `json:"tags"`
	SuggestedFilename string   `json:"suggested_filename"`
	// Parsed is false when the reply was not JSON and the whole reply became
	// the description.
	Parsed bool   `json:"-"`
	Raw    string `json:"-"`
}

// tagList accepts either a JSON array or a comma separated string.
type tagList []string

func (t *tagList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = list
		return nil
	}
	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return err
	}
	*t = strings.Split(joined, ",")
	return nil
}

// ParseAnalysis extracts an Analysis from a model reply. A reply that holds
// no JSON object is kept as the description with no tags.
func ParseAnalysis(content string) Analysis {
	var wire struct {
		Description       string  `json:"description"`
		Tags              tagList `json:"tags"`
		SuggestedFilename string  `json:"suggested_filename"`
	}
	if err := DecodeLLMJSON(content, &wire); err != nil {
		return Analysis{Description: strings.TrimSpace(content), Raw: content}
	}
	return Analysis{
		Description:       strings.TrimSpace(wire.Description),
		Tags:              textutil.NormalizeTags(wire.Tags),
		SuggestedFilename: strings.TrimSpace(wire.SuggestedFilename),
		Parsed:            true,
		Raw:               content,
	}
}

// AnalyzeImage sends the image at path to the vision model with the prompt
// for style.
func (c *Client) AnalyzeImage(ctx context.Context, path, style, customPrompt string) (Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		marker := services.ErrValidation
		if errors.Is(err, fs.ErrNotExist) {
			marker = services.ErrNotFound
		}
		return Analysis{}, services.Wrap(marker, "llm", "llm analyze", "read image", err)
	}
	content, err := c.Complete(ctx, Request{
		Operation:   "llm analyze",
		Model:       c.visionModel,
		Messages:    []Message{VisionMessage(AnalysisPrompt(style, customPrompt), DataURI(ImageMIMEType(path), data))},
		Temperature: analysisTemperature,
		MaxTokens:   analysisMaxTokens,
	})
	if err != nil {
		return Analysis{}, err
	}
	return ParseAnalysis(content), nil
}

// SuggestBoard asks the text model where an image belongs. The returned
// suggestion is not validated; callers treat malformed ones as ignorable.
func (c *Client) SuggestBoard(ctx context.Context, img ImageSummary, options []BoardOption) (suggest.Suggestion, error) {
	content, err := c.Complete(ctx, Request{
		Operation: "llm suggest board",
		Messages: []Message{
			TextMessage("system", BoardSuggestionPrompt),
			TextMessage("user", BoardSuggestionInput(img, options)),
		},
		Temperature: 0,
	})
	if err != nil {
		return suggest.Suggestion{}, err
	}
	return ParseSuggestion(content)
}

// ParseSuggestion decodes a board placement reply. New board names are
// title-cased when the model wrote them in lowercase.
func ParseSuggestion(content string) (suggest.Suggestion, error) {
	var wire struct {
		Action          string  `json:"action"`
		Confidence      float64 `json:"confidence"`
		Reasoning       string  `json:"reasoning"`
		SuggestedBoards []int64 `json:"suggested_boards"`
		NewBoard        *struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			ParentID    *int64 `json:"parent_id"`
		} `json:"new_board"`
	}
	if err := DecodeLLMJSON(content, &wire); err != nil {
		return suggest.Suggestion{}, services.Wrap(services.ErrValidation, "llm", "llm suggest board", "parse payload", err)
	}
	s := suggest.Suggestion{
		Action:     suggest.Action(strings.ToLower(strings.TrimSpace(wire.Action))),
		Confidence: wire.Confidence,
		Reasoning:  strings.TrimSpace(wire.Reasoning),
	}
	switch s.Action {
	case suggest.ActionAddToExisting:
		s.SuggestedBoards = wire.SuggestedBoards
	case suggest.ActionCreateNew:
		if wire.NewBoard != nil {
			parent := wire.NewBoard.ParentID
			if parent != nil && *parent <= 0 {
				parent = nil
			}
			s.NewBoard = &boards.Draft{
				Name:        textutil.TitleCase(wire.NewBoard.Name),
				Description: strings.TrimSpace(wire.NewBoard.Description),
				ParentID:    parent,
			}
		}
	default:
		s.SuggestedBoards = wire.SuggestedBoards
	}
	return s, nil
}

// BoardOptions turns a flattened tree into the board list shown to the model.
func BoardOptions(flat []boards.FlatBoard) []BoardOption {
	out := make([]BoardOption, 0, len(flat))
	for _, fb := range flat {
		out = append(out, BoardOption{ID: fb.Board.ID, Label: fb.Label()})
	}
	return out
}
