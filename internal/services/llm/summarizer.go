package llm

import (
	"context"
	"fmt"
	"strings"

	"medianotes/internal/services"
)

// Mode selects the depth of a generated summary.
type Mode string

const (
	ModeBrief    Mode = "brief"
	ModeDetailed Mode = "detailed"
)

const summarySystemPrompt = "You are an expert note taker and a markdown generator. " +
	"Always output clean markdown content directly, with no surrounding commentary."

const briefPromptTemplate = "Summarize the following transcript into brief notes: " +
	"the main topic in one or two sentences, then the key points as a short bullet list. " +
	"Output pure markdown without any code fence markers (such as ```markdown or ```):\n\n%s"

const detailedPromptTemplate = "Organize the following transcript into detailed structured notes: " +
	"an overview, sections with headings that follow the flow of the content, " +
	"key points under each section, and any conclusions or action items at the end. " +
	"Output pure markdown without any code fence markers (such as ```markdown or ```):\n\n%s"

// Summarize produces a markdown summary of transcript text using the
// named model, routed to its provider. Fence markers the model emits
// anyway are stripped.
func (c *Client) Summarize(ctx context.Context, model, text string, mode Mode) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", services.Wrap(services.ErrValidation, "summary", "summarize", "transcript text is empty", nil)
	}

	var userPrompt string
	switch mode {
	case ModeBrief:
		userPrompt = fmt.Sprintf(briefPromptTemplate, text)
	case ModeDetailed:
		userPrompt = fmt.Sprintf(detailedPromptTemplate, text)
	default:
		return "", services.Wrap(services.ErrValidation, "summary", "summarize", fmt.Sprintf("unknown mode %q", mode), nil)
	}

	content, err := c.Complete(ctx, model, summarySystemPrompt, userPrompt)
	if err != nil {
		return "", services.Wrap(services.ErrSummarization, "summary", string(mode), model, err)
	}
	summary := StripMarkdownFences(content)
	if summary == "" {
		return "", services.Wrap(services.ErrSummarization, "summary", string(mode), "model returned empty summary", nil)
	}
	return summary, nil
}
