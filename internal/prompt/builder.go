// Package prompt assembles multimodal generation requests.
package prompt

import (
	"strings"

	"github.com/spherical/docprompt/internal/domain"
)

// TextLead introduces the extracted document text in text-only requests
const TextLead = "Analyze the following text:"

// Build constructs a request from extracted content and an instruction.
//
// With images the request is the instruction followed by one image block per
// image in extraction order; the document text is left out. Without images it
// is a single text block holding the instruction and then the text.
func Build(text string, images []domain.EmbeddableImage, instruction string) (*domain.PromptRequest, error) {
	if strings.TrimSpace(instruction) == "" {
		return nil, domain.MissingPromptError("enter a prompt before generating a response", nil)
	}

	if len(images) > 0 {
		blocks := make([]domain.ContentBlock, 0, len(images)+1)
		blocks = append(blocks, domain.ContentBlock{Type: domain.BlockText, Text: instruction})
		for i := range images {
			img := images[i]
			blocks = append(blocks, domain.ContentBlock{Type: domain.BlockImageRef, Image: &img})
		}
		return &domain.PromptRequest{Instruction: instruction, Blocks: blocks}, nil
	}

	body := instruction
	if text != "" {
		body = instruction + "\n\n" + TextLead + "\n" + text
	}
	return &domain.PromptRequest{
		Instruction: instruction,
		Blocks:      []domain.ContentBlock{{Type: domain.BlockText, Text: body}},
	}, nil
}

// BuildFromContent is Build over a whole ExtractedContent; nil means no content
func BuildFromContent(content *domain.ExtractedContent, instruction string) (*domain.PromptRequest, error) {
	if content == nil {
		return Build("", nil, instruction)
	}
	return Build(content.Text, content.Images, instruction)
}
