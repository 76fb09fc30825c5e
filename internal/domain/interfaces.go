package domain

import "context"

// Container opens paginated documents from memory
type Container interface {
	// Open parses data as a document. Failures are DocumentOpenError.
	Open(data []byte) (Document, error)
}

// Document is an opened paginated document. Pages are 1-based.
type Document interface {
	NumPage() int

	// Text returns the plain text layer of a page; empty when there is none
	Text(page int) (string, error)

	// Images returns the embedded raster images of a page in container order
	Images(page int) ([]RawImage, error)

	Close() error
}

// FragmentStream is a pull-based sequence of generated text fragments.
// Recv returns io.EOF once the service signals completion.
type FragmentStream interface {
	Recv() (string, error)
	Close() error
}

// Generator sends a PromptRequest to a generation service
type Generator interface {
	// Stream opens a streamed generation call
	Stream(ctx context.Context, req *PromptRequest) (FragmentStream, error)

	// Complete runs a generation call and returns the full text
	Complete(ctx context.Context, req *PromptRequest) (string, error)
}
