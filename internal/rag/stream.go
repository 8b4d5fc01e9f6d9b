package rag

import (
	"context"
	"errors"
	"fmt"
	"io"

	"inboxai/internal/llm"
	"inboxai/internal/models"
)

// Stream event kinds.
const (
	EventChunk    = "chunk"
	EventSources  = "sources"
	EventMetadata = "metadata"
)

// StreamEvent is one frame of a streamed answer: text fragments as they
// arrive from the model, then a single terminal frame carrying the
// citations or brief metadata.
type StreamEvent struct {
	Type    string `json:"type"`
	Content any    `json:"content"`
}

type meetingStreamMetadata struct {
	EmailsFound int                   `json:"emails_found"`
	Sources     []meetingStreamSource `json:"sources"`
}

type meetingStreamSource struct {
	Sender  string `json:"sender"`
	Subject string `json:"subject"`
}

// QueryStream answers a question as a stream of chunk events followed
// by one sources event built the same way as the blocking path. The
// channel closes when the stream is exhausted or ctx is canceled.
func (e *Engine) QueryStream(ctx context.Context, message string) (<-chan StreamEvent, error) {
	now := e.now()
	filter, _ := ComposeFilter(message, now)

	hits, err := e.searchWithFallback(ctx, message, e.searchLimit, filter)
	if err != nil {
		return nil, err
	}
	expanded := e.expandThreads(ctx, hits)
	fmt.Printf("[RAG] Streaming: %d search results expanded to %d with threads\n", len(hits), len(expanded))

	stream, err := e.generator.GenerateStream(ctx, BuildAnswerPrompt(message, expanded, now))
	if err != nil {
		return nil, fmt.Errorf("starting generation stream: %w", err)
	}

	events := make(chan StreamEvent)
	go e.pump(ctx, stream, events, StreamEvent{Type: EventSources, Content: e.sources(hits)})
	return events, nil
}

// MeetingPrepStream streams a meeting brief, terminated by a metadata
// event naming how many emails grounded it.
func (e *Engine) MeetingPrepStream(ctx context.Context, meeting models.Meeting) (<-chan StreamEvent, error) {
	hits := e.meetingSearch(ctx, meeting)
	expanded := e.expandThreads(ctx, hits)

	stream, err := e.generator.GenerateStream(ctx, BuildMeetingPrepPrompt(meeting, expanded, e.now()))
	if err != nil {
		return nil, fmt.Errorf("starting generation stream: %w", err)
	}

	n := len(hits)
	if n > e.maxSources {
		n = e.maxSources
	}
	sources := make([]meetingStreamSource, 0, n)
	for _, h := range hits[:n] {
		sources = append(sources, meetingStreamSource{
			Sender:  h.Record.DisplayName(),
			Subject: h.Record.Subject,
		})
	}
	terminal := StreamEvent{
		Type: EventMetadata,
		Content: meetingStreamMetadata{
			EmailsFound: len(hits),
			Sources:     sources,
		},
	}

	events := make(chan StreamEvent)
	go e.pump(ctx, stream, events, terminal)
	return events, nil
}

// pump forwards fragments until the stream ends, then emits the
// terminal frame and closes the channel. The events channel is
// unbuffered so caller cancellation is observed within one fragment.
func (e *Engine) pump(ctx context.Context, stream llm.TokenStream, events chan<- StreamEvent, terminal StreamEvent) {
	defer close(events)
	defer stream.Close()

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A truncated generation still gets its citation frame.
			fmt.Printf("[RAG] Generation stream error: %v\n", err)
			break
		}
		select {
		case events <- StreamEvent{Type: EventChunk, Content: chunk}:
		case <-ctx.Done():
			return
		}
	}

	select {
	case events <- terminal:
	case <-ctx.Done():
	}
}
