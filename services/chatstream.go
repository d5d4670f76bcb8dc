package services

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// ChatStreamParser reconstructs assistant text from a chat-completions SSE
// stream. Bytes are buffered and consumed line by line; a line holding an
// incomplete JSON object is pushed back until more bytes arrive, so frames
// split across chunk boundaries survive.
type ChatStreamParser struct {
	pending string
	content string
	done    bool
}

type streamFrame struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Feed consumes a chunk of stream text and returns the deltas it completed.
// After the [DONE] sentinel every further chunk is ignored.
func (p *ChatStreamParser) Feed(chunk string) []string {
	if p.done {
		return nil
	}
	p.pending += chunk

	var deltas []string
	for {
		idx := strings.IndexByte(p.pending, '\n')
		if idx < 0 {
			break
		}
		line := p.pending[:idx]
		p.pending = p.pending[idx+1:]

		line = strings.TrimSuffix(line, "\r")
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		payload := strings.TrimSpace(line[len("data: "):])
		if payload == "[DONE]" {
			p.done = true
			return deltas
		}

		var frame streamFrame
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			// Incomplete JSON: push the line back and wait for more bytes.
			p.pending = line + "\n" + p.pending
			return deltas
		}
		if len(frame.Choices) > 0 && frame.Choices[0].Delta.Content != "" {
			delta := frame.Choices[0].Delta.Content
			p.content += delta
			deltas = append(deltas, delta)
		}
	}
	return deltas
}

// Content returns the accumulated assistant text so far.
func (p *ChatStreamParser) Content() string { return p.content }

// Done reports whether the [DONE] sentinel was seen.
func (p *ChatStreamParser) Done() bool { return p.done }

// TranscriptMessage is one chat turn as the client sees it.
type TranscriptMessage struct {
	Role    string `json:"role"` // "user" | "assistant"
	Content string `json:"content"`
}

// Transcript is an ordered message list whose trailing assistant entry is
// mutated in place while a stream is in progress and frozen when it ends.
type Transcript struct {
	messages  []TranscriptMessage
	streaming bool
}

func NewTranscript(history []TranscriptMessage) *Transcript {
	return &Transcript{messages: append([]TranscriptMessage(nil), history...)}
}

func (t *Transcript) AppendUser(content string) {
	t.streaming = false
	t.messages = append(t.messages, TranscriptMessage{Role: "user", Content: content})
}

// SetAssistant replaces the in-progress assistant message with the updated
// accumulator, appending it on the first delta only.
func (t *Transcript) SetAssistant(content string) {
	if t.streaming {
		t.messages[len(t.messages)-1].Content = content
		return
	}
	t.messages = append(t.messages, TranscriptMessage{Role: "assistant", Content: content})
	t.streaming = true
}

// Freeze marks the trailing assistant message as final.
func (t *Transcript) Freeze() { t.streaming = false }

func (t *Transcript) Messages() []TranscriptMessage { return t.messages }

// ConsumeChatStream drains an SSE body through a parser, invoking onDelta
// with the running accumulator after each delta. It returns the final
// assistant text.
func ConsumeChatStream(body io.Reader, onDelta func(content string)) (string, error) {
	parser := &ChatStreamParser{}
	reader := bufio.NewReader(body)
	buf := make([]byte, 4096)

	for !parser.Done() {
		n, err := reader.Read(buf)
		if n > 0 {
			for range parser.Feed(string(buf[:n])) {
				if onDelta != nil {
					onDelta(parser.Content())
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return parser.Content(), err
		}
	}
	return parser.Content(), nil
}
