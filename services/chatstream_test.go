package services

import (
	"reflect"
	"strings"
	"testing"
)

func TestChatStreamBasicDeltas(t *testing.T) {
	parser := &ChatStreamParser{}

	stream := "data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\" there\"}}]}\n" +
		"data: [DONE]\n"

	deltas := parser.Feed(stream)
	if !reflect.DeepEqual(deltas, []string{"Hi", " there"}) {
		t.Fatalf("deltas: %v", deltas)
	}
	if parser.Content() != "Hi there" {
		t.Fatalf("content: %q", parser.Content())
	}
	if !parser.Done() {
		t.Fatal("sentinel not recognized")
	}
	if out := parser.Feed("data: {\"choices\":[{\"delta\":{\"content\":\"late\"}}]}\n"); out != nil {
		t.Fatalf("frames after [DONE] must be ignored, got %v", out)
	}
	if parser.Content() != "Hi there" {
		t.Fatalf("content changed after [DONE]: %q", parser.Content())
	}
}

func TestChatStreamFrameSplitAcrossChunks(t *testing.T) {
	parser := &ChatStreamParser{}

	// First chunk ends mid-JSON but after a newline that belongs to an
	// earlier keep-alive, so the partial line has to survive the boundary.
	if out := parser.Feed("data: {\"choices\":[{\"delta\":{\"cont"); out != nil {
		t.Fatalf("no complete line yet, got %v", out)
	}
	out := parser.Feed("ent\":\"Hello\"}}]}\n")
	if !reflect.DeepEqual(out, []string{"Hello"}) {
		t.Fatalf("deltas after reassembly: %v", out)
	}
}

func TestChatStreamIncompleteJSONLineIsPushedBack(t *testing.T) {
	parser := &ChatStreamParser{}

	// A complete line whose payload is still truncated JSON: the parser
	// waits instead of dropping it.
	if out := parser.Feed("data: {\"choices\":[{\"delta\"\n"); out != nil {
		t.Fatalf("truncated payload should produce nothing, got %v", out)
	}
	out := parser.Feed("")
	if out != nil {
		t.Fatalf("re-feed of empty chunk produced %v", out)
	}
	if parser.Content() != "" {
		t.Fatalf("content: %q", parser.Content())
	}
}

func TestChatStreamSkipsCommentsAndBlankLines(t *testing.T) {
	parser := &ChatStreamParser{}

	stream := ": keep-alive\n" +
		"\n" +
		"event: message\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\r\n" +
		"data: [DONE]\n"

	deltas := parser.Feed(stream)
	if !reflect.DeepEqual(deltas, []string{"ok"}) {
		t.Fatalf("deltas: %v", deltas)
	}
}

func TestConsumeChatStream(t *testing.T) {
	stream := "data: {\"choices\":[{\"delta\":{\"content\":\"Eat\"}}]}\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\" well\"}}]}\n" +
		"data: [DONE]\n"

	var snapshots []string
	final, err := ConsumeChatStream(strings.NewReader(stream), func(content string) {
		snapshots = append(snapshots, content)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if final != "Eat well" {
		t.Fatalf("final: %q", final)
	}
	if !reflect.DeepEqual(snapshots, []string{"Eat", "Eat well"}) {
		t.Fatalf("snapshots: %v", snapshots)
	}
}

func TestTranscriptStreamingAssistantEntry(t *testing.T) {
	tr := NewTranscript(nil)
	tr.AppendUser("what should I eat?")

	// Streaming deltas replace the trailing assistant entry in place.
	tr.SetAssistant("Try")
	tr.SetAssistant("Try oats")
	tr.Freeze()

	msgs := tr.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected one user and one assistant entry, got %d", len(msgs))
	}
	if msgs[1].Role != "assistant" || msgs[1].Content != "Try oats" {
		t.Fatalf("assistant entry: %+v", msgs[1])
	}

	// After Freeze the next stream starts a fresh entry.
	tr.AppendUser("and for dinner?")
	tr.SetAssistant("Soup")
	if got := len(tr.Messages()); got != 4 {
		t.Fatalf("expected 4 entries, got %d", got)
	}
}
