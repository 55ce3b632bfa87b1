package sse

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/wagomu-no-sunaba/etude-rag2/internal/core"
)

func TestEmitterProgressThenCompleteClosesChannel(t *testing.T) {
	e := NewEmitter(4)
	e.Progress(core.StageParse, "parsing")
	e.Complete("# draft", "draft-1")

	var events []Event
	for ev := range e.Events() {
		events = append(events, ev)
	}

	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if events[0].Type != EventProgress || events[0].Progress.Step != core.StageParse {
		t.Errorf("events[0] = %+v", events[0])
	}
	if !events[1].IsTerminal() || events[1].Type != EventComplete {
		t.Errorf("events[1] = %+v, want terminal complete", events[1])
	}
}

func TestEmitterErrorIsTerminal(t *testing.T) {
	e := NewEmitter(4)
	e.Error(errors.New("boom"))

	ev, ok := <-e.Events()
	if !ok {
		t.Fatalf("expected one event before channel closed")
	}
	if !ev.IsTerminal() || ev.Type != EventError {
		t.Errorf("ev = %+v, want terminal error", ev)
	}
	if _, ok := <-e.Events(); ok {
		t.Errorf("channel should be closed after the terminal event")
	}
}

func TestEmitterSendAfterCloseIsNoop(t *testing.T) {
	e := NewEmitter(4)
	e.Complete("x", "id")
	e.Progress(core.StageAssemble, "too late")

	var count int
	for range e.Events() {
		count++
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 (post-close send dropped)", count)
	}
}

func TestWriteToEncodesWireFormat(t *testing.T) {
	e := NewEmitter(4)
	e.Progress(core.StageOutline, "outlining")
	e.Complete("# done", "draft-2")

	var buf bytes.Buffer
	err := WriteTo(&buf, nil, e.Events(), json.Marshal)
	if err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "event: progress\n") {
		t.Errorf("missing progress event line, got:\n%s", out)
	}
	if !strings.Contains(out, "event: complete\n") {
		t.Errorf("missing complete event line, got:\n%s", out)
	}
	if !strings.Contains(out, `"draft_id"`) && !strings.Contains(out, "draft-2") {
		t.Errorf("missing complete payload, got:\n%s", out)
	}
}
