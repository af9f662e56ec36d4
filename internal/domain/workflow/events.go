// Package workflow defines the progress protocol of the upload-and-process
// pipeline: a tagged event stream serialized one line at a time over a
// long-lived plain-text response.
package workflow

import (
	"fmt"
	"strconv"
	"strings"
)

// Pipeline stages, emitted in non-decreasing order within one run.
const (
	StepProcessing = 1
	StepTranscribe = 2
	StepGenerate   = 3
	StepDone       = 4
)

type EventKind string

const (
	KindStep    EventKind = "step"
	KindInfo    EventKind = "info"
	KindSuccess EventKind = "success"
	KindError   EventKind = "error"
)

// Event is one progress message. Step carries the stage index for KindStep
// and is zero otherwise.
type Event struct {
	Kind    EventKind
	Step    int
	Message string
}

func Step(n int) Event { return Event{Kind: KindStep, Step: n} }

func Info(msg string) Event { return Event{Kind: KindInfo, Message: msg} }

func Infof(f string, a ...any) Event {
	return Event{Kind: KindInfo, Message: fmt.Sprintf(f, a...)}
}

func Success(msg string) Event { return Event{Kind: KindSuccess, Message: msg} }

func Errorf(f string, a ...any) Event {
	return Event{Kind: KindError, Message: fmt.Sprintf(f, a...)}
}

// EncodeLine renders the event in the wire format consumed by the browser:
// "STEP:<n>", "SUCCESS:<msg>", "ERROR:<msg>", or the bare message for info
// lines. The newline terminator is the transport's concern.
func (e Event) EncodeLine() string {
	switch e.Kind {
	case KindStep:
		return "STEP:" + strconv.Itoa(e.Step)
	case KindSuccess:
		return "SUCCESS:" + e.Message
	case KindError:
		return "ERROR:" + e.Message
	default:
		return e.Message
	}
}

// ParseLine is the inverse of EncodeLine. Unrecognized prefixes decode as
// info lines, so consumers degrade to plain display for anything new.
func ParseLine(line string) Event {
	line = strings.TrimSuffix(line, "\n")
	switch {
	case strings.HasPrefix(line, "STEP:"):
		n, err := strconv.Atoi(strings.TrimPrefix(line, "STEP:"))
		if err != nil {
			return Event{Kind: KindInfo, Message: line}
		}
		return Event{Kind: KindStep, Step: n}
	case strings.HasPrefix(line, "SUCCESS:"):
		return Event{Kind: KindSuccess, Message: strings.TrimPrefix(line, "SUCCESS:")}
	case strings.HasPrefix(line, "ERROR:"):
		return Event{Kind: KindError, Message: strings.TrimPrefix(line, "ERROR:")}
	default:
		return Event{Kind: KindInfo, Message: line}
	}
}

// Emitter receives events in the order the pipeline produces them. The
// pipeline is single-producer, so implementations only need to serialize
// against their own writer.
type Emitter interface {
	Emit(e Event)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(e Event)

func (f EmitterFunc) Emit(e Event) { f(e) }
