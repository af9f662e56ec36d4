package service

import "context"

type FieldKind string

const (
	FieldTitle       FieldKind = "title"
	FieldDescription FieldKind = "description"
	FieldSummary     FieldKind = "summary"
)

// Generator produces one metadata field from a transcript.
type Generator interface {
	Generate(ctx context.Context, transcript string, kind FieldKind) (string, error)
}
