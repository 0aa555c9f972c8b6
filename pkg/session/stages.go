package session

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ritzau/mutual-graph/pkg/merge"
	"github.com/ritzau/mutual-graph/pkg/model"
	"github.com/ritzau/mutual-graph/pkg/origin"
	"github.com/ritzau/mutual-graph/pkg/source"
)

func parseStage(ctx context.Context, files []source.File) ([]*model.Source, error) {
	_, span := tracer.Start(ctx, "source.Parse")
	defer span.End()

	sources, err := source.ParseBatch(files)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return sources, nil
}

func augmentStage(ctx context.Context, sources []*model.Source) ([]*model.Source, model.RootSet) {
	_, span := tracer.Start(ctx, "origin.Augment")
	defer span.End()

	augmented, roots := origin.Augment(sources)
	span.SetAttributes(attribute.StringSlice("roots", roots.Sorted()))
	return augmented, roots
}

func mergeStage(ctx context.Context, sources []*model.Source) *model.Canonical {
	_, span := tracer.Start(ctx, "merge.Merge")
	defer span.End()

	canonical := merge.Merge(sources)
	span.SetAttributes(attribute.Int("records", canonical.Len()))
	return canonical
}
