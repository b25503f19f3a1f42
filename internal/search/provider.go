package search

import (
	"context"

	"github.com/SlpAus/mediashelf-backend/internal/catalog"
)

// MaxResults caps every result list returned to clients.
const MaxResults = 20

// Provider is an external source of media descriptors.
// An empty type means every type.
type Provider interface {
	Search(ctx context.Context, query string, t catalog.MediaType) ([]catalog.Descriptor, error)
	Trending(ctx context.Context, t catalog.MediaType) ([]catalog.Descriptor, error)
}

// CatalogSource is the subset of the catalog store the local provider reads.
type CatalogSource interface {
	SearchTitle(ctx context.Context, query string, t catalog.MediaType, limit int) ([]catalog.Entry, error)
	MostTracked(ctx context.Context, t catalog.MediaType, limit int) ([]catalog.Entry, error)
}

// LocalProvider answers from the local catalog. Trending is ranked by how many
// users track an entry.
type LocalProvider struct {
	src CatalogSource
}

func NewLocalProvider(src CatalogSource) *LocalProvider {
	return &LocalProvider{src: src}
}

func (p *LocalProvider) Search(ctx context.Context, query string, t catalog.MediaType) ([]catalog.Descriptor, error) {
	entries, err := p.src.SearchTitle(ctx, query, t, MaxResults)
	if err != nil {
		return nil, err
	}
	return descriptors(entries), nil
}

func (p *LocalProvider) Trending(ctx context.Context, t catalog.MediaType) ([]catalog.Descriptor, error) {
	entries, err := p.src.MostTracked(ctx, t, MaxResults)
	if err != nil {
		return nil, err
	}
	return descriptors(entries), nil
}

func descriptors(entries []catalog.Entry) []catalog.Descriptor {
	out := make([]catalog.Descriptor, len(entries))
	for i, e := range entries {
		out[i] = e.Descriptor()
	}
	return out
}
