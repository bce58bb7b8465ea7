package repository

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"sort"

	"party_server/internal/domain"
)

//go:embed builtin/*.json
var builtinFS embed.FS

// BuiltinContent serves the documents shipped with the binary.
type BuiltinContent struct {
	docs map[string]*domain.Document
}

func NewBuiltinContent() (*BuiltinContent, error) {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return nil, fmt.Errorf("read builtin content: %w", err)
	}
	b := &BuiltinContent{docs: make(map[string]*domain.Document)}
	for _, e := range entries {
		raw, err := builtinFS.ReadFile("builtin/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		var docs []*domain.Document
		if err := json.Unmarshal(raw, &docs); err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.Name(), err)
		}
		for _, d := range docs {
			b.docs[d.ID] = d
		}
	}
	return b, nil
}

func (b *BuiltinContent) FetchDocument(_ context.Context, id string) (*domain.Document, error) {
	d, ok := b.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return d, nil
}

// Documents returns every builtin document sorted by id.
func (b *BuiltinContent) Documents() []*domain.Document {
	out := make([]*domain.Document, 0, len(b.docs))
	for _, d := range b.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
