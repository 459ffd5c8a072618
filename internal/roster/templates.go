package roster

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/netplay-club/internal/docstore"
	"github.com/iliyamo/netplay-club/internal/model"
)

const templateCollection = "templates"

// SaveTemplate stores reusable poll metadata under a display name.
func (m *Manager) SaveTemplate(ctx context.Context, caller model.Caller, t model.PollTemplate) (model.PollTemplate, error) {
	if err := requireAdmin(caller); err != nil {
		return model.PollTemplate{}, err
	}
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" || strings.TrimSpace(t.Time) == "" || strings.TrimSpace(t.Location) == "" {
		return model.PollTemplate{}, ErrInvalidPoll
	}
	if t.Capacity <= 0 {
		return model.PollTemplate{}, ErrInvalidCapacity
	}
	t.ID = ""
	t.CreatedAt = m.now().UTC()
	id, err := docstore.AppendJSON(ctx, m.store, templateCollection, t)
	if err != nil {
		return model.PollTemplate{}, err
	}
	t.ID = id
	return t, nil
}

// ListTemplates returns templates oldest first.
func (m *Manager) ListTemplates(ctx context.Context) ([]model.PollTemplate, error) {
	items, ids, err := docstore.QueryJSON[model.PollTemplate](ctx, m.store, templateCollection, nil)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].ID = ids[i]
	}
	return items, nil
}

func (m *Manager) DeleteTemplate(ctx context.Context, caller model.Caller, id string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	err := m.store.DeleteRecord(ctx, templateCollection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrTemplateNotFound
	}
	return err
}
