package cache

import (
	"context"
	"log/slog"
	"slices"

	"github.com/arabicbase/arabicbase/internal/domain"
	"github.com/arabicbase/arabicbase/internal/errors"
	"github.com/arabicbase/arabicbase/internal/events"
	"github.com/arabicbase/arabicbase/internal/logger"
	"github.com/arabicbase/arabicbase/internal/normalize"
)

// AddDialect subscribes the user to a dialect, creating it globally if new.
func (c *Cache) AddDialect(ctx context.Context, name string) error {
	return c.addCatalog(ctx, domain.CatalogDialect, name)
}

// AddCategory subscribes the user to a category, creating it globally if new.
func (c *Cache) AddCategory(ctx context.Context, name string) error {
	return c.addCatalog(ctx, domain.CatalogCategory, name)
}

// RemoveDialect unsubscribes the user from a dialect and deletes every one
// of their entries filed under it. It returns how many entries were deleted.
func (c *Cache) RemoveDialect(ctx context.Context, name string) (int, error) {
	return c.removeCatalog(ctx, domain.CatalogDialect, name)
}

// RemoveCategory unsubscribes the user from a category and deletes every one
// of their entries filed under it. It returns how many entries were deleted.
func (c *Cache) RemoveCategory(ctx context.Context, name string) (int, error) {
	return c.removeCatalog(ctx, domain.CatalogCategory, name)
}

func (c *Cache) addCatalog(ctx context.Context, kind domain.CatalogKind, name string) error {
	userID, err := c.requireUser(ctx)
	if err != nil {
		return err
	}

	name = normalize.CatalogName(name)
	if err := c.validator.ValidateCatalogName(name); err != nil {
		return err
	}

	if err := c.store.Subscribe(ctx, kind, name); err != nil {
		c.logger.Warn("subscribe failed",
			slog.String("kind", string(kind)),
			slog.String("name", name),
			logger.Err(err))
		return errors.Persistence(err, "could not add "+string(kind))
	}

	if err := c.apply(ctx, func(st *state) {
		subs := st.subscriptions(kind)
		if !slices.Contains(*subs, name) {
			*subs = append(*subs, name)
		}
		global := st.catalog(kind)
		if !slices.Contains(*global, name) {
			*global = append(*global, name)
			slices.Sort(*global)
		}
	}); err != nil {
		return err
	}

	c.publisher.Publish(events.NewCatalogEvent(userID, events.CatalogData{Kind: kind, Name: name}))
	return nil
}

// removeCatalog deletes the user's entries under the name, then drops the
// subscription.
func (c *Cache) removeCatalog(ctx context.Context, kind domain.CatalogKind, name string) (int, error) {
	userID, err := c.requireUser(ctx)
	if err != nil {
		return 0, err
	}
	name = normalize.CatalogName(name)

	deleted, err := c.store.DeleteEntriesByCatalog(ctx, kind, name)
	if err != nil {
		c.logger.Warn("cascade delete failed",
			slog.String("kind", string(kind)),
			slog.String("name", name),
			logger.Err(err))
		return 0, errors.Persistence(err, "could not delete entries for "+string(kind))
	}

	var removed []string
	if err := c.apply(ctx, func(st *state) {
		st.entries = slices.DeleteFunc(st.entries, func(e *domain.Entry) bool {
			if e.CatalogValue(kind) != name {
				return false
			}
			removed = append(removed, e.ID)
			return true
		})
		st.global = slices.DeleteFunc(st.global, func(e *domain.Entry) bool {
			return e.OwnerID == userID && e.CatalogValue(kind) == name
		})
		if slices.Contains(removed, st.justAdded) {
			st.justAdded = ""
		}
		c.recordSizes(st)
	}); err != nil {
		return deleted, err
	}
	for _, id := range removed {
		c.enricher.Forget(id)
	}
	c.deleteFromIndex(removed...)

	if err := c.store.Unsubscribe(ctx, kind, name); err != nil {
		c.logger.Warn("unsubscribe failed",
			slog.String("kind", string(kind)),
			slog.String("name", name),
			logger.Err(err))
		return deleted, errors.Persistence(err, "could not remove "+string(kind))
	}

	if err := c.apply(ctx, func(st *state) {
		subs := st.subscriptions(kind)
		*subs = slices.DeleteFunc(*subs, func(s string) bool { return s == name })
	}); err != nil {
		return deleted, err
	}

	c.logger.Info("catalog subscription removed",
		slog.String("kind", string(kind)),
		slog.String("name", name),
		slog.Int("entries_deleted", deleted))
	c.publisher.Publish(events.NewCatalogEvent(userID, events.CatalogData{
		Kind:     kind,
		Name:     name,
		Removed:  true,
		Cascaded: deleted,
	}))
	return deleted, nil
}
