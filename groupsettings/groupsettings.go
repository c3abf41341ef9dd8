// Package groupsettings implements per-group plugin configuration overrides
// layered on top of each plugin's global defaults. Effective config is
// computed on read; the store only ever persists the override delta.
package groupsettings

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sbvh/botcore/cache"
	"github.com/sbvh/botcore/errors"
)

// CacheNamespace is the cache namespace effective-config lookups are stored
// under, keyed by "<group_id>:<plugin_name>".
const CacheNamespace = "group_plugin_settings"

const cacheTTL = 300 * time.Second

// Service reads and writes per-group plugin settings, merging them against
// caller-supplied global defaults on every read.
type Service struct {
	db    *sql.DB
	cache *cache.Cache
}

// New creates a Service over db, memoizing effective config lookups in c.
func New(db *sql.DB, c *cache.Cache) *Service {
	c.RegisterNamespaceFormat(CacheNamespace, "{group_id}:{plugin_name}")
	return &Service{db: db, cache: c}
}

func (s *Service) key(group, plugin string) string {
	return s.cache.BuildKey(CacheNamespace, map[string]string{"group_id": group, "plugin_name": plugin})
}

func (s *Service) invalidate(ctx context.Context, group, plugin string) error {
	return s.cache.Delete(ctx, CacheNamespace, s.key(group, plugin))
}

// SetFullConfig replaces the entire override blob for (group, plugin).
func (s *Service) SetFullConfig(ctx context.Context, group, plugin string, settings map[string]any) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return errors.Wrap(err, "marshal group plugin settings")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO group_plugin_settings (group_id, plugin_name, settings, update_time)
		VALUES (?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		ON CONFLICT (group_id, plugin_name) DO UPDATE SET
			settings = excluded.settings,
			update_time = excluded.update_time
	`, group, plugin, string(raw))
	if err != nil {
		return errors.Wrapf(err, "set config for group %s plugin %s", group, plugin)
	}

	return s.invalidate(ctx, group, plugin)
}

// SetKey reads the current override blob, sets one key, and writes it back.
func (s *Service) SetKey(ctx context.Context, group, plugin, key string, value any) error {
	settings, err := s.loadOverrides(ctx, group, plugin)
	if err != nil {
		return err
	}
	settings[key] = value
	return s.SetFullConfig(ctx, group, plugin, settings)
}

// ResetKey removes one key from the override blob. If the blob becomes
// empty, the row is deleted entirely.
func (s *Service) ResetKey(ctx context.Context, group, plugin, key string) error {
	settings, err := s.loadOverrides(ctx, group, plugin)
	if err != nil {
		return err
	}
	delete(settings, key)

	if len(settings) == 0 {
		return s.ResetAll(ctx, group, plugin)
	}
	return s.SetFullConfig(ctx, group, plugin, settings)
}

// ResetAll deletes the override row for (group, plugin) entirely, restoring
// the plugin's global defaults on the next read.
func (s *Service) ResetAll(ctx context.Context, group, plugin string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM group_plugin_settings WHERE group_id = ? AND plugin_name = ?`, group, plugin)
	if err != nil {
		return errors.Wrapf(err, "reset config for group %s plugin %s", group, plugin)
	}
	return s.invalidate(ctx, group, plugin)
}

// GetAllForPlugin computes the effective config for (group, plugin):
// defaults merged with per-group overrides, override wins per key. Results
// are memoized for cacheTTL.
func (s *Service) GetAllForPlugin(ctx context.Context, group, plugin string, defaults map[string]any) (map[string]any, error) {
	cacheKey := s.key(group, plugin)
	if cached, found, err := s.cache.Get(ctx, CacheNamespace, cacheKey); err == nil && found {
		if overrides, ok := cached.(map[string]any); ok {
			return merge(defaults, overrides), nil
		}
	}

	overrides, err := s.loadOverrides(ctx, group, plugin)
	if err != nil {
		return nil, err
	}

	_ = s.cache.Set(ctx, CacheNamespace, cacheKey, overrides, cacheTTL)
	return merge(defaults, overrides), nil
}

func (s *Service) loadOverrides(ctx context.Context, group, plugin string) (map[string]any, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT settings FROM group_plugin_settings WHERE group_id = ? AND plugin_name = ?`, group, plugin,
	).Scan(&raw)

	if err == sql.ErrNoRows {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load overrides for group %s plugin %s", group, plugin)
	}

	var settings map[string]any
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return nil, errors.Wrapf(err, "unmarshal overrides for group %s plugin %s", group, plugin)
	}
	return settings, nil
}

func merge(defaults, overrides map[string]any) map[string]any {
	effective := make(map[string]any, len(defaults)+len(overrides))
	for k, v := range defaults {
		effective[k] = v
	}
	for k, v := range overrides {
		effective[k] = v
	}
	return effective
}
