package tagresolver

import (
	"context"
	"database/sql"

	"github.com/sbvh/botcore/errors"
)

// TagType distinguishes a statically-linked tag from one whose membership is
// computed by evaluating an expression at resolve time.
type TagType string

const (
	TagStatic  TagType = "STATIC"
	TagDynamic TagType = "DYNAMIC"
)

// Tag is the persisted GroupTag record.
type Tag struct {
	Name        string
	Description string
	OwnerID     string
	BotID       string
	Type        TagType
	DynamicRule string
	IsBlacklist bool
}

// Store persists tags and their static group links.
type Store struct {
	db *sql.DB
}

// NewStore creates a tag store over db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetTag loads a tag by name.
func (s *Store) GetTag(ctx context.Context, name string) (*Tag, error) {
	var tag Tag
	var description, ownerID, botID, dynamicRule sql.NullString
	var isBlacklist int

	err := s.db.QueryRowContext(ctx, `
		SELECT name, description, owner_id, bot_id, tag_type, dynamic_rule, is_blacklist
		FROM group_tags WHERE name = ?
	`, name).Scan(&tag.Name, &description, &ownerID, &botID, &tag.Type, &dynamicRule, &isBlacklist)

	if err == sql.ErrNoRows {
		return nil, errors.Newf("tag not found: %s", name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get tag %s", name)
	}

	tag.Description = description.String
	tag.OwnerID = ownerID.String
	tag.BotID = botID.String
	tag.DynamicRule = dynamicRule.String
	tag.IsBlacklist = isBlacklist != 0
	return &tag, nil
}

// LinkedGroupIDs returns the groups statically linked to tag.
func (s *Store) LinkedGroupIDs(ctx context.Context, tag string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT group_id FROM group_tag_links WHERE tag = ?`, tag)
	if err != nil {
		return nil, errors.Wrapf(err, "list links for tag %s", tag)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan group_tag_links row")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateTag inserts a new tag. STATIC tags must have no dynamic rule;
// DYNAMIC tags must have one.
func (s *Store) CreateTag(ctx context.Context, tag Tag) error {
	if tag.Type == TagStatic && tag.DynamicRule != "" {
		return errors.Newf("static tag %s must not carry a dynamic rule", tag.Name)
	}
	if tag.Type == TagDynamic && tag.DynamicRule == "" {
		return errors.Newf("dynamic tag %s must carry a dynamic rule", tag.Name)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO group_tags (name, description, owner_id, bot_id, tag_type, dynamic_rule, is_blacklist)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, tag.Name, tag.Description, tag.OwnerID, tag.BotID, tag.Type, nullable(tag.DynamicRule), boolToInt(tag.IsBlacklist))
	if err != nil {
		return errors.Wrapf(err, "create tag %s", tag.Name)
	}
	return nil
}

// DeleteTag removes a tag and its links (ON DELETE CASCADE).
func (s *Store) DeleteTag(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM group_tags WHERE name = ?`, name)
	if err != nil {
		return errors.Wrapf(err, "delete tag %s", name)
	}
	return nil
}

// AddGroupsToTag links the given groups to a STATIC tag, ignoring duplicates.
func (s *Store) AddGroupsToTag(ctx context.Context, tag string, groupIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin add-groups-to-tag tx")
	}
	defer tx.Rollback()

	for _, groupID := range groupIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO group_tag_links (tag, group_id) VALUES (?, ?)`, tag, groupID); err != nil {
			return errors.Wrapf(err, "link group %s to tag %s", groupID, tag)
		}
	}
	return tx.Commit()
}

// RemoveGroupsFromTag unlinks the given groups from tag.
func (s *Store) RemoveGroupsFromTag(ctx context.Context, tag string, groupIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin remove-groups-from-tag tx")
	}
	defer tx.Rollback()

	for _, groupID := range groupIDs {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM group_tag_links WHERE tag = ? AND group_id = ?`, tag, groupID); err != nil {
			return errors.Wrapf(err, "unlink group %s from tag %s", groupID, tag)
		}
	}
	return tx.Commit()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
