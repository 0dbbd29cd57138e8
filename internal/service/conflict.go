package service

import (
	"linguasync/internal/errors"
	"linguasync/internal/models"
)

// conflictResolver settles one MessageConflict. A nil winner with a nil error
// means "no message": the resolution is that nothing should reach the device
// (deletion wins). A non-nil error means no strategy produced a usable answer
// and the conflict goes to the unresolved store.
type conflictResolver func(c *models.MessageConflict) (*models.SyncItem, error)

// resolverTable dispatches on conflict type. Adding a new conflict type is a
// table entry, not a new branch.
var resolverTable = map[models.ConflictType]conflictResolver{
	models.ConflictTimestampMismatch: resolveServerWins,
	models.ConflictContentDifferent:  resolveLastWriteWins,
	models.ConflictDeletion:          resolveDeletionWins,
}

// resolveConflict dispatches c through the strategy table, falling back to
// server-wins for unknown conflict types.
func resolveConflict(c *models.MessageConflict) (*models.SyncItem, string, error) {
	resolver, ok := resolverTable[c.Type]
	if !ok {
		winner, err := resolveServerWins(c)
		return winner, "server_wins_default", err
	}
	winner, err := resolver(c)
	return winner, strategyName(c.Type), err
}

func strategyName(t models.ConflictType) string {
	switch t {
	case models.ConflictTimestampMismatch:
		return "server_wins"
	case models.ConflictContentDifferent:
		return "last_write_wins"
	case models.ConflictDeletion:
		return "deletion_wins"
	default:
		return "server_wins_default"
	}
}

// The server-held version wins unconditionally.
func resolveServerWins(c *models.MessageConflict) (*models.SyncItem, error) {
	if c.ServerVersion == nil {
		return nil, errors.NewConflictUnresolvedError(c.ConflictID, string(c.Type))
	}
	return c.ServerVersion, nil
}

// The version with the larger logical timestamp wins.
func resolveLastWriteWins(c *models.MessageConflict) (*models.SyncItem, error) {
	if c.LocalVersion == nil && c.ServerVersion == nil {
		return nil, errors.NewConflictUnresolvedError(c.ConflictID, string(c.Type))
	}
	if c.LocalVersion == nil {
		return c.ServerVersion, nil
	}
	if c.ServerVersion == nil {
		return c.LocalVersion, nil
	}
	if c.LocalVersion.Timestamp > c.ServerVersion.Timestamp {
		return c.LocalVersion, nil
	}
	return c.ServerVersion, nil
}

// Deletion always wins: if either version is marked deleted the message is
// gone, regardless of the other version's content.
func resolveDeletionWins(c *models.MessageConflict) (*models.SyncItem, error) {
	if c.LocalVersion != nil && c.LocalVersion.Deleted {
		return nil, nil
	}
	if c.ServerVersion != nil && c.ServerVersion.Deleted {
		return nil, nil
	}
	return resolveServerWins(c)
}

// resolveDuplicates picks the representative of a group of sync items sharing
// one (message id, room id) key: last-write-wins by logical timestamp, not
// wall-clock arrival order. Ties keep the earlier-scanned item; either is an
// acceptable representative.
func resolveDuplicates(group []*models.SyncItem) (winner *models.SyncItem, losers []*models.SyncItem) {
	winner = group[0]
	for _, item := range group[1:] {
		if item.Timestamp > winner.Timestamp {
			losers = append(losers, winner)
			winner = item
		} else {
			losers = append(losers, item)
		}
	}
	return winner, losers
}
