package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/skyvale/cloudpoints/pkg/directory"
	"github.com/skyvale/cloudpoints/pkg/ledger/snapshot"
)

// ChannelStore persists the ledger snapshot as a single named attachment in a
// directory channel. The directory has no partial-update primitive, so a
// write deletes the previous snapshot message and uploads a fresh one.
type ChannelStore struct {
	Directory directory.Directory
	ChannelID string
	Filename  string
}

// NewChannelStore creates a ChannelStore for the given channel.
func NewChannelStore(dir directory.Directory, channelID string) *ChannelStore {
	return &ChannelStore{
		Directory: dir,
		ChannelID: channelID,
		Filename:  snapshot.Filename,
	}
}

// Make sure we conform to the interface
var _ SnapshotStore = (*ChannelStore)(nil)

// ReadSnapshot locates, downloads and parses the latest stored snapshot.
// A channel with no snapshot yet yields an empty ledger.
func (s *ChannelStore) ReadSnapshot(ctx context.Context) (map[string]int64, error) {
	attachment, err := s.Directory.FindAttachment(ctx, s.ChannelID, s.Filename)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return make(map[string]int64), nil
		}
		return nil, fmt.Errorf("failed to locate snapshot attachment: %w", err)
	}

	content, err := s.Directory.DownloadAttachment(ctx, attachment)
	if err != nil {
		return nil, fmt.Errorf("failed to download snapshot attachment: %w", err)
	}

	return snapshot.Parse(content), nil
}

// WriteSnapshot deletes the prior snapshot message and uploads the new one.
func (s *ChannelStore) WriteSnapshot(ctx context.Context, balances map[string]int64) error {
	previous, err := s.Directory.FindAttachment(ctx, s.ChannelID, s.Filename)
	if err != nil && !errors.Is(err, directory.ErrNotFound) {
		return fmt.Errorf("failed to locate previous snapshot: %w", err)
	}

	if previous != nil {
		if err := s.Directory.DeleteMessage(ctx, s.ChannelID, previous.MessageID); err != nil {
			// A leftover old snapshot is tolerable; reads pick the newest match.
			slog.Warn("failed to delete previous snapshot message", "message_id", previous.MessageID, "error", err)
		}
	}

	if err := s.Directory.UploadAttachment(ctx, s.ChannelID, s.Filename, snapshot.Format(balances)); err != nil {
		return fmt.Errorf("failed to upload snapshot: %w", err)
	}
	return nil
}
