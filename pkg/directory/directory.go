package directory

import (
	"context"
	"errors"

	"github.com/skyvale/cloudpoints/pkg/models"
)

// ErrNotFound is returned when the directory has no such account, channel or attachment.
var ErrNotFound = errors.New("not found in directory")

// ErrForbidden is returned when the directory refuses an operation, e.g. a DM to a user who blocks them.
var ErrForbidden = errors.New("directory operation forbidden")

// ErrUnavailable is returned when the directory cannot be reached or answers with a server error.
var ErrUnavailable = errors.New("directory unavailable")

// Attachment describes a file stored in a directory channel.
type Attachment struct {
	MessageID string
	Filename  string
	URL       string
	Size      int64
}

// Directory defines the messaging-directory operations the shop depends on:
// identity lookup, out-of-band credential delivery, and channel-attachment
// storage for the ledger snapshot.
type Directory interface {
	// FetchUserProfile resolves an account's display identity.
	FetchUserProfile(ctx context.Context, accountID string) (*models.Profile, error)

	// SendDirectMessage delivers content to the account's DM channel.
	SendDirectMessage(ctx context.Context, accountID string, content string) error

	// FindAttachment locates the newest attachment with the given filename in a channel.
	FindAttachment(ctx context.Context, channelID string, filename string) (*Attachment, error)

	// DownloadAttachment fetches an attachment's content.
	DownloadAttachment(ctx context.Context, attachment *Attachment) ([]byte, error)

	// UploadAttachment stores content as a new attachment message in a channel.
	UploadAttachment(ctx context.Context, channelID string, filename string, content []byte) error

	// DeleteMessage removes a message (and its attachments) from a channel.
	DeleteMessage(ctx context.Context, channelID string, messageID string) error
}
