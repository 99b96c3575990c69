// Code generated manually in mockery style; keep in sync with the Directory interface.
package mocks

import (
	"context"

	"github.com/skyvale/cloudpoints/pkg/directory"
	"github.com/skyvale/cloudpoints/pkg/models"
	"github.com/stretchr/testify/mock"
)

// Directory is a mock implementation of directory.Directory.
type Directory struct {
	mock.Mock
}

func (m *Directory) FetchUserProfile(ctx context.Context, accountID string) (*models.Profile, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *Directory) SendDirectMessage(ctx context.Context, accountID string, content string) error {
	args := m.Called(ctx, accountID, content)
	return args.Error(0)
}

func (m *Directory) FindAttachment(ctx context.Context, channelID string, filename string) (*directory.Attachment, error) {
	args := m.Called(ctx, channelID, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*directory.Attachment), args.Error(1)
}

func (m *Directory) DownloadAttachment(ctx context.Context, attachment *directory.Attachment) ([]byte, error) {
	args := m.Called(ctx, attachment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *Directory) UploadAttachment(ctx context.Context, channelID string, filename string, content []byte) error {
	args := m.Called(ctx, channelID, filename, content)
	return args.Error(0)
}

func (m *Directory) DeleteMessage(ctx context.Context, channelID string, messageID string) error {
	args := m.Called(ctx, channelID, messageID)
	return args.Error(0)
}
