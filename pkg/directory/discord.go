package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/skyvale/cloudpoints/pkg/models"
)

const defaultBaseURL = "https://discord.com/api/v10"

// attachmentSearchLimit bounds how far back we look for the snapshot message.
const attachmentSearchLimit = 100

// DiscordClient implements Directory against the Discord REST API using a bot token.
type DiscordClient struct {
	Token   string
	BaseURL string
	CDNURL  string

	httpClient *http.Client
}

// NewDiscordClient creates a DiscordClient with a bounded request timeout.
func NewDiscordClient(token string, timeout time.Duration) *DiscordClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &DiscordClient{
		Token:      token,
		BaseURL:    defaultBaseURL,
		CDNURL:     "https://cdn.discordapp.com",
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Make sure we conform to the interface
var _ Directory = (*DiscordClient)(nil)

type discordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Avatar     string `json:"avatar"`
}

type discordMessage struct {
	ID          string              `json:"id"`
	Attachments []discordAttachment `json:"attachments"`
}

type discordAttachment struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
}

// FetchUserProfile resolves an account via GET /users/{id}.
func (c *DiscordClient) FetchUserProfile(ctx context.Context, accountID string) (*models.Profile, error) {
	var user discordUser
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/users/%s", accountID), nil, &user); err != nil {
		return nil, fmt.Errorf("failed to fetch user %s: %w", accountID, err)
	}

	username := user.GlobalName
	if username == "" {
		username = user.Username
	}

	return &models.Profile{
		AccountID: user.ID,
		Username:  username,
		AvatarURL: c.avatarURL(&user),
	}, nil
}

// SendDirectMessage opens (or reuses) the account's DM channel and posts content to it.
func (c *DiscordClient) SendDirectMessage(ctx context.Context, accountID string, content string) error {
	var channel struct {
		ID string `json:"id"`
	}
	body := map[string]string{"recipient_id": accountID}
	if err := c.doJSON(ctx, http.MethodPost, "/users/@me/channels", body, &channel); err != nil {
		return fmt.Errorf("failed to open DM channel for %s: %w", accountID, err)
	}

	message := map[string]string{"content": content}
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/channels/%s/messages", channel.ID), message, nil); err != nil {
		return fmt.Errorf("failed to send DM to %s: %w", accountID, err)
	}

	return nil
}

// FindAttachment scans recent channel messages for the newest attachment with the given filename.
func (c *DiscordClient) FindAttachment(ctx context.Context, channelID string, filename string) (*Attachment, error) {
	var messages []discordMessage
	path := fmt.Sprintf("/channels/%s/messages?limit=%d", channelID, attachmentSearchLimit)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, fmt.Errorf("failed to list channel %s messages: %w", channelID, err)
	}

	// Messages come newest-first, so the first match is the latest snapshot.
	for _, message := range messages {
		for _, attachment := range message.Attachments {
			if attachment.Filename == filename {
				return &Attachment{
					MessageID: message.ID,
					Filename:  attachment.Filename,
					URL:       attachment.URL,
					Size:      attachment.Size,
				}, nil
			}
		}
	}

	return nil, fmt.Errorf("attachment %s in channel %s: %w", filename, channelID, ErrNotFound)
}

// DownloadAttachment fetches the attachment content from its CDN URL.
func (c *DiscordClient) DownloadAttachment(ctx context.Context, attachment *Attachment) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, attachment.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build attachment request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download attachment %s: %w", attachment.Filename, errUnavailable(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("attachment %s download returned status %d: %w", attachment.Filename, resp.StatusCode, statusError(resp.StatusCode))
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment %s: %w", attachment.Filename, err)
	}
	return content, nil
}

// UploadAttachment posts content as a multipart file message to the channel.
func (c *DiscordClient) UploadAttachment(ctx context.Context, channelID string, filename string, content []byte) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("files[0]", filename)
	if err != nil {
		return fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return fmt.Errorf("failed to write multipart content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	url := fmt.Sprintf("%s/channels/%s/messages", c.BaseURL, channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.Token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload %s to channel %s: %w", filename, channelID, errUnavailable(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("upload of %s returned status %d: %w", filename, resp.StatusCode, statusError(resp.StatusCode))
	}
	return nil
}

// DeleteMessage removes a channel message.
func (c *DiscordClient) DeleteMessage(ctx context.Context, channelID string, messageID string) error {
	path := fmt.Sprintf("/channels/%s/messages/%s", channelID, messageID)
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("failed to delete message %s in channel %s: %w", messageID, channelID, err)
	}
	return nil
}

// doJSON executes a JSON request against the directory API and decodes the
// response into out when non-nil.
func (c *DiscordClient) doJSON(ctx context.Context, method string, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errUnavailable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("directory returned status %d: %w", resp.StatusCode, statusError(resp.StatusCode))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode directory response: %w", err)
		}
	}
	return nil
}

func (c *DiscordClient) avatarURL(user *discordUser) string {
	if user.Avatar != "" {
		return fmt.Sprintf("%s/avatars/%s/%s.png", c.CDNURL, user.ID, user.Avatar)
	}
	// Default avatar index derived from the snowflake, matching the client UI.
	id, err := strconv.ParseUint(user.ID, 10, 64)
	if err != nil {
		id = 0
	}
	return fmt.Sprintf("%s/embed/avatars/%d.png", c.CDNURL, (id>>22)%6)
}

func statusError(status int) error {
	switch {
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusForbidden:
		return ErrForbidden
	default:
		return ErrUnavailable
	}
}

func errUnavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
