package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*DiscordClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewDiscordClient("test-token", 2*time.Second)
	client.BaseURL = server.URL
	client.CDNURL = server.URL
	return client, server
}

func TestFetchUserProfile(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/users/123456", r.URL.Path)
			assert.Equal(t, "Bot test-token", r.Header.Get("Authorization"))
			json.NewEncoder(w).Encode(map[string]string{
				"id":          "123456",
				"username":    "steve",
				"global_name": "Steve",
				"avatar":      "abc123",
			})
		}))

		profile, err := client.FetchUserProfile(context.Background(), "123456")
		require.NoError(t, err)
		assert.Equal(t, "123456", profile.AccountID)
		assert.Equal(t, "Steve", profile.Username)
		assert.Contains(t, profile.AvatarURL, "/avatars/123456/abc123.png")
	})

	t.Run("Not Found", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))

		_, err := client.FetchUserProfile(context.Background(), "999")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Default Avatar", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"id": "123456", "username": "steve"})
		}))

		profile, err := client.FetchUserProfile(context.Background(), "123456")
		require.NoError(t, err)
		assert.Contains(t, profile.AvatarURL, "/embed/avatars/")
	})
}

func TestSendDirectMessage(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		var gotContent string
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/users/@me/channels":
				var body map[string]string
				json.NewDecoder(r.Body).Decode(&body)
				assert.Equal(t, "123456", body["recipient_id"])
				json.NewEncoder(w).Encode(map[string]string{"id": "dm-channel"})
			case "/channels/dm-channel/messages":
				var body map[string]string
				json.NewDecoder(r.Body).Decode(&body)
				gotContent = body["content"]
				json.NewEncoder(w).Encode(map[string]string{"id": "msg-1"})
			default:
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
		}))

		err := client.SendDirectMessage(context.Background(), "123456", "hello")
		require.NoError(t, err)
		assert.Equal(t, "hello", gotContent)
	})

	t.Run("Forbidden", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/users/@me/channels" {
				json.NewEncoder(w).Encode(map[string]string{"id": "dm-channel"})
				return
			}
			w.WriteHeader(http.StatusForbidden)
		}))

		err := client.SendDirectMessage(context.Background(), "123456", "hello")
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestFindAndDownloadAttachment(t *testing.T) {
	var serverURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/channels/777/messages", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "msg-2", "attachments": []map[string]any{
				{"id": "a2", "filename": "cloud_points.txt", "size": 12, "url": serverURL + "/files/a2"},
			}},
			{"id": "msg-1", "attachments": []map[string]any{
				{"id": "a1", "filename": "other.txt", "size": 3, "url": serverURL + "/files/a1"},
			}},
		})
	})
	mux.HandleFunc("/files/a2", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("111:5\n"))
	})
	client, server := newTestClient(t, mux)
	serverURL = server.URL

	attachment, err := client.FindAttachment(context.Background(), "777", "cloud_points.txt")
	require.NoError(t, err)
	assert.Equal(t, "msg-2", attachment.MessageID)

	content, err := client.DownloadAttachment(context.Background(), attachment)
	require.NoError(t, err)
	assert.Equal(t, "111:5\n", string(content))
}

func TestFindAttachmentMissing(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{})
	}))

	_, err := client.FindAttachment(context.Background(), "777", "cloud_points.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUploadAttachment(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("files[0]")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "cloud_points.txt", header.Filename)
		w.WriteHeader(http.StatusOK)
	}))

	err := client.UploadAttachment(context.Background(), "777", "cloud_points.txt", []byte("111:5\n"))
	assert.NoError(t, err)
}

func TestDeleteMessage(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/channels/777/messages/msg-1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))

	assert.NoError(t, client.DeleteMessage(context.Background(), "777", "msg-1"))
}
