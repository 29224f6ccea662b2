package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"feedback-service/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) config.UploadConfig {
	return config.UploadConfig{
		CloudName: "demo",
		APIKey:    "key",
		APISecret: "secret",
		Folder:    "profiles",
		BaseURL:   baseURL,
	}
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(testConfig(baseURL), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(config.UploadConfig{CloudName: "demo"}, slog.Default())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestUpload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/v1_1/demo/"), r.URL.Path)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/upload"), r.URL.Path)

		assert.Equal(t, "key", r.FormValue("api_key"))
		assert.Equal(t, "user_1_abc", r.FormValue("public_id"))
		assert.Equal(t, "profiles", r.FormValue("folder"))
		assert.NotEmpty(t, r.FormValue("timestamp"))
		assert.NotEmpty(t, r.FormValue("signature"))

		file, _, err := r.FormFile("file")
		if assert.NoError(t, err) {
			content, _ := io.ReadAll(file)
			assert.Equal(t, "png-bytes", string(content))
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"public_id":"profiles/user_1_abc","secure_url":"https://res.cloudinary.com/demo/image/upload/v1/profiles/user_1_abc.png"}`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	url, err := c.Upload(context.Background(), strings.NewReader("png-bytes"), "user_1_abc")
	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/v1/profiles/user_1_abc.png", url)
}

func TestUploadRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Invalid Signature"}}`)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Upload(context.Background(), strings.NewReader("x"), "id")
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	var result string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/v1_1/demo/"), r.URL.Path)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/destroy"), r.URL.Path)
		assert.Equal(t, "profiles/user_1_abc", r.FormValue("public_id"))
		assert.NotEmpty(t, r.FormValue("signature"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"result":%q}`, result)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	imageURL := "https://res.cloudinary.com/demo/image/upload/v1/profiles/user_1_abc.png"

	result = "ok"
	require.NoError(t, c.Delete(context.Background(), imageURL))

	result = "not found"
	assert.Error(t, c.Delete(context.Background(), imageURL))

	assert.Error(t, c.Delete(context.Background(), "https://example.com/pic.png"))
}

func TestPublicIDFromURL(t *testing.T) {
	cases := map[string]string{
		"https://res.cloudinary.com/demo/image/upload/v1712/profiles/user_1_x.jpg": "profiles/user_1_x",
		"https://res.cloudinary.com/demo/image/upload/user_2_y.png":                "user_2_y",
		"https://res.cloudinary.com/demo/image/upload/v3/a/b/c.webp":               "a/b/c",
	}
	for in, want := range cases {
		got, err := PublicIDFromURL(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := PublicIDFromURL("https://example.com/pic.png")
	assert.Error(t, err)
}
