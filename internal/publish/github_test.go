package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestCreateRelease posts the release payload and decodes the response.
func TestCreateRelease(t *testing.T) {
	t.Parallel()

	var captured map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/repos/acme/api/releases", r.URL.Path)
		require.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{
			"id": 42,
			"upload_url": "%s/uploads/42/assets{?name,label}",
			"html_url": "https://github.com/acme/api/releases/tag/v1.2.3"
		}`, "http://"+r.Host)
	}))
	defer server.Close()

	client := NewGitHub("token-123", WithBaseURL(server.URL))

	release, err := client.CreateRelease(context.Background(), ReleaseInput{
		Owner:      "acme",
		Repo:       "api",
		TagName:    "v1.2.3",
		Name:       "v1.2.3",
		Body:       "* fix things",
		Prerelease: true,
	})
	require.NoError(t, err)
	require.Equal(t, int64(42), release.ID)
	require.Contains(t, release.UploadURL, "{?name,label}")

	require.Equal(t, "v1.2.3", captured["tag_name"])
	require.Equal(t, "* fix things", captured["body"])
	require.Equal(t, false, captured["draft"])
	require.Equal(t, true, captured["prerelease"])
}

// TestCreateRelease_ErrorStatus surfaces the API error body.
func TestCreateRelease_ErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message":"Validation Failed"}`)
	}))
	defer server.Close()

	client := NewGitHub("token-123", WithBaseURL(server.URL))

	_, err := client.CreateRelease(context.Background(), ReleaseInput{Owner: "acme", Repo: "api", TagName: "v1.0.0"})
	require.ErrorIs(t, err, ErrUnexpectedStatus)
	require.ErrorContains(t, err, "Validation Failed")
}

// TestCreateRelease_MissingToken fails before any request is made.
func TestCreateRelease_MissingToken(t *testing.T) {
	t.Parallel()

	_, err := NewGitHub("").CreateRelease(context.Background(), ReleaseInput{})
	require.ErrorIs(t, err, ErrMissingToken)
}

// TestUploadAsset strips the hypermedia template and streams the file.
func TestUploadAsset(t *testing.T) {
	t.Parallel()

	assetPath := filepath.Join(t.TempDir(), "api-1.2.3-native.tar.gz")
	require.NoError(t, os.WriteFile(assetPath, []byte("archive bytes"), 0o644))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/uploads/42/assets", r.URL.Path)
		require.Equal(t, "api-1.2.3-native.tar.gz", r.URL.Query().Get("name"))
		require.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.Equal(t, "archive bytes", string(body))

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 7}`)
	}))
	defer server.Close()

	client := NewGitHub("token-123")

	err := client.UploadAsset(context.Background(), server.URL+"/uploads/42/assets{?name,label}", assetPath)
	require.NoError(t, err)
}

// TestParseRepoURL covers https and ssh remote forms.
func TestParseRepoURL(t *testing.T) {
	t.Parallel()

	owner, repo, err := ParseRepoURL("https://github.com/acme/api.git")
	require.NoError(t, err)
	require.Equal(t, "acme", owner)
	require.Equal(t, "api", repo)

	owner, repo, err = ParseRepoURL("git@github.com:acme/api.git")
	require.NoError(t, err)
	require.Equal(t, "acme", owner)
	require.Equal(t, "api", repo)

	_, _, err = ParseRepoURL("not-a-url")
	require.Error(t, err)
}
