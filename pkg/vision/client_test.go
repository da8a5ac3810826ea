package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteSendsChatRequest(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"selected\":[\"日落\"],\"suggested\":[]}"}}]}`))
	}))
	defer server.Close()

	client := NewClient()
	reply, err := client.Complete(context.Background(), Credentials{
		APIKey:   "sk-test",
		Model:    "gpt-4o-mini",
		Endpoint: server.URL,
	}, []Message{
		{Role: "user", Content: []ContentPart{TextPart("describe")}},
	})

	require.NoError(t, err)
	assert.Equal(t, `{"selected":["日落"],"suggested":[]}`, reply)
	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotBody.Model)
	require.Len(t, gotBody.Messages, 1)
	assert.Equal(t, "describe", gotBody.Messages[0].Content[0].Text)
}

func TestCompleteTrimsEndpointSlash(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	client := NewClient()
	_, err := client.Complete(context.Background(), Credentials{APIKey: "k", Endpoint: server.URL + "/"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "/chat/completions", gotPath)
}

func TestCompleteNon200ReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	}))
	defer server.Close()

	client := NewClient()
	_, err := client.Complete(context.Background(), Credentials{APIKey: "bad", Endpoint: server.URL}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key", "错误应携带响应体以便排查")
}

func TestCompleteNoChoicesReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewClient()
	_, err := client.Complete(context.Background(), Credentials{APIKey: "k", Endpoint: server.URL}, nil)
	assert.Error(t, err)
}

func TestCompleteContentAsPartsArray(t *testing.T) {
	// 部分兼容实现把 content 返回为分片数组而不是字符串
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":[{"type":"text","text":""},{"type":"text","text":"你好"}]}}]}`))
	}))
	defer server.Close()

	client := NewClient()
	reply, err := client.Complete(context.Background(), Credentials{APIKey: "k", Endpoint: server.URL}, nil)
	require.NoError(t, err)
	assert.Equal(t, "你好", reply)
}

func TestImagePartBuildsDataURL(t *testing.T) {
	part := ImagePart("image/png", []byte{0x89, 0x50})
	require.NotNil(t, part.ImageURL)
	assert.Equal(t, "image_url", part.Type)
	assert.True(t, strings.HasPrefix(part.ImageURL.URL, "data:image/png;base64,"))
}

func TestFirstText(t *testing.T) {
	assert.Equal(t, "hello", firstText(json.RawMessage(`"hello"`)))
	assert.Equal(t, "", firstText(nil))
	assert.Equal(t, "", firstText(json.RawMessage(`123`)))
	assert.Equal(t, "second", firstText(json.RawMessage(`[{"type":"text","text":"  "},{"type":"text","text":"second"}]`)))
}
