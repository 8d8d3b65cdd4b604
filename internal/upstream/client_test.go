package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandalnilabja/pollinate/internal/types"
)

// fixedSeeds returns the queued values in order.
type fixedSeeds struct {
	values []int
	calls  int
}

func (f *fixedSeeds) IntN(n int) int {
	v := f.values[f.calls%len(f.values)]
	f.calls++
	return v % n
}

func TestBuildBody_UserOnly(t *testing.T) {
	c := NewClient("http://upstream.test", WithSeedSource(&fixedSeeds{values: []int{42}}))

	body := c.BuildBody(types.ChatRequest{InputCode: "write a haiku", Model: "llama"})

	require.Len(t, body.Messages, 1)
	assert.Equal(t, types.RoleUser, body.Messages[0].Role)
	assert.Equal(t, "write a haiku", body.Messages[0].Content.Text)
	assert.Equal(t, "llama", body.Model)
	require.NotNil(t, body.Seed)
	assert.Equal(t, 42, *body.Seed)
	assert.False(t, body.JSONMode)
}

func TestBuildBody_SystemPromptFirst(t *testing.T) {
	c := NewClient("http://upstream.test")

	body := c.BuildBody(types.ChatRequest{
		InputCode:    "hello",
		SystemPrompt: "you are terse",
		JSONMode:     true,
	})

	require.Len(t, body.Messages, 2)
	assert.Equal(t, types.RoleSystem, body.Messages[0].Role)
	assert.Equal(t, "you are terse", body.Messages[0].Content.Text)
	assert.Equal(t, types.RoleUser, body.Messages[1].Role)
	assert.Equal(t, "hello", body.Messages[1].Content.Text)
	assert.True(t, body.JSONMode)
}

func TestBuildBody_DefaultModel(t *testing.T) {
	c := NewClient("http://upstream.test")
	body := c.BuildBody(types.ChatRequest{InputCode: "hi"})
	assert.Equal(t, types.DefaultModel, body.Model)
}

func TestBuildBody_FreshSeedPerCall(t *testing.T) {
	seeds := &fixedSeeds{values: []int{7, 99999}}
	c := NewClient("http://upstream.test", WithSeedSource(seeds))

	req := types.ChatRequest{InputCode: "same prompt"}
	first := c.BuildBody(req)
	second := c.BuildBody(req)

	assert.Equal(t, 2, seeds.calls)
	assert.NotEqual(t, *first.Seed, *second.Seed)
}

func TestBuildBody_SeedRange(t *testing.T) {
	c := NewClient("http://upstream.test", WithSeedSource(rand.New(rand.NewPCG(1, 2))))

	for i := 0; i < 1000; i++ {
		body := c.BuildBody(types.ChatRequest{InputCode: "x"})
		require.NotNil(t, body.Seed)
		assert.GreaterOrEqual(t, *body.Seed, 0)
		assert.Less(t, *body.Seed, MaxSeed)
	}
}

func TestBuildBody_WireFormat(t *testing.T) {
	c := NewClient("http://upstream.test", WithSeedSource(&fixedSeeds{values: []int{5}}))

	raw, err := json.Marshal(c.BuildBody(types.ChatRequest{InputCode: "hi", Model: "mistral"}))
	require.NoError(t, err)

	assert.JSONEq(t,
		`{"messages":[{"role":"user","content":"hi"}],"model":"mistral","seed":5,"jsonMode":false}`,
		string(raw))
}

func TestSend_PostsJSON(t *testing.T) {
	var (
		gotMethod string
		gotType   string
		gotBody   types.UpstreamRequestBody
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	resp, err := c.Send(context.Background(), types.ChatRequest{InputCode: "ping", SystemPrompt: "sys"})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotType)
	require.Len(t, gotBody.Messages, 2)
	assert.Equal(t, "sys", gotBody.Messages[0].Content.Text)
	assert.Equal(t, "ping", gotBody.Messages[1].Content.Text)

	// The body is handed back unread.
	text, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(text))
}

func TestSend_EmptyPrompt(t *testing.T) {
	c := NewClient("http://upstream.test")
	_, err := c.Send(context.Background(), types.ChatRequest{})
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestSend_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url)
	_, err := c.Send(context.Background(), types.ChatRequest{InputCode: "hi"})

	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr), "expected ConnectionError, got %v", err)
	assert.Equal(t, url, connErr.URL)
}

func TestSend_DoesNotInterpretErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).Send(context.Background(), types.ChatRequest{InputCode: "hi"})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}
