package mcp

import (
	"context"
	"encoding/json"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podcaster/internal/logging"
	"podcaster/internal/producer"
	"podcaster/internal/testsupport"
)

func newTestServer(t *testing.T, replies ...string) *Server {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	svc, err := producer.New(cfg, testsupport.MustWorkspace(t, cfg), testsupport.NewStubCompleter(replies...), logging.NewNop())
	require.NoError(t, err)
	return New(svc, logging.NewNop(), "test")
}

func callRequest(name string, args map[string]any) mcplib.CallToolRequest {
	return mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func toolText(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	for _, c := range result.Content {
		if tc, ok := c.(mcplib.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("no text content in result")
	return ""
}

func TestPremiseToolReturnsPremiseAndFeed(t *testing.T) {
	s := newTestServer(t, `"Car Talk", "Call-in show about car mysteries."`)

	result, err := s.handlePremise(context.Background(), callRequest("podcast_premise", map[string]any{
		"request": "a podcast about old cars",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, toolText(t, result))

	var resp producer.PremiseResult
	require.NoError(t, json.Unmarshal([]byte(toolText(t, result)), &resp))
	assert.Equal(t, "Car Talk", resp.Premise.PodcastName)
	assert.Equal(t, "Car Talk", resp.Feed.Feed.Title)
	assert.True(t, resp.FeedCreated)
}

func TestToolsRequireRequestText(t *testing.T) {
	s := newTestServer(t)
	for _, handler := range []func(context.Context, mcplib.CallToolRequest) (*mcplib.CallToolResult, error){
		s.handlePremise, s.handleEpisodePremise, s.handleScript,
	} {
		result, err := handler(context.Background(), callRequest("x", map[string]any{}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Equal(t, "request is required", toolText(t, result))
	}
}

func TestScriptThenFeedRSS(t *testing.T) {
	s := newTestServer(t,
		`"Car Talk", "Call-in show about car mysteries."`,
		`"Sedan", "Stalls on left turns."`,
		`"script_text": "Welcome back. THE END."`,
	)
	ctx := context.Background()

	result, err := s.handleFeedRSS(ctx, callRequest("podcast_feed_rss", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.handleScript(ctx, callRequest("podcast_script", map[string]any{"request": "old cars"}))
	require.NoError(t, err)
	require.False(t, result.IsError, toolText(t, result))

	result, err = s.handleEpisodes(ctx, callRequest("podcast_episodes", map[string]any{"with_audio": false}))
	require.NoError(t, err)
	var listed struct {
		Episodes []struct {
			ID string `json:"id"`
		} `json:"episodes"`
	}
	require.NoError(t, json.Unmarshal([]byte(toolText(t, result)), &listed))
	assert.Len(t, listed.Episodes, 1)

	result, err = s.handleFeedRSS(ctx, callRequest("podcast_feed_rss", nil))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, toolText(t, result), "<title>Car Talk</title>")
}

func TestGenerationFailureIsToolError(t *testing.T) {
	s := newTestServer(t, `no object here`)
	result, err := s.handlePremise(context.Background(), callRequest("podcast_premise", map[string]any{"request": "cars"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(t, result), "invalid generation output")
}
