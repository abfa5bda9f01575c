package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging_go/internal/config"
	"messaging_go/internal/domain"
	"messaging_go/internal/notify"
	"messaging_go/internal/security"
	"messaging_go/internal/service"
	"messaging_go/internal/store/sqlite"
	"messaging_go/internal/ws"
)

type apiFixture struct {
	server *httptest.Server
	tokens *security.TokenService
	svc    *service.MessagingService
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, sqlite.Migrate(db))
	t.Cleanup(func() { db.Close() })

	for _, u := range []struct {
		id   int64
		name string
	}{{1, "Alice"}, {2, "Bob"}} {
		_, err := db.Exec(`INSERT INTO users (id, display_name) VALUES (?, ?)`, u.id, u.name)
		require.NoError(t, err)
	}

	users := sqlite.NewUserDirectory(db)
	svc := service.NewMessagingService(
		sqlite.NewConversationRepo(db),
		sqlite.NewParticipantRepo(db),
		sqlite.NewMessageRepo(db),
		users,
	)
	tokens := security.NewTokenService("test-secret", time.Minute)
	cfg := &config.Config{
		CORSOrigins: []string{"*"},
		UploadDir:   t.TempDir(),
	}
	gw := ws.NewGateway(ws.NewHub(), svc, nil, &notify.LogNotifier{}, users)
	srv := httptest.NewServer(NewRouter(cfg, svc, gw, tokens, users))
	t.Cleanup(srv.Close)

	return &apiFixture{server: srv, tokens: tokens, svc: svc}
}

func (f *apiFixture) request(t *testing.T, method, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.server.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAPIRequiresAuth(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.request(t, http.MethodGet, "/api/conversations", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.request(t, http.MethodGet, "/api/conversations", "garbage-token")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestListConversationsAndMessages(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	conv, err := f.svc.FindOrCreateConversation(ctx, 1, 2, domain.KindClientOperator)
	require.NoError(t, err)
	_, err = f.svc.SendMessage(ctx, service.SendMessageInput{
		ConversationID: conv.ID, SenderID: 2, Content: "hello alice", Type: domain.MessageText,
	})
	require.NoError(t, err)

	token, err := f.tokens.CreateForUser(1)
	require.NoError(t, err)

	resp := f.request(t, http.MethodGet, "/api/conversations", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summaries []*domain.ConversationSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, conv.ID, summaries[0].ConversationID)
	assert.Equal(t, 1, summaries[0].UnreadCount)
	require.NotNil(t, summaries[0].LastMessage)
	assert.Equal(t, "hello alice", *summaries[0].LastMessage)

	resp = f.request(t, http.MethodGet, "/api/conversations/"+itoa(conv.ID)+"/messages", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var msgs []*service.MessageResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello alice", msgs[0].Content)
	assert.False(t, msgs[0].IsRead)

	resp = f.request(t, http.MethodPost, "/api/messages/"+itoa(msgs[0].ID)+"/read", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var read domain.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&read))
	assert.True(t, read.IsRead)
}

func TestListMessagesUnknownConversation(t *testing.T) {
	f := newAPIFixture(t)
	token, err := f.tokens.CreateForUser(1)
	require.NoError(t, err)

	resp := f.request(t, http.MethodGet, "/api/conversations/9999/messages", token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMarkConversationSeen(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()
	conv, err := f.svc.FindOrCreateConversation(ctx, 1, 2, domain.KindClientOperator)
	require.NoError(t, err)
	token, err := f.tokens.CreateForUser(1)
	require.NoError(t, err)

	resp := f.request(t, http.MethodPost, "/api/conversations/"+itoa(conv.ID)+"/read", token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.request(t, http.MethodPost, "/api/conversations/9999/read", token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
