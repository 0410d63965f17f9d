package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/UkralStul/blog-service/internal/blog"
	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/identity"
	"github.com/UkralStul/blog-service/internal/policy"
	"github.com/UkralStul/blog-service/internal/storage/inmemory"
)

func newTestServer(t *testing.T) (*httptest.Server, *Handler) {
	t.Helper()
	store := inmemory.New()
	observer := NewCommentObserver()
	h := &Handler{
		Blog:     blog.New(store, blog.WithApprovalHook(observer.Notify)),
		Identity: identity.New(store, bcrypt.MinCost),
		Store:    store,
		Sessions: scs.New(),
		Observer: observer,
	}
	srv := httptest.NewServer(h.NewRouter())
	t.Cleanup(srv.Close)
	return srv, h
}

type testClient struct {
	t    *testing.T
	base string
	http *http.Client
}

func newClient(t *testing.T, srv *httptest.Server) *testClient {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testClient{
		t:    t,
		base: srv.URL,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// do выполняет запрос и декодирует JSON-ответ в out, если out != nil.
func (c *testClient) do(method, path string, body any, out any) *http.Response {
	c.t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, rdr)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

// doRaw отправляет тело как есть, без кодирования в JSON.
func (c *testClient) doRaw(method, path string, body []byte) *http.Response {
	c.t.Helper()
	req, err := http.NewRequest(method, c.base+path, bytes.NewReader(body))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	resp.Body.Close()
	return resp
}

func (c *testClient) registerAndLogin(username string) {
	c.t.Helper()
	resp := c.do(http.MethodPost, "/register", policy.Registration{
		FirstName: "First", LastName: "Last", Username: username,
		Email: username + "@example.com", Password: "password-" + username,
	}, nil)
	require.Equal(c.t, http.StatusCreated, resp.StatusCode)

	resp = c.do(http.MethodPost, "/login", credentials{Username: username, Password: "password-" + username}, nil)
	require.Equal(c.t, http.StatusOK, resp.StatusCode)
}

func TestAPI_PostAndCommentLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	alice := newClient(t, srv)
	alice.registerAndLogin("alice")
	bob := newClient(t, srv)
	bob.registerAndLogin("bob")
	anon := newClient(t, srv)

	var post domain.Post
	resp := alice.do(http.MethodPost, "/posts", postInput{Title: "Hello", Text: "World"}, &post)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Nil(t, post.PublishedDate)

	var drafts []domain.Post
	resp = bob.do(http.MethodGet, "/posts/drafts", nil, &drafts)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, drafts, 1)
	assert.Equal(t, post.ID, drafts[0].ID)

	var published []publishedPost
	anon.do(http.MethodGet, "/posts", nil, &published)
	assert.Empty(t, published)

	resp = alice.do(http.MethodPost, "/posts/"+post.ID+"/publish", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	anon.do(http.MethodGet, "/posts", nil, &published)
	require.Len(t, published, 1)
	assert.Equal(t, post.ID, published[0].ID)
	assert.Empty(t, published[0].ApprovedComments)

	var comment domain.Comment
	resp = bob.do(http.MethodPost, "/posts/"+post.ID+"/comments", commentInput{Text: "Nice post"}, &comment)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.False(t, comment.ApprovedComment)

	var detail blog.PostDetail
	anon.do(http.MethodGet, "/posts/"+post.ID, nil, &detail)
	assert.Empty(t, detail.Comments)
	alice.do(http.MethodGet, "/posts/"+post.ID, nil, &detail)
	require.Len(t, detail.Comments, 1)

	resp = alice.do(http.MethodPost, "/comments/"+comment.ID+"/approve", nil, &comment)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, comment.ApprovedComment)

	anon.do(http.MethodGet, "/posts", nil, &published)
	require.Len(t, published, 1)
	require.Len(t, published[0].ApprovedComments, 1)
	assert.Equal(t, comment.ID, published[0].ApprovedComments[0].ID)

	var removed map[string]string
	resp = bob.do(http.MethodDelete, "/comments/"+comment.ID, nil, &removed)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, post.ID, removed["post_id"])

	resp = alice.do(http.MethodDelete, "/posts/"+post.ID, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = anon.do(http.MethodGet, "/posts/"+post.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_AuthenticationRequired(t *testing.T) {
	srv, _ := newTestServer(t)
	anon := newClient(t, srv)

	var body errorBody
	resp := anon.do(http.MethodPost, "/posts", postInput{Title: "Hello", Text: "World"}, &body)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, loginURL, body.LoginURL)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/posts/drafts", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/html")
	resp, err = anon.http.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/login?next="))
}

func TestAPI_ErrorsMapping(t *testing.T) {
	srv, _ := newTestServer(t)
	alice := newClient(t, srv)
	alice.registerAndLogin("alice")
	bob := newClient(t, srv)
	bob.registerAndLogin("bob")

	var post domain.Post
	alice.do(http.MethodPost, "/posts", postInput{Title: "Hello", Text: "World"}, &post)

	resp := bob.do(http.MethodPut, "/posts/"+post.ID, postInput{Title: "Mine now", Text: "text"}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var body errorBody
	resp = alice.do(http.MethodPut, "/posts/"+post.ID, postInput{Title: strings.Repeat("x", 101), Text: "text"}, &body)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body.Fields, "title")

	resp = alice.do(http.MethodPost, "/posts/missing/publish", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = alice.do(http.MethodPost, "/comments/missing/approve", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_RegisterAndLogin(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newClient(t, srv)
	c.registerAndLogin("alice")

	var me userView
	resp := c.do(http.MethodGet, "/me", nil, &me)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", me.Username)

	var body errorBody
	resp = c.do(http.MethodPost, "/register", policy.Registration{
		FirstName: "Other", LastName: "Person", Username: "alice",
		Email: "other@example.com", Password: "secret",
	}, &body)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body.Fields, "username")

	resp = c.do(http.MethodPost, "/logout", nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = c.do(http.MethodGet, "/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = c.do(http.MethodPost, "/login", credentials{Username: "alice", Password: "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_CommentFeed(t *testing.T) {
	srv, h := newTestServer(t)
	alice := newClient(t, srv)
	alice.registerAndLogin("alice")

	var post domain.Post
	alice.do(http.MethodPost, "/posts", postInput{Title: "Hello", Text: "World"}, &post)
	var comment domain.Comment
	alice.do(http.MethodPost, "/posts/"+post.ID+"/comments", commentInput{Text: "Nice post"}, &comment)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/posts/" + post.ID + "/comments"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, 1, h.Observer.Subscribers(post.ID))

	resp := alice.do(http.MethodPost, "/comments/"+comment.ID+"/approve", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var got domain.Comment
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, comment.ID, got.ID)
	assert.True(t, got.ApprovedComment)

	// Повторное одобрение не рассылается: следующим кадром придет второй комментарий
	resp = alice.do(http.MethodPost, "/comments/"+comment.ID+"/approve", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var second domain.Comment
	alice.do(http.MethodPost, "/posts/"+post.ID+"/comments", commentInput{Text: "Second"}, &second)
	resp = alice.do(http.MethodPost, "/comments/"+second.ID+"/approve", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, second.ID, got.ID)

	_, _, err = websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/posts/missing/comments", nil)
	assert.Error(t, err)
}

func TestAPI_MalformedBodyErrorPrecedence(t *testing.T) {
	srv, _ := newTestServer(t)
	alice := newClient(t, srv)
	alice.registerAndLogin("alice")
	bob := newClient(t, srv)
	bob.registerAndLogin("bob")

	var post domain.Post
	alice.do(http.MethodPost, "/posts", postInput{Title: "Hello", Text: "World"}, &post)

	garbage := []byte("{not json")
	tests := []struct {
		name   string
		client *testClient
		method string
		path   string
		status int
	}{
		{"update unknown post", alice, http.MethodPut, "/posts/missing", http.StatusNotFound},
		{"update foreign post", bob, http.MethodPut, "/posts/" + post.ID, http.StatusForbidden},
		{"update own post", alice, http.MethodPut, "/posts/" + post.ID, http.StatusUnprocessableEntity},
		{"comment on unknown post", bob, http.MethodPost, "/posts/missing/comments", http.StatusNotFound},
		{"comment on existing post", bob, http.MethodPost, "/posts/" + post.ID + "/comments", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := tt.client.doRaw(tt.method, tt.path, garbage)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestDecodeJSON_BodyTooLarge(t *testing.T) {
	huge := `{"title":"Hello","text":"` + strings.Repeat("a", maxBodyBytes+1) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/posts", strings.NewReader(huge))
	rec := httptest.NewRecorder()

	var in postInput
	err := decodeJSON(rec, req, &in)
	require.ErrorIs(t, err, errBodyTooLarge)

	respondError(rec, req, err)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
