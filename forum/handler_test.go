package forum

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	router := gin.New()
	_, err = RegisterRoutes(router, db)
	require.NoError(t, err)

	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createPost(t *testing.T, router *gin.Engine) Post {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/forum/posts",
		`{"title": "My first chapter", "content": "feedback welcome", "author": "ink-and-tone"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var post Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &post))
	require.NotEmpty(t, post.ID)
	return post
}

func TestCreateAndGetPost(t *testing.T) {
	router := newTestRouter(t)
	post := createPost(t, router)

	rec := doJSON(t, router, http.MethodGet, "/forum/posts/"+post.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "My first chapter", got.Title)
	assert.Equal(t, "ink-and-tone", got.Author)
	assert.NotNil(t, got.Comments)
	assert.Empty(t, got.Comments)
}

func TestCreatePostValidation(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/forum/posts", `{"content": "no title or author"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddComment(t *testing.T) {
	router := newTestRouter(t)
	post := createPost(t, router)

	rec := doJSON(t, router, http.MethodPost, "/forum/posts/"+post.ID+"/comments",
		`{"content": "love the pacing", "author": "panel-fan"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var comment Comment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &comment))
	assert.Equal(t, post.ID, comment.PostID)

	got := doJSON(t, router, http.MethodGet, "/forum/posts/"+post.ID, "")
	require.Equal(t, http.StatusOK, got.Code)
	var full Post
	require.NoError(t, json.Unmarshal(got.Body.Bytes(), &full))
	require.Len(t, full.Comments, 1)
	assert.Equal(t, "love the pacing", full.Comments[0].Content)
}

func TestAddCommentToMissingPost(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/forum/posts/missing/comments",
		`{"content": "hello", "author": "someone"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLikePost(t *testing.T) {
	router := newTestRouter(t)
	post := createPost(t, router)

	for i := 1; i <= 3; i++ {
		rec := doJSON(t, router, http.MethodPost, "/forum/posts/"+post.ID+"/like", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]int64
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, int64(i), body["likes"])
	}

	rec := doJSON(t, router, http.MethodPost, "/forum/posts/missing/like", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListPostsNewestFirst(t *testing.T) {
	router := newTestRouter(t)

	first := doJSON(t, router, http.MethodPost, "/forum/posts",
		`{"title": "older", "author": "a"}`)
	require.Equal(t, http.StatusCreated, first.Code)
	second := doJSON(t, router, http.MethodPost, "/forum/posts",
		`{"title": "newer", "author": "b"}`)
	require.Equal(t, http.StatusCreated, second.Code)

	rec := doJSON(t, router, http.MethodGet, "/forum/posts", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var posts []Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posts))
	require.Len(t, posts, 2)
	assert.True(t, !posts[0].CreatedAt.Before(posts[1].CreatedAt))
}
