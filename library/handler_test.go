package library

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

func saveProject(t *testing.T, router *gin.Engine, body string) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/library/projects", body)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["id"])
	return resp["id"]
}

func TestSaveAndGetProject(t *testing.T) {
	router := newTestRouter(t)

	id := saveProject(t, router, `{
		"script": {"title": "The Legend", "panels": [{"id": 1, "description": "alley", "characters": []}]},
		"images": {"1": "/static/images/panel_1_abc.png"}
	}`)

	rec := doJSON(t, router, http.MethodGet, "/library/projects/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var project Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &project))
	assert.Equal(t, id, project.ID)
	assert.Equal(t, "The Legend", project.Title, "title is lifted from the script document")
	assert.NotEmpty(t, project.Script)
}

func TestSaveProjectLastWriteWins(t *testing.T) {
	router := newTestRouter(t)

	id := saveProject(t, router, `{"title": "First Draft"}`)
	second := saveProject(t, router, `{"id": "`+id+`", "title": "Second Draft"}`)
	assert.Equal(t, id, second)

	rec := doJSON(t, router, http.MethodGet, "/library/projects/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var project Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &project))
	assert.Equal(t, "Second Draft", project.Title)

	list := doJSON(t, router, http.MethodGet, "/library/projects", "")
	require.Equal(t, http.StatusOK, list.Code)
	var summaries []ProjectSummary
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &summaries))
	assert.Len(t, summaries, 1)
}

func TestListProjectsSummaries(t *testing.T) {
	router := newTestRouter(t)

	saveProject(t, router, `{"title": "No Images"}`)
	saveProject(t, router, `{
		"title": "With Images",
		"images": {"1": "/static/images/panel_1_abc.png", "2": "/static/images/panel_2_def.png"}
	}`)

	rec := doJSON(t, router, http.MethodGet, "/library/projects", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var summaries []ProjectSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	require.Len(t, summaries, 2)

	byTitle := map[string]ProjectSummary{}
	for _, s := range summaries {
		byTitle[s.Title] = s
	}

	withImages := byTitle["With Images"]
	require.NotNil(t, withImages.ThumbnailURL)
	assert.Equal(t, "/static/images/panel_1_abc.png", *withImages.ThumbnailURL)
	assert.Equal(t, 2, withImages.PanelCount)

	noImages := byTitle["No Images"]
	assert.Nil(t, noImages.ThumbnailURL)
	assert.Zero(t, noImages.PanelCount)
}

func TestGetProjectNotFound(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/library/projects/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteProject(t *testing.T) {
	router := newTestRouter(t)

	id := saveProject(t, router, `{"title": "Doomed"}`)

	rec := doJSON(t, router, http.MethodDelete, "/library/projects/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/library/projects/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/library/projects/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTitleFromScript(t *testing.T) {
	assert.Equal(t, "The Legend", titleFromScript(json.RawMessage(`{"title": " The Legend "}`)))
	assert.Empty(t, titleFromScript(json.RawMessage(`{"panels": []}`)))
	assert.Empty(t, titleFromScript(json.RawMessage(`not json`)))
	assert.Empty(t, titleFromScript(nil))
}
