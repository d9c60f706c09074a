package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sociopedia/sociopedia/server/internal/config"
	"github.com/sociopedia/sociopedia/server/internal/models"
	"github.com/sociopedia/sociopedia/server/internal/post"
	"github.com/sociopedia/sociopedia/server/internal/post/service"
	"github.com/sociopedia/sociopedia/server/internal/tokens"
	"github.com/sociopedia/sociopedia/server/internal/users"
	"github.com/sociopedia/sociopedia/server/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	annID = "64b7f0c2a1b2c3d4e5f60718"
	bobID = "64b7f0c2a1b2c3d4e5f60719"
)

type fakeUsers map[string]*models.User

func (f fakeUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, users.ErrNotFound
}

var people = fakeUsers{
	annID: {ID: annID, FirstName: "Ann", LastName: "Lee", Location: "NYC", PicturePath: "ann.jpg"},
	bobID: {ID: bobID, FirstName: "Bob", LastName: "Ray", Location: "LA", PicturePath: "bob.jpg"},
}

func newEngine(svc service.Service, opts Options) *gin.Engine {
	g := gin.New()
	RegisterPostRoutes(g, svc, opts)
	return g
}

func do(g *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w
}

func TestPostHandler_Flow(t *testing.T) {
	g := newEngine(service.NewMemoryService(people, config.PostsConfig{}), Options{})

	w := do(g, http.MethodPost, "/posts", `{"userId":"`+annID+`","description":"hello","picturePath":""}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	var created post.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Len(t, created.ID, 24)
	assert.Equal(t, "Ann", created.FirstName)
	assert.Equal(t, "ann.jpg", created.UserPicturePath)
	assert.Contains(t, w.Body.String(), `"likes":{}`)
	assert.Contains(t, w.Body.String(), `"comments":[]`)

	w = do(g, http.MethodPost, "/posts", `{"userId":"`+bobID+`","description":"yo"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(g, http.MethodGet, "/posts", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var feed []post.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &feed))
	require.Len(t, feed, 2)

	w = do(g, http.MethodGet, "/posts/"+annID+"/posts", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var mine []post.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, created.ID, mine[0].ID)

	// short forms
	assert.Equal(t, w.Body.String(), do(g, http.MethodGet, "/posts/"+annID, "", "").Body.String())
	w = do(g, http.MethodGet, "/posts/feed", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &feed))
	require.Len(t, feed, 2)

	w = do(g, http.MethodPatch, "/posts/"+created.ID+"/like", `{"userId":"`+bobID+`"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	var liked post.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &liked))
	assert.True(t, liked.Likes[bobID])

	w = do(g, http.MethodPatch, "/posts/"+created.ID+"/like", `{"userId":"`+bobID+`"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"likes":{}`)

	w = do(g, http.MethodPatch, "/posts/"+bobID+"/like", `{"userId":"`+bobID+`"}`, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"post not found"}`, w.Body.String())
}

func TestPostHandler_Validation(t *testing.T) {
	g := newEngine(service.NewMemoryService(people, config.PostsConfig{}), Options{})

	cases := []struct {
		name, method, path, body, want string
	}{
		{"missing userId", http.MethodPost, "/posts", `{"description":"x"}`, "userId is required"},
		{"bad userId", http.MethodPost, "/posts", `{"userId":"u1","description":"x"}`, "userId must be a valid id"},
		{"missing description", http.MethodPost, "/posts", `{"userId":"` + annID + `"}`, "description is required"},
		{"too long", http.MethodPost, "/posts", `{"userId":"` + annID + `","description":"` + strings.Repeat("a", 5001) + `"}`, "description must be at most 5000 characters"},
		{"bad json", http.MethodPost, "/posts", `{`, ""},
		{"empty body", http.MethodPost, "/posts", "", "request body is required"},
		{"empty like body", http.MethodPatch, "/posts/" + annID + "/like", "", "request body is required"},
		{"bad post id", http.MethodPatch, "/posts/nope/like", `{"userId":"` + bobID + `"}`, "id must be a valid id"},
		{"bad user path", http.MethodGet, "/posts/nope/posts", "", "userId must be a valid id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(g, tc.method, tc.path, tc.body, "")
			require.Equal(t, http.StatusBadRequest, w.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			require.NotEmpty(t, body["message"])
			if tc.want != "" {
				require.Equal(t, tc.want, body["message"])
			}
		})
	}
}

func TestPostHandler_MissingUser(t *testing.T) {
	ghost := "64b7f0c2a1b2c3d4e5f6071a"

	g := newEngine(service.NewMemoryService(people, config.PostsConfig{}), Options{})
	w := do(g, http.MethodPost, "/posts", `{"userId":"`+ghost+`","description":"boo"}`, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"user not found"}`, w.Body.String())

	g = newEngine(service.NewMemoryService(people, config.PostsConfig{AllowMissingAuthor: true}), Options{})
	w = do(g, http.MethodPost, "/posts", `{"userId":"`+ghost+`","description":"boo"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"firstName":""`)
}

func TestPostHandler_Legacy(t *testing.T) {
	legacy := config.PostsConfig{ReturnCollectionOnCreate: true, UnfilteredUserPosts: true, LikeIsNoop: true, AllowMissingAuthor: true}
	g := newEngine(service.NewMemoryService(people, legacy), Options{Posts: legacy})

	w := do(g, http.MethodPost, "/posts", `{"userId":"`+annID+`","description":"hello"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	var created []post.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Len(t, created, 1)
	assert.Equal(t, "Ann", created[0].FirstName)

	feed := do(g, http.MethodGet, "/posts", "", "").Body.String()
	assert.Equal(t, feed, do(g, http.MethodGet, "/posts/"+bobID+"/posts", "", "").Body.String())

	w = do(g, http.MethodPatch, "/posts/"+created[0].ID+"/like", `{"userId":"`+bobID+`"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, feed, w.Body.String())

	// the like body is ignored, and any user segment lists the feed
	w = do(g, http.MethodPatch, "/posts/"+created[0].ID+"/like", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, feed, w.Body.String())

	w = do(g, http.MethodGet, "/posts/anyId/posts", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, feed, w.Body.String())
	assert.Equal(t, feed, do(g, http.MethodGet, "/posts/anyId", "", "").Body.String())
}

func TestPostHandler_LegacyLikeWithAuth(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "test-secret"}}
	legacy := config.PostsConfig{LikeIsNoop: true}
	svc := service.NewMemoryService(people, legacy)
	g := newEngine(svc, Options{Verifier: tokens.NewVerifier(cfg.JWT.Secret), Posts: legacy})
	annToken, err := tokens.GenerateAccessToken(cfg, people[annID], time.Minute)
	require.NoError(t, err)

	w := do(g, http.MethodPatch, "/posts/"+annID+"/like", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(g, http.MethodPatch, "/posts/"+annID+"/like", "", annToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestPostHandler_BodyLimit(t *testing.T) {
	g := newEngine(service.NewMemoryService(people, config.PostsConfig{}), Options{MaxBodyBytes: 128})

	w := do(g, http.MethodPost, "/posts", `{"userId":"`+annID+`","description":"`+strings.Repeat("a", 200)+`"}`, "")
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.JSONEq(t, `{"message":"request body exceeds 128 bytes"}`, w.Body.String())

	w = do(g, http.MethodPatch, "/posts/"+annID+"/like", `{"userId":"`+bobID+`","pad":"`+strings.Repeat("b", 200)+`"}`, "")
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = do(g, http.MethodPost, "/posts", `{"userId":"`+annID+`","description":"short"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestPostHandler_LimiterKeysOnCaller(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "test-secret"}}
	g := newEngine(service.NewMemoryService(people, config.PostsConfig{}), Options{
		Verifier: tokens.NewVerifier(cfg.JWT.Secret),
		Limiter:  middleware.RateLimitMiddleware(0.01, 1),
	})
	annToken, err := tokens.GenerateAccessToken(cfg, people[annID], time.Minute)
	require.NoError(t, err)
	bobToken, err := tokens.GenerateAccessToken(cfg, people[bobID], time.Minute)
	require.NoError(t, err)

	w := do(g, http.MethodPost, "/posts", `{"userId":"`+annID+`","description":"one"}`, annToken)
	require.Equal(t, http.StatusCreated, w.Code)
	w = do(g, http.MethodPost, "/posts", `{"userId":"`+annID+`","description":"two"}`, annToken)
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	// same client address, different caller
	w = do(g, http.MethodPost, "/posts", `{"userId":"`+bobID+`","description":"three"}`, bobToken)
	require.Equal(t, http.StatusCreated, w.Code)

	// rejected requests never reach the limiter
	w = do(g, http.MethodPost, "/posts", `{"userId":"`+annID+`","description":"four"}`, bobToken)
	require.Equal(t, http.StatusForbidden, w.Code)
}

type downService struct{}

func (downService) CreatePost(ctx context.Context, in service.CreateInput) (service.Result, error) {
	return service.Result{}, errors.New("Mongo down")
}
func (downService) GetFeedPosts(ctx context.Context) ([]*post.Post, error) {
	return nil, errors.New("Mongo down")
}
func (downService) GetUserPosts(ctx context.Context, userID string) ([]*post.Post, error) {
	return nil, errors.New("Mongo down")
}
func (downService) LikePost(ctx context.Context, postID, userID string) (service.Result, error) {
	return service.Result{}, errors.New("Mongo down")
}

func TestPostHandler_StoreDown(t *testing.T) {
	g := newEngine(downService{}, Options{})
	down := `{"message":"Mongo down"}`

	w := do(g, http.MethodPost, "/posts", `{"userId":"`+annID+`","description":"x"}`, "")
	require.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, down, w.Body.String())

	w = do(g, http.MethodGet, "/posts", "", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, down, w.Body.String())

	w = do(g, http.MethodGet, "/posts/"+annID+"/posts", "", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, down, w.Body.String())

	w = do(g, http.MethodPatch, "/posts/"+annID+"/like", `{"userId":"`+bobID+`"}`, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, down, w.Body.String())
}

func TestPostHandler_Authorization(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "test-secret"}}
	g := newEngine(service.NewMemoryService(people, config.PostsConfig{}), Options{
		Verifier: tokens.NewVerifier(cfg.JWT.Secret),
		Timeout:  time.Second,
	})
	annToken, err := tokens.GenerateAccessToken(cfg, people[annID], time.Minute)
	require.NoError(t, err)
	bobToken, err := tokens.GenerateAccessToken(cfg, people[bobID], time.Minute)
	require.NoError(t, err)

	body := `{"userId":"` + annID + `","description":"hello"}`

	w := do(g, http.MethodPost, "/posts", body, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(g, http.MethodPost, "/posts", body, "garbage")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(g, http.MethodPost, "/posts", body, bobToken)
	require.Equal(t, http.StatusForbidden, w.Code)

	// validation runs before authorization
	w = do(g, http.MethodPost, "/posts", `{"userId":"x"}`, "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(g, http.MethodPost, "/posts", body, annToken)
	require.Equal(t, http.StatusCreated, w.Code)
	var created post.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	like := `{"userId":"` + bobID + `"}`
	w = do(g, http.MethodPatch, "/posts/"+created.ID+"/like", like, annToken)
	require.Equal(t, http.StatusForbidden, w.Code)
	w = do(g, http.MethodPatch, "/posts/"+created.ID+"/like", like, bobToken)
	require.Equal(t, http.StatusOK, w.Code)

	// reads stay public
	w = do(g, http.MethodGet, "/posts", "", "")
	require.Equal(t, http.StatusOK, w.Code)
}
