package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/minglehq/mingle/backend/internal/auth"
	"github.com/minglehq/mingle/backend/internal/messages"
	"github.com/minglehq/mingle/backend/internal/posts"
	"github.com/minglehq/mingle/backend/internal/realtime"
	"github.com/minglehq/mingle/backend/internal/social"
	"github.com/minglehq/mingle/backend/internal/stories"
	"github.com/minglehq/mingle/backend/internal/users"
)

const testSigningSecret = "router-test-secret"

type testStack struct {
	handler http.Handler
	tokens  *auth.TokenIssuer
	hub     *realtime.Hub
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&users.User{},
		&posts.Post{}, &posts.Tag{}, &posts.PostTag{}, &posts.Like{}, &posts.Comment{},
		&social.Follow{},
		&messages.Message{},
		&stories.Story{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	userService, err := users.NewService(users.ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to build users service: %v", err)
	}
	postService, err := posts.NewService(posts.ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to build posts service: %v", err)
	}
	socialService, err := social.NewService(social.ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to build social service: %v", err)
	}
	messageService, err := messages.NewService(messages.ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to build messages service: %v", err)
	}
	storyService, err := stories.NewService(stories.ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to build stories service: %v", err)
	}

	tokens := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(testSigningSecret),
		Issuer:        "mingle-auth",
		Audience:      "mingle-api",
	})

	presence := realtime.NewRegistry()
	hub, err := realtime.NewHub(realtime.HubConfig{Presence: presence, Messages: messageService})
	if err != nil {
		t.Fatalf("failed to build hub: %v", err)
	}
	notifier, err := realtime.NewNotifier(realtime.NotifierConfig{
		Directory: Directory{Users: userService, Social: socialService, Posts: postService},
		Delivery:  hub,
	})
	if err != nil {
		t.Fatalf("failed to build notifier: %v", err)
	}

	handler, err := NewHTTPHandler(Dependencies{
		Users:      userService,
		Posts:      postService,
		Social:     socialService,
		Messages:   messageService,
		Stories:    storyService,
		Tokens:     tokens,
		Hub:        hub,
		Notifier:   notifier,
		UploadsDir: t.TempDir(),
		Logger:     zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}

	return &testStack{handler: handler, tokens: tokens, hub: hub}
}

func (s *testStack) postJSON(t *testing.T, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	request := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	s.handler.ServeHTTP(recorder, request)
	return recorder
}

func (s *testStack) getJSON(t *testing.T, path string, out any) *httptest.ResponseRecorder {
	t.Helper()
	request := httptest.NewRequest(http.MethodGet, path, nil)
	recorder := httptest.NewRecorder()
	s.handler.ServeHTTP(recorder, request)
	if out != nil && recorder.Code == http.StatusOK {
		if err := json.Unmarshal(recorder.Body.Bytes(), out); err != nil {
			t.Fatalf("failed to decode %s response: %v", path, err)
		}
	}
	return recorder
}

func (s *testStack) registerUser(t *testing.T, name string) uint {
	t.Helper()
	recorder := s.postJSON(t, "/register", map[string]string{
		"name":     name,
		"email":    strings.ToLower(name) + "@example.com",
		"password": "hunter2",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("register %s: unexpected status %d: %s", name, recorder.Code, recorder.Body.String())
	}

	var list []struct {
		ID   uint   `json:"id"`
		Name string `json:"name"`
	}
	s.getJSON(t, "/users", &list)
	for _, user := range list {
		if user.Name == name {
			return user.ID
		}
	}
	t.Fatalf("registered user %s not found in listing", name)
	return 0
}

func TestRegisterLoginFlow(t *testing.T) {
	stack := newTestStack(t)
	stack.registerUser(t, "Maya")

	recorder := stack.postJSON(t, "/login", map[string]string{
		"email":    "maya@example.com",
		"password": "hunter2",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected login status %d: %s", recorder.Code, recorder.Body.String())
	}
	var response struct {
		Token string `json:"token"`
		User  struct {
			ID uint `json:"id"`
		} `json:"user"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	if response.Token == "" {
		t.Fatal("expected a session token")
	}
	if userID, err := stack.tokens.ValidateToken(response.Token); err != nil || userID != response.User.ID {
		t.Fatalf("expected token for user %d, got %d (err %v)", response.User.ID, userID, err)
	}
}

func TestLoginErrorMapping(t *testing.T) {
	stack := newTestStack(t)
	stack.registerUser(t, "Maya")

	if r := stack.postJSON(t, "/login", map[string]string{"email": "ghost@example.com", "password": "x"}); r.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown email, got %d", r.Code)
	}
	if r := stack.postJSON(t, "/login", map[string]string{"email": "maya@example.com", "password": "wrong"}); r.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", r.Code)
	}
}

func TestRegisterDuplicateEmailIsRejected(t *testing.T) {
	stack := newTestStack(t)
	stack.registerUser(t, "Maya")

	recorder := stack.postJSON(t, "/register", map[string]string{
		"name":     "Other",
		"email":    "maya@example.com",
		"password": "pw",
	})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate email, got %d", recorder.Code)
	}
}

func TestPostLifecycle(t *testing.T) {
	stack := newTestStack(t)
	author := stack.registerUser(t, "Ana")
	fan := stack.registerUser(t, "Bob")

	recorder := stack.postJSON(t, "/addpost", map[string]any{
		"user_id": author,
		"content": "hello world",
		"tags":    "go, social",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected addpost status %d: %s", recorder.Code, recorder.Body.String())
	}
	var created struct {
		PostID uint `json:"postId"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode addpost response: %v", err)
	}

	if r := stack.postJSON(t, "/like", map[string]any{"post_id": created.PostID, "user_id": fan}); r.Code != http.StatusOK {
		t.Fatalf("unexpected like status %d", r.Code)
	}
	if r := stack.postJSON(t, "/comment", map[string]any{"post_id": created.PostID, "user_id": fan, "content": "nice"}); r.Code != http.StatusOK {
		t.Fatalf("unexpected comment status %d", r.Code)
	}

	var feed []struct {
		ID       uint     `json:"id"`
		Likes    int64    `json:"likes"`
		Comments int64    `json:"comments"`
		Tags     []string `json:"tags"`
		Name     string   `json:"name"`
	}
	stack.getJSON(t, "/allposts", &feed)
	if len(feed) != 1 {
		t.Fatalf("expected one post in feed, got %d", len(feed))
	}
	if feed[0].Likes != 1 || feed[0].Comments != 1 {
		t.Fatalf("expected counters 1/1, got %d/%d", feed[0].Likes, feed[0].Comments)
	}
	if len(feed[0].Tags) != 2 {
		t.Fatalf("expected both tags, got %v", feed[0].Tags)
	}
	if feed[0].Name != "Ana" {
		t.Fatalf("expected author name, got %q", feed[0].Name)
	}

	var tagged []struct {
		ID uint `json:"id"`
	}
	stack.getJSON(t, "/postsbytag/go", &tagged)
	if len(tagged) != 1 || tagged[0].ID != created.PostID {
		t.Fatalf("expected the post under its tag, got %#v", tagged)
	}

	// Second like toggles off.
	recorder = stack.postJSON(t, "/like", map[string]any{"post_id": created.PostID, "user_id": fan})
	var toggled struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &toggled); err != nil {
		t.Fatalf("failed to decode like response: %v", err)
	}
	if toggled.Message != "Unliked" {
		t.Fatalf("expected Unliked, got %q", toggled.Message)
	}
}

func TestAddPostRequiresContentOrImage(t *testing.T) {
	stack := newTestStack(t)
	author := stack.registerUser(t, "Ana")

	recorder := stack.postJSON(t, "/addpost", map[string]any{"user_id": author})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestFollowEndpoints(t *testing.T) {
	stack := newTestStack(t)
	alice := stack.registerUser(t, "Alice")
	bob := stack.registerUser(t, "Bob")

	if r := stack.postJSON(t, "/follow", map[string]any{"follower_id": alice, "followee_id": bob}); r.Code != http.StatusOK {
		t.Fatalf("unexpected follow status %d", r.Code)
	}

	var followers []struct {
		ID   uint   `json:"id"`
		Name string `json:"name"`
	}
	stack.getJSON(t, "/followers/"+itoa(bob), &followers)
	if len(followers) != 1 || followers[0].Name != "Alice" {
		t.Fatalf("expected Alice as follower, got %#v", followers)
	}

	var following []struct {
		Name string `json:"name"`
	}
	stack.getJSON(t, "/following/"+itoa(alice), &following)
	if len(following) != 1 || following[0].Name != "Bob" {
		t.Fatalf("expected Bob as followee, got %#v", following)
	}

	if r := stack.postJSON(t, "/unfollow", map[string]any{"follower_id": alice, "followee_id": bob}); r.Code != http.StatusOK {
		t.Fatalf("unexpected unfollow status %d", r.Code)
	}
	followers = nil
	stack.getJSON(t, "/followers/"+itoa(bob), &followers)
	if len(followers) != 0 {
		t.Fatalf("expected no followers after unfollow, got %#v", followers)
	}
}

func TestMessageEndpoints(t *testing.T) {
	stack := newTestStack(t)
	alice := stack.registerUser(t, "Alice")
	bob := stack.registerUser(t, "Bob")

	if r := stack.postJSON(t, "/message", map[string]any{"sender_id": alice, "receiver_id": bob, "content": "hi"}); r.Code != http.StatusOK {
		t.Fatalf("unexpected message status %d", r.Code)
	}
	if r := stack.postJSON(t, "/message", map[string]any{"sender_id": alice, "content": "hi"}); r.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing receiver, got %d", r.Code)
	}

	var conversation []struct {
		Content    string `json:"content"`
		SenderName string `json:"sender_name"`
	}
	stack.getJSON(t, "/messages/"+itoa(alice)+"/"+itoa(bob), &conversation)
	if len(conversation) != 1 || conversation[0].SenderName != "Alice" {
		t.Fatalf("unexpected conversation: %#v", conversation)
	}
}

func TestTagEndpoints(t *testing.T) {
	stack := newTestStack(t)
	author := stack.registerUser(t, "Ana")

	if r := stack.postJSON(t, "/createtag", map[string]string{"name": "go"}); r.Code != http.StatusOK {
		t.Fatalf("unexpected createtag status %d", r.Code)
	}
	if r := stack.postJSON(t, "/createtag", map[string]string{"name": ""}); r.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty tag, got %d", r.Code)
	}

	var tags []struct {
		ID   uint   `json:"id"`
		Name string `json:"name"`
	}
	stack.getJSON(t, "/tags", &tags)
	if len(tags) != 1 || tags[0].Name != "go" {
		t.Fatalf("unexpected tags: %#v", tags)
	}

	recorder := stack.postJSON(t, "/addpost", map[string]any{"user_id": author, "content": "post"})
	var created struct {
		PostID uint `json:"postId"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode addpost response: %v", err)
	}

	if r := stack.postJSON(t, "/addtagtopost", map[string]any{"post_id": created.PostID, "tag_id": tags[0].ID}); r.Code != http.StatusOK {
		t.Fatalf("unexpected addtagtopost status %d", r.Code)
	}
	var postTags []struct {
		Name string `json:"name"`
	}
	stack.getJSON(t, "/posttags/"+itoa(created.PostID), &postTags)
	if len(postTags) != 1 || postTags[0].Name != "go" {
		t.Fatalf("unexpected post tags: %#v", postTags)
	}
}

func TestStoryEndpoints(t *testing.T) {
	stack := newTestStack(t)
	author := stack.registerUser(t, "Ana")

	if r := stack.postJSON(t, "/story", map[string]any{"user_id": author, "image_url": "/uploads/a.png"}); r.Code != http.StatusOK {
		t.Fatalf("unexpected story status %d", r.Code)
	}
	if r := stack.postJSON(t, "/story", map[string]any{"user_id": author}); r.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing image, got %d", r.Code)
	}

	var active []struct {
		ImageURL string `json:"image_url"`
		Name     string `json:"name"`
	}
	stack.getJSON(t, "/stories", &active)
	if len(active) != 1 || active[0].Name != "Ana" {
		t.Fatalf("unexpected stories: %#v", active)
	}
}

func TestUploadSavesImage(t *testing.T) {
	stack := newTestStack(t)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", "selfie.png")
	if err != nil {
		t.Fatalf("failed to build multipart form: %v", err)
	}
	if _, err := part.Write([]byte("not-really-a-png")); err != nil {
		t.Fatalf("failed to write file part: %v", err)
	}
	writer.Close()

	request := httptest.NewRequest(http.MethodPost, "/upload", &body)
	request.Header.Set("Content-Type", writer.FormDataContentType())
	recorder := httptest.NewRecorder()
	stack.handler.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected upload status %d: %s", recorder.Code, recorder.Body.String())
	}

	var response struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode upload response: %v", err)
	}
	if !strings.HasPrefix(response.URL, "/uploads/") || !strings.HasSuffix(response.URL, "-selfie.png") {
		t.Fatalf("unexpected upload url: %s", response.URL)
	}

	if r := stack.postJSON(t, "/upload", map[string]string{}); r.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without a file, got %d", r.Code)
	}
}

func itoa(value uint) string {
	return strconv.FormatUint(uint64(value), 10)
}
