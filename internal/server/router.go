package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/minglehq/mingle/backend/internal/auth"
	"github.com/minglehq/mingle/backend/internal/messages"
	"github.com/minglehq/mingle/backend/internal/posts"
	"github.com/minglehq/mingle/backend/internal/realtime"
	"github.com/minglehq/mingle/backend/internal/social"
	"github.com/minglehq/mingle/backend/internal/stories"
	"github.com/minglehq/mingle/backend/internal/users"
)

var (
	errMissingUsersService    = errors.New("users service dependency required")
	errMissingPostsService    = errors.New("posts service dependency required")
	errMissingSocialService   = errors.New("social service dependency required")
	errMissingMessagesService = errors.New("messages service dependency required")
	errMissingStoriesService  = errors.New("stories service dependency required")
	errMissingTokenIssuer     = errors.New("token issuer dependency required")
	errMissingHub             = errors.New("realtime hub dependency required")
	errMissingNotifier        = errors.New("notifier dependency required")
)

// Dependencies wires the services behind the HTTP surface.
type Dependencies struct {
	Users      *users.Service
	Posts      *posts.Service
	Social     *social.Service
	Messages   *messages.Service
	Stories    *stories.Service
	Tokens     *auth.TokenIssuer
	Hub        *realtime.Hub
	Notifier   *realtime.Notifier
	UploadsDir string
	Logger     *zap.Logger
}

// NewHTTPHandler assembles the REST router and the websocket endpoint.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	switch {
	case deps.Users == nil:
		return nil, errMissingUsersService
	case deps.Posts == nil:
		return nil, errMissingPostsService
	case deps.Social == nil:
		return nil, errMissingSocialService
	case deps.Messages == nil:
		return nil, errMissingMessagesService
	case deps.Stories == nil:
		return nil, errMissingStoriesService
	case deps.Tokens == nil:
		return nil, errMissingTokenIssuer
	case deps.Hub == nil:
		return nil, errMissingHub
	case deps.Notifier == nil:
		return nil, errMissingNotifier
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		users:      deps.Users,
		posts:      deps.Posts,
		social:     deps.Social,
		messages:   deps.Messages,
		stories:    deps.Stories,
		tokens:     deps.Tokens,
		hub:        deps.Hub,
		notifier:   deps.Notifier,
		uploadsDir: deps.UploadsDir,
		logger:     logger,
	}

	router.POST("/register", handler.handleRegister)
	router.POST("/login", handler.handleLogin)
	router.GET("/users", handler.handleListUsers)

	router.POST("/addpost", handler.handleAddPost)
	router.GET("/allposts", handler.handleAllPosts)
	router.GET("/postsbytag/:tag", handler.handlePostsByTag)
	router.POST("/like", handler.handleLike)
	router.POST("/comment", handler.handleComment)
	router.GET("/comments/:post_id", handler.handleComments)

	router.POST("/follow", handler.handleFollow)
	router.POST("/unfollow", handler.handleUnfollow)
	router.GET("/followers/:user_id", handler.handleFollowers)
	router.GET("/following/:user_id", handler.handleFollowing)

	router.POST("/message", handler.handleSendMessage)
	router.GET("/messages/:a/:b", handler.handleConversation)

	router.POST("/createtag", handler.handleCreateTag)
	router.GET("/tags", handler.handleListTags)
	router.POST("/addtagtopost", handler.handleAttachTag)
	router.GET("/posttags/:post_id", handler.handlePostTags)

	router.POST("/story", handler.handleAddStory)
	router.GET("/stories", handler.handleActiveStories)

	if handler.uploadsDir != "" {
		router.POST("/upload", handler.handleUpload)
		router.Static("/uploads", handler.uploadsDir)
	}

	router.GET("/ws", handler.handleWebSocket)

	return router, nil
}

type httpHandler struct {
	users      *users.Service
	posts      *posts.Service
	social     *social.Service
	messages   *messages.Service
	stories    *stories.Service
	tokens     *auth.TokenIssuer
	hub        *realtime.Hub
	notifier   *realtime.Notifier
	uploadsDir string
	logger     *zap.Logger
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *httpHandler) handleRegister(c *gin.Context) {
	var request registerRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "All fields required"})
		return
	}

	_, err := h.users.Register(c.Request.Context(), request.Name, request.Email, request.Password)
	switch {
	case errors.Is(err, users.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"message": "All fields required"})
	case errors.Is(err, users.ErrEmailTaken):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email already registered"})
	case err != nil:
		h.logger.Error("registration failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Register failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Registered"})
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request loginRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email & password required"})
		return
	}

	user, err := h.users.Login(c.Request.Context(), request.Email, request.Password)
	switch {
	case errors.Is(err, users.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email & password required"})
		return
	case errors.Is(err, users.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	case errors.Is(err, users.ErrInvalidPassword):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid password"})
		return
	case err != nil:
		h.logger.Error("login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Login failed"})
		return
	}

	token, _, err := h.tokens.IssueSessionToken(user.ID)
	if err != nil {
		h.logger.Error("session token issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    gin.H{"id": user.ID, "name": user.Name, "email": user.Email},
		"token":   token,
	})
}

func (h *httpHandler) handleListUsers(c *gin.Context) {
	list, err := h.users.List(c.Request.Context())
	if err != nil {
		h.logger.Error("user listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching users"})
		return
	}
	out := make([]gin.H, 0, len(list))
	for _, user := range list {
		out = append(out, gin.H{"id": user.ID, "name": user.Name, "email": user.Email})
	}
	c.JSON(http.StatusOK, out)
}

type addPostRequest struct {
	UserID   uint     `json:"user_id"`
	Content  string   `json:"content"`
	ImageURL string   `json:"image_url"`
	Tags     tagsList `json:"tags"`
}

func (h *httpHandler) handleAddPost(c *gin.Context) {
	var request addPostRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "User & content or image required"})
		return
	}

	postID, err := h.posts.Create(c.Request.Context(), request.UserID, request.Content, request.ImageURL, request.Tags)
	switch {
	case errors.Is(err, posts.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"message": "User & content or image required"})
		return
	case err != nil:
		h.logger.Error("post creation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to add post"})
		return
	}

	h.notifier.PostCreated(c.Request.Context(), request.UserID, postID)
	c.JSON(http.StatusOK, gin.H{"message": "Post created", "postId": postID})
}

func (h *httpHandler) handleAllPosts(c *gin.Context) {
	feed, err := h.posts.Feed(c.Request.Context())
	if err != nil {
		h.logger.Error("feed query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching posts"})
		return
	}
	c.JSON(http.StatusOK, feed)
}

func (h *httpHandler) handlePostsByTag(c *gin.Context) {
	feed, err := h.posts.FeedByTag(c.Request.Context(), c.Param("tag"))
	if err != nil {
		h.logger.Error("tag feed query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching by tag"})
		return
	}
	c.JSON(http.StatusOK, feed)
}

type likeRequest struct {
	PostID uint `json:"post_id"`
	UserID uint `json:"user_id"`
}

func (h *httpHandler) handleLike(c *gin.Context) {
	var request likeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing"})
		return
	}

	liked, err := h.posts.ToggleLike(c.Request.Context(), request.PostID, request.UserID)
	switch {
	case errors.Is(err, posts.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing"})
		return
	case err != nil:
		h.logger.Error("like toggle failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error liking"})
		return
	}

	if liked {
		h.notifier.PostLiked(c.Request.Context(), request.UserID, request.PostID)
		c.JSON(http.StatusOK, gin.H{"message": "Liked"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Unliked"})
}

type commentRequest struct {
	PostID  uint   `json:"post_id"`
	UserID  uint   `json:"user_id"`
	Content string `json:"content"`
}

func (h *httpHandler) handleComment(c *gin.Context) {
	var request commentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing"})
		return
	}

	_, err := h.posts.AddComment(c.Request.Context(), request.PostID, request.UserID, request.Content)
	switch {
	case errors.Is(err, posts.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing"})
		return
	case err != nil:
		h.logger.Error("comment failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error commenting"})
		return
	}

	h.notifier.PostCommented(c.Request.Context(), request.UserID, request.PostID, request.Content)
	c.JSON(http.StatusOK, gin.H{"message": "Comment added"})
}

func (h *httpHandler) handleComments(c *gin.Context) {
	postID, ok := parseID(c, "post_id")
	if !ok {
		return
	}
	comments, err := h.posts.Comments(c.Request.Context(), postID)
	if err != nil {
		h.logger.Error("comment listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching comments"})
		return
	}
	c.JSON(http.StatusOK, comments)
}

type followRequest struct {
	FollowerID uint `json:"follower_id"`
	FolloweeID uint `json:"followee_id"`
}

func (h *httpHandler) handleFollow(c *gin.Context) {
	var request followRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing"})
		return
	}

	err := h.social.Follow(c.Request.Context(), request.FollowerID, request.FolloweeID)
	switch {
	case errors.Is(err, social.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing"})
		return
	case err != nil:
		h.logger.Error("follow failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error following"})
		return
	}

	h.notifier.Followed(c.Request.Context(), request.FollowerID, request.FolloweeID)
	c.JSON(http.StatusOK, gin.H{"message": "Now following"})
}

func (h *httpHandler) handleUnfollow(c *gin.Context) {
	var request followRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing"})
		return
	}

	if err := h.social.Unfollow(c.Request.Context(), request.FollowerID, request.FolloweeID); err != nil {
		if errors.Is(err, social.ErrMissingFields) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Missing"})
			return
		}
		h.logger.Error("unfollow failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error unfollowing"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Unfollowed"})
}

func (h *httpHandler) handleFollowers(c *gin.Context) {
	userID, ok := parseID(c, "user_id")
	if !ok {
		return
	}
	list, err := h.social.Followers(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("follower listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *httpHandler) handleFollowing(c *gin.Context) {
	userID, ok := parseID(c, "user_id")
	if !ok {
		return
	}
	list, err := h.social.Following(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("following listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error"})
		return
	}
	c.JSON(http.StatusOK, list)
}

type sendMessageRequest struct {
	SenderID   uint   `json:"sender_id"`
	ReceiverID uint   `json:"receiver_id"`
	Content    string `json:"content"`
	ImageURL   string `json:"image_url"`
}

func (h *httpHandler) handleSendMessage(c *gin.Context) {
	var request sendMessageRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing"})
		return
	}

	message, err := h.messages.Send(c.Request.Context(), request.SenderID, request.ReceiverID, request.Content, request.ImageURL)
	switch {
	case errors.Is(err, messages.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing"})
		return
	case err != nil:
		h.logger.Error("message send failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error sending message"})
		return
	}

	// Mirror the stored message to live connections, then notify.
	h.hub.EmitToUser(message.ReceiverID, realtime.Outbound{Event: realtime.EventPrivateMessage, Data: message})
	h.hub.EmitToUser(message.SenderID, realtime.Outbound{Event: realtime.EventMessageSent, Data: message})
	h.notifier.MessageSent(c.Request.Context(), message.SenderID, message.ReceiverID, message.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Message sent"})
}

func (h *httpHandler) handleConversation(c *gin.Context) {
	first, ok := parseID(c, "a")
	if !ok {
		return
	}
	second, ok := parseID(c, "b")
	if !ok {
		return
	}
	conversation, err := h.messages.Conversation(c.Request.Context(), first, second)
	if err != nil {
		h.logger.Error("conversation query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching messages"})
		return
	}
	c.JSON(http.StatusOK, conversation)
}

type createTagRequest struct {
	Name string `json:"name"`
}

func (h *httpHandler) handleCreateTag(c *gin.Context) {
	var request createTagRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Tag name required"})
		return
	}

	_, err := h.posts.CreateTag(c.Request.Context(), request.Name)
	switch {
	case errors.Is(err, posts.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Tag name required"})
	case err != nil:
		h.logger.Error("tag creation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error creating tag"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Tag created/exists"})
	}
}

func (h *httpHandler) handleListTags(c *gin.Context) {
	tags, err := h.posts.Tags(c.Request.Context())
	if err != nil {
		h.logger.Error("tag listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching tags"})
		return
	}
	c.JSON(http.StatusOK, tags)
}

type attachTagRequest struct {
	PostID uint `json:"post_id"`
	TagID  uint `json:"tag_id"`
}

func (h *httpHandler) handleAttachTag(c *gin.Context) {
	var request attachTagRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing"})
		return
	}

	err := h.posts.AttachTag(c.Request.Context(), request.PostID, request.TagID)
	switch {
	case errors.Is(err, posts.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing"})
	case err != nil:
		h.logger.Error("tag attach failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error adding tag to post"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Tag added to post"})
	}
}

func (h *httpHandler) handlePostTags(c *gin.Context) {
	postID, ok := parseID(c, "post_id")
	if !ok {
		return
	}
	tags, err := h.posts.PostTags(c.Request.Context(), postID)
	if err != nil {
		h.logger.Error("post tag listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching post tags"})
		return
	}
	c.JSON(http.StatusOK, tags)
}

type addStoryRequest struct {
	UserID   uint   `json:"user_id"`
	ImageURL string `json:"image_url"`
}

func (h *httpHandler) handleAddStory(c *gin.Context) {
	var request addStoryRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing"})
		return
	}

	_, err := h.stories.Create(c.Request.Context(), request.UserID, request.ImageURL)
	switch {
	case errors.Is(err, stories.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing"})
	case err != nil:
		h.logger.Error("story creation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error adding story"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Story added"})
	}
}

func (h *httpHandler) handleActiveStories(c *gin.Context) {
	list, err := h.stories.Active(c.Request.Context())
	if err != nil {
		h.logger.Error("story listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching stories"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func parseID(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing"})
		return 0, false
	}
	return uint(value), true
}
