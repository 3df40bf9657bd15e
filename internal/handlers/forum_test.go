package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/astrasemi/assistant/internal/middleware"
	"github.com/astrasemi/assistant/internal/models"
	"github.com/astrasemi/assistant/internal/services"
	"github.com/astrasemi/assistant/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type ForumHandlerTestSuite struct {
	suite.Suite
	db      *gorm.DB
	handler *ForumHandler
	author  *models.User
	reader  *models.User
	admin   *models.User
}

func (s *ForumHandlerTestSuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	forumService, err := services.NewForumService(s.db)
	s.Require().NoError(err)
	s.handler = NewForumHandler(forumService)

	s.author = testutil.CreateUser(s.T(), s.db, "author", models.UserRoleUser)
	s.reader = testutil.CreateUser(s.T(), s.db, "reader", models.UserRoleUser)
	s.admin = testutil.CreateUser(s.T(), s.db, "admin", models.UserRoleAdmin)
}

// routerAs mounts the forum routes with the given user already authenticated
func (s *ForumHandlerTestSuite) routerAs(user *models.User) *gin.Engine {
	r := gin.New()
	api := r.Group("/api", asUser(user))
	api.GET("/posts", s.handler.ListPosts)
	api.POST("/posts", s.handler.CreatePost)
	api.GET("/posts/:id", s.handler.GetPost)
	api.POST("/posts/:id/answers", s.handler.CreateAnswer)
	api.DELETE("/posts/:id/answers/:answerId", s.handler.DeleteAnswer)
	api.POST("/posts/:id/vote", s.handler.Vote)
	api.PATCH("/posts/:id/accept", s.handler.AcceptAnswer)
	api.GET("/contributors", s.handler.Contributors)
	api.GET("/reputation", s.handler.ReputationHistory)

	admin := api.Group("/admin", middleware.RequireAdmin())
	admin.PATCH("/posts/:id", s.handler.UpdatePost)
	admin.DELETE("/posts/:id", s.handler.DeletePost)
	return r
}

func (s *ForumHandlerTestSuite) TestCreatePost() {
	w := performRequest(s.routerAs(s.author), http.MethodPost, "/api/posts", map[string]string{
		"title":    "Wafer chuck alarm",
		"content":  "The **chuck** alarm fires after PM.",
		"category": "equipment",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	body := decodeBody(s.T(), w)
	s.Equal("EQUIPMENT", body["category"])
	s.Contains(body["contentHtml"], "<strong>chuck</strong>")
	s.EqualValues(0, body["voteScore"])
	author := body["author"].(map[string]interface{})
	s.Equal("author", author["username"])
}

func (s *ForumHandlerTestSuite) TestCreatePostValidation() {
	r := s.routerAs(s.author)

	w := performRequest(r, http.MethodPost, "/api/posts", map[string]string{"title": "Only a title"})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Title, content, and category are required", decodeBody(s.T(), w)["error"])

	w = performRequest(r, http.MethodPost, "/api/posts", map[string]string{
		"title":    "t",
		"content":  "c",
		"category": "gossip",
	})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Invalid category", decodeBody(s.T(), w)["error"])
}

func (s *ForumHandlerTestSuite) TestListPosts() {
	testutil.CreatePost(s.T(), s.db, s.author.ID, "Etch recipe drift", "drift")
	testutil.CreatePost(s.T(), s.db, s.author.ID, "Badge access", "badge")

	r := s.routerAs(s.reader)
	w := performRequest(r, http.MethodGet, "/api/posts?search=etch", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	body := decodeBody(s.T(), w)
	posts := body["posts"].([]interface{})
	s.Require().Len(posts, 1)
	s.Equal("Etch recipe drift", posts[0].(map[string]interface{})["title"])
	s.EqualValues(1, body["pagination"].(map[string]interface{})["total"])

	w = performRequest(r, http.MethodGet, "/api/posts?sort=random", nil)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Invalid sort", decodeBody(s.T(), w)["error"])

	w = performRequest(r, http.MethodGet, "/api/posts?startDate=yesterday", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *ForumHandlerTestSuite) TestVote() {
	post := testutil.CreatePost(s.T(), s.db, s.author.ID, "Question", "body")
	path := fmt.Sprintf("/api/posts/%d/vote", post.ID)

	w := performRequest(s.routerAs(s.author), http.MethodPost, path, map[string]int{"value": 1})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Cannot vote on your own post", decodeBody(s.T(), w)["error"])

	r := s.routerAs(s.reader)
	w = performRequest(r, http.MethodPost, path, map[string]int{"value": 2})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Vote value must be 1 or -1", decodeBody(s.T(), w)["error"])

	w = performRequest(r, http.MethodPost, path, map[string]int{"value": 1})
	s.Require().Equal(http.StatusOK, w.Code)
	body := decodeBody(s.T(), w)
	s.EqualValues(1, body["voteScore"])
	s.EqualValues(1, body["userVote"])
	s.Equal(10, testutil.Reputation(s.T(), s.db, s.author.ID))

	// same value again retracts
	w = performRequest(r, http.MethodPost, path, map[string]int{"value": 1})
	s.Require().Equal(http.StatusOK, w.Code)
	body = decodeBody(s.T(), w)
	s.EqualValues(0, body["voteScore"])
	s.Nil(body["userVote"])
	s.Equal(0, testutil.Reputation(s.T(), s.db, s.author.ID))

	w = performRequest(r, http.MethodPost, "/api/posts/9999/vote", map[string]int{"value": 1})
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *ForumHandlerTestSuite) TestReputationHistory() {
	post := testutil.CreatePost(s.T(), s.db, s.author.ID, "Question", "body")
	reader := s.routerAs(s.reader)
	path := fmt.Sprintf("/api/posts/%d/vote", post.ID)

	performRequest(reader, http.MethodPost, path, map[string]int{"value": 1})
	performRequest(reader, http.MethodPost, path, map[string]int{"value": -1})

	w := performRequest(s.routerAs(s.author), http.MethodGet, "/api/reputation", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	body := decodeBody(s.T(), w)
	s.EqualValues(-2, body["reputation"])

	history := body["history"].([]interface{})
	s.Require().Len(history, 2)
	latest := history[0].(map[string]interface{})
	s.Equal("vote_flipped", latest["reason"])
	s.EqualValues(-12, latest["delta"])
	s.EqualValues(post.ID, latest["postId"])

	w = performRequest(reader, http.MethodGet, "/api/reputation", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Empty(decodeBody(s.T(), w)["history"])
}

func (s *ForumHandlerTestSuite) TestAnswersAndAccept() {
	post := testutil.CreatePost(s.T(), s.db, s.author.ID, "Question", "body")
	reader := s.routerAs(s.reader)

	w := performRequest(reader, http.MethodPost, fmt.Sprintf("/api/posts/%d/answers", post.ID), map[string]string{"content": "  "})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Content is required", decodeBody(s.T(), w)["error"])

	w = performRequest(reader, http.MethodPost, fmt.Sprintf("/api/posts/%d/answers", post.ID), map[string]string{"content": "Check the *vacuum* line"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	answerID := uint64(decodeBody(s.T(), w)["id"].(float64))

	acceptPath := fmt.Sprintf("/api/posts/%d/accept", post.ID)
	w = performRequest(reader, http.MethodPatch, acceptPath, map[string]uint64{"answerId": answerID})
	s.Equal(http.StatusForbidden, w.Code)
	s.Equal("Only post author can accept answers", decodeBody(s.T(), w)["error"])

	w = performRequest(s.routerAs(s.author), http.MethodPatch, acceptPath, map[string]uint64{"answerId": answerID})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(s.T(), w)
	s.EqualValues(answerID, body["acceptedAnswerId"])
	answers := body["answers"].([]interface{})
	s.Require().Len(answers, 1)
	s.Equal(true, answers[0].(map[string]interface{})["isAccepted"])
	s.Contains(answers[0].(map[string]interface{})["contentHtml"], "<em>vacuum</em>")
	s.Equal(15, testutil.Reputation(s.T(), s.db, s.reader.ID))

	w = performRequest(s.routerAs(s.author), http.MethodPatch, acceptPath, map[string]interface{}{"answerId": nil})
	s.Require().Equal(http.StatusOK, w.Code)
	s.Nil(decodeBody(s.T(), w)["acceptedAnswerId"])
	s.Equal(0, testutil.Reputation(s.T(), s.db, s.reader.ID))
}

func (s *ForumHandlerTestSuite) TestLockedPostRejectsAnswers() {
	post := testutil.CreatePost(s.T(), s.db, s.author.ID, "Question", "body")

	w := performRequest(s.routerAs(s.reader), http.MethodPatch, fmt.Sprintf("/api/admin/posts/%d", post.ID), map[string]bool{"isLocked": true})
	s.Equal(http.StatusForbidden, w.Code)

	w = performRequest(s.routerAs(s.admin), http.MethodPatch, fmt.Sprintf("/api/admin/posts/%d", post.ID), map[string]bool{"isLocked": true})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal(true, decodeBody(s.T(), w)["isLocked"])

	w = performRequest(s.routerAs(s.reader), http.MethodPost, fmt.Sprintf("/api/posts/%d/answers", post.ID), map[string]string{"content": "late"})
	s.Equal(http.StatusForbidden, w.Code)
	s.Equal("Post is locked", decodeBody(s.T(), w)["error"])

	w = performRequest(s.routerAs(s.admin), http.MethodPatch, fmt.Sprintf("/api/admin/posts/%d", post.ID), map[string]bool{})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *ForumHandlerTestSuite) TestDeleteAnswer() {
	post := testutil.CreatePost(s.T(), s.db, s.author.ID, "Question", "body")
	answer := testutil.CreateAnswer(s.T(), s.db, post.ID, s.reader.ID, "answer")
	path := fmt.Sprintf("/api/posts/%d/answers/%d", post.ID, answer.ID)

	w := performRequest(s.routerAs(s.author), http.MethodDelete, path, nil)
	s.Equal(http.StatusForbidden, w.Code)

	w = performRequest(s.routerAs(s.admin), http.MethodDelete, path, nil)
	s.Require().Equal(http.StatusOK, w.Code)

	w = performRequest(s.routerAs(s.reader), http.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Empty(decodeBody(s.T(), w)["answers"])
}

func (s *ForumHandlerTestSuite) TestDeletePost() {
	post := testutil.CreatePost(s.T(), s.db, s.author.ID, "Question", "body")

	w := performRequest(s.routerAs(s.admin), http.MethodDelete, fmt.Sprintf("/api/admin/posts/%d", post.ID), nil)
	s.Require().Equal(http.StatusOK, w.Code)

	w = performRequest(s.routerAs(s.reader), http.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("Post not found", decodeBody(s.T(), w)["error"])
}

func TestForumHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(ForumHandlerTestSuite))
}

func TestForumHandler_Contributors(t *testing.T) {
	db := testutil.NewTestDB(t)
	forumService, err := services.NewForumService(db)
	require.NoError(t, err)
	handler := NewForumHandler(forumService)

	user := testutil.CreateUser(t, db, "alice", models.UserRoleUser)
	require.NoError(t, db.Model(user).Update("reputation", 25).Error)

	r := gin.New()
	r.GET("/api/contributors", asUser(user), handler.Contributors)

	w := performRequest(r, http.MethodGet, "/api/contributors", nil)
	require.Equal(t, http.StatusOK, w.Code)
	contributors := decodeBody(t, w)["contributors"].([]interface{})
	require.NotEmpty(t, contributors)
	assert.Equal(t, "alice", contributors[0].(map[string]interface{})["username"])
}
