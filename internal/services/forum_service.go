package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/astrasemi/assistant/internal/constants"
	applog "github.com/astrasemi/assistant/internal/logger"
	"github.com/astrasemi/assistant/internal/models"
	"github.com/astrasemi/assistant/internal/repository"
	"github.com/astrasemi/assistant/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrPostNotFound       = errors.New("post not found")
	ErrAnswerNotFound     = errors.New("answer not found")
	ErrPostFieldsRequired = errors.New("title, content, and category are required")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidSort        = errors.New("invalid sort")
	ErrContentRequired    = errors.New("content is required")
	ErrPostLocked         = errors.New("post is locked")
	ErrInvalidVoteValue   = errors.New("vote value must be 1 or -1")
	ErrSelfVote           = errors.New("cannot vote on your own post")
	ErrVoteConflict       = errors.New("vote changed concurrently")
	ErrNotPostAuthor      = errors.New("only post author can accept answers")
	ErrInvalidAnswer      = errors.New("invalid answer")
	ErrNotAnswerAuthor    = errors.New("only the answer author or an admin can delete it")
)

// ForumService implements posts, answers, voting and accepted answers.
type ForumService struct {
	db           *gorm.DB
	postRepo     repository.PostRepository
	userRepo     repository.UserRepository
	voteRepo     repository.VoteRepository
	repLog       repository.ReputationRepository
	contributors *utils.TTLCache[[]models.User]
}

func NewForumService(db *gorm.DB) (*ForumService, error) {
	cache, err := utils.NewTTLCache[[]models.User](8)
	if err != nil {
		return nil, fmt.Errorf("failed to create contributors cache: %w", err)
	}

	return &ForumService{
		db:           db,
		postRepo:     repository.NewPostRepository(db),
		userRepo:     repository.NewUserRepository(db),
		voteRepo:     repository.NewVoteRepository(db),
		repLog:       repository.NewReputationRepository(db),
		contributors: cache,
	}, nil
}

// CreatePostInput represents input for creating a post
type CreatePostInput struct {
	Title    string
	Content  string
	Category string
}

// PostDetail is a post with its live aggregates, the viewer's vote and its
// visible answers, accepted answer first.
type PostDetail struct {
	Post        models.Post
	VoteScore   int64
	AnswerCount int64
	UserVote    *int
	Answers     []models.Answer
}

// VoteResult is the post's score after a vote and the caller's current vote.
type VoteResult struct {
	VoteScore int64
	UserVote  *int
}

// ListPosts returns one page of posts. An empty sort means newest.
func (s *ForumService) ListPosts(filter repository.PostFilter) ([]models.PostWithStats, int64, error) {
	if filter.Sort == "" {
		filter.Sort = repository.SortNewest
	}
	if !filter.Sort.Valid() {
		return nil, 0, ErrInvalidSort
	}
	if filter.Category != nil && !filter.Category.Valid() {
		return nil, 0, ErrInvalidCategory
	}

	posts, total, err := s.postRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, total, nil
}

// CreatePost creates a post authored by authorID
func (s *ForumService) CreatePost(authorID uint64, input CreatePostInput) (*models.PostWithStats, error) {
	title := strings.TrimSpace(input.Title)
	content := strings.TrimSpace(input.Content)
	category := models.PostCategory(strings.ToUpper(strings.TrimSpace(input.Category)))

	if title == "" || content == "" || category == "" {
		return nil, ErrPostFieldsRequired
	}
	if !category.Valid() {
		return nil, ErrInvalidCategory
	}

	post := &models.Post{
		Title:    title,
		Content:  content,
		Category: category,
		AuthorID: authorID,
	}
	if err := s.postRepo.Create(post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	created, err := s.postRepo.FindByID(post.ID, "Author")
	if err != nil {
		return nil, fmt.Errorf("failed to load post: %w", err)
	}

	applog.Log.Info("Post created", zap.Uint64("post_id", post.ID), zap.Uint64("author_id", authorID))
	return &models.PostWithStats{Post: *created}, nil
}

// GetPostDetail loads a post as seen by viewerID
func (s *ForumService) GetPostDetail(postID, viewerID uint64) (*PostDetail, error) {
	post, err := s.postRepo.FindByID(postID, "Author")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to find post: %w", err)
	}

	score, err := s.postRepo.VoteScore(postID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute vote score: %w", err)
	}

	answers, err := s.postRepo.ListAnswers(postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	if post.AcceptedAnswerID != nil {
		accepted := *post.AcceptedAnswerID
		sort.SliceStable(answers, func(i, j int) bool {
			return answers[i].ID == accepted && answers[j].ID != accepted
		})
	}

	userVote, err := s.currentVote(s.voteRepo, postID, viewerID)
	if err != nil {
		return nil, err
	}

	return &PostDetail{
		Post:        *post,
		VoteScore:   score,
		AnswerCount: int64(len(answers)),
		UserVote:    userVote,
		Answers:     answers,
	}, nil
}

// CreateAnswer adds an answer to an unlocked post
func (s *ForumService) CreateAnswer(authorID, postID uint64, content string) (*models.Answer, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrContentRequired
	}

	post, err := s.postRepo.FindByID(postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if post.IsLocked {
		return nil, ErrPostLocked
	}

	answer := &models.Answer{
		PostID:   postID,
		AuthorID: authorID,
		Content:  content,
	}
	if err := s.postRepo.CreateAnswer(answer); err != nil {
		return nil, fmt.Errorf("failed to create answer: %w", err)
	}

	author, err := s.userRepo.FindByID(authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load answer author: %w", err)
	}
	answer.Author = *author

	applog.Log.Info("Answer created", zap.Uint64("answer_id", answer.ID), zap.Uint64("post_id", postID))
	return answer, nil
}

// DeleteAnswer soft deletes an answer. Deleting the accepted answer clears
// the acceptance and takes the bonus back from its author.
func (s *ForumService) DeleteAnswer(actor *models.User, postID, answerID uint64) error {
	reputationChanged := false

	err := s.db.Transaction(func(tx *gorm.DB) error {
		posts := repository.NewPostRepository(tx)

		answer, err := posts.FindAnswer(answerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAnswerNotFound
			}
			return err
		}
		if answer.PostID != postID || answer.IsDeleted {
			return ErrAnswerNotFound
		}
		if answer.AuthorID != actor.ID && actor.Role != models.UserRoleAdmin {
			return ErrNotAnswerAuthor
		}

		post, err := posts.FindByID(postID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}

		if err := posts.SoftDeleteAnswer(answerID); err != nil {
			return err
		}

		if post.AcceptedAnswerID == nil || *post.AcceptedAnswerID != answerID {
			return nil
		}
		if err := posts.UpdateFields(postID, map[string]interface{}{"accepted_answer_id": nil}); err != nil {
			return err
		}
		reputationChanged = true
		return applyReputation(tx, reputationChange{
			userID:  answer.AuthorID,
			actorID: actor.ID,
			postID:  postID,
			delta:   -constants.ReputationAcceptedAnswer,
			reason:  models.ReasonAnswerUnaccepted,
		})
	})
	if err != nil {
		if isForumError(err) {
			return err
		}
		return fmt.Errorf("failed to delete answer: %w", err)
	}

	if reputationChanged {
		s.invalidateContributors()
	}
	applog.Log.Info("Answer deleted", zap.Uint64("answer_id", answerID), zap.Uint64("actor_id", actor.ID))
	return nil
}

// Vote casts, flips or retracts the voter's vote on a post. Casting the same
// value twice retracts. The author's reputation moves in the same transaction.
func (s *ForumService) Vote(voterID, postID uint64, value int) (*VoteResult, error) {
	if value != 1 && value != -1 {
		return nil, ErrInvalidVoteValue
	}

	var result VoteResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		posts := repository.NewPostRepository(tx)
		votes := repository.NewVoteRepository(tx)

		post, err := posts.FindByID(postID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}
		if post.AuthorID == voterID {
			return ErrSelfVote
		}

		change := reputationChange{userID: post.AuthorID, actorID: voterID, postID: postID}

		existing, err := votes.Find(postID, voterID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := votes.Create(&models.Vote{PostID: postID, UserID: voterID, Value: value}); err != nil {
				return err
			}
			change.delta = voteEffect(value)
			change.reason = castReason(value)
		case err != nil:
			return err
		case existing.Value == value:
			deleted, err := votes.Delete(existing.ID, existing.Value)
			if err != nil {
				return err
			}
			if !deleted {
				return ErrVoteConflict
			}
			change.delta = -voteEffect(existing.Value)
			change.reason = models.ReasonVoteRetracted
		default:
			updated, err := votes.UpdateValue(existing.ID, existing.Value, value)
			if err != nil {
				return err
			}
			if !updated {
				return ErrVoteConflict
			}
			change.delta = voteEffect(value) - voteEffect(existing.Value)
			change.reason = models.ReasonVoteFlipped
		}

		if err := applyReputation(tx, change); err != nil {
			return err
		}

		score, err := posts.VoteScore(postID)
		if err != nil {
			return err
		}
		userVote, err := s.currentVote(votes, postID, voterID)
		if err != nil {
			return err
		}

		result = VoteResult{VoteScore: score, UserVote: userVote}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, ErrVoteConflict) {
			applog.Log.Warn("Concurrent vote rejected", zap.Uint64("post_id", postID), zap.Uint64("user_id", voterID))
			return nil, ErrVoteConflict
		}
		if isForumError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to vote: %w", err)
	}

	s.invalidateContributors()
	return &result, nil
}

// SetAcceptedAnswer accepts answerID on the post, or un-accepts when it is
// nil. Only the post author may call it. Re-accepting the current answer
// changes nothing.
func (s *ForumService) SetAcceptedAnswer(actorID, postID uint64, answerID *uint64) (*PostDetail, error) {
	reputationChanged := false

	err := s.db.Transaction(func(tx *gorm.DB) error {
		posts := repository.NewPostRepository(tx)

		post, err := posts.FindByID(postID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}
		if post.AuthorID != actorID {
			return ErrNotPostAuthor
		}

		var next *models.Answer
		if answerID != nil {
			answer, err := posts.FindAnswer(*answerID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrInvalidAnswer
				}
				return err
			}
			if answer.PostID != postID || answer.IsDeleted {
				return ErrInvalidAnswer
			}
			next = answer
		}

		if sameAnswer(post.AcceptedAnswerID, answerID) {
			return nil
		}

		var changes []reputationChange
		if post.AcceptedAnswerID != nil {
			previous, err := posts.FindAnswer(*post.AcceptedAnswerID)
			switch {
			case err == nil:
				changes = append(changes, reputationChange{
					userID:  previous.AuthorID,
					actorID: actorID,
					postID:  postID,
					delta:   -constants.ReputationAcceptedAnswer,
					reason:  models.ReasonAnswerUnaccepted,
				})
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return err
			}
		}

		var accepted interface{}
		if next != nil {
			accepted = next.ID
			changes = append(changes, reputationChange{
				userID:  next.AuthorID,
				actorID: actorID,
				postID:  postID,
				delta:   constants.ReputationAcceptedAnswer,
				reason:  models.ReasonAnswerAccepted,
			})
		}
		if err := posts.UpdateFields(postID, map[string]interface{}{"accepted_answer_id": accepted}); err != nil {
			return err
		}

		reputationChanged = len(changes) > 0
		return applyReputation(tx, changes...)
	})
	if err != nil {
		if isForumError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to accept answer: %w", err)
	}

	if reputationChanged {
		s.invalidateContributors()
	}
	return s.GetPostDetail(postID, actorID)
}

// TopContributors returns the leaderboard, served from cache for a short TTL.
func (s *ForumService) TopContributors() ([]models.User, error) {
	if users, ok := s.contributors.Get(constants.ContributorsCacheKey); ok {
		return users, nil
	}

	users, err := s.userRepo.TopContributors(constants.ContributorsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributors: %w", err)
	}

	s.contributors.Set(constants.ContributorsCacheKey, users, constants.ContributorsCacheTTL)
	return users, nil
}

// ReputationHistory returns the user's current reputation and its most recent changes
func (s *ForumService) ReputationHistory(userID uint64) (*models.User, []models.ReputationLog, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("failed to load user: %w", err)
	}

	entries, err := s.repLog.ListByUser(userID, constants.ReputationHistorySize)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list reputation history: %w", err)
	}
	return user, entries, nil
}

// UpdatePostFlags sets the pinned and locked flags; nil leaves a flag unchanged.
func (s *ForumService) UpdatePostFlags(postID uint64, isPinned, isLocked *bool) (*models.Post, error) {
	fields := map[string]interface{}{}
	if isPinned != nil {
		fields["is_pinned"] = *isPinned
	}
	if isLocked != nil {
		fields["is_locked"] = *isLocked
	}
	if len(fields) == 0 {
		return nil, ErrNoFieldsToUpdate
	}

	if _, err := s.postRepo.FindByID(postID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to find post: %w", err)
	}

	if err := s.postRepo.UpdateFields(postID, fields); err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	applog.Log.Info("Post flags updated", zap.Uint64("post_id", postID), zap.Any("fields", fields))
	return s.postRepo.FindByID(postID, "Author")
}

// DeletePost removes a post with its answers and votes
func (s *ForumService) DeletePost(postID uint64) error {
	if err := s.postRepo.Delete(postID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPostNotFound
		}
		return fmt.Errorf("failed to delete post: %w", err)
	}

	applog.Log.Info("Post deleted", zap.Uint64("post_id", postID))
	return nil
}

func (s *ForumService) currentVote(votes repository.VoteRepository, postID, userID uint64) (*int, error) {
	vote, err := votes.Find(postID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find vote: %w", err)
	}
	value := vote.Value
	return &value, nil
}

func (s *ForumService) invalidateContributors() {
	s.contributors.Delete(constants.ContributorsCacheKey)
}

func sameAnswer(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func isForumError(err error) bool {
	for _, target := range []error{
		ErrPostNotFound, ErrAnswerNotFound, ErrSelfVote, ErrNotPostAuthor,
		ErrInvalidAnswer, ErrNotAnswerAuthor,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
