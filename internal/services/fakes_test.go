package services

import (
	"context"
	"fmt"
	"sync"

	"moltbot/internal/models"
)

// fakeSocial records calls and fails on demand
type fakeSocial struct {
	mu         sync.Mutex
	posts      []string
	comments   []string
	browses    int
	feed       []models.MoltbookPost
	postErr    error
	commentErr error
	browseErr  error
}

func (f *fakeSocial) Authenticate(ctx context.Context) error { return nil }

func (f *fakeSocial) CreatePost(ctx context.Context, title, content, submolt string) (*models.PostResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return nil, f.postErr
	}
	f.posts = append(f.posts, content)
	return &models.PostResult{PostID: fmt.Sprintf("post-%d", len(f.posts))}, nil
}

func (f *fakeSocial) Comment(ctx context.Context, postID, content string) (*models.CommentResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commentErr != nil {
		return nil, f.commentErr
	}
	f.comments = append(f.comments, postID+":"+content)
	return &models.CommentResult{PostID: postID}, nil
}

func (f *fakeSocial) BrowseFeed(ctx context.Context, submolt string) ([]models.MoltbookPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.browses++
	if f.browseErr != nil {
		return nil, f.browseErr
	}
	return f.feed, nil
}

func (f *fakeSocial) Upvote(ctx context.Context, postID string) (bool, error) { return true, nil }

func (f *fakeSocial) postCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts)
}
