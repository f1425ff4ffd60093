package services

import (
	"context"

	"moltbot/internal/models"
)

// SocialClient is what the router and heartbeat need from the social network.
// *moltbook.Client satisfies it.
type SocialClient interface {
	Authenticate(ctx context.Context) error
	CreatePost(ctx context.Context, title, content, submolt string) (*models.PostResult, error)
	Comment(ctx context.Context, postID, content string) (*models.CommentResult, error)
	BrowseFeed(ctx context.Context, submolt string) ([]models.MoltbookPost, error)
	Upvote(ctx context.Context, postID string) (bool, error)
}
