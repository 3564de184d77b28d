package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateCommentRequest struct {
	Text string `json:"text" binding:"required,min=1,max=1000"`
}

type ToggleReactionRequest struct {
	Kind string `json:"kind" binding:"required,oneof=like dislike"`
}

type CommentAuthor struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
}

type CommentResponse struct {
	ID           uuid.UUID     `json:"id"`
	MaterialID   uuid.UUID     `json:"material_id"`
	User         CommentAuthor `json:"user"`
	Text         string        `json:"text"`
	Likes        int64         `json:"likes"`
	Dislikes     int64         `json:"dislikes"`
	UserReaction string        `json:"user_reaction,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// ReactionStateResponse is returned after a like/dislike toggle.
type ReactionStateResponse struct {
	CommentID    uuid.UUID `json:"comment_id"`
	Likes        int64     `json:"likes"`
	Dislikes     int64     `json:"dislikes"`
	UserReaction string    `json:"user_reaction,omitempty"`
}
