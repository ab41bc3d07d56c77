package models

import "time"

type Video struct {
	ID           string    `bson:"_id" json:"id"`
	UserID       string    `bson:"user_id" json:"user_id"`
	Title        string    `bson:"title" json:"title"`
	Description  string    `bson:"description" json:"description"`
	ThumbnailURL *string   `bson:"thumbnail_url,omitempty" json:"thumbnail_url"`
	VideoURL     *string   `bson:"video_url,omitempty" json:"video_url"`
	VideoKey     string    `bson:"video_key,omitempty" json:"-"` // S3 object key of the uploaded video
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}
