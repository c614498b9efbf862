package model

import "time"

// Post is a thread published by the managed account. Only the fields needed
// for reply context are tracked here.
type Post struct {
	ThreadID    string
	Content     string
	Platform    Platform
	PublishedAt time.Time
}
