package domain

import "time"

// Comment is a note left on a task by its author.
type Comment struct {
	ID        string    `json:"id" bson:"_id"`
	TaskID    string    `json:"taskId" bson:"task_id"`
	AuthorID  string    `json:"authorId" bson:"author_id"`
	Content   string    `json:"content" bson:"content"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}
