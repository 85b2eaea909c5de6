package main

import "time"

type user struct {
	ID           int        `json:"id" gorm:"primaryKey"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Name         string     `json:"name" gorm:"size:255;not null"`
	Email        string     `json:"email" gorm:"size:255;not null;uniqueIndex"`
	PasswordHash []byte     `json:"-" gorm:"not null"`
	Tasks        []task     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Tokens       []apiToken `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

func (user) TableName() string { return "users" }

type task struct {
	ID          int        `gorm:"primaryKey"`
	UserID      int        `gorm:"not null;index"`
	Title       string     `gorm:"size:150;not null"`
	Description *string    `gorm:"size:255"`
	DueDate     *time.Time `gorm:"type:date;index"`
	Completed   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (task) TableName() string { return "tasks" }

func (t *task) isCompleted() bool {
	return t.Completed != nil
}

type apiToken struct {
	ID         int       `gorm:"primaryKey"`
	UserID     int       `gorm:"not null;index"`
	Name       string    `gorm:"size:255;not null"`
	TokenHash  string    `gorm:"size:64;not null;uniqueIndex"`
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

func (apiToken) TableName() string { return "api_tokens" }

const dateLayout = "2006-01-02"

// taskResponse is the JSON shape of a task.
type taskResponse struct {
	ID          int        `json:"id"`
	UserID      int        `json:"user_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	DueDate     *string    `json:"due_date"`
	Completed   *time.Time `json:"completed"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toTaskResponse(t *task) taskResponse {
	resp := taskResponse{
		ID:          t.ID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.DueDate != nil {
		d := t.DueDate.Format(dateLayout)
		resp.DueDate = &d
	}
	return resp
}

func toTaskResponses(tasks []*task) []taskResponse {
	result := make([]taskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = toTaskResponse(t)
	}
	return result
}
