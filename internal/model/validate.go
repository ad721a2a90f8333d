package model

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	TitleMaxLength       = 200
	DescriptionMaxLength = 1000
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string { return e.Message }

// NormalizeCreate trims input and checks limits before anything is sent to a store.
func NormalizeCreate(title, description string) (TaskCreate, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" {
		return TaskCreate{}, ValidationError{Field: "title", Message: "Title is required"}
	}
	if err := checkLengths(title, description); err != nil {
		return TaskCreate{}, err
	}
	in := TaskCreate{Title: title}
	if description != "" {
		in.Description = &description
	}
	return in, nil
}

// NormalizeEdit validates an edit of title and/or description. Nil arguments are
// left out of the resulting update.
func NormalizeEdit(title, description *string) (TaskUpdate, error) {
	var up TaskUpdate
	if title != nil {
		t := strings.TrimSpace(*title)
		if t == "" {
			return TaskUpdate{}, ValidationError{Field: "title", Message: "Title cannot be empty"}
		}
		if utf8.RuneCountInString(t) > TitleMaxLength {
			return TaskUpdate{}, titleTooLong()
		}
		up.Title = &t
	}
	if description != nil {
		d := strings.TrimSpace(*description)
		if utf8.RuneCountInString(d) > DescriptionMaxLength {
			return TaskUpdate{}, descriptionTooLong()
		}
		up.Description = &d
	}
	return up, nil
}

func checkLengths(title, description string) error {
	if utf8.RuneCountInString(title) > TitleMaxLength {
		return titleTooLong()
	}
	if utf8.RuneCountInString(description) > DescriptionMaxLength {
		return descriptionTooLong()
	}
	return nil
}

func titleTooLong() error {
	return ValidationError{Field: "title", Message: fmt.Sprintf("Title must be %d characters or less", TitleMaxLength)}
}

func descriptionTooLong() error {
	return ValidationError{Field: "description", Message: fmt.Sprintf("Description must be %d characters or less", DescriptionMaxLength)}
}
