package domain

import "github.com/pkg/errors"

var (
	ErrCourseNotFound = errors.New("course not found")
	ErrInvalidCourse  = errors.New("invalid course")
)
