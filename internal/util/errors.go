package util

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrEmailRegistered    = errors.New("email already registered")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrTestNotFound       = errors.New("test not found")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrLessonNotFound     = errors.New("lesson not found")
	ErrCategoryDenied     = errors.New("category not accessible")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrStaleSnapshot      = errors.New("snapshot is older than the stored one")
)
