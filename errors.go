package bloghub

import "errors"

var (
	ErrPostExists       = errors.New("post already exists")
	ErrPostNotFound     = errors.New("post not found")
	ErrInvalidPostMeta  = errors.New("invalid post metadata")
	ErrAuthorExists     = errors.New("author already exists")
	ErrAuthorNotFound   = errors.New("author not found")
	ErrCategoryExists   = errors.New("category already exists")
	ErrCategoryNotFound = errors.New("category not found")
	ErrTagExists        = errors.New("tag already exists")
	ErrTagNotFound      = errors.New("tag not found")
	ErrInvalidName      = errors.New("invalid name")
)
