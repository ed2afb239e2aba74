package project

import "errors"

var (
	// ErrProjectNotFound indicates the project doesn't exist.
	ErrProjectNotFound = errors.New("project not found")
	// ErrPartNotFound indicates the part doesn't exist within the project.
	ErrPartNotFound = errors.New("part not found")
	// ErrInvalidInput indicates invalid project or part input.
	ErrInvalidInput = errors.New("invalid project input")
)
