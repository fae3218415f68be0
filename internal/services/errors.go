// Package services defines the business logic for the directory, the
// anonymous call matchmaking, and the experience feed. This file centralizes
// common service-level error values so that they can be consistently returned
// by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

// Business directory errors.
var (
	// ErrBusinessNotFound indicates that the requested listing does not exist.
	ErrBusinessNotFound = errors.New("business not found")

	// ErrEmptyTitle is returned when a listing is submitted without a title.
	ErrEmptyTitle = errors.New("title is empty")

	// ErrEmptyCategory is returned when a listing is submitted without a category.
	ErrEmptyCategory = errors.New("category is empty")

	// ErrEmptyDescription is returned when a listing is submitted without a
	// description.
	ErrEmptyDescription = errors.New("description is empty")

	// ErrTooManyTags is returned when a listing carries more tags than allowed.
	ErrTooManyTags = errors.New("too many tags")

	// ErrAlreadyLiked is returned when a user likes a listing they have
	// already liked.
	ErrAlreadyLiked = errors.New("already liked")

	// ErrNotLiked is returned when a user unlikes a listing they never liked.
	ErrNotLiked = errors.New("not liked")

	// ErrInvalidContact is returned when a contact request is missing the
	// sender name, the sender contact, or the message body.
	ErrInvalidContact = errors.New("contact request is incomplete")
)

// Call matchmaking errors.
var (
	// ErrInvalidLanguage is returned when a search request names a language
	// outside the supported table.
	ErrInvalidLanguage = errors.New("unsupported language")

	// ErrAlreadySearching is returned when a user starts a search while one
	// is already active for them.
	ErrAlreadySearching = errors.New("search already in progress")
)

// Experience feed errors.
var (
	// ErrExperienceNotFound indicates that the requested post does not exist.
	ErrExperienceNotFound = errors.New("experience not found")

	// ErrEmptyContent is returned when a post or a comment is submitted with
	// an empty body.
	ErrEmptyContent = errors.New("content is empty")
)
