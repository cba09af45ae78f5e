package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrMissingColumn  = errors.New("missing required column")
	ErrEmptyDataset   = errors.New("empty dataset")
	ErrUnmappedLabel  = errors.New("unmapped classifier label")
	ErrClassifier     = errors.New("classifier failure")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrStoreClosed    = errors.New("store closed")
	ErrMaskUnreadable = errors.New("mask unreadable")
)
