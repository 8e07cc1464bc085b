package domain

import "errors"

var ErrNotFound = errors.New("not found")
var ErrUnsupported = errors.New("unsupported operation")
var ErrInvalidURL = errors.New("invalid url")
var ErrLowDiskSpace = errors.New("insufficient disk space")
var ErrInvalidPlaylistItems = errors.New("invalid playlist selection")
