package util

import (
	"errors"
	"net/http"
)

// 评分与进度相关的错误分类，调用方通过 errors.Is 判断
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadySubmitted = errors.New("already submitted")
	ErrInvalidQuestion  = errors.New("invalid question")
	ErrInvalidMarks     = errors.New("invalid marks")
	ErrInvalidState     = errors.New("invalid state")
	ErrNotEligible      = errors.New("not eligible")
	ErrStorage          = errors.New("storage error")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidArgument  = errors.New("invalid argument")
)

const (
	KindNotFound         = "NOT_FOUND"
	KindAlreadySubmitted = "ALREADY_SUBMITTED"
	KindInvalidQuestion  = "INVALID_QUESTION"
	KindInvalidMarks     = "INVALID_MARKS"
	KindInvalidState     = "INVALID_STATE"
	KindNotEligible      = "NOT_ELIGIBLE"
	KindStorage          = "STORAGE_ERROR"
	KindForbidden        = "FORBIDDEN"
	KindInvalidArgument  = "INVALID_ARGUMENT"
	KindUnauthenticated  = "UNAUTHENTICATED"
)

var errorKinds = []struct {
	err    error
	kind   string
	status int
}{
	{ErrNotFound, KindNotFound, http.StatusNotFound},
	{ErrAlreadySubmitted, KindAlreadySubmitted, http.StatusConflict},
	{ErrInvalidQuestion, KindInvalidQuestion, http.StatusBadRequest},
	{ErrInvalidMarks, KindInvalidMarks, http.StatusBadRequest},
	{ErrInvalidState, KindInvalidState, http.StatusConflict},
	{ErrNotEligible, KindNotEligible, http.StatusForbidden},
	{ErrPermissionDenied, KindForbidden, http.StatusForbidden},
	{ErrInvalidArgument, KindInvalidArgument, http.StatusBadRequest},
	{ErrStorage, KindStorage, http.StatusInternalServerError},
}

// ErrorKind 返回错误对应的分类，未知错误统一视为存储错误
func ErrorKind(err error) string {
	kind, _ := classify(err)
	return kind
}

func classify(err error) (string, int) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind, k.status
		}
	}
	return KindStorage, http.StatusInternalServerError
}
