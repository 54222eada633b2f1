package util

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrAttachmentType = errors.New("unsupported attachment type")

// DetectContentType 根据文件头识别 MIME，识别失败时回退为 octet-stream
func DetectContentType(head []byte) string {
	if len(head) == 0 {
		return "application/octet-stream"
	}
	return http.DetectContentType(head)
}

// ValidateAttachmentName 只校验扩展名白名单
func ValidateAttachmentName(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range AllowedAttachmentExtensions {
		if ext == allowed {
			return ext, nil
		}
	}
	return "", ErrAttachmentType
}

// AttachmentObjectKey 生成附件对象存储路径：submissions/{submissionID}/{uuid}{ext}
func AttachmentObjectKey(submissionID uint, ext string) string {
	return "submissions/" + UintToString(submissionID) + "/" + uuid.New().String() + ext
}
