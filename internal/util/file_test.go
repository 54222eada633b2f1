package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAttachmentName(t *testing.T) {
	ext, err := ValidateAttachmentName("Report.PDF")
	require.NoError(t, err)
	assert.Equal(t, ".pdf", ext)

	ext, err = ValidateAttachmentName("list.c")
	require.NoError(t, err)
	assert.Equal(t, ".c", ext)

	_, err = ValidateAttachmentName("payload.exe")
	assert.ErrorIs(t, err, ErrAttachmentType)

	_, err = ValidateAttachmentName("README")
	assert.ErrorIs(t, err, ErrAttachmentType)
}

func TestAttachmentObjectKey(t *testing.T) {
	key := AttachmentObjectKey(42, ".zip")
	assert.True(t, strings.HasPrefix(key, "submissions/42/"))
	assert.True(t, strings.HasSuffix(key, ".zip"))
	assert.NotEqual(t, key, AttachmentObjectKey(42, ".zip"))
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "application/octet-stream", DetectContentType(nil))
	assert.Equal(t, "application/pdf", DetectContentType([]byte("%PDF-1.7\n")))
	assert.Contains(t, DetectContentType([]byte("int main(void) { return 0; }")), "text/plain")
}
