package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	EventBusLocal = "local"
	EventBusRedis = "redis"
)

const (
	NotifyLog      = "log"
	NotifySendGrid = "sendgrid"
)

// 附件上传相关常量
const (
	MaxAttachmentSize = 20 << 20
)

var (
	AllowedAttachmentExtensions = []string{".pdf", ".doc", ".docx", ".txt", ".md", ".zip", ".png", ".jpg", ".jpeg", ".c", ".h"}
)
