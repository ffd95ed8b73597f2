package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxMessageLength 单条外发消息（回复/私信）的最大字符数
const MaxMessageLength = 2200

// 生成随机 ID
func GenerateID() string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// 生成 WebSocket 客户端 ID
func GenerateClientID() string {
	return fmt.Sprintf("client_%s_%d", GenerateID()[:8], time.Now().Unix())
}

// 时间格式化
func FormatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// Truncate cuts s to at most limit runes and appends "..." when it had to cut.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit]) + "..."
}

// 验证外发消息内容
func ValidateMessage(content string) bool {
	if strings.TrimSpace(content) == "" {
		return false
	}
	return utf8.RuneCountInString(content) <= MaxMessageLength
}
