package service

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var plainTextPolicy = bluemonday.StrictPolicy()

// sanitizeText 去掉 HTML 标签并合并空白，用于模型输出与用户填写的名称。
func sanitizeText(raw string) string {
	cleaned := html.UnescapeString(plainTextPolicy.Sanitize(raw))
	return strings.Join(strings.Fields(cleaned), " ")
}
