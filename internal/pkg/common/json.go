package common

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ParseJSON 解析 JSON 字符串到結構體
func ParseJSON(data string, v interface{}) error {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()

	if err := dec.Decode(v); err != nil {
		return err
	}

	// 確保沒有多餘資料
	for {
		t, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if t != nil {
			return fmt.Errorf("unexpected extra JSON data")
		}
	}
}

var (
	unquotedKeyPattern = regexp.MustCompile(`([{\[,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	trailingCommaRe    = regexp.MustCompile(`,\s*([}\]])`)
	codeFenceRe        = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")
)

// QuoteJSONKeys 將未加雙引號的鍵補上雙引號
func QuoteJSONKeys(raw string) string {
	return unquotedKeyPattern.ReplaceAllString(raw, `$1"$2":`)
}

// RemoveTrailingCommas 移除物件與陣列結尾多餘的逗號
func RemoveTrailingCommas(raw string) string {
	return trailingCommaRe.ReplaceAllString(raw, "$1")
}

// ExtractJSONObject 從模型回覆中取出第一個 "{" 到最後一個 "}" 之間的內容，
// 會先去除 markdown code fence
func ExtractJSONObject(content string) (string, bool) {
	content = strings.TrimSpace(content)
	if m := codeFenceRe.FindStringSubmatch(content); m != nil {
		content = strings.TrimSpace(m[1])
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return content[start : end+1], true
}
