package common

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// NewRecipeID 以標題 slug 加上 UUID 前綴產生穩定的食譜 ID
func NewRecipeID(title string) string {
	slug := strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(title), "_"), "_")
	if len(slug) > 40 {
		slug = strings.TrimRight(slug[:40], "_")
	}
	if slug == "" {
		slug = "recipe"
	}
	return slug + "_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

// NormalizeTitle 不分大小寫並合併空白，用於標題分組
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}
