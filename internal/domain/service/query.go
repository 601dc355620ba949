package service

import (
	"strings"
	"unicode"

	"github.com/wolfitem/news-agent/internal/domain/model"
)

// 英文停用词表，分词时过滤掉这些对意图和相关性没有贡献的词
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "get": {}, "give": {},
	"has": {}, "have": {}, "in": {}, "is": {}, "it": {}, "latest": {},
	"me": {}, "my": {}, "of": {}, "on": {}, "or": {}, "our": {},
	"show": {}, "that": {}, "the": {}, "this": {}, "to": {}, "top": {},
	"was": {}, "were": {}, "what": {}, "with": {}, "you": {}, "your": {},
}

// NewQuery 根据原始查询文本构建只读的Query对象。
// 关键词为小写分词并去除停用词，保持首次出现的顺序且不重复
func NewQuery(raw string) model.Query {
	return model.Query{
		Raw:      raw,
		Keywords: Tokenize(raw),
	}
}

// Tokenize 将文本切分为小写关键词，去除停用词和单字符词
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(fields))
	var keywords []string
	for _, word := range fields {
		if len(word) < 2 {
			continue
		}
		if _, ok := stopWords[word]; ok {
			continue
		}
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
	}
	return keywords
}
