package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/wolfitem/news-agent/internal/domain/model"
	"github.com/wolfitem/news-agent/internal/domain/service"
	"github.com/wolfitem/news-agent/internal/infrastructure/logger"
	"github.com/wolfitem/news-agent/internal/middleware"
)

// 正文抽取的边界参数
const (
	// minBodyChars 低于该长度的抽取结果视为失败，回退为订阅简述
	minBodyChars = 200
	// maxBodyChars 正文截断上限，约束下游分析与摘要的开销
	maxBodyChars = 20000
	// maxResponseBytes 页面响应体读取上限
	maxResponseBytes = 2 * 1024 * 1024
)

// Extractor 实现service.ContentExtractor接口：
// go-readability抽取主干，goquery最大文本块启发式兜底
type Extractor struct {
	client    *http.Client
	retry     middleware.RetryPolicy
	userAgent string
}

// NewExtractor 创建正文抽取器。超时由调用方通过上下文期限控制
func NewExtractor() service.ContentExtractor {
	return &Extractor{
		client:    &http.Client{},
		retry:     middleware.ExtractPolicy(),
		userAgent: "news-agent/1.0",
	}
}

// Extract 抓取条目链接并抽取正文。任何失败都不越过此边界：
// Extracted置false并回退为订阅简述，每个条目恰好产出一篇文章
func (e *Extractor) Extract(ctx context.Context, entry model.RawEntry) model.Article {
	article := model.Article{RawEntry: entry}

	body, err := e.extractBody(ctx, entry)
	if err != nil {
		logger.Warn("正文抽取失败，使用回退文本",
			"title", entry.Title, "link", entry.Link, "error", err)
		article.Body = strings.TrimSpace(entry.Description)
		article.Extracted = false
		return article
	}

	article.Body = body
	article.Extracted = true
	return article
}

// extractBody 抓取页面并抽取正文，长度不足阈值视为失败
func (e *Extractor) extractBody(ctx context.Context, entry model.RawEntry) (string, error) {
	if strings.TrimSpace(entry.Link) == "" {
		return "", fmt.Errorf("%w: 条目没有链接", model.ErrExtractionFailed)
	}

	pageURL, err := url.Parse(entry.Link)
	if err != nil {
		return "", fmt.Errorf("%w: 链接无法解析: %v", model.ErrExtractionFailed, err)
	}

	// 瞬时网络失败按策略重试一次，指数退避
	var html []byte
	err = e.retry.Do(ctx, func() error {
		fetched, fetchErr := e.fetchPage(ctx, entry.Link)
		if fetchErr != nil {
			return fetchErr
		}
		html = fetched
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrExtractionFailed, err)
	}

	// 主路径：readability抽取文章主干
	if doc, rerr := readability.FromReader(strings.NewReader(string(html)), pageURL); rerr == nil {
		if body := normalizeText(doc.TextContent); len(body) >= minBodyChars {
			return truncate(body, maxBodyChars), nil
		}
	}

	// 兜底：最大连续文本块启发式
	body, err := largestTextBlock(string(html))
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrExtractionFailed, err)
	}
	if len(body) < minBodyChars {
		return "", fmt.Errorf("%w: 抽取文本过短(%d字符)", model.ErrExtractionFailed, len(body))
	}
	return truncate(body, maxBodyChars), nil
}

// fetchPage 抓取页面HTML，超时由上下文期限控制
func (e *Extractor) fetchPage(ctx context.Context, link string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("页面返回错误(状态码: %d)", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}
	return body, nil
}

// 正文候选选择器，按优先级排列
var contentSelectors = []string{
	"article", "[role=main]", ".article-body", ".story-body", ".entry-content", "main",
}

// largestTextBlock 去除脚本/导航等样板后，取文本量最大的候选区块；
// 都没有命中时退回全部段落文本
func largestTextBlock(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("解析HTML失败: %w", err)
	}

	doc.Find("script, style, nav, aside, header, footer, form, noscript").Remove()

	best := ""
	for _, selector := range contentSelectors {
		var parts []string
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			parts = append(parts, sel.Text())
		})
		if text := normalizeText(strings.Join(parts, " ")); len(text) > len(best) {
			best = text
		}
	}
	if best != "" {
		return best, nil
	}

	var paragraphs []string
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		paragraphs = append(paragraphs, sel.Text())
	})
	return normalizeText(strings.Join(paragraphs, " ")), nil
}

// normalizeText 将连续空白字符折叠为单个空格
func normalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// truncate 截断字符串到最大字节数，切点回退到rune边界
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
