package service

import (
	"fmt"

	"github.com/gilliek/go-opml/opml"
	"github.com/wolfitem/news-agent/internal/domain/model"
	"github.com/wolfitem/news-agent/internal/infrastructure/logger"
)

// SourceRegistry 定义内容源注册表接口。
// 源列表在进程启动时加载一次，运行期间只读，多次运行可安全共享
type SourceRegistry interface {
	// Sources 返回已注册的内容源列表
	Sources() []model.FeedSource
}

// sourceRegistry 实现SourceRegistry接口
type sourceRegistry struct {
	sources []model.FeedSource
}

// NewSourceRegistry 直接用给定的源列表创建注册表
func NewSourceRegistry(sources []model.FeedSource) SourceRegistry {
	return &sourceRegistry{sources: sources}
}

// NewSourceRegistryFromOpml 解析OPML订阅文件创建注册表，
// weights按源名称覆盖信任权重，缺省权重为1。
// OPML无法解析属于配置错误，是致命失败
func NewSourceRegistryFromOpml(opmlFilePath string, weights map[string]float64) (SourceRegistry, error) {
	logger.Info("开始解析OPML订阅文件", "file", opmlFilePath)
	defer logger.TimeTrack("NewSourceRegistryFromOpml")()

	doc, err := opml.NewOPMLFromFile(opmlFilePath)
	if err != nil {
		logger.Error("解析OPML文件失败", "file", opmlFilePath, "error", err)
		return nil, fmt.Errorf("%w: 解析OPML文件失败: %v", model.ErrInvalidConfig, err)
	}

	var sources []model.FeedSource
	for _, outline := range doc.Outlines() {
		// 递归处理所有outline
		sources = append(sources, extractSources(outline, weights)...)
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: OPML文件中没有任何订阅源: %s", model.ErrInvalidConfig, opmlFilePath)
	}

	logger.Info("OPML订阅文件解析完成", "file", opmlFilePath, "sources_count", len(sources))
	return &sourceRegistry{sources: sources}, nil
}

// Sources 返回已注册的内容源列表
func (r *sourceRegistry) Sources() []model.FeedSource {
	return r.sources
}

// extractSources 递归提取outline中的订阅源
func extractSources(outline opml.Outline, weights map[string]float64) []model.FeedSource {
	var sources []model.FeedSource

	// 如果当前outline有xmlUrl属性，则它是一个订阅源
	if outline.XMLURL != "" {
		name := outline.Title
		if name == "" {
			name = outline.Text
		}
		weight := 1.0
		if w, ok := weights[name]; ok {
			weight = w
		}
		sources = append(sources, model.FeedSource{
			Name:   name,
			URL:    outline.XMLURL,
			Weight: weight,
		})
	}

	// 递归处理子outline
	for _, child := range outline.Outlines {
		sources = append(sources, extractSources(child, weights)...)
	}

	return sources
}
