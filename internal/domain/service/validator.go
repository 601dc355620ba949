package service

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/wolfitem/news-agent/internal/domain/model"
)

// Validator 提供输入与配置验证功能。
// 配置错误是错误分类中唯一的致命错误，必须在运行入口显式暴露
type Validator struct{}

// NewValidator 创建新的验证器实例
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateRunOptions 验证调用方配置。任何非法取值都包装ErrInvalidConfig返回
func (v *Validator) ValidateRunOptions(opts model.RunOptions) error {
	if opts.MaxArticlesPerSource < 0 {
		return fmt.Errorf("%w: maxArticlesPerSource不能为负数: %d", model.ErrInvalidConfig, opts.MaxArticlesPerSource)
	}
	if opts.MaxTotalArticles < 0 {
		return fmt.Errorf("%w: maxTotalArticles不能为负数: %d", model.ErrInvalidConfig, opts.MaxTotalArticles)
	}
	if opts.SummaryMaxLength < 0 {
		return fmt.Errorf("%w: summaryMaxLength不能为负数: %d", model.ErrInvalidConfig, opts.SummaryMaxLength)
	}
	if opts.PerSourceTimeoutMs < 0 || opts.ExtractTimeoutMs < 0 || opts.RunTimeoutMs < 0 {
		return fmt.Errorf("%w: 超时配置不能为负数", model.ErrInvalidConfig)
	}
	if opts.FetchConcurrency < 0 || opts.WorkerConcurrency < 0 {
		return fmt.Errorf("%w: 并发度配置不能为负数", model.ErrInvalidConfig)
	}

	rw := opts.RankingWeights
	if rw.Keyword < 0 || rw.Quality < 0 || rw.Recency < 0 {
		return fmt.Errorf("%w: 排序权重不能为负数: %+v", model.ErrInvalidConfig, rw)
	}
	if rw != (model.RankingWeights{}) && rw.Keyword+rw.Quality+rw.Recency <= 0 {
		return fmt.Errorf("%w: 排序权重之和必须大于0: %+v", model.ErrInvalidConfig, rw)
	}

	aw := opts.AnalyzerWeights
	if aw.Readability < 0 || aw.Length < 0 || aw.Structure < 0 {
		return fmt.Errorf("%w: 质量分析权重不能为负数: %+v", model.ErrInvalidConfig, aw)
	}

	return nil
}

// ValidateOpmlPath 验证OPML订阅文件路径的安全性与可读性
func (v *Validator) ValidateOpmlPath(filePath string) error {
	if strings.TrimSpace(filePath) == "" {
		return fmt.Errorf("%w: OPML文件路径不能为空", model.ErrInvalidConfig)
	}

	cleanPath := filepath.Clean(filePath)

	// 检查路径是否包含目录遍历尝试
	if strings.Contains(cleanPath, "..") || strings.Contains(cleanPath, "~") {
		return fmt.Errorf("%w: 路径包含非法字符: %s", model.ErrInvalidConfig, cleanPath)
	}

	if !strings.HasSuffix(strings.ToLower(cleanPath), ".opml") {
		return fmt.Errorf("%w: 只允许.opml文件格式: %s", model.ErrInvalidConfig, cleanPath)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return fmt.Errorf("%w: 文件访问失败: %v", model.ErrInvalidConfig, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: 路径指向目录而非文件: %s", model.ErrInvalidConfig, cleanPath)
	}

	// 验证文件大小合理性（最大10MB限制）
	if info.Size() > 10*1024*1024 {
		return fmt.Errorf("%w: 文件过大(>10MB): %s", model.ErrInvalidConfig, cleanPath)
	}

	return nil
}

// urlRegex 订阅地址的基本格式验证
var urlRegex = regexp.MustCompile(`^https?://[a-zA-Z0-9\-\.]+(?::\d+)?(?:[/\w\.\-\?\=\&\%]*)*/?$`)

// ValidateURL 验证订阅源URL合法性
func (v *Validator) ValidateURL(url string) error {
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("%w: URL不能为空", model.ErrInvalidConfig)
	}

	lowerURL := strings.ToLower(url)
	if !strings.HasPrefix(lowerURL, "http://") && !strings.HasPrefix(lowerURL, "https://") {
		return fmt.Errorf("%w: 只允许HTTP/HTTPS协议: %s", model.ErrInvalidConfig, url)
	}

	if !urlRegex.MatchString(url) {
		return fmt.Errorf("%w: 无效的URL格式: %s", model.ErrInvalidConfig, url)
	}

	return nil
}

// GetAPIKey 安全获取摘要能力的API密钥，环境变量优先于配置文件
func (v *Validator) GetAPIKey(config *model.DeepseekConfig) (string, error) {
	if apiKey := os.Getenv("DEEPSEEK_API_KEY"); apiKey != "" {
		return apiKey, nil
	}

	if config == nil || config.APIKey == "" {
		return "", fmt.Errorf("%w: 未找到Deepseek API密钥配置，请设置环境变量: export DEEPSEEK_API_KEY=your-key-here", model.ErrInvalidConfig)
	}

	// 检查是否为占位符
	if strings.Contains(config.APIKey, "****") {
		return "", fmt.Errorf("%w: 检测到占位符API密钥，请使用环境变量设置真实密钥", model.ErrInvalidConfig)
	}

	return config.APIKey, nil
}
