package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/wolfitem/news-agent/internal/domain/model"
	"github.com/wolfitem/news-agent/internal/domain/service"
	"github.com/wolfitem/news-agent/internal/infrastructure/logger"
	"github.com/wolfitem/news-agent/internal/middleware"
)

// defaultEndpoint Deepseek API默认接口地址
const defaultEndpoint = "https://api.deepseek.com/v1/chat/completions"

// DeepseekClient 实现service.AIClient接口，
// 把外部摘要能力视为(text, maxLength) -> text的不透明函数
type DeepseekClient struct {
	config model.DeepseekConfig
	client *http.Client
	retry  middleware.RetryPolicy

	mu        sync.Mutex
	callCount int // 单次运行内的API调用计数
}

// NewDeepseekClient 创建新的Deepseek摘要客户端
func NewDeepseekClient(config model.DeepseekConfig) service.AIClient {
	timeout := 30 * time.Second
	if config.TimeoutSec > 0 {
		timeout = time.Duration(config.TimeoutSec) * time.Second
	}

	transport := &http.Transport{
		ResponseHeaderTimeout: timeout,
		TLSHandshakeTimeout:   15 * time.Second,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
	}

	return &DeepseekClient{
		config: config,
		client: &http.Client{Timeout: timeout, Transport: transport},
		retry:  middleware.SummarizePolicy(),
	}
}

// Summarize 生成不超过maxLength字符的生成式摘要，带硬超时与有界重试。
// 出错由调用方回退为抽取式摘要
func (c *DeepseekClient) Summarize(ctx context.Context, content string, maxLength int) (string, error) {
	if c.config.APIKey == "" {
		return "", fmt.Errorf("%w: 未配置Deepseek API密钥", model.ErrSummarizationUnavailable)
	}

	c.mu.Lock()
	if c.config.MaxCalls > 0 && c.callCount >= c.config.MaxCalls {
		count := c.callCount
		c.mu.Unlock()
		return "", fmt.Errorf("%w: 已达到API调用次数上限: %d/%d",
			model.ErrSummarizationUnavailable, count, c.config.MaxCalls)
	}
	c.callCount++
	c.mu.Unlock()

	prompt := fmt.Sprintf(`# 任务：文章摘要

请为以下内容生成%d字符以内的摘要，要求：
1. 保留关键信息
2. 语言简洁明了
3. 重点突出

内容：
%s

请返回纯文本摘要，不要添加任何前缀或后缀。`, maxLength, content)

	summary, err := c.callAPI(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrSummarizationUnavailable, err)
	}

	// 模型偶尔超出长度要求，边界上按rune硬截断，不把多字节字符劈成半个
	if maxLength > 0 {
		if sr := []rune(summary); len(sr) > maxLength {
			summary = string(sr[:maxLength])
		}
	}
	return summary, nil
}

// callAPI 按重试策略调用Deepseek API
func (c *DeepseekClient) callAPI(ctx context.Context, prompt string) (string, error) {
	endpoint := c.config.APIUrl
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if _, err := url.Parse(endpoint); err != nil {
		return "", fmt.Errorf("无效的API端点: %w", err)
	}

	requestBody := map[string]interface{}{
		"model": c.config.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens":  c.config.MaxTokens,
		"stream":      false,
		"temperature": 0.3,
	}
	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("创建请求体失败: %w", err)
	}

	var result string
	err = c.retry.Do(ctx, func() error {
		content, reqErr := c.doRequest(ctx, endpoint, jsonData)
		if reqErr != nil {
			return reqErr
		}
		result = content
		return nil
	})
	return result, err
}

// doRequest 执行单次HTTP请求并解析响应
func (c *DeepseekClient) doRequest(ctx context.Context, endpoint string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("User-Agent", "news-agent/1.0")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("API返回错误(状态码: %d): %s", resp.StatusCode, string(respBody))
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("响应不包含有效内容")
	}

	logger.Info("摘要API调用成功",
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", response.Usage.PromptTokens,
		"total_tokens", response.Usage.TotalTokens)
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}
