package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/wolfitem/news-agent/internal/application/service"
	"github.com/wolfitem/news-agent/internal/domain/model"
	domain "github.com/wolfitem/news-agent/internal/domain/service"
	"github.com/wolfitem/news-agent/internal/infrastructure/ai"
	"github.com/wolfitem/news-agent/internal/infrastructure/extract"
	"github.com/wolfitem/news-agent/internal/infrastructure/feed"
	"github.com/wolfitem/news-agent/internal/infrastructure/logger"
)

var (
	outputFile string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <查询>",
	Short: "执行一次内容聚合运行",
	Long: `输入一条自然语言查询，代理自动规划并执行：拉取OPML订阅的RSS源、
抽取文章正文、分析内容质量、使用Deepseek API生成摘要、按相关性排序，
最终生成Markdown格式的聚合报告。`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		validator := domain.NewValidator()

		// OPML订阅文件是唯一的内容源配置
		opmlFile := viper.GetString("feeds.opml_file")
		if err := validator.ValidateOpmlPath(opmlFile); err != nil {
			logger.Error("OPML配置无效", "file", opmlFile, "error", err)
			return err
		}
		registry, err := domain.NewSourceRegistryFromOpml(opmlFile, sourceWeights())
		if err != nil {
			return err
		}

		// API密钥优先取环境变量，其次取配置文件
		deepseek := model.DeepseekConfig{
			APIKey:     viper.GetString("deepseek.api_key"),
			Model:      viper.GetString("deepseek.model"),
			MaxTokens:  viper.GetInt("deepseek.max_tokens"),
			MaxCalls:   viper.GetInt("deepseek.max_calls"),
			APIUrl:     viper.GetString("deepseek.api_url"),
			TimeoutSec: viper.GetInt("deepseek.timeout_sec"),
		}
		apiKey, err := validator.GetAPIKey(&deepseek)
		if err != nil {
			logger.Error("获取API密钥失败", "error", err)
			return err
		}
		deepseek.APIKey = apiKey

		agent, err := service.NewAgentService(service.Deps{
			Planner:   plannerFromConfig(),
			Registry:  registry,
			Fetcher:   feed.NewFetcher(),
			Extractor: extract.NewExtractor(),
			AI:        ai.NewDeepseekClient(deepseek),
		})
		if err != nil {
			return err
		}

		// 长时间运行期间周期性记录内存占用
		monitor := logger.NewMemStatsMonitor(30 * time.Second)
		monitor.Start()
		defer monitor.Stop()

		opts := runOptionsFromConfig(deepseek)
		result, err := agent.Run(context.Background(), query, opts)
		if err != nil {
			logger.Error("代理运行失败", "error", err)
			return fmt.Errorf("代理运行失败: %w", err)
		}
		logger.Info("代理运行成功",
			"status", result.Status,
			"articles", len(result.Articles),
			"duration", result.Duration)

		// 输出结果
		if outputFile == "" {
			// 生成默认输出文件名，格式为 report-YYYY-MM-DD.md
			currentDate := time.Now().Format("2006-01-02")
			outputFile = fmt.Sprintf("report-%s.md", currentDate)
		}

		// 确保输出目录存在
		outputDir := filepath.Dir(outputFile)
		if outputDir != "." {
			if err := os.MkdirAll(outputDir, 0755); err != nil {
				return fmt.Errorf("创建输出目录失败: %w", err)
			}
		}

		// 输出到文件
		if err := os.WriteFile(outputFile, []byte(result.Report), 0644); err != nil {
			return fmt.Errorf("写入输出文件失败: %w", err)
		}
		fmt.Printf("报告已保存到: %s (状态: %s, 文章数: %d)\n",
			outputFile, result.Status, len(result.Articles))

		return nil
	},
}

// runOptionsFromConfig 从配置文件组装运行选项，缺省项由WithDefaults补齐
func runOptionsFromConfig(deepseek model.DeepseekConfig) model.RunOptions {
	return model.RunOptions{
		MaxArticlesPerSource: viper.GetInt("agent.max_articles_per_source"),
		MaxTotalArticles:     viper.GetInt("agent.max_total_articles"),
		SummaryMaxLength:     viper.GetInt("agent.summary_max_length"),
		SummarySentences:     viper.GetInt("agent.summary_sentences"),
		RecencyWindowHours:   viper.GetInt("agent.recency_window_hours"),
		PerSourceTimeoutMs:   viper.GetInt("agent.per_source_timeout_ms"),
		ExtractTimeoutMs:     viper.GetInt("agent.extract_timeout_ms"),
		RunTimeoutMs:         viper.GetInt("agent.run_timeout_ms"),
		FetchConcurrency:     viper.GetInt("agent.fetch_concurrency"),
		WorkerConcurrency:    viper.GetInt("agent.worker_concurrency"),
		MinHostIntervalMs:    viper.GetInt("agent.min_host_interval_ms"),
		RankingWeights: model.RankingWeights{
			Keyword: viper.GetFloat64("ranking.keyword"),
			Quality: viper.GetFloat64("ranking.quality"),
			Recency: viper.GetFloat64("ranking.recency"),
		},
		AnalyzerWeights: model.AnalyzerWeights{
			Readability: viper.GetFloat64("analyzer.readability"),
			Length:      viper.GetFloat64("analyzer.length"),
			Structure:   viper.GetFloat64("analyzer.structure"),
		},
		Deepseek: deepseek,
	}
}

// plannerFromConfig 规则表可由配置覆盖，缺省使用内置规则
func plannerFromConfig() domain.TaskPlanner {
	var (
		intents []domain.IntentRule
		topics  []domain.TopicRule
	)
	_ = viper.UnmarshalKey("planner.intents", &intents)
	_ = viper.UnmarshalKey("planner.topics", &topics)
	if len(intents) == 0 && len(topics) == 0 {
		return domain.NewTaskPlanner()
	}
	if len(intents) == 0 {
		intents = domain.DefaultIntentRules()
	}
	if len(topics) == 0 {
		topics = domain.DefaultTopicRules()
	}
	return domain.NewTaskPlannerWithRules(intents, topics)
}

// sourceWeights 读取配置中按源名称覆盖的信任权重
func sourceWeights() map[string]float64 {
	raw := viper.GetStringMap("feeds.weights")
	if len(raw) == 0 {
		return nil
	}
	weights := make(map[string]float64, len(raw))
	for name := range raw {
		weights[name] = viper.GetFloat64("feeds.weights." + name)
	}
	return weights
}

func init() {
	rootCmd.AddCommand(runCmd)

	// 本地标志
	runCmd.Flags().StringVarP(&outputFile, "output", "f", "", "输出文件路径（可选，默认为report-日期.md）")
}
