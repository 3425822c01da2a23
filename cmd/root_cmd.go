package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/dzjyyds666/bq/internal/config"
	"github.com/dzjyyds666/bq/internal/logger"
	"github.com/dzjyyds666/bq/internal/metrics"
	"github.com/dzjyyds666/bq/parse/bibtex"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type RootParams struct {
	Config    string `json:"config"`    // 配置文件路径
	LogLevel  string `json:"log_level"` // 日志级别
	Threads   int    `json:"threads"`   // 解析线程数, 0 顺序解析, -1 按CPU数
	Undefined string `json:"undefined"` // 未定义变量的处理方式: keep, empty, error
}

var rootParams = &RootParams{}

var rootCmd = &cobra.Command{
	Use:   "bq",
	Short: "Bq is a fast BibTeX parser and query tool.",
	Long:  "Bq parses BibTeX bibliographies in parallel, expands @string variables and answers queries by key, entry type and field content.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of Bq",
	Long:  `All software has versions. This is Bq's`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "Bq v0.1 -- HEAD")
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&rootParams.Config, "config", "c", "", "config file path")
	flags.StringVar(&rootParams.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.IntVarP(&rootParams.Threads, "threads", "t", 0, "parser threads, 0 sequential, -1 one per CPU")
	flags.StringVar(&rootParams.Undefined, "undefined", "", "undefined variable policy (keep, empty, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(configCmd)
}

// runtimeEnv 每个子命令共用的运行环境
type runtimeEnv struct {
	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics.Metrics
}

// setup 加载配置, 初始化日志和指标
func setup(cmd *cobra.Command) (*runtimeEnv, error) {
	cfg, err := config.Load(rootParams.Config, cmd.Flags())
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	env := &runtimeEnv{cfg: cfg, log: log}
	if cfg.Metrics.Enabled {
		env.metrics = metrics.NewMetrics(cfg.Metrics.Namespace)
	}
	return env, nil
}

func (e *runtimeEnv) parserOptions() bibtex.Options {
	var observer bibtex.Observer
	if e.metrics != nil {
		observer = e.metrics
	}
	return e.cfg.ParserOptions(e.log, observer)
}

func (e *runtimeEnv) close() {
	_ = e.log.Sync()
}

// describeError 解析错误附带出错位置附近的原文
func describeError(err error) string {
	var pe *bibtex.ParseError
	if errors.As(err, &pe) && pe.Snippet != "" {
		return fmt.Sprintf("%v\n  near: %s", err, pe.Snippet)
	}
	return err.Error()
}
