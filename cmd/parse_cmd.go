package cmd

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dzjyyds666/bq/parse"
	"github.com/dzjyyds666/bq/parse/bibtex"
	"github.com/dzjyyds666/bq/pkg"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type ParseParams struct {
	Input   string `json:"input"`   // 输入文件路径, 支持 gzip 和 zstd
	Metrics bool   `json:"metrics"` // 解析完成后输出 Prometheus 指标
	Check   bool   `json:"check"`   // 检查条目是否缺少必填字段
	Strict  bool   `json:"strict"`  // 有警告时返回错误
}

var parseParams = &ParseParams{}

var ErrNoInput = errors.New("no input file path")

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a bibliography and print a summary",
	Args:  cobra.MaximumNArgs(1),
	RunE:  parseRun,
}

func init() {
	parseCmd.Flags().StringVarP(&parseParams.Input, "input", "i", "", "input file path")
	parseCmd.Flags().BoolVarP(&parseParams.Metrics, "metrics", "m", false, "print parser metrics")
	parseCmd.Flags().BoolVar(&parseParams.Check, "check", false, "report entries missing required fields")
	parseCmd.Flags().BoolVar(&parseParams.Strict, "strict", false, "fail when expansion produced warnings")
}

// inputPath 优先使用 -i, 其次是第一个位置参数
func inputPath(flag string, args []string) (string, error) {
	path := flag
	if path == "" && len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return "", ErrNoInput
	}
	exist, err := pkg.CheckFileExist(path)
	if err != nil {
		return "", fmt.Errorf("check file exist error: %w", err)
	}
	if !exist {
		return "", fmt.Errorf("%w: %s", parse.ErrFileNotFound, path)
	}
	return path, nil
}

func parseRun(cmd *cobra.Command, args []string) error {
	path, err := inputPath(parseParams.Input, args)
	if err != nil {
		return err
	}
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer env.close()

	db, err := parse.ParseFile(path, env.parserOptions())
	if err != nil {
		return err
	}
	env.log.Info("parsed bibliography", zap.String("file", path), zap.Int("entries", db.Len()))

	out := cmd.OutOrStdout()
	printSummary(out, path, db)
	if parseParams.Check {
		printMissing(out, db)
	}
	if env.metrics != nil {
		if err := env.metrics.WriteText(out); err != nil {
			return err
		}
	}
	if parseParams.Strict && len(db.Warnings()) > 0 {
		return fmt.Errorf("%s: %d warnings", path, len(db.Warnings()))
	}
	return nil
}

func printSummary(w io.Writer, path string, db *bibtex.Database) {
	st := db.Stats()
	ps := db.ParseStats()
	fmt.Fprintf(w, "file: %s\n", path)
	fmt.Fprintf(w, "entries: %d  records: %d  strings: %d  preambles: %d  comments: %d\n",
		st.Entries, st.Records, st.Strings, st.Preambles, st.Comments)
	fmt.Fprintf(w, "chunks: %d  threads: %d  scan: %s  time: %s\n",
		ps.Chunks, ps.Threads, bibtex.ScanStrategy(), ps.Total)

	if len(st.EntriesByType) > 0 {
		fmt.Fprintln(w, "types:")
		for _, t := range db.Types() {
			fmt.Fprintf(w, "  %-16s %d\n", t, st.EntriesByType[t])
		}
	}

	if dups := db.Duplicates(); len(dups) > 0 {
		fmt.Fprintln(w, "duplicates:")
		for _, d := range dups {
			lines := make([]string, len(d.Entries))
			for i, e := range d.Entries {
				lines[i] = db.Position(e.Offset()).String()
			}
			fmt.Fprintf(w, "  %s at %s\n", d.Key, strings.Join(lines, ", "))
		}
	}

	if warnings := db.Warnings(); len(warnings) > 0 {
		fmt.Fprintln(w, "warnings:")
		for _, wn := range warnings {
			fmt.Fprintf(w, "  %s: %s\n", db.Position(wn.Offset), wn.Message)
		}
	}
}

func printMissing(w io.Writer, db *bibtex.Database) {
	type missing struct {
		key    string
		fields []string
	}
	var found []missing
	for _, e := range db.Entries() {
		if m := e.MissingFields(); len(m) > 0 {
			found = append(found, missing{key: e.Key, fields: m})
		}
	}
	if len(found) == 0 {
		fmt.Fprintln(w, "check: ok")
		return
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].key < found[j].key })
	fmt.Fprintln(w, "missing fields:")
	for _, m := range found {
		fmt.Fprintf(w, "  %s: %s\n", m.key, strings.Join(m.fields, ", "))
	}
}
