package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/dzjyyds666/bq/internal/export"
	"github.com/dzjyyds666/bq/parse"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type ExportParams struct {
	Input  string `json:"input"`  // 输入文件路径
	Output string `json:"output"` // 输出文件地址, 为空时写到标准输出
	Format string `json:"format"` // 输出格式: json, yaml, bson
	Type   string `json:"type"`   // 只导出该类型的条目
}

var exportParams = &ExportParams{}

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Dump entries as JSON, YAML or BSON",
	Args:  cobra.MaximumNArgs(1),
	RunE:  exportRun,
}

func init() {
	exportCmd.Flags().StringVarP(&exportParams.Input, "input", "i", "", "input file path")
	exportCmd.Flags().StringVarP(&exportParams.Output, "output", "o", "", "output path")
	exportCmd.Flags().StringVar(&exportParams.Format, "format", "json", "output format (json, yaml, bson)")
	exportCmd.Flags().StringVar(&exportParams.Type, "type", "", "entry type")
}

func exportRun(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(exportParams.Format)
	if err != nil {
		return err
	}
	path, err := inputPath(exportParams.Input, args)
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
	entries := db.Entries()
	if exportParams.Type != "" {
		entries = db.FindByType(exportParams.Type)
	}

	var out io.Writer = cmd.OutOrStdout()
	if exportParams.Output != "" {
		f, err := os.Create(exportParams.Output)
		if err != nil {
			return fmt.Errorf("create output file error: %w", err)
		}
		defer f.Close()
		out = f
	}
	if err := export.Write(out, format, export.Entries(db, entries)); err != nil {
		return err
	}
	env.log.Info("exported entries",
		zap.String("format", string(format)),
		zap.Int("entries", len(entries)))
	return nil
}
