package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/dzjyyds666/bq/parse"
	"github.com/dzjyyds666/bq/parse/bibtex"
	"github.com/spf13/cobra"
)

type QueryParams struct {
	Input  string `json:"input"`  // 输入文件路径
	Key    string `json:"key"`    // 按 key 查找
	Type   string `json:"type"`   // 按条目类型查找
	Field  string `json:"field"`  // name=substr, 字段包含子串
	Value  string `json:"value"`  // name=value, 字段完全相等
	String string `json:"string"` // 输出 @string 变量展开后的值
	Get    string `json:"get"`    // 输出的字段, 逗号分隔
	Source bool   `json:"source"` // 以 BibTeX 语法输出字段值
}

var queryParams = &QueryParams{}

var queryCmd = &cobra.Command{
	Use:   "query [file]",
	Short: "Find entries by key, type or field content",
	Args:  cobra.MaximumNArgs(1),
	RunE:  queryRun,
}

func init() {
	queryCmd.Flags().StringVarP(&queryParams.Input, "input", "i", "", "input file path")
	queryCmd.Flags().StringVarP(&queryParams.Key, "key", "k", "", "entry key")
	queryCmd.Flags().StringVar(&queryParams.Type, "type", "", "entry type")
	queryCmd.Flags().StringVarP(&queryParams.Field, "field", "f", "", "name=substr, entries whose field contains substr")
	queryCmd.Flags().StringVar(&queryParams.Value, "value", "", "name=value, entries whose field equals value")
	queryCmd.Flags().StringVarP(&queryParams.String, "string", "s", "", "print a string variable")
	queryCmd.Flags().StringVarP(&queryParams.Get, "get", "g", "", "comma separated fields to print")
	queryCmd.Flags().BoolVar(&queryParams.Source, "source", false, "print values in BibTeX syntax")
}

func splitPair(flag, s string) (string, string, error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return "", "", fmt.Errorf("--%s wants name=text, got %q", flag, s)
	}
	return strings.TrimSpace(name), value, nil
}

func queryRun(cmd *cobra.Command, args []string) error {
	path, err := inputPath(queryParams.Input, args)
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
	out := cmd.OutOrStdout()

	if queryParams.String != "" {
		v, ok := db.String(queryParams.String)
		if !ok {
			return fmt.Errorf("string %q is not defined", queryParams.String)
		}
		fmt.Fprintln(out, v.String())
		return nil
	}

	entries, err := selectEntries(db)
	if err != nil {
		return err
	}
	var fields []string
	if queryParams.Get != "" {
		for _, f := range strings.Split(queryParams.Get, ",") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
	}
	for _, e := range entries {
		printEntry(out, e, fields, queryParams.Source)
	}
	return nil
}

// selectEntries 多个条件同时给出时取交集
func selectEntries(db *bibtex.Database) ([]*bibtex.Entry, error) {
	var sets [][]*bibtex.Entry
	if queryParams.Key != "" {
		var set []*bibtex.Entry
		if e, ok := db.FindByKey(queryParams.Key); ok {
			set = append(set, e)
		}
		sets = append(sets, set)
	}
	if queryParams.Type != "" {
		sets = append(sets, db.FindByType(queryParams.Type))
	}
	if queryParams.Field != "" {
		name, substr, err := splitPair("field", queryParams.Field)
		if err != nil {
			return nil, err
		}
		sets = append(sets, db.FindByField(name, substr))
	}
	if queryParams.Value != "" {
		name, value, err := splitPair("value", queryParams.Value)
		if err != nil {
			return nil, err
		}
		sets = append(sets, db.FindByFieldValue(name, value))
	}
	if len(sets) == 0 {
		return db.Entries(), nil
	}

	result := sets[0]
	for _, set := range sets[1:] {
		keep := make(map[*bibtex.Entry]struct{}, len(set))
		for _, e := range set {
			keep[e] = struct{}{}
		}
		filtered := result[:0:0]
		for _, e := range result {
			if _, ok := keep[e]; ok {
				filtered = append(filtered, e)
			}
		}
		result = filtered
	}
	return result, nil
}

func printEntry(w io.Writer, e *bibtex.Entry, fields []string, source bool) {
	fmt.Fprintf(w, "@%s{%s}\n", e.Type, e.Key)
	if len(fields) == 0 {
		return
	}
	for _, name := range fields {
		v, ok := e.Field(name)
		if !ok {
			continue
		}
		text := v.String()
		if source {
			text = v.Source()
		}
		fmt.Fprintf(w, "  %s = %s\n", strings.ToLower(name), text)
	}
}
