package bibtex

import (
	"fmt"
	"strings"
)

// corpus builds n entries mixing every construct the parser supports:
// strings defined before and after use, concatenations, numbers, nested
// braces, quoted values, comments and paren-delimited records.
func corpus(n int) string {
	var sb strings.Builder
	sb.WriteString("This file is generated for tests.\n\n")
	sb.WriteString("@string{pub = {Generated Press}}\n")
	sb.WriteString("@preamble{\"\\newcommand{\\noop}[1]{}\"}\n\n")
	for i := 0; i < n; i++ {
		switch i % 7 {
		case 0:
			fmt.Fprintf(&sb, "@article{art%d,\n  author = {Author %d and Other, A.},\n  title = {On {Nested} Braces %d},\n  journal = jrnl,\n  year = %d,\n}\n\n", i, i, i, 1990+i%30)
		case 1:
			fmt.Fprintf(&sb, "@book{book%d,\n  title = \"Quoted {Title} %d\",\n  publisher = pub # \", \" # city,\n  year = \"%d\"\n}\n\n", i, i, 2000+i%20)
		case 2:
			fmt.Fprintf(&sb, "%% comment before entry %d\n@inproceedings(conf%d,\n  booktitle = {Proc. of Things},\n  pages = {%d--%d}\n)\n\n", i, i, i, i+9)
		case 3:
			fmt.Fprintf(&sb, "@comment{skipped {block} %d}\n@misc{misc%d}\n\n", i, i)
		case 4:
			fmt.Fprintf(&sb, "@techreport{tr%d,\n  institution = {Lab \\& Co},\n  note = \"a } stray brace\",\n  number = %d\n}\n\n", i, i)
		case 5:
			fmt.Fprintf(&sb, "@string{local%d = \"L%d\"}\n@phdthesis{thesis%d,\n  school = local%d # { School},\n  title = {Thesis}}\n\n", i, i, i, i)
		default:
			fmt.Fprintf(&sb, "@ARTICLE{dup%d,\n  journal = jrnl,\n  volume = 3\n}\n\n", i%3)
		}
	}
	sb.WriteString("@string{jrnl = {Journal of Tests}}\n")
	sb.WriteString("@string{city = \"Springfield\"}\n")
	return sb.String()
}

// describe flattens entries for equality checks across parse modes.
func describe(entries []*Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s|%s|%d", e.Type, e.Key, e.Offset())
		for _, f := range e.Fields {
			fmt.Fprintf(&sb, "|%s:%s=%s", f.Name, f.Value.Kind(), f.Value.String())
		}
		out = append(out, sb.String())
	}
	return out
}
