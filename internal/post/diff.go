package post

import (
	"bytes"
	"html"
	"html/template"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff renders the changes from one text to another as HTML with <ins> and
// <del> marks.
func Diff(from, to string) template.HTML {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(from, to, true)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var buff bytes.Buffer
	for _, diff := range diffs {
		text := html.EscapeString(diff.Text)
		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			buff.WriteString("<ins>" + text + "</ins>")
		case diffmatchpatch.DiffDelete:
			buff.WriteString("<del>" + text + "</del>")
		case diffmatchpatch.DiffEqual:
			buff.WriteString("<span>" + text + "</span>")
		}
	}
	return template.HTML(buff.String())
}
