package repl

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"

	"github.com/klundeen/5300-Antelope/sql/parser"
)

const (
	antelopeHistory = ".antelope_history"
)

type lineReader struct {
	line *liner.State
	r    *strings.Reader
}

func (lr *lineReader) ReadRune() (r rune, size int, err error) {
	for {
		if lr.r == nil {
			s, err := lr.line.Prompt("SQL> ")
			if err != nil {
				return 0, 0, err
			}
			lr.line.AppendHistory(s)
			lr.r = strings.NewReader(s + "\n")
		}

		r, sz, err := lr.r.ReadRune()
		if err == io.EOF {
			lr.r = nil
		} else if err != nil {
			return 0, 0, err
		} else {
			return r, sz, nil
		}
	}
}

// Interact returns a session that reads statements from the terminal until end of file; the
// line history is kept in .antelope_history.
func Interact(f Format) SessionHandler {
	return func(ctx context.Context, ex Executor) {
		line := liner.NewLiner()
		defer line.Close()

		if hf, err := os.Open(antelopeHistory); err == nil {
			line.ReadHistory(hf)
			hf.Close()
		}

		ReplSQL(ctx, ex, parser.NewParser(&lineReader{line: line}, "console"), os.Stdout, f)

		if hf, err := os.Create(antelopeHistory); err != nil {
			fmt.Fprintf(os.Stderr, "antelope: error writing history file, %s: %s\n",
				antelopeHistory, err)
		} else {
			line.WriteHistory(hf)
			hf.Close()
		}
	}
}
