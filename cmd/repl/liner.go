package main

import (
	"errors"
	"io"
	"strings"

	"github.com/peterh/liner"
)

// lineReader adapts an interactive liner prompt to io.Reader, yielding
// one newline-terminated line per prompt.
type lineReader struct {
	state  *liner.State
	prompt string
	buf    []byte
}

func newLineReader(prompt string) *lineReader {
	st := liner.NewLiner()
	st.SetCtrlCAborts(true)
	return &lineReader{state: st, prompt: prompt + "> "}
}

func (r *lineReader) Read(p []byte) (int, error) {
	if len(r.buf) == 0 {
		line, err := r.state.Prompt(r.prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return 0, io.EOF
			}
			return 0, err
		}
		if strings.TrimSpace(line) != "" {
			r.state.AppendHistory(line)
		}
		r.buf = append(r.buf[:0], line...)
		r.buf = append(r.buf, '\n')
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

func (r *lineReader) Close() error {
	return r.state.Close()
}
