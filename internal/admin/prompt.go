package admin

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter запрашивает секреты у оператора
type Prompter interface {
	ReadPassword(prompt string) (string, error)
}

// StdioPrompter читает пароль с терминала без эха.
// Если stdin не терминал (pipe, скрипт), читается строка целиком.
type StdioPrompter struct {
	in     *os.File
	out    io.Writer
	reader *bufio.Reader
}

// NewStdioPrompter создает Prompter поверх in и out
func NewStdioPrompter(in *os.File, out io.Writer) *StdioPrompter {
	return &StdioPrompter{in: in, out: out, reader: bufio.NewReader(in)}
}

// ReadPassword печатает prompt и читает пароль
func (p *StdioPrompter) ReadPassword(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)

	fd := int(p.in.Fd())
	if term.IsTerminal(fd) {
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}

	line, err := p.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
