package screening

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

type Blacklist interface {
	// Match returns the first listed entry contained in text.
	Match(text string) (string, bool, error)
}

// FileBlacklist re-reads its file on every check so operators can edit it live.
// Every non-blank line is a literal entry. A missing file is an empty list.
type FileBlacklist struct {
	Path string
}

func NewFileBlacklist(path string) *FileBlacklist {
	return &FileBlacklist{Path: path}
}

func (b *FileBlacklist) Match(text string) (string, bool, error) {
	f, err := os.Open(b.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("open blacklist: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		entry := strings.TrimSpace(scanner.Text())
		if entry == "" {
			continue
		}
		if strings.Contains(text, entry) {
			return entry, true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", false, fmt.Errorf("read blacklist: %w", err)
	}
	return "", false, nil
}
