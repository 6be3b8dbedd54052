package importer

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	termPrefix   = "W:"
	answerPrefix = "T:"
	notesPrefix  = "N:"
	separator    = "---"
)

// Entry is one word parsed from a word list.
type Entry struct {
	Term   string
	Answer string
	Notes  string
	Source string // file the entry came from, when known
}

type state int

const (
	seeking state = iota
	readingTerm
	readingAnswer
	readingNotes
)

// ParseFile reads a word list from the given path.
func ParseFile(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	entries, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	for i := range entries {
		entries[i].Source = path
	}
	return entries, nil
}

// ParseDir reads every .md file below dir, in lexical path order.
func ParseDir(dir string) ([]Entry, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".md") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	sort.Strings(paths)

	var entries []Entry
	for _, p := range paths {
		fileEntries, err := ParseFile(p)
		if err != nil {
			return nil, err
		}
		entries = append(entries, fileEntries...)
	}
	return entries, nil
}

// ParsePath parses a single file or a directory tree.
func ParsePath(path string) ([]Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return ParseDir(path)
	}
	return ParseFile(path)
}

// Parse reads entries from r. A line starting with W: opens a new entry, T:
// and N: open its answer and notes, and following lines continue the open
// field until the next prefix or a --- separator.
func Parse(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	var (
		entries []Entry
		current Entry
		block   []string
	)
	currentState := seeking

	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(block, "\n"))
		switch currentState {
		case readingTerm:
			current.Term = content
		case readingAnswer:
			current.Answer = content
		case readingNotes:
			current.Notes = content
		}
		block = nil
	}

	finishEntry := func() {
		flushBlock()
		if current.Term != "" {
			entries = append(entries, current)
		}
		current = Entry{}
		currentState = seeking
	}

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")

		if strings.TrimSpace(line) == separator {
			finishEntry()
			continue
		}

		next, prefix := classify(line)
		if next == seeking {
			if currentState != seeking {
				block = append(block, line)
			}
			continue
		}

		flushBlock()
		if next == readingTerm && currentState != seeking {
			finishEntry()
		}
		currentState = next
		block = append(block, strings.TrimPrefix(line[len(prefix):], " "))
	}

	finishEntry()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func classify(line string) (state, string) {
	switch {
	case strings.HasPrefix(line, termPrefix):
		return readingTerm, termPrefix
	case strings.HasPrefix(line, answerPrefix):
		return readingAnswer, answerPrefix
	case strings.HasPrefix(line, notesPrefix):
		return readingNotes, notesPrefix
	}
	return seeking, ""
}
