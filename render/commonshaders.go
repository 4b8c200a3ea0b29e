package render

import (
	"bufio"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/gobuffalo/packr"
)

// ShaderLibrary is the read-only set of GLSL snippets shared by all
// programs. Stage sources pull one in with a line
//
//	#include "name"
//
// which is replaced by the snippet before the source reaches the
// backend compiler.
type ShaderLibrary struct {
	snippets map[string]string
}

var (
	commonOnce    sync.Once
	commonShaders *ShaderLibrary
	commonErr     error
)

// loadCommonShaders reads the snippet box once per process.
func loadCommonShaders() (*ShaderLibrary, error) {
	commonOnce.Do(func() {
		box := packr.NewBox("./shaders")
		lib := &ShaderLibrary{snippets: map[string]string{}}
		for _, file := range box.List() {
			if path.Ext(file) != ".glsl" {
				continue
			}
			src, err := box.FindString(file)
			if err != nil {
				commonErr = fmt.Errorf("common shader %q: %w", file, err)
				return
			}
			lib.snippets[strings.TrimSuffix(path.Base(file), ".glsl")] = src
		}
		commonShaders = lib
	})
	return commonShaders, commonErr
}

// Names returns the snippet names, sorted.
func (l *ShaderLibrary) Names() []string {
	names := make([]string, 0, len(l.snippets))
	for n := range l.snippets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Get returns the snippet called name.
func (l *ShaderLibrary) Get(name string) (string, bool) {
	s, ok := l.snippets[name]
	return s, ok
}

const maxIncludeDepth = 8

// Expand replaces every include line in src with its snippet.
func (l *ShaderLibrary) Expand(src string) (string, error) {
	return l.expand(src, 0)
}

func (l *ShaderLibrary) expand(src string, depth int) (string, error) {
	if !strings.Contains(src, "#include") {
		return src, nil
	}
	if depth >= maxIncludeDepth {
		return "", fmt.Errorf("%w: includes nested deeper than %d", ErrConstruction, maxIncludeDepth)
	}
	var b strings.Builder
	sc := bufio.NewScanner(strings.NewReader(src))
	sc.Buffer(make([]byte, 0, 64*1024), len(src)+1)
	for sc.Scan() {
		line := sc.Text()
		name, ok := includeName(line)
		if !ok {
			b.WriteString(line)
			b.WriteByte('\n')
			continue
		}
		snippet, found := l.snippets[name]
		if !found {
			return "", fmt.Errorf("%w: unknown include %q", ErrConstruction, name)
		}
		expanded, err := l.expand(snippet, depth+1)
		if err != nil {
			return "", err
		}
		b.WriteString(expanded)
		if !strings.HasSuffix(expanded, "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String(), sc.Err()
}

// includeName parses `#include "name"`.
func includeName(line string) (string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), "#include")
	if !ok {
		return "", false
	}
	rest = strings.TrimSpace(rest)
	if len(rest) < 2 || rest[0] != '"' || rest[len(rest)-1] != '"' {
		return "", false
	}
	return rest[1 : len(rest)-1], true
}
