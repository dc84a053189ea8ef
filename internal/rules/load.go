package rules

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is the on-disk shape of one ruleset document. Documents compose:
// Extends pulls in a base document first, Includes merge in order, and
// any rule redefining an already-seen id overrides it in place.
type File struct {
	Version  int      `yaml:"version"`
	Name     string   `yaml:"name"`
	Extends  string   `yaml:"extends,omitempty"`
	Includes []string `yaml:"includes,omitempty"`
	Rules    []Rule   `yaml:"rules,omitempty"`
}

// Load builds an engine from a ruleset path: either a single YAML file
// or a directory. A directory uses its default.yaml as the root when
// present, otherwise every *.yaml in it merges in name order.
func Load(ruleDir string) (*Engine, error) {
	info, err := os.Stat(ruleDir)
	if err != nil {
		return nil, &LoadError{File: ruleDir, Reason: err.Error()}
	}
	if info.IsDir() {
		return LoadFS(os.DirFS(ruleDir), ".")
	}
	return LoadFS(os.DirFS(filepath.Dir(ruleDir)), filepath.Base(ruleDir))
}

// LoadFS loads a ruleset rooted at a file or directory inside fsys.
func LoadFS(fsys fs.FS, root string) (*Engine, error) {
	l := &loader{fsys: fsys, visited: map[string]bool{}}

	rootFile := root
	if info, err := fs.Stat(fsys, root); err == nil && info.IsDir() {
		candidate := path.Join(root, "default.yaml")
		if _, err := fs.Stat(fsys, candidate); err == nil {
			rootFile = candidate
		} else {
			return l.loadMergedDir(root)
		}
	}

	doc, merged, err := l.loadFile(rootFile)
	if err != nil {
		return nil, err
	}
	return newEngine(versionOf(doc, rootFile), ruleSlice(merged), rootFile)
}

// loadMergedDir composes a directory with no default.yaml by merging
// every document in name order.
func (l *loader) loadMergedDir(dir string) (*Engine, error) {
	entries, err := fs.Glob(l.fsys, path.Join(dir, "*.yaml"))
	if err != nil || len(entries) == 0 {
		return nil, &LoadError{File: dir, Reason: "no .yaml ruleset files found"}
	}
	sort.Strings(entries)
	var merged []*ruleSrc
	version := 0
	for _, p := range entries {
		doc, part, err := l.loadFile(p)
		if err != nil {
			return nil, err
		}
		if doc.Version > version {
			version = doc.Version
		}
		merged = mergeRules(merged, part)
	}
	name := path.Base(dir)
	if name == "." || name == "/" {
		name = "ruleset"
	}
	return newEngine(fmt.Sprintf("%s/v%d", name, version), ruleSlice(merged), dir)
}

type loader struct {
	fsys    fs.FS
	visited map[string]bool
}

// ruleSrc remembers which file a rule came from so later validation
// errors can name it.
type ruleSrc struct {
	rule *Rule
	file string
}

// loadFile parses one document and recursively resolves its extends and
// includes, returning the fully merged rule list.
func (l *loader) loadFile(p string) (*File, []*ruleSrc, error) {
	if l.visited[p] {
		return nil, nil, &LoadError{File: p, Reason: "include cycle detected"}
	}
	l.visited[p] = true

	data, err := fs.ReadFile(l.fsys, p)
	if err != nil {
		return nil, nil, &LoadError{File: p, Reason: err.Error()}
	}

	var doc File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, nil, &LoadError{File: p, Reason: fmt.Sprintf("parse: %v", err)}
	}

	var merged []*ruleSrc
	dir := path.Dir(p)

	if doc.Extends != "" {
		_, base, err := l.loadFile(path.Join(dir, doc.Extends))
		if err != nil {
			return nil, nil, err
		}
		merged = mergeRules(merged, base)
	}
	for _, inc := range doc.Includes {
		_, part, err := l.loadFile(path.Join(dir, inc))
		if err != nil {
			return nil, nil, err
		}
		merged = mergeRules(merged, part)
	}

	seen := map[string]bool{}
	var own []*ruleSrc
	for i := range doc.Rules {
		r := &doc.Rules[i]
		if err := r.validate(p); err != nil {
			return nil, nil, err
		}
		if seen[r.ID] {
			return nil, nil, loadErrf(p, r.ID, "duplicate rule id in same file")
		}
		seen[r.ID] = true
		own = append(own, &ruleSrc{rule: r, file: p})
	}
	merged = mergeRules(merged, own)

	return &doc, merged, nil
}

// mergeRules appends add onto dst, except that a rule whose id already
// exists replaces the earlier definition in place. In-place replacement
// keeps override semantics independent of file ordering quirks.
func mergeRules(dst, add []*ruleSrc) []*ruleSrc {
	index := make(map[string]int, len(dst))
	for i, rs := range dst {
		index[rs.rule.ID] = i
	}
	for _, rs := range add {
		if i, ok := index[rs.rule.ID]; ok {
			dst[i] = rs
			continue
		}
		index[rs.rule.ID] = len(dst)
		dst = append(dst, rs)
	}
	return dst
}

func ruleSlice(merged []*ruleSrc) []*Rule {
	out := make([]*Rule, len(merged))
	for i, rs := range merged {
		out[i] = rs.rule
	}
	return out
}

// versionOf derives the engine version string from the root document.
func versionOf(doc *File, rootFile string) string {
	name := doc.Name
	if name == "" {
		name = strings.TrimSuffix(path.Base(rootFile), path.Ext(rootFile))
	}
	return fmt.Sprintf("%s/v%d", name, doc.Version)
}
