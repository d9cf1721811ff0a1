package skills

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/skillkit-labs/skillkit/internal/logger"
)

// Record is the metadata of one indexed skill.
type Record struct {
	Name        string
	Description string
	Category    string
	Path        string
}

// Bucket groups the records of one category.
type Bucket struct {
	Category string
	Records  []Record
}

// Warning describes a skill directory that was skipped.
type Warning struct {
	Path   string
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Path, w.Reason)
}

// Index is the result of scanning a skills directory.
type Index struct {
	Root     string
	Records  []Record
	Buckets  []Bucket
	Warnings []Warning
}

// Total returns the number of indexed skills.
func (idx *Index) Total() int {
	return len(idx.Records)
}

// Indexer scans skill directories.
type Indexer struct {
	classifier *Classifier
}

// NewIndexer returns an Indexer using the given classifier, or the default
// rules when c is nil.
func NewIndexer(c *Classifier) *Indexer {
	if c == nil {
		c = MustClassifier(DefaultRules)
	}
	return &Indexer{classifier: c}
}

// Index scans every immediate subdirectory of root. Only an unreadable root
// is an error; problems with individual skills become warnings.
func (ix *Indexer) Index(ctx context.Context, root string) (*Index, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading skills directory %s: %w", root, err)
	}

	log := logger.G(ctx)
	idx := &Index{Root: root}
	seen := map[string]string{}

	// os.ReadDir returns entries sorted by file name.
	for _, e := range entries {
		if !e.IsDir() || e.Name()[0] == '.' {
			continue
		}
		dir := filepath.Join(root, e.Name())
		file := filepath.Join(dir, MetadataFile)

		warn := func(reason string) {
			idx.Warnings = append(idx.Warnings, Warning{Path: dir, Reason: reason})
			log.WithField("path", dir).Warnf("skipping skill: %s", reason)
		}

		doc, err := ParseFile(file)
		switch {
		case errors.Is(err, os.ErrNotExist):
			warn("no " + MetadataFile)
			continue
		case err != nil:
			warn(err.Error())
			continue
		}

		name := doc.Metadata.Name
		if prev, ok := seen[name]; ok {
			warn(fmt.Sprintf("duplicate skill name %q, already defined in %s", name, prev))
			continue
		}
		seen[name] = dir

		idx.Records = append(idx.Records, Record{
			Name:        name,
			Description: doc.Metadata.Description,
			Category:    ix.classifier.Classify(name),
			Path:        file,
		})
	}

	sort.Slice(idx.Records, func(i, j int) bool { return idx.Records[i].Name < idx.Records[j].Name })
	idx.Buckets = bucketize(idx.Records)

	log.WithField("total", idx.Total()).Debugf("indexed %s", root)
	return idx, nil
}

// bucketize groups sorted records into non-empty buckets in RenderOrder.
// Categories outside RenderOrder follow in name order.
func bucketize(records []Record) []Bucket {
	byCat := map[string][]Record{}
	for _, r := range records {
		byCat[r.Category] = append(byCat[r.Category], r)
	}

	var buckets []Bucket
	known := map[string]bool{}
	for _, cat := range RenderOrder {
		known[cat] = true
		if recs := byCat[cat]; len(recs) > 0 {
			buckets = append(buckets, Bucket{Category: cat, Records: recs})
		}
	}

	var extra []string
	for cat := range byCat {
		if !known[cat] {
			extra = append(extra, cat)
		}
	}
	sort.Strings(extra)
	for _, cat := range extra {
		buckets = append(buckets, Bucket{Category: cat, Records: byCat[cat]})
	}
	return buckets
}
