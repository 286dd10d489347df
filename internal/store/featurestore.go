// Package store persists scrape output: the GeoJSON feature collection and
// the sqlite-backed run history.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/placetimes/internal/feature"
)

// FeatureStore maps a place's link to its scraped feature. Insertion order
// is preserved so repeated saves produce stable output.
type FeatureStore struct {
	byLink map[string]*feature.Feature
	order  []string
}

// NewFeatureStore returns an empty store.
func NewFeatureStore() *FeatureStore {
	return &FeatureStore{byLink: make(map[string]*feature.Feature)}
}

// Load merges a persisted collection into the store, keyed by each
// feature's stored link. A missing file leaves the store as-is; a file that
// exists but cannot be parsed is an error the caller must treat as fatal,
// since saving over it would destroy data.
func (s *FeatureStore) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return eris.Wrapf(err, "store: read %s", path)
	}

	var coll feature.Collection
	if err := json.Unmarshal(data, &coll); err != nil {
		return eris.Wrapf(err, "store: parse %s", path)
	}

	for _, f := range coll.Features {
		s.Put(f.Properties.Link, f)
	}
	zap.L().Info("loaded feature collection",
		zap.String("path", path),
		zap.Int("features", s.Len()),
	)
	return nil
}

// Save writes the full collection over path via a temp file and rename. An
// empty store is a no-op: a fresh run must never clobber earlier output
// with an empty collection.
func (s *FeatureStore) Save(path string) error {
	if s.Len() == 0 {
		return nil
	}

	data, err := json.Marshal(feature.NewCollection(s.Features()))
	if err != nil {
		return eris.Wrap(err, "store: marshal collection")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return eris.Wrapf(err, "store: create temp for %s", path)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return eris.Wrapf(err, "store: write %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(err, "store: close %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(err, "store: rename %s to %s", tmpName, path)
	}
	return nil
}

// Contains reports whether a place was already scraped.
func (s *FeatureStore) Contains(link string) bool {
	_, ok := s.byLink[link]
	return ok
}

// Put records a feature under link, overwriting any earlier entry but
// keeping its original position in the output order.
func (s *FeatureStore) Put(link string, f *feature.Feature) {
	if _, ok := s.byLink[link]; !ok {
		s.order = append(s.order, link)
	}
	s.byLink[link] = f
}

// Get returns the feature for link, or nil.
func (s *FeatureStore) Get(link string) *feature.Feature {
	return s.byLink[link]
}

// Len returns the number of stored features.
func (s *FeatureStore) Len() int {
	return len(s.byLink)
}

// Features returns all features in insertion order.
func (s *FeatureStore) Features() []*feature.Feature {
	out := make([]*feature.Feature, 0, len(s.order))
	for _, link := range s.order {
		out = append(out, s.byLink[link])
	}
	return out
}
