package bboltstore

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/hypergopher/bloghub"
)

var searchFields = []string{"title", "excerpt", "category", "author", "tags"}

// searchDoc is the part of a post held in the bleve index.
type searchDoc struct {
	Title    string   `json:"title"`
	Excerpt  string   `json:"excerpt"`
	Category string   `json:"category"`
	Author   string   `json:"author"`
	Tags     []string `json:"tags"`
}

// Type tells bleve to use the post document mapping.
func (searchDoc) Type() string {
	return "post"
}

func newSearchDoc(post *bloghub.Post) searchDoc {
	return searchDoc{
		Title:    post.Title,
		Excerpt:  post.Excerpt,
		Category: post.CategoryName(),
		Author:   post.Author.FullName(),
		Tags:     post.TagNames(),
	}
}

func docID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func (bbs *BBoltStore) initBleve() (bleve.Index, error) {
	blevePath := filepath.Join(bbs.dataDir, bleveFile)
	index, err := bleve.Open(blevePath)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		bbs.logger.Debug("Creating new bleve index", slog.String("path", blevePath))
		index, err = bleve.NewUsing(blevePath, defineBleveMapping(), bleve.Config.DefaultIndexType, bleve.Config.DefaultKVStore, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create bleve index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to open bleve index: %w", err)
	}

	return index, nil
}

func defineBleveMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	for _, field := range searchFields {
		docMapping.AddFieldMappingsAt(field, bleve.NewTextFieldMapping())
	}

	indexMapping.AddDocumentMapping("post", docMapping)
	return indexMapping
}

// index adds or replaces posts in the bleve index in one batch.
func (bbs *BBoltStore) index(posts ...*bloghub.Post) error {
	if len(posts) == 0 {
		return nil
	}

	batch := bbs.bleveIndex.NewBatch()
	for _, post := range posts {
		if err := batch.Index(docID(post.ID), newSearchDoc(post)); err != nil {
			return fmt.Errorf("failed to index post %d in bleve: %w", post.ID, err)
		}
	}

	if err := bbs.bleveIndex.Batch(batch); err != nil {
		return fmt.Errorf("failed to index posts in bleve: %w", err)
	}
	return nil
}

// search returns the IDs of the posts matching every word of the term as a prefix of a
// word in any indexed field.
func (bbs *BBoltStore) search(term string) (map[uint64]bool, error) {
	count, err := bbs.bleveIndex.DocCount()
	if err != nil {
		return nil, fmt.Errorf("error counting indexed posts: %w", err)
	}

	ids := make(map[uint64]bool)
	if count == 0 {
		return ids, nil
	}

	request := bleve.NewSearchRequestOptions(searchQuery(term), int(count), 0, false)
	result, err := bbs.bleveIndex.Search(request)
	if err != nil {
		return nil, fmt.Errorf("error searching for posts: %w", err)
	}

	for _, hit := range result.Hits {
		id, err := strconv.ParseUint(hit.ID, 10, 64)
		if err != nil {
			bbs.logger.Error("invalid document id in bleve index", slog.String("id", hit.ID))
			continue
		}
		ids[id] = true
	}

	return ids, nil
}

func searchQuery(term string) query.Query {
	words := strings.FieldsFunc(strings.ToLower(term), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	if len(words) == 0 {
		return bleve.NewMatchAllQuery()
	}

	conjuncts := make([]query.Query, 0, len(words))
	for _, word := range words {
		disjuncts := make([]query.Query, 0, len(searchFields))
		for _, field := range searchFields {
			prefix := bleve.NewPrefixQuery(word)
			prefix.SetField(field)
			disjuncts = append(disjuncts, prefix)
		}
		conjuncts = append(conjuncts, bleve.NewDisjunctionQuery(disjuncts...))
	}

	return bleve.NewConjunctionQuery(conjuncts...)
}
