package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollectionNameValidation(t *testing.T) {
	valid := []string{"book_content", "_scratch", "points2"}
	for _, name := range valid {
		assert.True(t, identPattern.MatchString(name), name)
	}

	invalid := []string{"", "Book", "book-content", "1table", "a;drop table users", "a b"}
	for _, name := range invalid {
		assert.False(t, identPattern.MatchString(name), name)
	}
}

func TestNewRequiresPool(t *testing.T) {
	_, err := New(nil, "book_content", 768, nil)
	assert.Error(t, err)
}

func TestSearchRejectsBadTopK(t *testing.T) {
	s := &Store{table: "book_content"}

	_, err := s.Search(context.Background(), nil, 0)
	assert.Error(t, err)

	_, err = s.Search(context.Background(), nil, -1)
	assert.Error(t, err)
}
