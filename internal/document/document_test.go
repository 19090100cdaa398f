package document

import (
	"errors"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	require.NoError(t, Document{Title: "Resume", Body: "# Resume\n"}.Validate())

	err := Document{Title: "  ", Body: "\n\n"}.Validate()
	require.Error(t, err)

	var verrs validation.Errors
	require.True(t, errors.As(err, &verrs))
	assert.Contains(t, verrs, "title")
	assert.Contains(t, verrs, "body")
}

func TestMetadataOnlyHasPresentFields(t *testing.T) {
	doc := Document{Title: "Resume", Body: "x"}
	assert.Equal(t, map[string]any{"title": "Resume"}, doc.Metadata())

	doc.Date = time.Date(2025, 12, 26, 0, 0, 0, 0, time.UTC)
	doc.Author = "Joonas Pessi"
	doc.Extra = map[string]any{"draft": false}
	assert.Equal(t, map[string]any{
		"title":  "Resume",
		"date":   "2025-12-26",
		"author": "Joonas Pessi",
		"draft":  false,
	}, doc.Metadata())
}

func TestCloneIsIndependent(t *testing.T) {
	doc := Document{Title: "T", Tags: []string{"a"}, Extra: map[string]any{"k": "v"}, Body: "b"}
	clone := doc.Clone()
	clone.Tags[0] = "changed"
	clone.Extra["k"] = "changed"

	assert.Equal(t, "a", doc.Tags[0])
	assert.Equal(t, "v", doc.Extra["k"])
}

func TestDateString(t *testing.T) {
	assert.Empty(t, Document{}.DateString())
	assert.False(t, Document{}.HasDate())
}
