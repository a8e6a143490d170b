package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediarr/mediarr/internal/models"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"The Matrix", "the-matrix"},
		{"Spider-Man: No Way Home", "spider-man-no-way-home"},
		{"WALL·E", "wall-e"},
		{"  Leading & Trailing!  ", "leading-trailing"},
		{"1917", "1917"},
		{"!!!", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.title), "title %q", tt.title)
	}
}

func TestDeepLink(t *testing.T) {
	link := DeepLink(models.KindMovie, "The Matrix", "tt0133093")
	require.NotNil(t, link)
	assert.Equal(t, "https://watch.plex.tv/movie/the-matrix-0133093", *link)

	link = DeepLink(models.KindTVShow, "Breaking Bad", "tt0903747")
	require.NotNil(t, link)
	assert.Equal(t, "https://watch.plex.tv/show/breaking-bad-0903747", *link)
}

func TestDeepLinkUnusableInputs(t *testing.T) {
	assert.Nil(t, DeepLink(models.KindMovie, "!!!", "tt0133093"), "empty slug")
	assert.Nil(t, DeepLink(models.KindMovie, "The Matrix", "no-digits"), "no numeric suffix")
	assert.Nil(t, DeepLink(models.KindMovie, "", ""))
}
