package feedback

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentimentTag(t *testing.T) {
	assert.Equal(t, TagNeedsImprovement, SentimentTag(1))
	assert.Equal(t, TagNeedsImprovement, SentimentTag(2))
	assert.Equal(t, TagNeutral, SentimentTag(3))
	assert.Equal(t, TagPositive, SentimentTag(4))
	assert.Equal(t, TagPositive, SentimentTag(5))
}

func TestApplySentimentTag(t *testing.T) {
	tests := []struct {
		name   string
		tags   []string
		rating int
		want   []string
	}{
		{
			name:   "no tags",
			tags:   nil,
			rating: 5,
			want:   []string{"positive"},
		},
		{
			name:   "keeps free-form tags in order",
			tags:   []string{"labs", "Workload "},
			rating: 3,
			want:   []string{"labs", "workload", "neutral"},
		},
		{
			name:   "sentiment tag not duplicated",
			tags:   []string{"positive", "labs"},
			rating: 4,
			want:   []string{"labs", "positive"},
		},
		{
			name:   "stale sentiment tag replaced when rating crosses a bucket",
			tags:   []string{"labs", "positive"},
			rating: 2,
			want:   []string{"labs", "needs-improvement"},
		},
		{
			name:   "several stale sentiment tags collapse to one",
			tags:   []string{"neutral", "positive", "needs-improvement"},
			rating: 3,
			want:   []string{"neutral"},
		},
		{
			name:   "blank and duplicate tags dropped",
			tags:   []string{"", "labs", "LABS", "  "},
			rating: 1,
			want:   []string{"labs", "needs-improvement"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ApplySentimentTag(tt.tags, tt.rating))
		})
	}
}
