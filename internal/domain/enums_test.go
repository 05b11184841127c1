package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDetailLevel(t *testing.T) {
	tests := []struct {
		keyword string
		want    DetailLevel
		wantErr bool
	}{
		{keyword: "light", want: DetailLight},
		{keyword: "Moderate", want: DetailModerate},
		{keyword: "lengthy detail", want: DetailLengthy},
		{keyword: "heavy", want: DetailHeavy},
		{keyword: "very heavy detail", want: DetailHeavy},
		{keyword: "detail", want: DetailLight},
		{keyword: "extreme", wantErr: true},
		{keyword: "  ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.keyword, func(t *testing.T) {
			got, err := ParseDetailLevel(tt.keyword)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownDetailLevel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTag(t *testing.T) {
	got, err := ParseTag(" Research ")
	require.NoError(t, err)
	assert.Equal(t, TagResearch, got)
	assert.Equal(t, "research", got.String())

	_, err = ParseTag("resume")
	assert.True(t, errors.Is(err, ErrUnknownTag))

	tags, err := ParseTags([]string{"awards", "FEEDBACK"})
	require.NoError(t, err)
	assert.Equal(t, []Tag{TagAwards, TagFeedback}, tags)
}

func TestEnumJSON(t *testing.T) {
	var p struct {
		Tag    Tag         `json:"tag"`
		Detail DetailLevel `json:"detail"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"tag":"Reviews","detail":"heavy"}`), &p))
	assert.Equal(t, TagReviews, p.Tag)
	assert.Equal(t, DetailHeavy, p.Detail)

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tag":"reviews","detail":"very heavy detail"}`, string(out))

	err = json.Unmarshal([]byte(`{"tag":"misc"}`), &p)
	assert.ErrorIs(t, err, ErrUnknownTag)
}

func TestEnumJSONZeroValues(t *testing.T) {
	var p struct {
		Tag    Tag         `json:"tag"`
		Detail DetailLevel `json:"detail"`
	}
	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tag":"","detail":""}`, string(out))

	p.Tag, p.Detail = TagAwards, DetailLight
	require.NoError(t, json.Unmarshal(out, &p))
	assert.Equal(t, TagUnspecified, p.Tag)
	assert.Equal(t, DetailUnspecified, p.Detail)

	_, err = json.Marshal(struct{ Tag Tag }{Tag: Tag(99)})
	assert.ErrorIs(t, err, ErrUnknownTag)
}

func TestCollectionName(t *testing.T) {
	assert.Equal(t, "att1_app2_collection", CollectionName("att1", "app2"))
	assert.Equal(t, "att-1_app_2_collection", CollectionName(" att-1 ", "app_2"))
}

func TestValidateOwnerIDs(t *testing.T) {
	assert.NoError(t, ValidateOwnerIDs("att-1", "app_2"))
	for _, tt := range []struct{ att, app string }{
		{"", "app"},
		{"att", "  "},
		{"a.b", "app"},
		{"att", "../app"},
		{"...", "app"},
	} {
		err := ValidateOwnerIDs(tt.att, tt.app)
		assert.ErrorIs(t, err, ErrInvalidOwnerID, "%q/%q", tt.att, tt.app)
	}
}

func TestInitError(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := error(NewInitError(ComponentVectorStore, cause))
	assert.ErrorIs(t, err, ErrInitialization)
	assert.ErrorIs(t, err, cause)
	var ie *InitError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, ComponentVectorStore, ie.Component)
}
