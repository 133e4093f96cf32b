package resolver

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeClampsIndices(t *testing.T) {
	snap := &Snapshot{
		Items:     []Item{{}, {}},
		RunIndex:  -3,
		ItemIndex: 7,
	}
	snap.Normalize()

	assert.Equal(t, 0, snap.RunIndex)
	assert.Equal(t, 1, snap.ItemIndex, "item index clamps to the last item")
	require.NotNil(t, snap.Items[0].JSON, "missing payloads default to empty objects")
	require.NotNil(t, snap.Items[1].JSON)
}

func TestNormalizeNegativeItemIndex(t *testing.T) {
	snap := &Snapshot{Items: []Item{{}}, ItemIndex: -1}
	snap.Normalize()
	assert.Equal(t, 0, snap.ItemIndex)
}

func TestCurrentItem(t *testing.T) {
	snap := &Snapshot{
		Items: []Item{
			{JSON: map[string]any{"n": 1}},
			{JSON: map[string]any{"n": 2}},
		},
		ItemIndex: 1,
	}

	item := snap.CurrentItem()
	require.NotNil(t, item)
	assert.Equal(t, 2, item.JSON["n"])

	empty := &Snapshot{}
	assert.Nil(t, empty.CurrentItem())
}

func TestAttachmentSniff(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("plain text payload"))

	att := &Attachment{Data: payload}
	att.sniff()

	assert.Equal(t, int64(18), att.FileSize)
	assert.Contains(t, att.MimeType, "text/plain")
	assert.Equal(t, ".txt", att.Extension)
}

func TestAttachmentSniffRespectsDeclared(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("data"))

	att := &Attachment{Data: payload, MimeType: "application/x-custom", FileSize: 99}
	att.sniff()

	assert.Equal(t, "application/x-custom", att.MimeType)
	assert.Equal(t, int64(99), att.FileSize)
}

func TestAttachmentSniffBadBase64(t *testing.T) {
	att := &Attachment{Data: "not base64!!!"}
	att.sniff()

	assert.Zero(t, att.FileSize)
	assert.Empty(t, att.MimeType)
}
