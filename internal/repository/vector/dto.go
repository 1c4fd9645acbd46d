package vector

import (
	"encoding/binary"
	"encoding/json"
	"math"

	"github.com/kailas-cloud/lodrag/internal/domain"
	dombm "github.com/kailas-cloud/lodrag/internal/domain/bookmark"
)

const (
	fieldVector            = "vector"
	fieldBookmarkID        = "bookmark_id"
	fieldTitle             = "title"
	fieldSummary           = "summary"
	fieldKeywords          = "keywords"
	fieldImageDescriptions = "image_descriptions"
	fieldSource            = "source"
	fieldBoardName         = "board_name"
	fieldDate              = "date"
	fieldURL               = "url"
	fieldContentPath       = "content_path"
)

// payloadFields are returned by KNN queries; the vector itself is not.
var payloadFields = []string{
	fieldBookmarkID, fieldTitle, fieldSummary, fieldKeywords, fieldImageDescriptions,
	fieldSource, fieldBoardName, fieldDate, fieldURL, fieldContentPath,
}

// buildHashFields flattens a bookmark and its vector into HSET fields.
func buildHashFields(b *dombm.Bookmark, vec []float32) map[string]string {
	return map[string]string{
		fieldVector:            vectorToBytes(vec),
		fieldBookmarkID:        b.ID,
		fieldTitle:             b.Title,
		fieldSummary:           b.Summary,
		fieldKeywords:          encodeList(b.Keywords),
		fieldImageDescriptions: encodeList(b.ImageDescriptions),
		fieldSource:            string(b.Source),
		fieldBoardName:         b.BoardName,
		fieldDate:              b.Date,
		fieldURL:               b.URL,
		fieldContentPath:       b.ContentPath,
	}
}

// parsePayload rebuilds the searchable part of a bookmark from hash fields.
func parsePayload(m map[string]string) dombm.Bookmark {
	return dombm.Bookmark{
		ID:                m[fieldBookmarkID],
		Title:             m[fieldTitle],
		Summary:           m[fieldSummary],
		Keywords:          decodeList(m[fieldKeywords]),
		ImageDescriptions: decodeList(m[fieldImageDescriptions]),
		Source:            domain.Source(m[fieldSource]),
		BoardName:         m[fieldBoardName],
		Date:              m[fieldDate],
		URL:               m[fieldURL],
		ContentPath:       m[fieldContentPath],
	}
}

func encodeList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeList(s string) []string {
	var out []string
	if s == "" || json.Unmarshal([]byte(s), &out) != nil {
		return []string{}
	}
	return out
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
