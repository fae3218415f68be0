package domain

import "encoding/json"

// TagList decodes the JSON-encoded tag array stored on the listing.
// A missing or malformed value yields an empty slice.
func (b *Business) TagList() []string {
	if b.Tags == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(b.Tags), &out); err != nil {
		return nil
	}
	return out
}

// SetTagList stores tags as a JSON-encoded array. Nil or empty input clears
// the column.
func (b *Business) SetTagList(tags []string) {
	if len(tags) == 0 {
		b.Tags = ""
		return
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		b.Tags = ""
		return
	}
	b.Tags = string(raw)
}
