package server

import (
	"encoding/json"

	"github.com/minglehq/mingle/backend/internal/posts"
)

// tagsList accepts the tag field as either an array of names or a single
// comma-separated string, the two shapes clients send.
type tagsList []string

func (t *tagsList) UnmarshalJSON(data []byte) error {
	var asList []string
	if err := json.Unmarshal(data, &asList); err == nil {
		*t = asList
		return nil
	}
	var asString string
	if err := json.Unmarshal(data, &asString); err != nil {
		return err
	}
	*t = posts.SplitTags(asString)
	return nil
}
