package probe

import (
	"encoding/json"
	"errors"
)

// ffprobeFormat mirrors the small slice of ffprobe's -show_format JSON this
// package actually needs; the rest of ffprobe's output is ignored.
type ffprobeFormat struct {
	Format struct {
		Tags struct {
			CreationTime string `json:"creation_time"`
		} `json:"tags"`
	} `json:"format"`
}

// parseFFProbeCreationTime extracts QuickTime:CreateDate-equivalent data
// from raw ffprobe JSON output. Returns an error only when the JSON itself
// doesn't parse or the tag is absent — callers treat both as "no candidate
// from this source", never as a probe failure.
func parseFFProbeCreationTime(raw []byte) (map[string]string, error) {
	var doc ffprobeFormat
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc.Format.Tags.CreationTime == "" {
		return nil, errNoCreationTime
	}
	return map[string]string{"QuickTime:CreateDate": doc.Format.Tags.CreationTime}, nil
}

var errNoCreationTime = errors.New("no creation_time tag in ffprobe output")
