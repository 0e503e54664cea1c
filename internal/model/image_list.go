package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// ImageList is an ordered list of image URLs persisted as a JSON array
// string, so it works on columns without native array support.
type ImageList []string

func (l ImageList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *ImageList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = ImageList{}
		return nil
	case []byte:
		return l.parse(string(v))
	case string:
		return l.parse(v)
	default:
		return fmt.Errorf("model: cannot scan %T into ImageList", src)
	}
}

// parse treats a malformed column as empty so one bad row cannot fail a
// whole listing. Cleanup reads the raw column and reports such rows.
func (l *ImageList) parse(raw string) error {
	list, err := ParseImageList(raw)
	if err != nil {
		*l = ImageList{}
		return nil
	}
	*l = list
	return nil
}

// ParseImageList decodes a stored images column. Blank input is an empty list.
func ParseImageList(raw string) (ImageList, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return ImageList{}, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("model: malformed images column: %w", err)
	}
	return ImageList(list), nil
}
