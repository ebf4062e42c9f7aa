package searchindex

import (
	"reflect"
	"strings"

	"github.com/Itish41/DocIntel/models"
)

// Mapping derives the index mapping from the elastic struct tags on
// models.IndexRecord, e.g. `elastic:"type:text,analyzer:standard"`.
func Mapping() map[string]any {
	props := map[string]any{}
	t := reflect.TypeOf(models.IndexRecord{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("elastic")
		if tag == "" {
			continue
		}
		name := strings.Split(f.Tag.Get("json"), ",")[0]
		if name == "" {
			name = f.Name
		}
		prop := map[string]any{}
		for _, part := range strings.Split(tag, ",") {
			if k, v, ok := strings.Cut(part, ":"); ok {
				prop[k] = v
			}
		}
		props[name] = prop
	}
	return map[string]any{
		"mappings": map[string]any{"properties": props},
	}
}
